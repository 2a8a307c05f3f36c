package schema

import (
	"fmt"
	"strings"
)

// Issue is a single field-level validation failure.
type Issue struct {
	Path    []string `json:"path"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
}

func (i Issue) String() string {
	if len(i.Path) == 0 {
		return i.Message
	}
	return strings.Join(i.Path, ".") + ": " + i.Message
}

// Error aggregates every issue found during a single Parse pass. It is the
// only error type Parse returns for invalid input.
type Error struct {
	Issues []Issue
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Issues) == 1 {
		return "validation failed: " + e.Issues[0].String()
	}
	return fmt.Sprintf("validation failed with %d issues", len(e.Issues))
}

func singleIssue(code, message string) error {
	return &Error{Issues: []Issue{{Code: code, Message: message}}}
}

// prefixed returns a copy of err with path prepended to every issue, so
// nested object failures report their full field path.
func prefixed(path string, err error) error {
	verr, ok := err.(*Error)
	if !ok {
		return err
	}
	out := &Error{Issues: make([]Issue, len(verr.Issues))}
	for i, issue := range verr.Issues {
		issue.Path = append([]string{path}, issue.Path...)
		out.Issues[i] = issue
	}
	return out
}
