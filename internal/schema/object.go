package schema

import (
	"context"
	"fmt"
	"sort"
)

// ObjectSchema validates a map-shaped value field by field. Undeclared
// fields in the input are dropped from the parsed result; declared fields
// are required unless wrapped with Optional.
type ObjectSchema struct {
	fields map[string]Schema
}

// Object returns a schema over the given field set.
func Object(fields map[string]Schema) *ObjectSchema {
	return &ObjectSchema{fields: fields}
}

// Parse implements Schema. All field failures are gathered into a single
// *Error so callers see every problem in one pass.
func (s *ObjectSchema) Parse(ctx context.Context, raw any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in, ok := raw.(map[string]any)
	if !ok {
		return nil, singleIssue("invalid_type", fmt.Sprintf("expected object, got %T", raw))
	}

	// Deterministic field order keeps issue lists stable across runs.
	names := make([]string, 0, len(s.fields))
	for name := range s.fields {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]any, len(s.fields))
	var issues []Issue
	for _, name := range names {
		field := s.fields[name]
		value, present := in[name]
		if !present {
			if _, opt := field.(*OptionalSchema); opt {
				continue
			}
			issues = append(issues, Issue{Path: []string{name}, Code: "required", Message: "field is required"})
			continue
		}
		parsed, err := field.Parse(ctx, value)
		if err != nil {
			verr, isValidation := prefixed(name, err).(*Error)
			if !isValidation {
				return nil, err
			}
			issues = append(issues, verr.Issues...)
			continue
		}
		out[name] = parsed
	}

	if len(issues) > 0 {
		return nil, &Error{Issues: issues}
	}
	return out, nil
}

// OptionalSchema accepts a missing or nil value, otherwise delegating to the
// wrapped schema.
type OptionalSchema struct {
	inner Schema
}

// Optional wraps a schema so that object fields using it may be absent.
func Optional(inner Schema) *OptionalSchema {
	return &OptionalSchema{inner: inner}
}

// Parse implements Schema.
func (s *OptionalSchema) Parse(ctx context.Context, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	return s.inner.Parse(ctx, raw)
}
