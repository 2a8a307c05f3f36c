// Package schema is the object-shape validator injected into module
// sandboxes. Builders chain refinements and every schema validates with a
// single Parse pass that either returns the coerced value or an *Error
// carrying field-level issues.
package schema

import (
	"context"
	"fmt"
	"regexp"
)

// Schema validates and coerces a raw input value. Parse returns the coerced
// value on success, or an *Error describing every failed check. Any other
// error kind (context cancellation) is passed through as-is.
type Schema interface {
	Parse(ctx context.Context, raw any) (any, error)
}

// emailRe is deliberately loose: one '@' with non-empty local and domain
// parts, and a dot in the domain.
var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// stringCheck is one refinement applied after the type check.
type stringCheck func(s string) *Issue

// StringSchema validates string values.
type StringSchema struct {
	checks []stringCheck
}

// String returns a schema that accepts any string.
func String() *StringSchema {
	return &StringSchema{}
}

func (s *StringSchema) with(check stringCheck) *StringSchema {
	next := &StringSchema{checks: make([]stringCheck, len(s.checks), len(s.checks)+1)}
	copy(next.checks, s.checks)
	next.checks = append(next.checks, check)
	return next
}

// Email refines the schema to accept only email-shaped strings.
func (s *StringSchema) Email() *StringSchema {
	return s.with(func(v string) *Issue {
		if !emailRe.MatchString(v) {
			return &Issue{Code: "invalid_email", Message: fmt.Sprintf("%q is not a valid email address", v)}
		}
		return nil
	})
}

// Min refines the schema with a minimum length.
func (s *StringSchema) Min(n int) *StringSchema {
	return s.with(func(v string) *Issue {
		if len(v) < n {
			return &Issue{Code: "too_short", Message: fmt.Sprintf("must be at least %d characters", n)}
		}
		return nil
	})
}

// Max refines the schema with a maximum length.
func (s *StringSchema) Max(n int) *StringSchema {
	return s.with(func(v string) *Issue {
		if len(v) > n {
			return &Issue{Code: "too_long", Message: fmt.Sprintf("must be at most %d characters", n)}
		}
		return nil
	})
}

// Parse implements Schema.
func (s *StringSchema) Parse(ctx context.Context, raw any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := raw.(string)
	if !ok {
		return nil, singleIssue("invalid_type", fmt.Sprintf("expected string, got %T", raw))
	}
	var issues []Issue
	for _, check := range s.checks {
		if issue := check(v); issue != nil {
			issues = append(issues, *issue)
		}
	}
	if len(issues) > 0 {
		return nil, &Error{Issues: issues}
	}
	return v, nil
}

type numberCheck func(f float64) *Issue

// NumberSchema validates numeric values. All accepted inputs coerce to
// float64, matching the sandbox's numeric representation.
type NumberSchema struct {
	checks []numberCheck
}

// Number returns a schema that accepts any numeric value.
func Number() *NumberSchema {
	return &NumberSchema{}
}

func (s *NumberSchema) with(check numberCheck) *NumberSchema {
	next := &NumberSchema{checks: make([]numberCheck, len(s.checks), len(s.checks)+1)}
	copy(next.checks, s.checks)
	next.checks = append(next.checks, check)
	return next
}

// Min refines the schema with an inclusive lower bound.
func (s *NumberSchema) Min(bound float64) *NumberSchema {
	return s.with(func(v float64) *Issue {
		if v < bound {
			return &Issue{Code: "too_small", Message: fmt.Sprintf("must be >= %v", bound)}
		}
		return nil
	})
}

// Max refines the schema with an inclusive upper bound.
func (s *NumberSchema) Max(bound float64) *NumberSchema {
	return s.with(func(v float64) *Issue {
		if v > bound {
			return &Issue{Code: "too_big", Message: fmt.Sprintf("must be <= %v", bound)}
		}
		return nil
	})
}

// Int refines the schema to reject fractional values.
func (s *NumberSchema) Int() *NumberSchema {
	return s.with(func(v float64) *Issue {
		if v != float64(int64(v)) {
			return &Issue{Code: "not_integer", Message: "must be an integer"}
		}
		return nil
	})
}

// Parse implements Schema.
func (s *NumberSchema) Parse(ctx context.Context, raw any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := toFloat(raw)
	if !ok {
		return nil, singleIssue("invalid_type", fmt.Sprintf("expected number, got %T", raw))
	}
	var issues []Issue
	for _, check := range s.checks {
		if issue := check(v); issue != nil {
			issues = append(issues, *issue)
		}
	}
	if len(issues) > 0 {
		return nil, &Error{Issues: issues}
	}
	return v, nil
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// BoolSchema validates boolean values.
type BoolSchema struct{}

// Bool returns a schema that accepts a boolean.
func Bool() *BoolSchema {
	return &BoolSchema{}
}

// Parse implements Schema.
func (s *BoolSchema) Parse(ctx context.Context, raw any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := raw.(bool)
	if !ok {
		return nil, singleIssue("invalid_type", fmt.Sprintf("expected bool, got %T", raw))
	}
	return v, nil
}
