// Package invoker wraps a compiled module behavior into a single validated
// callable: schema-check the request body, then dispatch to the handler.
// Validation failures are terminal, contained outcomes surfaced on the
// request context; they never escape as errors.
package invoker

import (
	"context"
	"fmt"

	"github.com/vk/modgate/internal/sandbox"
	"github.com/vk/modgate/internal/schema"
)

// Request is the mutable context for one invocation. The caller owns it:
// it is created per call, passed by reference, and read back afterwards.
type Request struct {
	// RawBody is the caller-supplied input, validated when the module
	// declares a body schema.
	RawBody any

	// Body holds the validated, coerced payload on success, or the failure
	// payload when validation rejects RawBody.
	Body any

	// Status is zero until validation fails (400) or the handler sets one.
	Status int
}

// Failure is the structured payload written to Request.Body when validation
// rejects the input.
type Failure struct {
	Error   string         `json:"error"`
	Details []schema.Issue `json:"details"`
}

// Invoker gates one module's handler behind its optional body schema. It is
// stateless beyond that binding and safe to invoke repeatedly; each call
// operates on its own Request.
type Invoker struct {
	behavior *sandbox.Behavior
}

// New wraps a compiled behavior. It returns nil when the behavior is absent
// or has no handler: the registry stores nil as the "unusable module"
// placeholder, and callers must check before invoking.
func New(behavior *sandbox.Behavior) *Invoker {
	if behavior == nil || !behavior.HasHandler() {
		return nil
	}
	return &Invoker{behavior: behavior}
}

// Invoke validates req.RawBody against the module's schema (when one was
// declared), then dispatches to the handler with the request context. On
// validation failure the handler is never called: req is mutated to carry
// status 400 and the structured failure payload, and Invoke returns a nil
// result and nil error. The handler's return value becomes the result;
// handler-internal failures come back as the error.
func (inv *Invoker) Invoke(ctx context.Context, req *Request) (any, error) {
	if inv.behavior.Schema != nil {
		parsed, err := inv.behavior.Schema.Parse(ctx, req.RawBody)
		if err != nil {
			verr, ok := err.(*schema.Error)
			if !ok {
				// Context cancellation, not a validation verdict.
				return nil, err
			}
			req.Status = 400
			req.Body = Failure{Error: "Invalid request body", Details: verr.Issues}
			return nil, nil
		}
		req.Body = parsed
	}

	result, mutated, err := inv.behavior.Call(ctx, contextTable(req))
	if err != nil {
		return nil, fmt.Errorf("invoke: %w", err)
	}
	syncContext(req, mutated)
	return result, nil
}

// contextTable builds the table handed to the handler. RawBody is always
// visible; Body appears only once validation has populated it.
func contextTable(req *Request) map[string]any {
	table := map[string]any{}
	if req.RawBody != nil {
		table["rawBody"] = req.RawBody
	}
	if req.Body != nil {
		table["body"] = req.Body
	}
	if req.Status != 0 {
		table["status"] = req.Status
	}
	return table
}

// syncContext copies handler-side context mutations back onto the Request.
func syncContext(req *Request, mutated map[string]any) {
	if mutated == nil {
		return
	}
	if status, ok := mutated["status"].(float64); ok {
		req.Status = int(status)
	}
	if body, ok := mutated["body"]; ok {
		req.Body = body
	}
}
