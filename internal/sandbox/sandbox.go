// Package sandbox recompiles extracted module fragments inside a fresh,
// isolated Lua state. Each compilation gets its own state with exactly two
// host capabilities reachable: the schema builder library and a logger. No
// Lua standard libraries are opened, so module code cannot touch the
// filesystem, network, or process environment.
package sandbox

import (
	"context"
	"fmt"
	"strings"
	"sync"

	lua "github.com/Shopify/go-lua"

	"github.com/vk/modgate/internal/ctxlog"
	"github.com/vk/modgate/internal/extract"
	"github.com/vk/modgate/internal/schema"
)

// handlerSlot is the internal global the compiled handler function is parked
// under between invocations.
const handlerSlot = "__modgate_handler"

// Behavior is the executable result of compiling one module. Schema is nil
// when the module declared no body; a Behavior without a handler reports
// false from HasHandler and must not be Called.
type Behavior struct {
	// Schema validates rawBody before dispatch, when present.
	Schema schema.Schema

	mu         sync.Mutex
	state      *lua.State
	hasHandler bool
}

// HasHandler reports whether the module declared a callable handler.
func (b *Behavior) HasHandler() bool {
	return b.hasHandler
}

// Call invokes the module's handler with the given request context table.
// It returns the handler's converted return value together with the context
// table as the handler left it. Calls on the same Behavior are serialized;
// one Lua state never runs two invocations at once. Handler-raised errors
// are returned, not contained.
func (b *Behavior) Call(ctx context.Context, reqCtx map[string]any) (any, map[string]any, error) {
	if !b.hasHandler {
		return nil, nil, fmt.Errorf("module has no handler")
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	l := b.state
	top := l.Top()
	defer l.SetTop(top)

	pushValue(l, reqCtx)  // context table, kept for read-back
	l.Global(handlerSlot) // handler function
	l.PushValue(-2)       // context table again, as the call argument
	if err := l.ProtectedCall(1, 1, 0); err != nil {
		return nil, nil, fmt.Errorf("handler failed: %w", err)
	}

	result := toGoValue(l, -1)
	l.Pop(1)
	mutated := tableToMap(l, -1)
	return result, mutated, nil
}

// Compile assembles the reprocessed program from a fragment pair and
// evaluates it in a brand-new isolated Lua state. Any compilation or
// evaluation failure is logged with the module's name and yields an absent
// Behavior (nil) rather than an error: one malformed module must not abort
// the rest of a directory scan. The reprocessed program text is always
// returned for the registry entry.
func Compile(ctx context.Context, name string, frag extract.Fragment) (*Behavior, string) {
	logger := ctxlog.FromContext(ctx).With("module", name)
	program := assemble(frag)

	l := lua.NewState()
	registerSchemaLibrary(l)
	registerLogger(l, logger)

	if err := lua.LoadBuffer(l, program, name, ""); err != nil {
		logger.Error("Module failed to compile.", "error", err)
		return nil, program
	}
	if err := l.ProtectedCall(0, 2, 0); err != nil {
		logger.Error("Module failed to evaluate.", "error", err)
		return nil, program
	}

	// The chunk returns (body, handler); handler is on top.
	if l.TypeOf(-1) != lua.TypeFunction && l.TypeOf(-1) != lua.TypeNil {
		logger.Error("Module handler is not a function.", "type", int(l.TypeOf(-1)))
		l.SetTop(0)
		return nil, program
	}
	hasHandler := l.TypeOf(-1) == lua.TypeFunction
	l.SetGlobal(handlerSlot)

	bodySchema, err := schemaAt(l, -1)
	l.Pop(1)
	if err != nil {
		logger.Error("Module body is not a schema.", "error", err)
		return nil, program
	}

	if !hasHandler {
		// No handler means no invoker; the registry stores a placeholder.
		return &Behavior{Schema: bodySchema}, program
	}

	return &Behavior{Schema: bodySchema, state: l, hasHandler: true}, program
}

// assemble restates the fragment pair as a runnable chunk: the body
// assignment, the handler lines verbatim, and a final export line. Names
// never declared resolve to nil globals, so a module defining neither still
// evaluates cleanly.
func assemble(frag extract.Fragment) string {
	var sb strings.Builder
	if frag.HasBody {
		sb.WriteString("body = ")
		sb.WriteString(frag.BodyText)
		sb.WriteString("\n")
	}
	for _, line := range frag.HandlerLines {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("return body, handler\n")
	return sb.String()
}

// schemaAt interprets the evaluated body value at index. Accepted shapes:
// nil (no validation), a schema userdata, or the shorthand plain table of
// field → schema.
func schemaAt(l *lua.State, index int) (schema.Schema, error) {
	switch l.TypeOf(index) {
	case lua.TypeNil:
		return nil, nil
	case lua.TypeUserData:
		if s, ok := l.ToUserData(index).(schema.Schema); ok {
			return s, nil
		}
		return nil, fmt.Errorf("body evaluated to a non-schema value")
	case lua.TypeTable:
		fields, err := fieldsFromTable(l, index)
		if err != nil {
			return nil, err
		}
		return schema.Object(fields), nil
	default:
		return nil, fmt.Errorf("body evaluated to %v, expected a schema", l.TypeOf(index))
	}
}
