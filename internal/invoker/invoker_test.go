package invoker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/modgate/internal/ctxlog"
	"github.com/vk/modgate/internal/extract"
	"github.com/vk/modgate/internal/sandbox"
)

func testContext() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func buildInvoker(t *testing.T, source string) *Invoker {
	t.Helper()
	behavior, _ := sandbox.Compile(testContext(), t.Name(), extract.Scan(source))
	return New(behavior)
}

const signupSource = "local body = schema.object({ email = schema.string():email() });\n" +
	"\n" +
	"local handler = function(ctx)\n" +
	"  return { ok = true, email = ctx.body.email }\n" +
	"end\n"

func TestInvokeValidBody(t *testing.T) {
	inv := buildInvoker(t, signupSource)
	require.NotNil(t, inv)

	req := &Request{RawBody: map[string]any{"email": "a@b.com"}}
	result, err := inv.Invoke(testContext(), req)

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true, "email": "a@b.com"}, result)
	assert.Equal(t, 0, req.Status)
}

func TestInvokeInvalidBody(t *testing.T) {
	inv := buildInvoker(t, signupSource)
	require.NotNil(t, inv)

	req := &Request{RawBody: map[string]any{"email": "not-an-email"}}
	result, err := inv.Invoke(testContext(), req)

	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 400, req.Status)

	failure, ok := req.Body.(Failure)
	require.True(t, ok, "expected Failure payload, got %T", req.Body)
	assert.Equal(t, "Invalid request body", failure.Error)
	require.Len(t, failure.Details, 1)
	assert.Equal(t, []string{"email"}, failure.Details[0].Path)
}

func TestInvokeWithoutSchemaSkipsValidation(t *testing.T) {
	inv := buildInvoker(t, `local handler = function() return "pong" end`)
	require.NotNil(t, inv)

	// rawBody is never inspected: a shape that would fail any schema still
	// reaches the handler, and so does a nil one.
	for _, rawBody := range []any{nil, "not an object", 42} {
		req := &Request{RawBody: rawBody}
		result, err := inv.Invoke(testContext(), req)
		require.NoError(t, err)
		assert.Equal(t, "pong", result)
		assert.Equal(t, 0, req.Status)
		assert.Nil(t, req.Body)
	}
}

func TestHandlerRunsExactlyOncePerInvoke(t *testing.T) {
	source := "local body = schema.object({ n = schema.number() });\n" +
		"local handler = function(ctx)\n" +
		"  calls = (calls or 0) + 1\n" +
		"  return calls\n" +
		"end\n"
	inv := buildInvoker(t, source)
	require.NotNil(t, inv)

	result, err := inv.Invoke(testContext(), &Request{RawBody: map[string]any{"n": 1}})
	require.NoError(t, err)
	assert.Equal(t, 1.0, result)

	// A rejected request must not touch the handler.
	req := &Request{RawBody: map[string]any{"n": "nope"}}
	_, err = inv.Invoke(testContext(), req)
	require.NoError(t, err)
	assert.Equal(t, 400, req.Status)

	result, err = inv.Invoke(testContext(), &Request{RawBody: map[string]any{"n": 2}})
	require.NoError(t, err)
	assert.Equal(t, 2.0, result)
}

func TestInvokeSyncsHandlerContextMutations(t *testing.T) {
	source := "local handler = function(ctx)\n" +
		"  ctx.status = 201\n" +
		"  ctx.body = { created = true }\n" +
		"  return ctx.body\n" +
		"end\n"
	inv := buildInvoker(t, source)
	require.NotNil(t, inv)

	req := &Request{}
	result, err := inv.Invoke(testContext(), req)

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"created": true}, result)
	assert.Equal(t, 201, req.Status)
	assert.Equal(t, map[string]any{"created": true}, req.Body)
}

func TestNewReturnsNilForAbsentHandler(t *testing.T) {
	behavior, _ := sandbox.Compile(testContext(), "schema-only", extract.Scan("local body = schema.string();\n"))
	require.NotNil(t, behavior)
	assert.Nil(t, New(behavior))

	assert.Nil(t, New(nil))
}

func TestInvokePropagatesHandlerError(t *testing.T) {
	inv := buildInvoker(t, "local handler = function(ctx) return ctx.body.missing.deep end")
	require.NotNil(t, inv)

	_, err := inv.Invoke(testContext(), &Request{})
	require.Error(t, err)
}

func TestConcurrentInvocations(t *testing.T) {
	// One counting module invoked from many goroutines at once, plus a
	// second module running concurrently with it. Same-module calls are
	// serialized on the module's own state, so every count is handed out
	// exactly once; the other module's scope stays untouched.
	counting := buildInvoker(t, "local handler = function()\n"+
		"  calls = (calls or 0) + 1\n"+
		"  return calls\n"+
		"end\n")
	ping := buildInvoker(t, `local handler = function() return "pong" end`)
	require.NotNil(t, counting)
	require.NotNil(t, ping)

	const workers = 16
	counts := make(chan float64, workers)
	errs := make(chan error, 2*workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			result, err := counting.Invoke(testContext(), &Request{})
			if err != nil {
				errs <- err
				return
			}
			counts <- result.(float64)
		}()
		go func() {
			defer wg.Done()
			result, err := ping.Invoke(testContext(), &Request{})
			if err != nil {
				errs <- err
				return
			}
			if result != "pong" {
				errs <- fmt.Errorf("unexpected ping result: %v", result)
			}
		}()
	}
	wg.Wait()
	close(counts)
	close(errs)

	for err := range errs {
		t.Errorf("concurrent invoke failed: %v", err)
	}

	seen := map[float64]bool{}
	for count := range counts {
		assert.False(t, seen[count], "count %v handed out twice", count)
		seen[count] = true
	}
	assert.Len(t, seen, workers)
	assert.True(t, seen[float64(workers)], "final count should reach %d", workers)
}

func TestInvokeHonorsCancelledContext(t *testing.T) {
	inv := buildInvoker(t, signupSource)
	require.NotNil(t, inv)

	ctx, cancel := context.WithCancel(testContext())
	cancel()

	req := &Request{RawBody: map[string]any{"email": "a@b.com"}}
	_, err := inv.Invoke(ctx, req)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, req.Status, "cancellation is not a validation verdict")
}
