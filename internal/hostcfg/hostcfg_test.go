package hostcfg

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/modgate/internal/ctxlog"
)

func testContext() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modgate.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
modules_path = "modules"
log_level    = "debug"
log_format   = "text"

invoke "signup" {
  raw_body = {
    email = "a@b.com"
    age   = 30
    admin = false
    tags  = ["a", "b"]
  }
}

invoke "ping" {}
`)

	model, err := Load(testContext(), path)
	require.NoError(t, err)

	assert.Equal(t, "modules", model.ModulesPath)
	assert.Equal(t, "debug", model.LogLevel)
	assert.Equal(t, "text", model.LogFormat)
	require.Len(t, model.Invocations, 2)

	signup := model.Invocations[0]
	assert.Equal(t, "signup", signup.Module)
	assert.Equal(t, map[string]any{
		"email": "a@b.com",
		"age":   30.0,
		"admin": false,
		"tags":  []any{"a", "b"},
	}, signup.RawBody)

	ping := model.Invocations[1]
	assert.Equal(t, "ping", ping.Module)
	assert.Nil(t, ping.RawBody)
}

func TestLoadMinimalConfig(t *testing.T) {
	path := writeConfig(t, `modules_path = "m"`)

	model, err := Load(testContext(), path)
	require.NoError(t, err)
	assert.Equal(t, "m", model.ModulesPath)
	assert.Empty(t, model.Invocations)
}

func TestLoadRejectsMalformedHCL(t *testing.T) {
	path := writeConfig(t, `modules_path = `)

	_, err := Load(testContext(), path)
	require.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(testContext(), filepath.Join(t.TempDir(), "absent.hcl"))
	require.Error(t, err)
}

func TestLoadNestedRawBody(t *testing.T) {
	path := writeConfig(t, `
invoke "nested" {
  raw_body = {
    user = {
      email = "x@y.dev"
    }
  }
}
`)

	model, err := Load(testContext(), path)
	require.NoError(t, err)
	require.Len(t, model.Invocations, 1)
	assert.Equal(t, map[string]any{
		"user": map[string]any{"email": "x@y.dev"},
	}, model.Invocations[0].RawBody)
}
