package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/modgate/internal/app"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of a host integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
}

// RunHostTest provides a standardized harness: it writes the given relative
// path → content pairs (module sources, optionally a "modgate.hcl" config)
// into a fresh temporary directory, then constructs and runs the app against
// it, capturing logs and recovering startup panics.
func RunHostTest(t *testing.T, files map[string]string) *HarnessResult {
	t.Helper()
	return RunHostTestWithContext(context.Background(), t, files)
}

// RunHostTestWithContext is RunHostTest with a caller-provided context.
func RunHostTestWithContext(ctx context.Context, t *testing.T, files map[string]string) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	modulesDir := filepath.Join(tmpDir, "modules")
	require.NoError(t, os.Mkdir(modulesDir, 0755))

	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}

	appConfig := &app.Config{
		ModulesPath: modulesDir,
		LogLevel:    "debug",
		LogFormat:   "text",
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "modgate.hcl")); err == nil {
		appConfig.ConfigPath = filepath.Join(tmpDir, "modgate.hcl")
	}

	logBuffer := &SafeBuffer{}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(logBuffer, appConfig)
	}()

	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
			App:       nil,
		}
	}

	runErr := testApp.Run(ctx)

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
	}
}
