package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/fieldengine/internal/builder"
	"github.com/vk/fieldengine/internal/ctxlog"
	"github.com/vk/fieldengine/internal/field"
	"github.com/vk/fieldengine/internal/hcl"
	"github.com/vk/fieldengine/internal/registry"
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

// HarnessResult holds the outcome of loading and building a model.
type HarnessResult struct {
	LogOutput string
	Err       error
	Module    *field.Module
}

// WriteFiles writes files, keyed by relative path, below a new temporary
// directory and returns the directory.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// BuildModel writes the files, loads them as a model and builds a field
// module with the operators of the given modules. Debug logs are captured.
func BuildModel(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	dir := WriteFiles(t, files)

	logBuffer := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(logBuffer, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	r := registry.New()
	for _, m := range modules {
		m.Register(r)
	}

	result := &HarnessResult{}
	model, conv, err := hcl.NewLoader().Load(ctx, dir)
	if err == nil {
		result.Module, err = builder.New(r).Build(ctx, model, conv)
	}
	result.Err = err
	result.LogOutput = logBuffer.String()

	if os.Getenv("FIELDENGINE_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), result.LogOutput)
	}
	return result
}

// MustBuild builds a model given as a single HCL source and fails the test
// on any error.
func MustBuild(t *testing.T, src string, modules ...registry.Module) *field.Module {
	t.Helper()
	result := BuildModel(t, map[string]string{"model.hcl": src}, modules...)
	require.NoError(t, result.Err)
	return result.Module
}
