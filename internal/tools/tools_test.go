package tools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/argus-ai/argus/internal/memory"
	"github.com/argus-ai/argus/internal/shellpolicy"
	"github.com/argus-ai/argus/internal/vault"
)

func TestMain(m *testing.M) {
	keyring.MockInit()
	os.Exit(m.Run())
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	mem, err := memory.Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { mem.Close() })

	return New(&Context{
		ShellPolicy: shellpolicy.New(),
		Memory:      mem,
		HTTPClient:  http.DefaultClient,
	})
}

func TestExecuteUnknownToolReturnsNotBuiltIn(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Execute(context.Background(), "does_not_exist", nil)
	assert.True(t, errors.Is(err, ErrNotBuiltIn))
}

func TestReadFileTruncates(t *testing.T) {
	r := newTestRegistry(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "big.txt")
	content := make([]byte, maxReadFileBytes+100)
	for i := range content {
		content[i] = 'a'
	}
	require.NoError(t, os.WriteFile(path, content, 0o644))

	out, err := r.Execute(context.Background(), "read_file", map[string]any{"path": path})
	require.NoError(t, err)
	assert.Contains(t, out, "[truncated,")
}

func TestWriteFileAndReadBack(t *testing.T) {
	r := newTestRegistry(t)
	path := filepath.Join(t.TempDir(), "out.txt")

	out, err := r.Execute(context.Background(), "write_file", map[string]any{"path": path, "content": "hello"})
	require.NoError(t, err)
	assert.Contains(t, out, "✅ Written 5 bytes")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestListDirectoryEmpty(t *testing.T) {
	r := newTestRegistry(t)
	dir := t.TempDir()

	out, err := r.Execute(context.Background(), "list_directory", map[string]any{"path": dir})
	require.NoError(t, err)
	assert.Equal(t, "(empty directory)", out)
}

func TestListDirectoryEntries(t *testing.T) {
	r := newTestRegistry(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "a_dir"), 0o755))

	out, err := r.Execute(context.Background(), "list_directory", map[string]any{"path": dir})
	require.NoError(t, err)
	assert.Contains(t, out, "📁 a_dir")
	assert.Contains(t, out, "📄 b.txt")
}

func TestShellDelegatesToPolicy(t *testing.T) {
	r := newTestRegistry(t)
	out, err := r.Execute(context.Background(), "shell", map[string]any{"command": "rm -rf /"})
	require.NoError(t, err)
	assert.Contains(t, out, "⛔")
}

func TestRememberRecallForgetRoundtrip(t *testing.T) {
	r := newTestRegistry(t)

	out, err := r.Execute(context.Background(), "remember", map[string]any{
		"type": "fact", "content": "the sky is blue", "importance": 7.0,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Remembered")

	out, err = r.Execute(context.Background(), "recall", map[string]any{"query": "sky"})
	require.NoError(t, err)
	assert.Contains(t, out, "the sky is blue")

	out, err = r.Execute(context.Background(), "forget", map[string]any{"match": "sky"})
	require.NoError(t, err)
	assert.Contains(t, out, "Forgot 1")
}

func TestRecallEmpty(t *testing.T) {
	r := newTestRegistry(t)
	out, err := r.Execute(context.Background(), "recall", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "No memories found.", out)
}

func TestHTTPRequestReturnsStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	}))
	defer srv.Close()

	r := newTestRegistry(t)
	out, err := r.Execute(context.Background(), "http_request", map[string]any{"url": srv.URL})
	require.NoError(t, err)
	assert.Contains(t, out, "HTTP 200")
	assert.Contains(t, out, "pong")
}

func TestHTTPRequestMissingURL(t *testing.T) {
	r := newTestRegistry(t)
	out, err := r.Execute(context.Background(), "http_request", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "No URL provided", out)
}

func TestHTTPRequestRedactsKnownSecret(t *testing.T) {
	v, err := vault.Init(filepath.Join(t.TempDir(), "vault.enc"))
	require.NoError(t, err)
	defer v.Drop()
	require.NoError(t, v.Store("api_key", "sk-super-secret-value"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("token is sk-super-secret-value, keep it safe"))
	}))
	defer srv.Close()

	mem, err := memory.Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	defer mem.Close()

	r := New(&Context{ShellPolicy: shellpolicy.New(), Memory: mem, HTTPClient: http.DefaultClient, Vault: v})

	out, err := r.Execute(context.Background(), "http_request", map[string]any{"url": srv.URL})
	require.NoError(t, err)
	assert.NotContains(t, out, "sk-super-secret-value")
	assert.Contains(t, out, "[REDACTED:api_key]")
}

func TestReadFileRedactsKnownSecret(t *testing.T) {
	v, err := vault.Init(filepath.Join(t.TempDir(), "vault.enc"))
	require.NoError(t, err)
	defer v.Drop()
	require.NoError(t, v.Store("db_password", "hunter2-hunter2-hunter2"))

	path := filepath.Join(t.TempDir(), "config.txt")
	require.NoError(t, os.WriteFile(path, []byte("password=hunter2-hunter2-hunter2"), 0o644))

	mem, err := memory.Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	defer mem.Close()

	r := New(&Context{ShellPolicy: shellpolicy.New(), Memory: mem, HTTPClient: http.DefaultClient, Vault: v})

	out, err := r.Execute(context.Background(), "read_file", map[string]any{"path": path})
	require.NoError(t, err)
	assert.NotContains(t, out, "hunter2-hunter2-hunter2")
	assert.Contains(t, out, "[REDACTED:db_password]")
}

func TestSchemasCoverAllBuiltins(t *testing.T) {
	r := newTestRegistry(t)
	schemas := r.Schemas()

	names := make(map[string]bool, len(schemas))
	for _, s := range schemas {
		names[s.Name] = true
	}

	for _, want := range []string{
		"read_file", "list_directory", "write_file", "shell",
		"web_search", "http_request", "remember", "recall", "forget",
	} {
		assert.True(t, names[want], "missing schema for %s", want)
	}
}
