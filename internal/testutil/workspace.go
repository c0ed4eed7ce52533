package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Workspace is an isolated scratch directory for tests that shuttle
// artifacts through the filesystem: AST JSON in, compiled module bytes
// out, config trees for the loader. It fails the owning test on any
// I/O error so call sites stay assertion-only, and its root lives in
// the test's own temp dir, so cleanup is automatic.
type Workspace struct {
	tb   testing.TB
	Root string
}

// NewWorkspace creates a workspace scoped to tb's lifetime.
func NewWorkspace(tb testing.TB) *Workspace {
	tb.Helper()
	return &Workspace{tb: tb, Root: tb.TempDir()}
}

// Path returns the absolute path of name inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Root, name)
}

// Write stores data under name, creating parent directories as
// needed, and returns the absolute path written.
func (w *Workspace) Write(name string, data []byte) string {
	w.tb.Helper()
	path := w.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		w.tb.Fatalf("workspace: mkdir for %s: %v", name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		w.tb.Fatalf("workspace: write %s: %v", name, err)
	}
	return path
}

// Read returns the contents of name.
func (w *Workspace) Read(name string) []byte {
	w.tb.Helper()
	data, err := os.ReadFile(w.Path(name))
	if err != nil {
		w.tb.Fatalf("workspace: read %s: %v", name, err)
	}
	return data
}
