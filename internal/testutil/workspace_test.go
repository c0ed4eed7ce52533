package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestWorkspaceRoundTrip(t *testing.T) {
	ws := NewWorkspace(t)

	data := []byte(`{"metaVars":{},"procedures":[]}`)
	path := ws.Write("model.json", data)
	if path != ws.Path("model.json") {
		t.Fatalf("Write returned %s, want %s", path, ws.Path("model.json"))
	}
	if got := ws.Read("model.json"); !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestWorkspaceCreatesParentDirectories(t *testing.T) {
	ws := NewWorkspace(t)

	ws.Write("config/overrides/dev.yaml", []byte("logging:\n  level: debug\n"))
	info, err := os.Stat(filepath.Join(ws.Root, "config", "overrides"))
	if err != nil || !info.IsDir() {
		t.Fatalf("expected nested parent directories to exist, got %v", err)
	}
}

func TestWorkspacePathStaysUnderRoot(t *testing.T) {
	ws := NewWorkspace(t)
	if got := ws.Path("artifacts/mod.wasm"); got != filepath.Join(ws.Root, "artifacts", "mod.wasm") {
		t.Fatalf("Path joined wrong: %s", got)
	}
}
