package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestDir_UsesXDGRuntimeDirWhenSet(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got != td {
		t.Fatalf("Dir() = %q, want %q", got, td)
	}
}

func TestDir_FallbacksWhenXDGRuntimeDirMissing(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got == "" {
		t.Fatal("Dir() returned empty path")
	}

	wantRun := fmt.Sprintf("/run/user/%d", os.Getuid())
	wantTmp := fmt.Sprintf("/tmp/recomp-runtime-%d", os.Getuid())
	if got != wantRun && got != wantTmp {
		t.Fatalf("Dir() = %q, want %q or %q", got, wantRun, wantTmp)
	}
}

func TestSocketPath(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	tests := []struct {
		display string
		env     string
		want    string
	}{
		{display: ":0", want: "recomp-_0.sock"},
		{display: "host:1.0", want: "recomp-host_1.0.sock"},
		{display: "", env: ":2", want: "recomp-_2.sock"},
		{display: "", env: "", want: "recomp.sock"},
	}
	for _, tt := range tests {
		t.Setenv("DISPLAY", tt.env)
		got, err := SocketPath(tt.display)
		if err != nil {
			t.Fatalf("SocketPath(%q) error: %v", tt.display, err)
		}
		if want := filepath.Join(td, tt.want); got != want {
			t.Fatalf("SocketPath(%q) = %q, want %q", tt.display, got, want)
		}
	}
}
