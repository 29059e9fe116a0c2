package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	// Configure both env vars for cross-platform behavior of os.UserHomeDir.
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
	if got, err := ExpandHome("/tmp"); err != nil || got != "/tmp" {
		t.Fatalf("got %q err=%v", got, err)
	}
	if got, err := ExpandHome(""); err != nil || got != "" {
		t.Fatalf("got %q err=%v", got, err)
	}
	p, err := ExpandHome("~")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p != home {
		t.Fatalf("expected %q, got %q", home, p)
	}
	exp, err := ExpandHome("~/.promptstock/models")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if runtime.GOOS != "windows" {
		if want := filepath.Join(home, ".promptstock", "models"); exp != want {
			t.Fatalf("expected %q, got %q", want, exp)
		}
	}
}

func TestFileHelpers(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "model.gguf")
	b := filepath.Join(dir, "mmproj.gguf")
	if err := os.WriteFile(a, make([]byte, 1024), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(b, make([]byte, 24), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if !IsFile(a) || IsFile(dir) || IsFile("") || IsFile(filepath.Join(dir, "nope")) {
		t.Fatalf("IsFile misclassified")
	}
	if !PathExists(dir) || PathExists(filepath.Join(dir, "nope")) {
		t.Fatalf("PathExists misclassified")
	}
	if n, err := FileSize(a); err != nil || n != 1024 {
		t.Fatalf("FileSize = %d, %v", n, err)
	}
	if _, err := FileSize(dir); err == nil {
		t.Fatalf("FileSize on a directory must fail")
	}
	if n, err := DirSize(dir); err != nil || n != 1048 {
		t.Fatalf("DirSize = %d, %v", n, err)
	}
	if n, err := DirSize(filepath.Join(dir, "missing")); err != nil || n != 0 {
		t.Fatalf("DirSize missing = %d, %v", n, err)
	}
}
