package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSafeWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	p := filepath.Join(dir, "out.json")
	if err := SafeWriteFile(p, []byte("one")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := SafeWriteFile(p, []byte("two")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "two" {
		t.Fatalf("read back: %q, %v", b, err)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]any{"gpa": nil})
	if err != nil {
		t.Fatalf("PrettyJSON: %v", err)
	}
	if string(b) != "{\n  \"gpa\": null\n}" {
		t.Fatalf("unexpected output: %s", b)
	}
}
