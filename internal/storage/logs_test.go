package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveJobLog(t *testing.T) {
	ls := NewLogStore(t.TempDir())

	path, err := ls.SaveJobLog("run-1", "x86_64-linux", "build ok\n")
	if err != nil {
		t.Fatalf("save log: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if string(data) != "build ok\n" {
		t.Errorf("log content = %q", data)
	}
	if filepath.Base(path) != "x86_64-linux.log" {
		t.Errorf("log file name = %s", filepath.Base(path))
	}
}

func TestSaveJobLogSanitizesNames(t *testing.T) {
	ls := NewLogStore(t.TempDir())

	path, err := ls.SaveJobLog("run/../1", "job name with spaces!", "x")
	if err != nil {
		t.Fatalf("save log: %v", err)
	}
	rel, err := filepath.Rel(ls.BaseDir, path)
	if err != nil || filepath.IsAbs(rel) || rel == ".." || filepath.Dir(filepath.Dir(rel)) != "." {
		t.Errorf("log escaped base dir: %s", path)
	}
}

func TestSanitizeEmptyFallsBack(t *testing.T) {
	if got := sanitize("!!!"); got == "" {
		t.Errorf("sanitize collapsed to empty string")
	}
	if got := sanitize(""); got != "job" {
		t.Errorf("sanitize(\"\") = %q, want job", got)
	}
}
