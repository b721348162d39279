package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LogStore manages saving job logs to files, one directory per run.
type LogStore struct {
	BaseDir string
}

// NewLogStore creates a new log store rooted at baseDir.
func NewLogStore(baseDir string) *LogStore {
	return &LogStore{BaseDir: baseDir}
}

// SaveJobLog writes the combined step output of one job under
// <base>/<run>/<job>.log and returns the file path.
func (ls *LogStore) SaveJobLog(runID, job, output string) (string, error) {
	dir := filepath.Join(ls.BaseDir, sanitize(runID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}

	path := filepath.Join(dir, sanitize(job)+".log")
	if err := os.WriteFile(path, []byte(output), 0o644); err != nil {
		return "", fmt.Errorf("write log: %w", err)
	}
	return path, nil
}

// sanitize keeps file names safe: anything outside [a-zA-Z0-9._-] is
// replaced, an empty result falls back to "job".
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "job"
	}
	return b.String()
}
