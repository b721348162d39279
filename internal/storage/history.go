package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// History is an append-only JSONL record of job outcomes across pipeline
// runs. One line per finished job.
type History struct {
	mu   sync.Mutex
	path string
	recs []Record
}

// Record is one job outcome.
type Record struct {
	RunID     string       `json:"runId"`
	Pipeline  string       `json:"pipeline,omitempty"`
	Job       string       `json:"job"`
	Status    string       `json:"status"`
	Steps     []StepRecord `json:"steps,omitempty"`
	LogPath   string       `json:"logPath,omitempty"`
	LogHash   string       `json:"logHash,omitempty"`
	Timestamp string       `json:"timestamp"`
}

// StepRecord is one step outcome inside a job record.
type StepRecord struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// OpenHistory loads the history file at path, creating state for a fresh
// file when it does not exist yet.
func OpenHistory(path string) (*History, error) {
	h := &History{path: path}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return h, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("history %s: corrupt record: %w", path, err)
		}
		h.recs = append(h.recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return h, nil
}

// Append writes one record to the history file and keeps it in memory.
// Safe for concurrent use; jobs of a parallel run append through here.
func (h *History) Append(rec Record) error {
	if rec.Timestamp == "" {
		rec.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(rec); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	h.recs = append(h.recs, rec)
	return nil
}

// Records returns a copy of every loaded and appended record, in order.
func (h *History) Records() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Record, len(h.recs))
	copy(out, h.recs)
	return out
}

// ByRun returns the records of one run, in append order.
func (h *History) ByRun(runID string) []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Record
	for _, rec := range h.recs {
		if rec.RunID == runID {
			out = append(out, rec)
		}
	}
	return out
}
