package storage

import (
	"path/filepath"
	"sync"
	"testing"
)

func TestHistoryAppendAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")

	h, err := OpenHistory(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	recs := []Record{
		{RunID: "run-1", Job: "A", Status: "passed"},
		{RunID: "run-1", Job: "B", Status: "failed"},
		{RunID: "run-2", Job: "A", Status: "passed"},
	}
	for _, rec := range recs {
		if err := h.Append(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	// Reopen from disk and verify everything survived.
	h2, err := OpenHistory(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := h2.Records()
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	if got[1].Job != "B" || got[1].Status != "failed" {
		t.Errorf("record 1 = %+v", got[1])
	}
	if got[0].Timestamp == "" {
		t.Errorf("timestamp not filled on append")
	}

	byRun := h2.ByRun("run-1")
	if len(byRun) != 2 {
		t.Errorf("ByRun(run-1) = %d records, want 2", len(byRun))
	}
}

func TestHistoryMissingFileIsEmpty(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "nope.jsonl"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(h.Records()) != 0 {
		t.Errorf("fresh history not empty")
	}
}

func TestHistoryConcurrentAppend(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.jsonl"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = h.Append(Record{RunID: "run-1", Job: string(rune('A' + i)), Status: "passed"})
		}(i)
	}
	wg.Wait()

	if got := len(h.Records()); got != 8 {
		t.Errorf("got %d records, want 8", got)
	}
}
