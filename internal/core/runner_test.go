package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"matrixci/internal/storage"
)

func runnerPipeline() *Pipeline {
	return &Pipeline{
		Name:     "cross",
		Defaults: map[string]string{FieldBuildOnly: "false", FieldPackages: ""},
		Matrix: Matrix{
			Dimensions: []Dimension{{Name: "thing", Values: []string{"A", "B", "C"}}},
			Include: []OverrideRecord{
				{Key: "B", Fields: map[string]string{FieldBuildOnly: "true"}},
			},
		},
		Steps: []StepTemplate{
			{Name: "build", Uses: UsesToolchain, With: "build"},
			{Name: "test", Uses: UsesToolchain, With: "test", If: "!build_only"},
		},
		Lint: &LintJob{Name: "clippy"},
	}
}

func TestRunPipelineReportOrderAndPersistence(t *testing.T) {
	stub := &stubCollab{}
	dir := t.TempDir()
	history, err := storage.OpenHistory(filepath.Join(dir, "history.jsonl"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}

	runner := &Runner{
		Collab: Collaborators{
			Source: stub, Packages: stub, Toolchain: stub, Checker: stub, Commands: stub,
		},
		Logs:    storage.NewLogStore(filepath.Join(dir, "logs")),
		History: history,
		Provision: func(*JobSpec) ExecutionContext {
			return ExecutionContext{OS: "linux", Arch: "amd64"}
		},
	}

	result, err := runner.RunPipeline(context.Background(), "run-1", runnerPipeline())
	if err != nil {
		t.Fatalf("run pipeline: %v", err)
	}

	// Matrix jobs in expansion order, lint listed last.
	wantOrder := []string{"A", "B", "C", "clippy"}
	if len(result.Jobs) != len(wantOrder) {
		t.Fatalf("got %d job results, want %d", len(result.Jobs), len(wantOrder))
	}
	for i, want := range wantOrder {
		if result.Jobs[i].Job != want {
			t.Errorf("result %d = %s, want %s", i, result.Jobs[i].Job, want)
		}
		if result.Jobs[i].Status != JobPassed {
			t.Errorf("job %s status = %s, want passed", want, result.Jobs[i].Status)
		}
	}
	if result.Failed() {
		t.Errorf("pipeline reported failed")
	}

	// B is build-only: its test step skipped, everyone else ran both.
	if result.Jobs[1].Skipped != 1 {
		t.Errorf("job B skipped = %d, want 1", result.Jobs[1].Skipped)
	}
	if stub.checks != 1 {
		t.Errorf("static checker called %d times, want 1", stub.checks)
	}

	// Every job leaves a log file and a history record with its hash.
	recs := history.ByRun("run-1")
	if len(recs) != 4 {
		t.Fatalf("history has %d records, want 4", len(recs))
	}
	for _, rec := range recs {
		if rec.LogPath == "" || rec.LogHash == "" {
			t.Errorf("record for %s missing log path or hash: %+v", rec.Job, rec)
			continue
		}
		if _, err := os.Stat(rec.LogPath); err != nil {
			t.Errorf("log file for %s: %v", rec.Job, err)
		}
	}
}

func TestRunPipelineConfigurationErrorRunsNothing(t *testing.T) {
	stub := &stubCollab{}
	p := runnerPipeline()
	p.Matrix.Include = append(p.Matrix.Include, OverrideRecord{
		Key: "Z", Fields: map[string]string{"x": "1"},
	})

	runner := &Runner{Collab: Collaborators{
		Source: stub, Packages: stub, Toolchain: stub, Checker: stub, Commands: stub,
	}}

	_, err := runner.RunPipeline(context.Background(), "run-2", p)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if len(stub.invokes) != 0 || stub.checks != 0 || stub.fetches != 0 {
		t.Errorf("collaborators were invoked despite malformed plan: %+v", stub)
	}
}

func TestRunPipelineFailingJobDoesNotAffectSiblings(t *testing.T) {
	stub := &stubCollab{failCmd: "test"}
	p := runnerPipeline()
	p.Lint = nil

	runner := &Runner{Collab: Collaborators{
		Source: stub, Packages: stub, Toolchain: stub, Checker: stub, Commands: stub,
	}}

	result, err := runner.RunPipeline(context.Background(), "run-3", p)
	if err != nil {
		t.Fatalf("run pipeline: %v", err)
	}

	// A and C run test and fail; B is build-only and passes.
	if result.Jobs[0].Status != JobFailed {
		t.Errorf("job A status = %s, want failed", result.Jobs[0].Status)
	}
	if result.Jobs[1].Status != JobPassed {
		t.Errorf("job B status = %s, want passed", result.Jobs[1].Status)
	}
	if result.Jobs[2].Status != JobFailed {
		t.Errorf("job C status = %s, want failed", result.Jobs[2].Status)
	}
	if !result.Failed() {
		t.Errorf("pipeline must report failed")
	}
}
