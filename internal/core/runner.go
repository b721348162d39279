package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"matrixci/internal/storage"
	"matrixci/pkg/utils"
)

// Runner ties together the matrix expander, the step executor and
// storage: expand once, run every job, persist logs and history.
type Runner struct {
	Collab  Collaborators
	BaseEnv map[string]string // process-wide base environment
	Logs    *storage.LogStore // optional, nil disables log capture
	History *storage.History  // optional, nil disables run history

	// Provision binds a job to its externally provisioned execution
	// environment. Nil leaves the context empty.
	Provision func(job *JobSpec) ExecutionContext
}

// RunPipeline expands the pipeline and runs every job, one goroutine per
// job: jobs share no mutable state, so the only coordination is the
// final join. The report lists jobs in expansion order regardless of
// completion order; the lint job, run alongside the matrix, is listed
// last. A configuration error aborts before any job starts.
func (r *Runner) RunPipeline(ctx context.Context, runID string, p *Pipeline) (*PipelineResult, error) {
	jobs, err := Expand(p)
	if err != nil {
		return nil, err
	}

	exec := &StepExecutor{Collab: r.Collab, BaseEnv: ComposeEnv(r.BaseEnv, p.Env)}

	results := make([]JobResult, len(jobs))
	lint := lintJobSpec(p.Lint)
	var lintRes JobResult

	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.runJob(ctx, exec, runID, p, &jobs[i])
		}(i)
	}
	if lint != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lintRes = r.runJob(ctx, exec, runID, p, lint)
		}()
	}
	wg.Wait()

	if lint != nil {
		results = append(results, lintRes)
	}
	return &PipelineResult{RunID: runID, Jobs: results}, nil
}

func (r *Runner) runJob(ctx context.Context, exec *StepExecutor, runID string, p *Pipeline, job *JobSpec) JobResult {
	var ec ExecutionContext
	if r.Provision != nil {
		ec = r.Provision(job)
	}

	log.Printf("run %s: job %s starting", runID, job.ID)
	res := exec.ExecuteJob(ctx, job, ec)
	log.Printf("run %s: job %s %s (%d skipped)", runID, job.ID, res.Status, res.Skipped)

	r.record(runID, p, job, &res)
	return res
}

func (r *Runner) record(runID string, p *Pipeline, job *JobSpec, res *JobResult) {
	var logPath, logHash string

	if r.Logs != nil {
		var b strings.Builder
		for _, sr := range res.Steps {
			fmt.Fprintf(&b, "=== %s: %s\n", sr.Name, sr.Status)
			if sr.Output != "" {
				b.WriteString(sr.Output)
				if !strings.HasSuffix(sr.Output, "\n") {
					b.WriteByte('\n')
				}
			}
			if sr.Err != "" {
				fmt.Fprintf(&b, "error: %s\n", sr.Err)
			}
		}

		path, err := r.Logs.SaveJobLog(runID, job.ID, b.String())
		if err != nil {
			log.Printf("run %s: job %s: save log: %v", runID, job.ID, err)
		} else {
			logPath = path
			if h, err := utils.HashFile(path); err == nil {
				logHash = h
			}
		}
	}

	if r.History != nil {
		steps := make([]storage.StepRecord, 0, len(res.Steps))
		for _, sr := range res.Steps {
			steps = append(steps, storage.StepRecord{Name: sr.Name, Status: string(sr.Status)})
		}
		rec := storage.Record{
			RunID:    runID,
			Pipeline: p.Name,
			Job:      job.ID,
			Status:   string(res.Status),
			Steps:    steps,
			LogPath:  logPath,
			LogHash:  logHash,
		}
		if err := r.History.Append(rec); err != nil {
			log.Printf("run %s: job %s: record history: %v", runID, job.ID, err)
		}
	}
}

// lintJobSpec models the fixed static-check pass as one job with one
// unconditional step, outside the matrix entirely.
func lintJobSpec(l *LintJob) *JobSpec {
	if l == nil {
		return nil
	}
	name := l.Name
	if name == "" {
		name = "lint"
	}
	step := Step{Name: name, Uses: UsesLint}
	if l.Run != "" {
		step = Step{Name: name, Run: l.Run}
	}
	return &JobSpec{ID: name, Fields: map[string]string{}, Steps: []Step{step}}
}
