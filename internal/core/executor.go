package core

import (
	"context"
)

// Collaborator interfaces. The core plans and sequences work; fetching
// sources, installing packages, invoking the toolchain and linting are
// done by the caller's implementations (internal/shell has the local
// ones). Each call returns the action's captured output.

type SourceFetcher interface {
	Fetch(ctx context.Context, job *JobSpec, env map[string]string) (string, error)
}

type PackageInstaller interface {
	Install(ctx context.Context, target, packages string, env map[string]string) (string, error)
}

type ToolchainInvoker interface {
	Invoke(ctx context.Context, target, command string, env map[string]string) (string, error)
}

type StaticChecker interface {
	Check(ctx context.Context, env map[string]string) (string, error)
}

// CommandRunner executes a raw step command under the step's shell.
type CommandRunner interface {
	RunCommand(ctx context.Context, shell, command string, env map[string]string) (string, error)
}

// Collaborators bundles the external actions steps can bind to.
type Collaborators struct {
	Source    SourceFetcher
	Packages  PackageInstaller
	Toolchain ToolchainInvoker
	Checker   StaticChecker
	Commands  CommandRunner
}

// Values a step's `uses:` field may take.
const (
	UsesCheckout  = "checkout"
	UsesPackages  = "packages"
	UsesToolchain = "toolchain"
	UsesLint      = "lint"
)

// StepExecutor runs one job's steps strictly in order: evaluate the
// step's condition against the job's fields, compose its environment,
// invoke the bound collaborator, fail fast on the first unconditional
// failure.
type StepExecutor struct {
	Collab  Collaborators
	BaseEnv map[string]string
}

// ExecuteJob drives one job from Pending to a terminal state.
//
// A step whose condition evaluates false is recorded Skipped and costs
// nothing. A step failure aborts the remaining steps and marks the job
// Failed; sibling jobs are unaffected. Cancelling ctx aborts the current
// step and records it and every remaining step Cancelled.
func (e *StepExecutor) ExecuteJob(ctx context.Context, job *JobSpec, ec ExecutionContext) JobResult {
	res := JobResult{Job: job.ID, Context: ec, Status: JobRunning}

	for _, step := range job.Steps {
		if ctx.Err() != nil {
			res.Steps = append(res.Steps, StepResult{Name: step.Name, Status: StepCancelled})
			res.Status = JobCancelled
			continue
		}
		if step.If != nil && !step.If.Eval(job.Fields) {
			res.Steps = append(res.Steps, StepResult{Name: step.Name, Status: StepSkipped})
			res.Skipped++
			continue
		}

		env := ComposeEnv(e.BaseEnv, job.Env, step.Env)
		out, err := e.invoke(ctx, job, step, env)
		if err != nil {
			if ctx.Err() != nil {
				res.Steps = append(res.Steps, StepResult{Name: step.Name, Status: StepCancelled, Output: out})
				res.Status = JobCancelled
				continue
			}
			stepErr := &StepError{Job: job.ID, Step: step.Name, Err: err}
			res.Steps = append(res.Steps, StepResult{Name: step.Name, Status: StepFailed, Output: out, Err: stepErr.Error()})
			res.Status = JobFailed
			break // fail-fast within the job
		}
		res.Steps = append(res.Steps, StepResult{Name: step.Name, Status: StepPassed, Output: out})
	}

	if res.Status == JobRunning {
		res.Status = JobPassed
	}
	return res
}

func (e *StepExecutor) invoke(ctx context.Context, job *JobSpec, step Step, env map[string]string) (string, error) {
	switch step.Uses {
	case UsesCheckout:
		return e.Collab.Source.Fetch(ctx, job, env)
	case UsesPackages:
		return e.Collab.Packages.Install(ctx, job.Target(), job.Field(FieldPackages), env)
	case UsesToolchain:
		return e.Collab.Toolchain.Invoke(ctx, job.Target(), step.With, env)
	case UsesLint:
		return e.Collab.Checker.Check(ctx, env)
	default:
		return e.Collab.Commands.RunCommand(ctx, step.Shell, step.Run, env)
	}
}
