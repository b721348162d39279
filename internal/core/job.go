package core

// Field names the runner and collaborators give meaning to. Any other
// field is free-form and only visible to conditions.
const (
	FieldTarget    = "target"     // target triple handed to the toolchain
	FieldToolchain = "toolchain"  // toolchain version or channel
	FieldRunsOn    = "runs_on"    // host execution environment identifier
	FieldPackages  = "packages"   // system packages to install, empty means none
	FieldBuildOnly = "build_only" // "true" skips the test invocation
)

// JobSpec is one fully resolved job: every schema field has a value after
// expansion (empty string when nothing set it), plus the job-level
// environment overlay and the shared step templates.
type JobSpec struct {
	ID     string            `json:"id"` // driving dimension value
	Fields map[string]string `json:"fields"`
	Env    map[string]string `json:"env,omitempty"`
	Steps  []Step            `json:"steps"`
}

func (j *JobSpec) Field(name string) string { return j.Fields[name] }
func (j *JobSpec) Target() string           { return j.Fields[FieldTarget] }
func (j *JobSpec) Toolchain() string        { return j.Fields[FieldToolchain] }
func (j *JobSpec) RunsOn() string           { return j.Fields[FieldRunsOn] }

// Step is one resolved, ordered unit of execution within a job.
type Step struct {
	Name  string            `json:"name"`
	Uses  string            `json:"uses,omitempty"`
	With  string            `json:"with,omitempty"`
	Run   string            `json:"run,omitempty"`
	If    *Condition        `json:"if,omitempty"` // nil means always run
	Shell string            `json:"shell,omitempty"`
	Env   map[string]string `json:"env,omitempty"`
}

// ExecutionContext identifies the externally provisioned environment a
// job runs on. It is supplied by the caller and consumed, never computed,
// by the core.
type ExecutionContext struct {
	OS   string `json:"os"`
	Arch string `json:"arch"`
}

// StepStatus is the terminal state of one step.
type StepStatus string

const (
	StepPassed    StepStatus = "passed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"   // condition evaluated false
	StepCancelled StepStatus = "cancelled" // run cancelled before or during the step
)

// JobStatus is the state of one job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobPassed    JobStatus = "passed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// StepResult records one step's outcome and captured output.
type StepResult struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
	Output string     `json:"output,omitempty"`
	Err    string     `json:"error,omitempty"`
}

// JobResult is the outcome of one job's execution.
type JobResult struct {
	Job     string           `json:"job"`
	Context ExecutionContext `json:"context"`
	Status  JobStatus        `json:"status"`
	Steps   []StepResult     `json:"steps"`
	Skipped int              `json:"skipped"` // steps skipped by condition
}

// PipelineResult aggregates every job's outcome for one run. Jobs appear
// in expansion order; the lint job, when present, is listed last.
type PipelineResult struct {
	RunID string      `json:"runId"`
	Jobs  []JobResult `json:"jobs"`
}

// Failed reports whether any job failed or was cancelled.
func (r *PipelineResult) Failed() bool {
	for _, j := range r.Jobs {
		if j.Status != JobPassed {
			return true
		}
	}
	return false
}
