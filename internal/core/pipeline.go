package core

// Pipeline is the declarative definition of one CI pipeline: a base
// environment, global field defaults, a job matrix, the step templates
// every matrix job runs, and an optional standalone lint job.
type Pipeline struct {
	Name     string            `yaml:"name" json:"name"`
	Env      map[string]string `yaml:"env" json:"env,omitempty"`           // base environment for every step
	Defaults map[string]string `yaml:"defaults" json:"defaults,omitempty"` // global field defaults, applied before any override
	Matrix   Matrix            `yaml:"matrix" json:"matrix"`
	Steps    []StepTemplate    `yaml:"steps" json:"steps"`
	Lint     *LintJob          `yaml:"lint" json:"lint,omitempty"`
}

// Matrix declares the job axes and the override records that customize
// individual jobs.
type Matrix struct {
	Dimensions []Dimension      `yaml:"dimensions" json:"dimensions"`
	Include    []OverrideRecord `yaml:"include" json:"include,omitempty"`
}

// Dimension is one named axis of the matrix. The first dimension is the
// driving one: each of its values becomes a job. Further dimensions only
// contribute field names to the schema; their values arrive via overrides.
type Dimension struct {
	Name   string   `yaml:"name" json:"name"`
	Values []string `yaml:"values" json:"values"`
}

// OverrideRecord is a sparse field overlay applied during expansion.
// A record with no key applies to every job; a keyed record applies only
// to the job whose driving dimension value equals the key. Records apply
// in declaration order, so a later record wins a field conflict.
type OverrideRecord struct {
	Key    string            `yaml:"key,omitempty" json:"key,omitempty"`
	Fields map[string]string `yaml:"fields" json:"fields,omitempty"`
	Env    map[string]string `yaml:"env" json:"env,omitempty"`
}

// StepTemplate is a declarative step, shared by every matrix job and
// evaluated fresh against each resolved JobSpec at run time.
type StepTemplate struct {
	Name  string            `yaml:"name" json:"name"`
	Uses  string            `yaml:"uses" json:"uses,omitempty"` // collaborator binding: checkout, packages, toolchain, lint
	With  string            `yaml:"with" json:"with,omitempty"` // collaborator argument (e.g. "build", "test")
	Run   string            `yaml:"run" json:"run,omitempty"`   // raw shell command when no collaborator is bound
	If    string            `yaml:"if" json:"if,omitempty"`     // condition expression; empty means always run
	Shell string            `yaml:"shell" json:"shell,omitempty"`
	Env   map[string]string `yaml:"env" json:"env,omitempty"`
}

// LintJob is the fixed single-step static check job declared outside the
// matrix. It takes no conditions and no overrides. When Run is empty the
// step binds to the static checker collaborator.
type LintJob struct {
	Name string `yaml:"name" json:"name"`
	Run  string `yaml:"run" json:"run,omitempty"`
}
