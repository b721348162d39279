package core

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks authoring mistakes in the pipeline definition.
// Configuration errors are detected during expansion, before any job
// executes, and abort the whole run.
var ErrConfiguration = errors.New("invalid pipeline configuration")

// ConfigError wraps ErrConfiguration with enough context (job, field) to
// fix the declaration.
type ConfigError struct {
	Job   string
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	s := e.Msg
	if e.Field != "" {
		s = fmt.Sprintf("field %q: %s", e.Field, s)
	}
	if e.Job != "" {
		s = fmt.Sprintf("job %q: %s", e.Job, s)
	}
	return "invalid pipeline configuration: " + s
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

func configErrorf(job, field, format string, args ...any) error {
	return &ConfigError{Job: job, Field: field, Msg: fmt.Sprintf(format, args...)}
}

// StepError reports a step whose external action failed. It fails the
// enclosing job only; sibling jobs are unaffected.
type StepError struct {
	Job  string
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("job %q: step %q failed: %v", e.Job, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
