// Package shell implements the core's collaborator interfaces on the
// local machine: every action runs as a shell command with the step's
// composed environment.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"time"

	"matrixci/internal/core"
)

// Runner executes a command through a shell with a bounded runtime.
type Runner struct {
	Timeout time.Duration // zero means no timeout beyond ctx
	Dir     string        // working directory, empty means inherit
}

// RunCommand executes command under the given shell (default sh) with
// exactly the composed environment, nothing inherited. Stdout and stderr
// are captured together.
func (r *Runner) RunCommand(ctx context.Context, shell, command string, env map[string]string) (string, error) {
	if shell == "" {
		shell = "sh"
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Dir = r.Dir
	cmd.Env = flatten(env)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	return out.String(), err
}

func flatten(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(env))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// Config holds the command templates the local collaborators run. Each
// template sees its parameters as environment variables: MATRIXCI_JOB,
// MATRIXCI_TARGET, MATRIXCI_PACKAGES, MATRIXCI_COMMAND.
type Config struct {
	Checkout string
	Install  string
	Build    string
	Test     string
	Lint     string
}

// Collaborators returns shell-backed implementations of every core
// collaborator interface, sharing one command runner.
func Collaborators(cfg Config, run *Runner) core.Collaborators {
	l := &local{cfg: cfg, run: run}
	return core.Collaborators{
		Source:    l,
		Packages:  l,
		Toolchain: l,
		Checker:   l,
		Commands:  run,
	}
}

type local struct {
	cfg Config
	run *Runner
}

func (l *local) Fetch(ctx context.Context, job *core.JobSpec, env map[string]string) (string, error) {
	return l.run.RunCommand(ctx, "", l.cfg.Checkout, with(env, map[string]string{
		"MATRIXCI_JOB": job.ID,
	}))
}

func (l *local) Install(ctx context.Context, target, packages string, env map[string]string) (string, error) {
	return l.run.RunCommand(ctx, "", l.cfg.Install, with(env, map[string]string{
		"MATRIXCI_TARGET":   target,
		"MATRIXCI_PACKAGES": packages,
	}))
}

func (l *local) Invoke(ctx context.Context, target, command string, env map[string]string) (string, error) {
	tmpl := ""
	switch command {
	case "build":
		tmpl = l.cfg.Build
	case "test":
		tmpl = l.cfg.Test
	default:
		return "", fmt.Errorf("unknown toolchain command %q", command)
	}
	return l.run.RunCommand(ctx, "", tmpl, with(env, map[string]string{
		"MATRIXCI_TARGET":  target,
		"MATRIXCI_COMMAND": command,
	}))
}

func (l *local) Check(ctx context.Context, env map[string]string) (string, error) {
	return l.run.RunCommand(ctx, "", l.cfg.Lint, env)
}

func with(env, extra map[string]string) map[string]string {
	return core.ComposeEnv(env, extra)
}
