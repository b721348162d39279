package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	flag "github.com/spf13/pflag"

	"matrixci/internal/core"
	"matrixci/internal/shell"
	"matrixci/internal/storage"
	"matrixci/pkg/utils"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  matrixci run  -f pipeline.yaml   expand and execute the pipeline")
	fmt.Fprintln(os.Stderr, "  matrixci plan -f pipeline.yaml   expand only, print the job plans")
	fmt.Fprintln(os.Stderr, "  matrixci history [run-id]        inspect the run history")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	switch os.Args[1] {
	case "run":
		runCmd(os.Args[2:])
	case "plan":
		planCmd(os.Args[2:])
	case "history":
		historyCmd(os.Args[2:])
	default:
		usage()
	}
}

func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	file := fs.StringP("file", "f", "pipeline.yaml", "pipeline definition")
	logsDir := fs.String("logs", "./logs", "job log directory")
	historyFile := fs.String("history", "./history.jsonl", "run history file")
	timeout := fs.Duration("step-timeout", 5*time.Minute, "per-step timeout")
	checkout := fs.String("checkout-cmd", "git submodule update --init --recursive", "source fetch command")
	install := fs.String("install-cmd", "sudo apt-get install -y --no-install-recommends $MATRIXCI_PACKAGES", "package install command")
	build := fs.String("build-cmd", "make build", "toolchain build command")
	test := fs.String("test-cmd", "make test", "toolchain test command")
	lint := fs.String("lint-cmd", "make lint", "static check command")
	fs.Parse(args)

	pipeline, err := core.LoadPipeline(*file)
	if err != nil {
		fatal(err)
	}
	history, err := storage.OpenHistory(*historyFile)
	if err != nil {
		fatal(err)
	}

	runner := &core.Runner{
		Collab: shell.Collaborators(shell.Config{
			Checkout: *checkout,
			Install:  *install,
			Build:    *build,
			Test:     *test,
			Lint:     *lint,
		}, &shell.Runner{Timeout: *timeout}),
		BaseEnv:   processEnv(),
		Logs:      storage.NewLogStore(*logsDir),
		History:   history,
		Provision: localContext,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := runner.RunPipeline(ctx, uuid.NewString(), pipeline)
	if err != nil {
		fatal(err)
	}
	printReport(result)
	if result.Failed() {
		os.Exit(1)
	}
}

func planCmd(args []string) {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	file := fs.StringP("file", "f", "pipeline.yaml", "pipeline definition")
	fs.Parse(args)

	pipeline, err := core.LoadPipeline(*file)
	if err != nil {
		fatal(err)
	}
	jobs, err := core.Expand(pipeline)
	if err != nil {
		fatal(err)
	}

	for _, job := range jobs {
		fmt.Printf("job %s (spec %s)\n", job.ID, utils.Fingerprint(job.Fields)[:16])
		names := make([]string, 0, len(job.Fields))
		for name := range job.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-12s %q\n", name, job.Fields[name])
		}
	}
}

func historyCmd(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	file := fs.String("file", "./history.jsonl", "run history file")
	fs.Parse(args)

	history, err := storage.OpenHistory(*file)
	if err != nil {
		fatal(err)
	}

	recs := history.Records()
	if fs.NArg() > 0 {
		recs = history.ByRun(fs.Arg(0))
	}
	for _, rec := range recs {
		hash := rec.LogHash
		if len(hash) > 16 {
			hash = hash[:16]
		}
		fmt.Printf("%s  run=%s job=%s status=%s log=%s %s\n",
			rec.Timestamp, rec.RunID, rec.Job, rec.Status, rec.LogPath, hash)
	}
}

func printReport(result *core.PipelineResult) {
	fmt.Printf("\nrun %s\n", result.RunID)
	for _, job := range result.Jobs {
		fmt.Printf("  %-24s %s\n", job.Job, job.Status)
		for _, step := range job.Steps {
			fmt.Printf("    %-22s %s\n", step.Name, step.Status)
		}
	}
}

// processEnv returns the process environment as the base layer for
// composition.
func processEnv() map[string]string {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// localContext binds every job to the machine the CLI runs on.
func localContext(*core.JobSpec) core.ExecutionContext {
	return core.ExecutionContext{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

func fatal(err error) {
	if errors.Is(err, core.ErrConfiguration) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
