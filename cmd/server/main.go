package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"matrixci/internal/core"
	"matrixci/internal/shell"
	"matrixci/internal/storage"
)

// Server accepts pipeline definitions over HTTP, runs them asynchronously
// and serves run status and results.
type Server struct {
	mu     sync.Mutex
	runs   map[string]*runState
	runner *core.Runner
}

type runState struct {
	ID       string `json:"id"`
	Pipeline string `json:"pipeline"`
	Status   string `json:"status"` // running, passed, failed
	result   *core.PipelineResult
}

func newServer() (*Server, error) {
	history, err := storage.OpenHistory(envOr("MATRIXCI_HISTORY", "./history.jsonl"))
	if err != nil {
		return nil, err
	}

	runner := &core.Runner{
		Collab: shell.Collaborators(shell.Config{
			Checkout: envOr("MATRIXCI_CHECKOUT_CMD", "git submodule update --init --recursive"),
			Install:  envOr("MATRIXCI_INSTALL_CMD", "sudo apt-get install -y --no-install-recommends $MATRIXCI_PACKAGES"),
			Build:    envOr("MATRIXCI_BUILD_CMD", "make build"),
			Test:     envOr("MATRIXCI_TEST_CMD", "make test"),
			Lint:     envOr("MATRIXCI_LINT_CMD", "make lint"),
		}, &shell.Runner{Timeout: 5 * time.Minute}),
		BaseEnv: processEnv(),
		Logs:    storage.NewLogStore(envOr("MATRIXCI_LOGS", "./logs")),
		History: history,
		Provision: func(*core.JobSpec) core.ExecutionContext {
			return core.ExecutionContext{OS: runtime.GOOS, Arch: runtime.GOARCH}
		},
	}

	return &Server{runs: map[string]*runState{}, runner: runner}, nil
}

// POST /pipelines submits a pipeline YAML and starts an async run.
// Authoring mistakes are rejected here, before anything executes.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "cannot read body", http.StatusBadRequest)
		return
	}
	pipeline, err := core.ParsePipeline(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := core.Expand(pipeline); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := uuid.NewString()
	state := &runState{ID: id, Pipeline: pipeline.Name, Status: "running"}
	snapshot := *state
	s.mu.Lock()
	s.runs[id] = state
	s.mu.Unlock()

	go func() {
		result, err := s.runner.RunPipeline(context.Background(), id, pipeline)

		s.mu.Lock()
		defer s.mu.Unlock()
		switch {
		case err != nil:
			state.Status = "failed"
		case result.Failed():
			state.Status = "failed"
			state.result = result
		default:
			state.Status = "passed"
			state.result = result
		}
	}()

	writeJSON(w, http.StatusAccepted, snapshot)
}

// GET /pipelines/{id} returns the run status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot, _, ok := s.lookup(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// GET /pipelines/{id}/result returns the full per-job result.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	_, result, ok := s.lookup(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if result == nil {
		http.Error(w, "run not finished", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// lookup returns a copy of the run state; the original may still be
// updated by the run goroutine.
func (s *Server) lookup(id string) (runState, *core.PipelineResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.runs[id]
	if !ok {
		return runState{}, nil, false
	}
	return *state, state.result, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func processEnv() map[string]string {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

func main() {
	s, err := newServer()
	if err != nil {
		log.Fatalf("server init: %v", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/pipelines", s.handleSubmit)
	r.Get("/pipelines/{id}", s.handleStatus)
	r.Get("/pipelines/{id}/result", s.handleResult)

	port := envOr("PORT", "8080")
	log.Printf("matrixci server listening on :%s", port)
	log.Fatal(http.ListenAndServe(":"+port, r))
}
