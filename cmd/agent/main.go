// The agent is a single-job execution environment: it accepts one
// resolved job over HTTP, runs its steps with the local shell
// collaborators and returns the job result.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"matrixci/internal/core"
	"matrixci/internal/shell"
)

type runRequest struct {
	Job     core.JobSpec      `json:"job"`
	BaseEnv map[string]string `json:"baseEnv,omitempty"`
}

func main() {
	collab := shell.Collaborators(shell.Config{
		Checkout: envOr("MATRIXCI_CHECKOUT_CMD", "git submodule update --init --recursive"),
		Install:  envOr("MATRIXCI_INSTALL_CMD", "sudo apt-get install -y --no-install-recommends $MATRIXCI_PACKAGES"),
		Build:    envOr("MATRIXCI_BUILD_CMD", "make build"),
		Test:     envOr("MATRIXCI_TEST_CMD", "make test"),
		Lint:     envOr("MATRIXCI_LINT_CMD", "make lint"),
	}, &shell.Runner{Timeout: 5 * time.Minute})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/run", func(w http.ResponseWriter, req *http.Request) {
		var rr runRequest
		if err := json.NewDecoder(req.Body).Decode(&rr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		// one executor per request: BaseEnv is request-scoped
		exec := &core.StepExecutor{Collab: collab, BaseEnv: rr.BaseEnv}
		ec := core.ExecutionContext{OS: runtime.GOOS, Arch: runtime.GOARCH}
		res := exec.ExecuteJob(req.Context(), &rr.Job, ec)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(res); err != nil {
			log.Printf("write response: %v", err)
		}
	})

	port := envOr("PORT", "9090")
	log.Printf("matrixci agent listening on :%s", port)
	log.Fatal(http.ListenAndServe(":"+port, r))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
