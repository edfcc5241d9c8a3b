package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/monobuild/internal/domain"
	"github.com/example/monobuild/internal/storage"
)

// Handlers contains HTTP handlers for the status API
type Handlers struct {
	storage storage.Storage
}

// NewHandlers creates new API handlers
func NewHandlers(store storage.Storage) *Handlers {
	return &Handlers{storage: store}
}

// ListBuilds handles GET /api/builds
func (h *Handlers) ListBuilds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	opts := storage.ListOptions{
		Target: r.URL.Query().Get("target"),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		opts.Limit = n
	}

	uow, err := h.storage.Begin(ctx)
	if err != nil {
		http.Error(w, "Failed to begin transaction: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer uow.Rollback()

	runs, err := uow.Builds().List(ctx, opts)
	if err != nil {
		http.Error(w, "Failed to list builds: "+err.Error(), http.StatusInternalServerError)
		return
	}

	response := ListBuildsResponse{
		Builds: make([]BuildSummary, 0, len(runs)),
	}
	for _, run := range runs {
		response.Builds = append(response.Builds, convertRun(run))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetBuild handles GET /api/builds/:id
func (h *Handlers) GetBuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	runID := strings.TrimPrefix(r.URL.Path, "/api/builds/")
	if runID == "" {
		http.Error(w, "Build ID required", http.StatusBadRequest)
		return
	}

	uow, err := h.storage.Begin(ctx)
	if err != nil {
		http.Error(w, "Failed to begin transaction: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer uow.Rollback()

	run, err := uow.Builds().Get(ctx, runID)
	if err != nil {
		if errors.Is(err, domain.ErrBuildNotFound) {
			http.Error(w, "Build not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to get build: "+err.Error(), http.StatusInternalServerError)
		return
	}

	detail := BuildDetail{
		BuildSummary: convertRun(run),
		Results:      run.Results,
	}
	if detail.Results == nil {
		detail.Results = []domain.TaskResult{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(detail)
}

// ListArtifacts handles GET /api/artifacts?target=...
func (h *Handlers) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	target := r.URL.Query().Get("target")
	if target == "" {
		http.Error(w, "target query parameter required", http.StatusBadRequest)
		return
	}

	uow, err := h.storage.Begin(ctx)
	if err != nil {
		http.Error(w, "Failed to begin transaction: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer uow.Rollback()

	artifacts, err := uow.Artifacts().ListByTarget(ctx, target)
	if err != nil {
		http.Error(w, "Failed to list artifacts: "+err.Error(), http.StatusInternalServerError)
		return
	}

	response := ListArtifactsResponse{
		Target:    target,
		Artifacts: make([]domain.CachedArtifact, 0, len(artifacts)),
	}
	for _, artifact := range artifacts {
		response.Artifacts = append(response.Artifacts, *artifact)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
