// Package server implements the dbdiff-server HTTP API and middleware.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/kilupskalvis/dbdiff/internal/adapter"
	"github.com/kilupskalvis/dbdiff/internal/config"
	"github.com/kilupskalvis/dbdiff/internal/core"
	"github.com/kilupskalvis/dbdiff/internal/models"
	"github.com/kilupskalvis/dbdiff/internal/store"
)

// ServerConfig holds configurable limits and defaults for the server.
type ServerConfig struct {
	MaxRequestBody    int64  // bytes, for JSON endpoints
	RequestsPerMinute int    // per-client rate limit, 0 disables
	Token             string // when set, every /api/ request needs this bearer token
	RowLimit          int    // rows captured per table
	DiffWorkers       int    // tables diffed concurrently

	// Workspace, when set, has its current project cleared when that
	// project is deleted through the API.
	Workspace *config.Config

	// OpenAdapter connects to a project's database. Defaults to adapter.Open.
	OpenAdapter func(*models.Project) (adapter.Adapter, error)
}

// DefaultServerConfig returns reasonable defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		MaxRequestBody:    1 << 20, // 1MB
		RequestsPerMinute: 300,
		RowLimit:          config.DefaultRowLimit,
		DiffWorkers:       config.DefaultDiffWorkers,
		OpenAdapter:       adapter.Open,
	}
}

type api struct {
	st     *store.Store
	cfg    *ServerConfig
	logger *slog.Logger
}

// Handler creates the HTTP handler with all routes and middleware.
// The returned cleanup function stops background goroutines and should be
// called on server shutdown.
func Handler(st *store.Store, cfg *ServerConfig, logger *slog.Logger) (http.Handler, func()) {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}
	if cfg.OpenAdapter == nil {
		cfg.OpenAdapter = adapter.Open
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &api{st: st, cfg: cfg, logger: logger}
	limiters := newClientLimiters(cfg.RequestsPerMinute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)

	// Projects
	mux.HandleFunc("GET /api/v1/projects", a.handleListProjects)
	mux.HandleFunc("POST /api/v1/projects", a.handleCreateProject)
	mux.HandleFunc("PUT /api/v1/projects/{id}", a.handleUpdateProject)
	mux.HandleFunc("DELETE /api/v1/projects/{id}", a.handleDeleteProject)
	mux.HandleFunc("POST /api/v1/projects/{id}/test", a.handleTestProject)

	// Snapshots
	mux.HandleFunc("GET /api/v1/projects/{id}/snapshots", a.handleListSnapshots)
	mux.HandleFunc("POST /api/v1/projects/{id}/snapshots", a.handleCreateSnapshot)
	mux.HandleFunc("PUT /api/v1/snapshots/{id}", a.handleRenameSnapshot)
	mux.HandleFunc("DELETE /api/v1/snapshots/{id}", a.handleDeleteSnapshot)
	mux.HandleFunc("GET /api/v1/snapshots/{id}/result", a.handleSnapshotResult)

	// Dump configs
	mux.HandleFunc("GET /api/v1/projects/{id}/dump-configs", a.handleRecentDumpConfigs)
	mux.HandleFunc("GET /api/v1/snapshots/{id}/dump-configs", a.handleSnapshotDumpConfigs)

	// Diffs
	mux.HandleFunc("POST /api/v1/diffs", a.handleCreateDiff)
	mux.HandleFunc("GET /api/v1/diffs", a.handleFindDiff)

	var root http.Handler = mux
	if cfg.Token != "" {
		apiMux := http.NewServeMux()
		apiMux.HandleFunc("GET /healthz", handleHealthz)
		apiMux.Handle("/api/", tokenAuth(cfg.Token)(mux))
		root = apiMux
	}

	// Apply global middleware
	handler := applyMiddleware(root,
		recoveryMiddleware(logger),
		loggingMiddleware(logger),
		requestIDMiddleware,
		limiters.middleware,
	)

	cleanup := func() {
		limiters.Stop()
	}

	return handler, cleanup
}

// applyMiddleware applies middleware in reverse order so the first in the list runs first.
func applyMiddleware(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// --- Project Handlers ---

func (a *api) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := a.st.ListProjects()
	if err != nil {
		a.writeError(w, err)
		return
	}

	views := make([]projectView, len(projects))
	for i, p := range projects {
		views[i] = newProjectView(p)
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *api) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := readJSON(r, a.cfg.MaxRequestBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("bad_request", err.Error()))
		return
	}

	var p models.Project
	req.apply(&p)
	if err := core.CreateProject(a.st, &p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("bad_request", err.Error()))
		return
	}
	writeJSON(w, http.StatusCreated, newProjectView(&p))
}

func (a *api) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := readJSON(r, a.cfg.MaxRequestBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("bad_request", err.Error()))
		return
	}

	p, err := a.st.GetProject(r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	req.apply(p)
	if err := core.UpdateProject(a.st, p); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProjectView(p))
}

func (a *api) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := core.DeleteProject(a.cfg.Workspace, a.st, r.PathValue("id")); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleTestProject(w http.ResponseWriter, r *http.Request) {
	p, err := a.st.GetProject(r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}

	conn, err := a.cfg.OpenAdapter(p)
	if err != nil {
		a.writeError(w, err)
		return
	}
	defer conn.Close()

	if err := conn.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody("connection_failed", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// --- Snapshot Handlers ---

func (a *api) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if _, err := a.st.GetProject(projectID); err != nil {
		a.writeError(w, err)
		return
	}

	summaries, err := a.st.ListSnapshotSummaries(projectID)
	if err != nil {
		a.writeError(w, err)
		return
	}

	views := make([]snapshotView, len(summaries))
	for i, s := range summaries {
		views[i] = newSnapshotView(s)
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *api) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	p, err := a.st.GetProject(r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}

	var req createSnapshotRequest
	if err := readJSON(r, a.cfg.MaxRequestBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("bad_request", err.Error()))
		return
	}
	rowLimit := req.RowLimit
	if rowLimit <= 0 {
		rowLimit = a.cfg.RowLimit
	}

	conn, err := a.cfg.OpenAdapter(p)
	if err != nil {
		a.writeError(w, err)
		return
	}
	defer conn.Close()

	summary, err := core.Dump(r.Context(), a.st, conn, p, core.DumpRequest{
		Name:     req.Name,
		Configs:  req.configs(),
		RowLimit: rowLimit,
	})
	if err != nil {
		a.logger.Error("dump failed", "project", p.Name, "error", err)
		writeJSON(w, http.StatusBadGateway, errorBody("dump_failed", err.Error()))
		return
	}
	writeJSON(w, http.StatusCreated, newSnapshotView(summary))
}

func (a *api) handleRenameSnapshot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := readJSON(r, a.cfg.MaxRequestBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("bad_request", err.Error()))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("bad_request", "name is required"))
		return
	}

	id := r.PathValue("id")
	if err := a.st.RenameSnapshot(id, req.Name); err != nil {
		a.writeError(w, err)
		return
	}
	summary, err := a.st.GetSnapshotSummary(id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSnapshotView(summary))
}

func (a *api) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := a.st.DeleteSnapshot(r.PathValue("id")); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleSnapshotResult(w http.ResponseWriter, r *http.Request) {
	result, err := a.st.FindSnapshotResult(r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newResultView(result))
}

// --- Dump Config Handlers ---

func (a *api) handleRecentDumpConfigs(w http.ResponseWriter, r *http.Request) {
	p, err := a.st.GetProject(r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}

	conn, err := a.cfg.OpenAdapter(p)
	if err != nil {
		a.writeError(w, err)
		return
	}
	defer conn.Close()

	configs, err := core.RecentDumpConfigs(r.Context(), a.st, conn, p.ID)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody("connection_failed", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, newDumpConfigViews(configs))
}

func (a *api) handleSnapshotDumpConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := core.SnapshotDumpConfigs(a.st, r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDumpConfigViews(configs))
}

// --- Diff Handlers ---

func (a *api) handleCreateDiff(w http.ResponseWriter, r *http.Request) {
	var req diffRequest
	if err := readJSON(r, a.cfg.MaxRequestBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("bad_request", err.Error()))
		return
	}
	if req.SnapshotID1 == "" || req.SnapshotID2 == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("bad_request", "snapshotId1 and snapshotId2 are required"))
		return
	}

	diff, err := core.CreateSnapshotDiff(r.Context(), a.st, req.SnapshotID1, req.SnapshotID2, a.cfg.DiffWorkers)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, diff.View())
}

func (a *api) handleFindDiff(w http.ResponseWriter, r *http.Request) {
	id1 := r.URL.Query().Get("snapshotId1")
	id2 := r.URL.Query().Get("snapshotId2")
	if id1 == "" || id2 == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("bad_request", "snapshotId1 and snapshotId2 are required"))
		return
	}

	diff, err := core.FindSnapshotDiff(a.st, id1, id2)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, diff.View())
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// --- Helpers ---

func errorBody(code, message string) map[string]string {
	return map[string]string{"error": code, "message": message}
}

// writeError maps domain errors to status codes.
func (a *api) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not_found", err.Error()))
	case errors.Is(err, core.ErrDiffNotCreated):
		writeJSON(w, http.StatusNotFound, errorBody("diff_not_created", err.Error()))
	case errors.Is(err, core.ErrInvalidProject), errors.Is(err, adapter.ErrUnsupportedRDBMS):
		writeJSON(w, http.StatusBadRequest, errorBody("bad_request", err.Error()))
	default:
		a.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal_error", err.Error()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, maxSize int64, v interface{}) error {
	limited := io.LimitReader(r.Body, maxSize)
	if err := json.NewDecoder(limited).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
