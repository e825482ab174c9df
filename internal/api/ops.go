// Package api serves the operational side endpoints: health, the analysis run
// ledger and pprof.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"kpijoin/domain/core"
	"kpijoin/internal/errors"
	"kpijoin/internal/session"
	"kpijoin/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 500
)

// OpsServer is the router of the ops port
type OpsServer struct {
	router    *chi.Mux
	sessions  *session.Store
	runs      ports.RunRepository // nil when the ledger is disabled
	startedAt time.Time
}

// NewOpsServer creates the ops router
func NewOpsServer(sessions *session.Store, runs ports.RunRepository) *OpsServer {
	o := &OpsServer{
		router:    chi.NewRouter(),
		sessions:  sessions,
		runs:      runs,
		startedAt: time.Now(),
	}
	o.setupMiddleware()
	o.setupRoutes()
	return o
}

// Handler returns the configured router
func (o *OpsServer) Handler() http.Handler {
	return o.router
}

func (o *OpsServer) setupMiddleware() {
	o.router.Use(middleware.Logger)
	o.router.Use(middleware.Recoverer)
}

func (o *OpsServer) setupRoutes() {
	o.router.Get("/healthz", o.handleHealth)
	o.router.Get("/runs", o.handleListRuns)
	o.router.Get("/runs/sessions/{sessionTag}", o.handleSessionRuns)
	o.router.Mount("/debug", middleware.Profiler())
}

func (o *OpsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": o.sessions.Len(),
		"ledger":   o.runs != nil,
		"uptime":   time.Since(o.startedAt).Round(time.Second).String(),
	})
}

// handleListRuns returns the newest ledger entries, ?limit=n (default 20)
func (o *OpsServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if o.runs == nil {
		writeError(w, errors.Unavailable("Run ledger is disabled"))
		return
	}

	limit := defaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, errors.InvalidInput("limit must be a positive integer"))
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := o.runs.ListRecent(r.Context(), limit)
	if err != nil {
		log.Printf("[OpsServer] FAILED - list runs: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs, "count": len(runs)})
}

// handleSessionRuns counts the runs of one session. Sessions are addressed by
// their tag; raw session IDs are refused without being echoed.
func (o *OpsServer) handleSessionRuns(w http.ResponseWriter, r *http.Request) {
	if o.runs == nil {
		writeError(w, errors.Unavailable("Run ledger is disabled"))
		return
	}

	tag := chi.URLParam(r, "sessionTag")
	if !core.ValidSessionTag(tag) {
		writeError(w, errors.InvalidInput(fmt.Sprintf("session tag must be %d lowercase hex characters", core.SessionTagLength)))
		return
	}
	count, err := o.runs.CountBySession(r.Context(), tag)
	if err != nil {
		log.Printf("[OpsServer] FAILED - count runs of %s: %v", tag, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session_tag": tag, "runs": count})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[OpsServer] failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errors.HTTPStatus(err), map[string]string{"error": errors.PublicMessage(err)})
}
