package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwbudde/mandelvec/internal/escape"
	"github.com/cwbudde/mandelvec/internal/store"
)

// maxAsyncRenders bounds the background renders in flight. Each one may hold
// a count buffer of up to 128 MiB.
const maxAsyncRenders = 4

// Server represents the HTTP server
type Server struct {
	jobManager   *JobManager
	store        store.Store
	addr         string
	server       *http.Server
	baseCtx      context.Context
	cancel       context.CancelFunc
	pingInterval time.Duration
	asyncSlots   chan struct{}
}

// NewServer creates a new HTTP server. runStore may be nil, in which case
// completed renders are only kept in memory.
func NewServer(addr string, runStore store.Store) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		jobManager:   NewJobManager(),
		store:        runStore,
		addr:         addr,
		baseCtx:      ctx,
		cancel:       cancel,
		pingInterval: 30 * time.Second,
		asyncSlots:   make(chan struct{}, maxAsyncRenders),
	}
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/renders", s.handleRenders)
	mux.HandleFunc("/api/v1/renders/", s.handleRendersWithID)
	mux.HandleFunc("/api/v1/variants", s.handleVariants)

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server and cancels pending jobs
func (s *Server) Shutdown(ctx context.Context) error {
	running := s.jobManager.GetRunningJobs()
	slog.Info("Shutting down HTTP server", "running_renders", len(running))
	for _, job := range running {
		slog.Warn("Render still in flight at shutdown", "job_id", job.ID, "variant", job.Variant,
			"width", job.Params.Width, "height", job.Params.Height)
	}
	s.cancel()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleRenders handles /api/v1/renders
func (s *Server) handleRenders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateRender(w, r)
	case http.MethodGet:
		s.handleListRenders(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRendersWithID handles /api/v1/renders/:id and /api/v1/renders/:id/events
func (s *Server) handleRendersWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/renders/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Render ID required", http.StatusBadRequest)
		return
	}

	id := parts[0]
	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.handleGetRender(w, r, id)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		s.handleDeleteRender(w, r, id)
	case len(parts) == 1:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	case len(parts) == 2 && parts[1] == "events" && r.Method == http.MethodGet:
		s.handleJobStream(w, r, id)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleCreateRender handles POST /api/v1/renders. The render runs before
// the response is written unless the query has async=true, in which case
// the pending job is returned with 202 and progress is available on the
// events stream.
func (s *Server) handleCreateRender(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRenderRequest(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	v, err := escape.ParseVariant(req.Variant)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := req.Params.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("async") == "true" {
		select {
		case s.asyncSlots <- struct{}{}:
		default:
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too many background renders", http.StatusServiceUnavailable)
			return
		}
		job := s.jobManager.CreateJob(v, req.Params, req.Workers, req.BlockSize)
		go func() {
			defer func() { <-s.asyncSlots }()
			runJob(s.baseCtx, s.jobManager, s.store, job.ID)
		}()
		writeJSON(w, http.StatusAccepted, job)
		return
	}

	job := s.jobManager.CreateJob(v, req.Params, req.Workers, req.BlockSize)

	if err := runJob(r.Context(), s.jobManager, s.store, job.ID); err != nil {
		done, _ := s.jobManager.GetJob(job.ID)
		writeJSON(w, http.StatusInternalServerError, done)
		return
	}
	done, _ := s.jobManager.GetJob(job.ID)
	writeJSON(w, http.StatusCreated, done)
}

// handleListRenders handles GET /api/v1/renders. In-memory jobs come first,
// followed by stored runs that are not in memory.
func (s *Server) handleListRenders(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobManager.ListJobs()

	if s.store != nil {
		infos, err := s.store.ListRuns()
		if err != nil {
			slog.Error("Failed to list stored runs", "error", err)
			http.Error(w, "Failed to list runs", http.StatusInternalServerError)
			return
		}
		known := make(map[string]bool, len(jobs))
		for _, j := range jobs {
			known[j.ID] = true
		}
		for _, info := range infos {
			if known[info.ID] {
				continue
			}
			record, err := s.store.LoadRun(info.ID)
			if err != nil {
				continue
			}
			jobs = append(jobs, jobFromRecord(record))
		}
	}

	writeJSON(w, http.StatusOK, jobs)
}

// handleGetRender handles GET /api/v1/renders/:id
func (s *Server) handleGetRender(w http.ResponseWriter, r *http.Request, id string) {
	if job, ok := s.jobManager.GetJob(id); ok {
		writeJSON(w, http.StatusOK, job)
		return
	}

	if s.store != nil {
		record, err := s.store.LoadRun(id)
		if err == nil {
			writeJSON(w, http.StatusOK, jobFromRecord(record))
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			slog.Error("Failed to load run", "id", id, "error", err)
			http.Error(w, "Failed to load run", http.StatusInternalServerError)
			return
		}
	}

	http.Error(w, "Render not found", http.StatusNotFound)
}

// handleDeleteRender handles DELETE /api/v1/renders/:id
func (s *Server) handleDeleteRender(w http.ResponseWriter, r *http.Request, id string) {
	found := s.jobManager.RemoveJob(id)

	if s.store != nil {
		err := s.store.DeleteRun(id)
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, store.ErrNotFound):
			slog.Error("Failed to delete run", "id", id, "error", err)
			http.Error(w, "Failed to delete run", http.StatusInternalServerError)
			return
		}
	}

	if !found {
		http.Error(w, "Render not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleVariants handles GET /api/v1/variants
func (s *Server) handleVariants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, listVariants())
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
