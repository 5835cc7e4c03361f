package httpapi

import (
	"context"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MimeLyc/subedit/internal/config"
	"github.com/MimeLyc/subedit/internal/jobs"
	"github.com/MimeLyc/subedit/internal/persistence"
	"github.com/MimeLyc/subedit/internal/session"
)

type runtimeSettingsStore interface {
	GetRuntimeSettings() (config.RuntimeSettings, error)
	UpdateRuntimeSettings(next config.RuntimeSettings) (config.RuntimeSettings, error)
}

type runtimeSettingsApplier func(next config.RuntimeSettings) error

// subtitleSetStore exposes the saved subtitle sets.
type subtitleSetStore interface {
	ListSubtitleSets(ctx context.Context) ([]persistence.SubtitleSetSummary, error)
	DeleteSubtitleSet(ctx context.Context, videoID string) (bool, error)
	Ping(ctx context.Context) error
}

type Server struct {
	sessions *session.Manager
	queue    *jobs.Queue
	sets     subtitleSetStore
	settings runtimeSettingsStore
	apply    runtimeSettingsApplier

	uiEnabled   bool
	uiStaticDir string

	streamInterval time.Duration
	startedAt      time.Time

	router chi.Router

	serverMu sync.Mutex
	server   *http.Server
	closed   bool
	// done is closed by Shutdown so long-lived streams stop.
	done     chan struct{}
	doneOnce sync.Once
}

type Option func(*Server)

func WithUI(staticDir string, enabled bool) Option {
	return func(s *Server) {
		s.uiStaticDir = staticDir
		s.uiEnabled = enabled
	}
}

func WithRuntimeSettingsStore(store runtimeSettingsStore) Option {
	return func(s *Server) {
		s.settings = store
	}
}

func WithRuntimeSettingsApplier(apply runtimeSettingsApplier) Option {
	return func(s *Server) {
		s.apply = apply
	}
}

func WithSubtitleSets(store subtitleSetStore) Option {
	return func(s *Server) {
		s.sets = store
	}
}

// WithStreamInterval sets how often session streams poll for changes.
func WithStreamInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.streamInterval = d
		}
	}
}

func NewServer(sessions *session.Manager, queue *jobs.Queue, opts ...Option) *Server {
	s := &Server{
		sessions:       sessions,
		queue:          queue,
		uiEnabled:      false,
		streamInterval: time.Second,
		startedAt:      time.Now(),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.serverMu.Lock()
	if s.closed {
		s.serverMu.Unlock()
		_ = ln.Close()
		return http.ErrServerClosed
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	s.server = srv
	s.serverMu.Unlock()
	return srv.Serve(ln)
}

// Shutdown ends open session streams and gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.serverMu.Lock()
	s.closed = true
	srv := s.server
	s.serverMu.Unlock()

	s.doneOnce.Do(func() { close(s.done) })
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleOpenSession)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleCloseSession)

				r.Get("/subtitles", s.handleListSubtitles)
				r.Put("/subtitles", s.handleReloadSubtitles)
				r.Post("/subtitles", s.handleAddSubtitle)
				r.Post("/subtitles/batch-delete", s.handleBatchDelete)
				r.Post("/subtitles/batch-edit", s.handleBatchEdit)
				r.Patch("/subtitles/{subtitleID}", s.handleEditSubtitle)
				r.Delete("/subtitles/{subtitleID}", s.handleDeleteSubtitle)

				r.Post("/undo", s.handleUndo)
				r.Post("/redo", s.handleRedo)
				r.Get("/history", s.handleHistory)
				r.Delete("/history", s.handleClearHistory)

				r.Post("/save", s.handleSaveSession)
				r.Get("/export", s.handleExport)
				r.Get("/stream", s.handleSessionStream)
			})
		})

		r.Get("/subtitle-sets", s.handleListSubtitleSets)
		r.Delete("/subtitle-sets/{videoID}", s.handleDeleteSubtitleSet)

		r.Get("/jobs", s.handleJobs)
		r.Get("/jobs/{jobID}", s.handleJob)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
	})

	r.NotFound(s.handleStatic)
	s.router = r
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if !s.uiEnabled || s.uiStaticDir == "" || strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	indexPath := filepath.Join(s.uiStaticDir, "index.html")

	if rel == "" || !strings.Contains(filepath.Base(rel), ".") {
		http.ServeFile(w, r, indexPath)
		return
	}

	filePath := filepath.Join(s.uiStaticDir, rel)
	if _, err := os.Stat(filePath); err != nil {
		// SPA fallback: non-existing static file path returns index
		http.ServeFile(w, r, indexPath)
		return
	}
	http.ServeFile(w, r, filePath)
}
