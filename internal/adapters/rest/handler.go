package rest

import (
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/cadence/internal/core/services"
	"github.com/ewilliams-labs/cadence/internal/worker"
)

// DefaultMaxUploadBytes caps the size of an uploaded track.
const DefaultMaxUploadBytes int64 = 200 << 20

// Config tunes the upload handling.
type Config struct {
	TmpDir         string
	MaxUploadBytes int64
}

// Handler manages the HTTP interface for our application.
type Handler struct {
	svc    *services.Orchestrator // Dependency on the Core Service
	pool   *worker.Pool
	cfg    Config
	logger *zap.Logger
	router *http.ServeMux // Standard library router
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(svc *services.Orchestrator, pool *worker.Pool, cfg Config, logger *zap.Logger) *Handler {
	if cfg.TmpDir == "" {
		cfg.TmpDir = os.TempDir()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		svc:    svc,
		pool:   pool,
		cfg:    cfg,
		logger: logger.Named("rest"),
		router: http.NewServeMux(),
	}

	h.routes()

	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.router.HandleFunc("GET /health", h.HealthCheck)
	h.router.HandleFunc("POST /analyze", h.Analyze)
	h.router.HandleFunc("GET /analyses/{id}", h.GetAnalysis)
	h.router.HandleFunc("GET /analyses", h.ListAnalyses)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
