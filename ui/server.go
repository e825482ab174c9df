package ui

import (
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"time"

	"kpijoin/internal/container"
	"kpijoin/internal/dataset"
	"kpijoin/internal/kpi"
	"kpijoin/internal/profiling"
	"kpijoin/internal/session"
	"kpijoin/ports"

	"github.com/gin-gonic/gin"
)

// Server represents the web server of the upload → join → analyze → export wizard
type Server struct {
	router        *gin.Engine
	templates     *template.Template
	embeddedFiles fs.FS

	sessions *session.Store
	loader   *dataset.Loader
	engine   *kpi.Engine
	profiler *profiling.DataProfiler
	runs     ports.RunRepository // nil when the ledger is disabled

	cookieName  string
	sessionTTL  time.Duration
	maxUpload   int64
	previewRows int
	exportName  string
}

// NewServer creates a web server wired to the container's components. The
// embedded filesystem must hold ui/templates/index.html.
func NewServer(c *container.Container, embeddedFiles fs.FS) (*Server, error) {
	if c == nil || c.Config == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	templates, err := template.New("").ParseFS(embeddedFiles, "ui/templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	cfg := c.Config
	s := &Server{
		router:        gin.New(),
		templates:     templates,
		embeddedFiles: embeddedFiles,
		sessions:      c.Sessions,
		loader:        c.Loader,
		engine:        c.Engine,
		profiler:      c.Profiler,
		runs:          c.RunRepo,
		cookieName:    cfg.Session.CookieName,
		sessionTTL:    cfg.Session.TTL,
		maxUpload:     cfg.Upload.MaxUploadBytes(),
		previewRows:   cfg.Upload.PreviewRows,
		exportName:    cfg.Export.FileName,
	}
	s.router.MaxMultipartMemory = s.maxUpload

	s.setupMiddleware()
	s.setupRoutes()

	log.Printf("[Server] routes ready (upload limit %d MB, preview %d rows, ledger enabled: %v)",
		cfg.Upload.MaxSizeMB, s.previewRows, s.runs != nil)
	return s, nil
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)

	// Wizard steps
	s.router.POST("/upload_datasets", s.handleUploadDatasets)
	s.router.POST("/process_join", s.handleProcessJoin)
	s.router.POST("/analyze_kpi", s.handleAnalyzeKPI)
	s.router.GET("/export", s.handleExport)

	// Supporting views
	s.router.GET("/report", s.handleReport)
	s.router.GET("/session", s.handleSession)
	s.router.GET("/datasets/:name/profile", s.handleDatasetProfile)
}

// Handler exposes the engine for http.Server and tests
func (s *Server) Handler() http.Handler {
	return s.router
}
