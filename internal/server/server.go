package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jarlab/jarlab/internal/metrics"
	"github.com/jarlab/jarlab/internal/parameter"
	"github.com/jarlab/jarlab/internal/reagent"
	"github.com/jarlab/jarlab/internal/session"
	"github.com/jarlab/jarlab/internal/store"
	"go.uber.org/zap"
)

// Options configures a Server. Zero values fall back to sensible defaults.
type Options struct {
	Port        int
	Token       string
	TokenFile   string
	ConfigDir   string
	Sessions    session.Defaults
	SessionIdle time.Duration
	Logger      *zap.Logger
}

type Server struct {
	store       *store.SQLiteStore
	catalog     *reagent.Catalog
	params      *parameter.FileStore
	sessions    *session.Manager
	metrics     *metrics.Metrics
	logger      *zap.Logger
	port        int
	token       string
	tokenFile   string
	sessionIdle time.Duration
	router      *http.ServeMux
	startTime   time.Time
	now         func() time.Time
}

func New(s *store.SQLiteStore, opts Options) *Server {
	if opts.Token == "" {
		opts.Token = generateToken()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SessionIdle <= 0 {
		opts.SessionIdle = 12 * time.Hour
	}
	if opts.Sessions.Trials == 0 {
		opts.Sessions = session.DefaultDefaults()
	}

	srv := &Server{
		store:       s,
		catalog:     reagent.NewCatalog(opts.ConfigDir),
		params:      parameter.NewFileStore(filepath.Join(opts.ConfigDir, parameter.FileName)),
		sessions:    session.NewManager(opts.Sessions),
		metrics:     metrics.New(),
		logger:      opts.Logger,
		port:        opts.Port,
		token:       opts.Token,
		tokenFile:   opts.TokenFile,
		sessionIdle: opts.SessionIdle,
		router:      http.NewServeMux(),
		startTime:   time.Now(),
		now:         time.Now,
	}

	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	// Public endpoints
	s.handle("/health", http.HandlerFunc(s.handleHealth))
	s.handle("/metrics", s.metrics.Handler())

	// Lab UI (protected, one form session per browser)
	s.protect("/", s.handleHome)
	s.protect("/home", s.handleShowHome)
	s.protect("/session/info", s.handleSessionInfo)
	s.protect("/session/combinations", s.handleAddCombination)
	s.protect("/session/combinations/remove", s.handleRemoveCombination)
	s.protect("/session/trials", s.handleTrials)
	s.protect("/session/save", s.handleSave)
	s.protect("/results", s.handleResults)
	s.protect("/report.html", s.handleReport)
	s.protect("/report.txt", s.handleReport)
	s.protect("/report.pdf", s.handleReport)
	s.protect("/config", s.handleConfig)
	s.protect("/config/reagents", s.handleReagents)
	s.protect("/config/parameters", s.handleParameters)
	s.protect("/database", s.handleDatabase)
	s.protect("/database/export.csv", s.handleExport)
	s.protect("/database/export.xlsx", s.handleExport)

	// JSON API (protected, no form session)
	s.handle("/api/measurements", s.authMiddleware(http.HandlerFunc(s.handleMeasurementsAPI)))
}

func (s *Server) handle(pattern string, h http.Handler) {
	s.router.Handle(pattern, s.instrument(pattern, h))
}

func (s *Server) protect(pattern string, h sessionHandler) {
	s.handle(pattern, s.authMiddleware(s.withSession(h)))
}

func (s *Server) Start() error {
	return s.StartWithOptions(true)
}

// StartQuiet starts the server without the console banner.
func (s *Server) StartQuiet() error {
	return s.StartWithOptions(false)
}

func (s *Server) StartWithOptions(printMessages bool) error {
	// Write token to file for the url command
	if s.tokenFile != "" {
		if err := os.WriteFile(s.tokenFile, []byte(s.token), 0600); err != nil {
			s.logger.Warn("failed to write token file", zap.String("path", s.tokenFile), zap.Error(err))
		}
	}

	addr := fmt.Sprintf(":%d", s.port)

	if printMessages {
		fmt.Println()
		fmt.Printf("jarlab running on http://localhost:%d\n", s.port)
		fmt.Printf("Lab UI: %s\n", s.URL())
		fmt.Println()
		fmt.Println("Press Ctrl+C to stop")
	}

	s.logger.Info("server started", zap.Int("port", s.port), zap.String("db", s.store.Path()))
	return http.ListenAndServe(addr, s.router)
}

// URL is the login link of the lab UI.
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d/?token=%s", s.port, s.token)
}

func (s *Server) Token() string {
	return s.token
}

func (s *Server) Store() *store.SQLiteStore {
	return s.store
}

func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

func (s *Server) StartTime() time.Time {
	return s.startTime
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// SetClock replaces the time source of the server and its sessions.
func (s *Server) SetClock(now func() time.Time) {
	s.now = now
	s.sessions.SetClock(now)
}

func generateToken() string {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a simple token if crypto/rand fails
		return "a1b2c3d4"
	}
	return hex.EncodeToString(bytes)
}
