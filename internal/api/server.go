package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/metal-toolbox/snatt/internal/backup"
	"github.com/metal-toolbox/snatt/internal/configuration"
	"github.com/metal-toolbox/snatt/internal/credentials"
	"github.com/metal-toolbox/snatt/internal/diagnostics"
	"github.com/metal-toolbox/snatt/internal/discovery"
	"github.com/metal-toolbox/snatt/internal/report"
	"github.com/metal-toolbox/snatt/internal/session"
	"github.com/metal-toolbox/snatt/internal/store"
	"github.com/metal-toolbox/snatt/internal/version"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Server is the HTTP API over the network operation engines.
type Server struct {
	cfg         *configuration.Configuration
	logger      *logrus.Entry
	discovery   *discovery.Discovery
	diagnostics *diagnostics.Diagnostics
	backups     *backup.Manager
	reports     *report.Generator
	vault       *credentials.Vault
	router      *gin.Engine
}

// New wires the engines over a fresh in-memory repository.
func New(cfg *configuration.Configuration, logger *logrus.Entry, opts ...discovery.Option) (*Server, error) {
	vault, err := credentials.NewVault(cfg.Credentials.MasterKey)
	if err != nil {
		return nil, err
	}

	repository := store.NewRepository()
	sessions := session.Factory(session.DryRunFactory)

	s := &Server{
		cfg:         cfg,
		logger:      logger,
		discovery:   discovery.New(cfg, repository, logger.WithField("engine", "discovery"), opts...),
		diagnostics: diagnostics.New(cfg, repository, sessions, logger.WithField("engine", "diagnostics")),
		backups:     backup.New(repository, sessions, logger.WithField("engine", "backup")),
		reports:     report.New(repository, logger.WithField("engine", "report")),
		vault:       vault,
	}

	s.initRouter()

	return s, nil
}

// Handler returns the instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "snatt-api")
}

func (s *Server) initRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.accessLog())
	s.router.Use(corsMiddleware(s.cfg.API.AllowedOrigins))

	s.router.GET("/", s.handleRoot)
	s.router.GET("/healthz", s.handleHealthz)

	api := s.router.Group("/api")
	{
		api.POST("/discovery/scan", s.handleScan)
		api.POST("/discovery/connect", s.handleConnect)

		api.GET("/diagnostics/workflows", s.handleWorkflows)
		api.POST("/diagnostics/run", s.handleDiagnosticsRun)

		api.POST("/backup/create", s.handleBackupCreate)
		api.GET("/backup/history", s.handleBackupHistory)

		api.POST("/reports/generate", s.handleReportGenerate)

		api.POST("/settings/credentials", s.handleCredentialAdd)
		api.GET("/settings/credentials", s.handleCredentialList)
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.API.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.WithField("address", srv.Addr).Info("API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "API server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "SNATT API", "version": version.Current().AppVersion})
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
