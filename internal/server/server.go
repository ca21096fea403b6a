package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/FileDeck/backend/internal/config"
	fdhttp "github.com/GriffinCanCode/FileDeck/backend/internal/http"
	"github.com/GriffinCanCode/FileDeck/backend/internal/logging"
	"github.com/GriffinCanCode/FileDeck/backend/internal/monitoring"
	"github.com/GriffinCanCode/FileDeck/backend/internal/providers/filesystem"
	"github.com/GriffinCanCode/FileDeck/backend/internal/vfs"
	"github.com/GriffinCanCode/FileDeck/backend/internal/ws"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	provider *filesystem.Provider
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer creates a new server instance. A nil logger is built from
// cfg.Logging.
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		var err error
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	logger.Info("Initializing FileDeck Server",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.String("temp_dir", cfg.Filesystem.TempDir),
	)

	// Metrics are registered on a private registry served at /metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)

	shares, err := loadShares(cfg.Filesystem.SharesFile)
	if err != nil {
		return nil, err
	}
	logger.Info("Share registry loaded", zap.Int("shares", shares.Len()))

	provider := filesystem.New(filesystem.Config{
		TempDir:    cfg.Filesystem.TempDir,
		YieldPause: cfg.Filesystem.YieldPause,
		Shares:     shares,
		Logger:     logger.Component("dispatcher"),
		Metrics:    metrics,
		TempHook:   metrics.TempFiles,
	})
	if removed, err := provider.SweepTemp(); err != nil {
		logger.Warn("Failed to sweep temp dir", zap.Error(err))
	} else if removed > 0 {
		logger.Info("Removed stale temp archives", zap.Int("count", removed))
	}

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(fdhttp.CORS(fdhttp.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := fdhttp.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(fdhttp.RateLimit(rl))
	}

	handlers := fdhttp.NewHandlers(provider, metrics, logger.Component("http"))
	wsHandler := ws.NewHandler(provider, metrics, logger.Component("ws"))

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/operations", handlers.Operations)
	router.POST("/api/execute", handlers.Execute)
	router.GET("/ipc", wsHandler.HandleConnection)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		provider: provider,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

func loadShares(path string) (*vfs.ShareRegistry, error) {
	configs, err := config.LoadShares(path)
	if err != nil {
		return nil, err
	}

	shares := make([]vfs.Share, 0, len(configs))
	for _, c := range configs {
		shares = append(shares, vfs.Share{
			Name:      c.Name,
			Server:    c.Server,
			Share:     c.Share,
			MountPath: c.MountPath,
		})
	}

	registry, err := vfs.NewShareRegistry(shares...)
	if err != nil {
		return nil, fmt.Errorf("invalid share configuration: %w", err)
	}
	return registry, nil
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Provider returns the filesystem dispatcher
func (s *Server) Provider() *filesystem.Provider {
	return s.provider
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and cancels running operations
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	for _, t := range s.provider.Tasks().Running() {
		s.provider.Tasks().Cancel(t.ID)
	}
	err := s.http.Shutdown(ctx)
	if err != nil {
		s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
	}

	// Sync logger before exit
	_ = s.logger.Sync()
	return err
}
