// Package server assembles the daemon: environment, target manager, HTTP
// and WebSocket APIs, metrics, and the capture sweeper.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/boardlab/boardlab/internal/api/http"
	"github.com/boardlab/boardlab/internal/api/middleware"
	"github.com/boardlab/boardlab/internal/capture"
	"github.com/boardlab/boardlab/internal/environment"
	"github.com/boardlab/boardlab/internal/infrastructure/config"
	"github.com/boardlab/boardlab/internal/infrastructure/logging"
	"github.com/boardlab/boardlab/internal/infrastructure/monitoring"
	"github.com/boardlab/boardlab/internal/script"
	"github.com/boardlab/boardlab/internal/target"
	"github.com/boardlab/boardlab/internal/ws"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router  *gin.Engine
	httpSrv *http.Server
	targets *target.Manager
	sweeper *capture.Sweeper
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics

	sweepCancel context.CancelFunc
}

// NewServer builds the daemon from configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	var err error
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: false,
			OutputPaths: []string{"stdout"},
		})
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}

	env, err := environment.Load(cfg.Lab.EnvironmentFile)
	if err != nil {
		return nil, err
	}
	logger.Info("environment loaded",
		zap.String("file", cfg.Lab.EnvironmentFile),
		zap.Strings("targets", env.Names()),
	)

	metrics := monitoring.NewMetrics()

	targets, err := target.NewManager(env, target.Options{
		CaptureDir:          cfg.Capture.Dir,
		CaptureMaxFileBytes: cfg.Capture.MaxFileBytes,
		Metrics:             metrics,
	}, logger)
	if err != nil {
		return nil, err
	}

	scripts := script.NewRunner(script.Config{Timeout: cfg.Script.Timeout()}, logger)
	sweeper := capture.NewSweeper(cfg.Capture.Dir, capture.SweepConfig{
		MaxAge:   cfg.Capture.Retention(),
		Interval: cfg.Capture.SweepInterval(),
	}, logger)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(monitoring.Middleware(metrics))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}
	router.Use(middleware.BearerAuth(cfg.Auth.TokenHash))

	handlers := apihttp.NewHandlers(targets, scripts, metrics, logger)
	handlers.Register(router)

	wsHandler := ws.NewHandler(targets, metrics, logger)
	router.GET("/targets/:name/console", wsHandler.HandleConnection)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Server{
		router:  router,
		targets: targets,
		sweeper: sweeper,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Logger exposes the assembled logger.
func (s *Server) Logger() *logging.Logger {
	return s.logger
}

// Run starts the sweeper and serves HTTP until Shutdown.
func (s *Server) Run() error {
	sweepCtx, cancel := context.WithCancel(context.Background())
	s.sweepCancel = cancel
	go s.sweeper.Run(sweepCtx)

	s.httpSrv = &http.Server{
		Addr:    s.config.Address(),
		Handler: s.router,
	}
	s.logger.Info("listening", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and tears down every open console.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.sweepCancel != nil {
		s.sweepCancel()
	}
	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}
	s.targets.CloseAll()
	s.logger.Info("server stopped")
	return err
}
