package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tabsplit/internal/api_gateway/handler"
	"github.com/tabsplit/internal/api_gateway/service"
	"github.com/tabsplit/internal/config"
)

// Dependencies are the services the HTTP API is built on
type Dependencies struct {
	SplitService   service.SplitService
	PaymentService service.PaymentService
	Rooms          handler.RoomSubscriber
	Gatherer       prometheus.Gatherer
	HealthChecks   map[string]HealthCheck
}

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger          *slog.Logger
	httpServer      *http.Server
	httpRouter      *gin.Engine
	shutdownTimeout time.Duration
	cancelRequests  context.CancelFunc
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(log *slog.Logger, cfg *config.Config, deps Dependencies) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	splitHandler := handler.NewSplitHandler(log, deps.SplitService)
	paymentHandler := handler.NewPaymentHandler(log, deps.PaymentService)
	streamHandler := handler.NewStreamHandler(log, deps.Rooms, cfg.Fanout.KeepAlive)

	setupRouter(log, httpRouter, splitHandler, paymentHandler, streamHandler, deps.Gatherer, deps.HealthChecks)

	// Request contexts derive from baseCtx so open event streams end on Stop
	baseCtx, cancel := context.WithCancel(context.Background())

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}

	return &Server{
		logger:          log,
		httpServer:      httpServer,
		httpRouter:      httpRouter,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		cancelRequests:  cancel,
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop ends open event streams and shuts the server down within the
// configured shutdown timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	s.cancelRequests()

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
