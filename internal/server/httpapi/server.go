package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/dropzone/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// Options wires the server to its collaborators.
type Options struct {
	Address       string
	Auth          Authenticator
	Metadata      Definitions
	Data          DataStore
	Logger        logging.Logger
	RateLimit     RateLimitConfig
	MaxUploadSize int64
	// Registry receives the HTTP metrics and backs /metrics. Defaults to a
	// fresh registry.
	Registry *prometheus.Registry
	// Ready backs /healthz; nil means always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	address       string
	auth          Authenticator
	metadata      Definitions
	data          DataStore
	logger        logging.Logger
	maxUploadSize int64
	ready         func(ctx context.Context) error
	engine        *gin.Engine
}

func NewServer(opts Options) (*Server, error) {
	if opts.Auth == nil || opts.Metadata == nil || opts.Data == nil {
		return nil, errors.New("httpapi: auth, metadata and data are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	metrics, err := newHTTPMetrics(reg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		address:       opts.Address,
		auth:          opts.Auth,
		metadata:      opts.Metadata,
		data:          opts.Data,
		logger:        logger.With("module", "http_server"),
		maxUploadSize: opts.MaxUploadSize,
		ready:         opts.Ready,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger(), metrics.middleware())
	engine.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, "NotFound", "no such route")
	})

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	api := engine.Group("/api")
	api.POST("/token", rateLimitMiddleware(opts.RateLimit), s.handleToken)

	data := api.Group("/data", s.authMiddleware(), rateLimitMiddleware(opts.RateLimit))
	data.GET("/*path", s.handleGet)
	data.POST("/*path", s.handleCreate)
	data.PATCH("/*path", s.handlePatch)
	data.DELETE("/*path", s.handleDelete)

	s.engine = engine
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
