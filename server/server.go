package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/xhad/bloodhound/internal/logger"
	"github.com/xhad/bloodhound/pkg/crawler"
	"github.com/xhad/bloodhound/pkg/metrics"
)

type Config struct {
	Mode              string // gin mode: debug, release or test
	RequestsPerSecond float64
	Burst             int
	ShutdownTimeout   time.Duration
	Logger            *log.Logger
}

// Server exposes the crawl engine over HTTP and WebSocket.
type Server struct {
	config    Config
	engine    *crawler.Engine
	metrics   *metrics.PrometheusMetrics
	log       *log.Logger
	startTime time.Time
	router    *gin.Engine
}

func NewServer(config Config, engine *crawler.Engine, m *metrics.PrometheusMetrics) *Server {
	if config.Mode == "" {
		config.Mode = gin.ReleaseMode
	}
	if config.RequestsPerSecond == 0 {
		config.RequestsPerSecond = 5
	}
	if config.Burst == 0 {
		config.Burst = 10
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		config:    config,
		engine:    engine,
		metrics:   m,
		log:       logger.OrDefault(config.Logger),
		startTime: time.Now(),
	}
	s.router = s.newRouter()
	return s
}

// newRouter wires the middleware chain:
//
//	Global:  Recovery → request logging
//	API:     RateLimit
//
// Health and metrics sit outside the rate limit so probes always work.
func (s *Server) newRouter() *gin.Engine {
	gin.SetMode(s.config.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(s.log))

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("")
	api.Use(RateLimit(s.config.RequestsPerSecond, s.config.Burst))
	api.POST("/fetch_html", s.fetchHTML)
	api.POST("/crawl", s.crawl)
	api.GET("/ws/crawl", s.crawlSocket)

	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
