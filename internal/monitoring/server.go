package monitoring

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ducminhle1904/crypto-signal-bot/internal/logger"
)

// StatsFunc returns the statistics served on /stats
type StatsFunc func() interface{}

// Server exposes /health, /metrics and /stats
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	logger     *logger.Logger
}

// NewServer wires the routes. stats may be nil.
func NewServer(addr string, health *HealthChecker, metrics *Metrics, stats StatsFunc, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNopLogger()
	}
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		status, code := health.Status()
		c.JSON(code, status)
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/stats", func(c *gin.Context) {
		if stats == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "stats not available"})
			return
		}
		c.JSON(http.StatusOK, stats())
	})

	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: log,
	}
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens in the background. Listen errors are returned at once;
// later serve errors are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("📡 Monitoring server listening on %s", ln.Addr())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.LogError("monitoring server", err)
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
