package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/gin-gonic/gin"
	"go.uber.org/atomic"
)

type ServerConfig struct {
	ListenAddr string
	Log        *slog.Logger

	DrainDuration            time.Duration
	GracefulShutdownDuration time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
}

// Server runs the gateway with health endpoints and access logging
type Server struct {
	cfg     *ServerConfig
	isReady atomic.Bool
	log     *slog.Logger

	srv *http.Server
}

// NewServer mounts /livez and /readyz on router and wraps it with the access
// logger.
func NewServer(cfg *ServerConfig, router *gin.Engine) *Server {
	s := &Server{
		cfg: cfg,
		log: cfg.Log,
	}
	s.isReady.Store(true)

	router.GET("/livez", s.handleLivenessCheck)
	router.GET("/readyz", s.handleReadinessCheck)

	s.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      httplogger.LoggingMiddlewareSlog(cfg.Log, router),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) handleLivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) handleReadinessCheck(c *gin.Context) {
	if !s.isReady.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Drain marks the server not ready so load balancers stop routing to it.
func (s *Server) Drain() {
	if s.isReady.Swap(false) {
		s.log.Info("Server marked as not ready")
	}
}

func (s *Server) RunInBackground() {
	go func() {
		s.log.Info("Starting HTTP server", "listenAddress", s.cfg.ListenAddr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server failed", "err", err)
		}
	}()
}

// Shutdown drains, waits DrainDuration, then stops accepting requests.
func (s *Server) Shutdown() {
	s.Drain()
	time.Sleep(s.cfg.DrainDuration)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Error("Graceful HTTP server shutdown failed", "err", err)
	} else {
		s.log.Info("HTTP server gracefully stopped")
	}
}
