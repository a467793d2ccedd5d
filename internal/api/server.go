package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mcnotify/mcnotify/internal/config"
	"github.com/mcnotify/mcnotify/internal/db"
	"github.com/mcnotify/mcnotify/internal/status"
	"github.com/mcnotify/mcnotify/internal/util"
)

// HistoryReader lists recorded status changes. *db.History satisfies it.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]db.Entry, error)
}

// Server is the status API. It receives snapshots as a notifier, so it only
// ever sees what was dispatched.
type Server struct {
	cfg     config.APIConfig
	target  status.Target
	history HistoryReader
	version string
	started time.Time
	logger  zerolog.Logger

	mu       sync.RWMutex
	latest   *status.Status
	latestAt time.Time

	limiter    *RateLimiter
	router     *gin.Engine
	httpServer *http.Server
}

// NewServer creates the API server for target. history may be nil.
func NewServer(cfg config.APIConfig, target status.Target, history HistoryReader, version string) *Server {
	s := &Server{
		cfg:     cfg,
		target:  target,
		history: history,
		version: version,
		started: time.Now(),
		logger:  util.ComponentLogger("api"),
		limiter: NewRateLimiter(cfg.RateLimitRPS),
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Name implements the notifier interface.
func (s *Server) Name() string {
	return "api"
}

// Notify stores st as the latest snapshot.
func (s *Server) Notify(ctx context.Context, st *status.Status) error {
	s.mu.Lock()
	s.latest = st
	s.latestAt = time.Now()
	s.mu.Unlock()
	return nil
}

func (s *Server) snapshot() (*status.Status, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latestAt
}

// Start listens on the configured port and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if s.cfg.TLSEnabled {
		if err := util.EnsureCertificate(s.cfg.TLSCertFile, s.cfg.TLSKeyFile, "mcnotify"); err != nil {
			return fmt.Errorf("API TLS certificate: %w", err)
		}
		cert, err := tls.LoadX509KeyPair(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("API TLS certificate: %w", err)
		}
		s.httpServer.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}
	}

	lc := listenConfig()
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("API server error: %w", err)
	}

	s.logger.Info().Str("addr", addr).Bool("tls", s.cfg.TLSEnabled).Msg("status API starting")

	go func() {
		<-ctx.Done()
		if err := s.Stop(); err != nil {
			s.logger.Warn().Err(err).Msg("API shutdown failed")
		}
	}()
	go s.sweepLimiter(ctx)

	if s.httpServer.TLSConfig != nil {
		err = s.httpServer.Serve(tls.NewListener(ln, s.httpServer.TLSConfig))
	} else {
		err = s.httpServer.Serve(ln)
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("API server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) sweepLimiter(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.Sweep(10 * time.Minute)
		}
	}
}

// buildRouter creates the Gin router with all routes and middleware.
func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestLogger(s.logger))
	router.Use(SecurityHeaders())

	allowedOrigins := s.cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Must be false when AllowOrigins is "*"
		MaxAge:           12 * time.Hour,
	}))

	router.Use(s.limiter.Middleware())

	public := router.Group("/api/public")
	{
		public.GET("/ping", s.handlePing)
		public.GET("/system", s.handleSystem)
	}

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/status", s.handleStatus)
		apiGroup.GET("/history", s.handleHistory)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	return router
}
