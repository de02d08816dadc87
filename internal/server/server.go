// Package server exposes the ask-database engine over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"warehouse-askdb/internal/common/config"
	"warehouse-askdb/internal/common/errors"
	"warehouse-askdb/internal/common/logger"
	"warehouse-askdb/internal/engine"
	"warehouse-askdb/internal/engine/cache"
	"warehouse-askdb/internal/engine/executor"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the HTTP surface and its dependencies.
type Server struct {
	cfg        *config.Config
	engine     *engine.Engine
	executor   *executor.Executor
	cache      *cache.Cache
	logger     logger.Logger
	errHandler *errors.Handler
	startTime  time.Time
}

func New(cfg *config.Config, eng *engine.Engine, exec *executor.Executor, qcache *cache.Cache, log logger.Logger) *Server {
	return &Server{
		cfg:        cfg,
		engine:     eng,
		executor:   exec,
		cache:      qcache,
		logger:     log,
		errHandler: errors.NewHandler(log),
		startTime:  time.Now(),
	}
}

// Router builds the gin engine with middleware and routes.
func (s *Server) Router() *gin.Engine {
	if s.cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(s.requestLogger())

	corsConfig := cors.DefaultConfig()
	if len(s.cfg.Server.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = s.cfg.Server.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "X-User-Email")
	r.Use(cors.New(corsConfig))

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/ask/status", s.handleStatus)
	api.GET("/ask/history/:session", s.handleHistory)
	api.POST("/ask", PermissionGate(s.cfg.Server.AllowedUsers, s.errHandler), s.handleAsk)

	return r
}

// Run starts the HTTP server and blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Address,
		Handler:      s.Router(),
		ReadTimeout:  config.GetDuration(s.cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(s.cfg.Server.WriteTimeout),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", map[string]interface{}{
			"address": s.cfg.Server.Address,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		config.GetDuration(s.cfg.Server.ShutdownTimeout))
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("Request handled", map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"durationMs": time.Since(start).Milliseconds(),
			"requestId":  c.GetString(requestIDKey),
		})
	}
}
