// Package server is the diagnostics HTTP server that runs alongside the
// wire-protocol listener: JSON endpoints for render state and archived
// captures, scaled image previews, Prometheus metrics, and a websocket
// transport speaking the same protocol as the TCP port.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/df07/go-render-inspector/pkg/archive"
	"github.com/df07/go-render-inspector/pkg/heatmap"
	"github.com/df07/go-render-inspector/pkg/render"
	inspector "github.com/df07/go-render-inspector/pkg/server"
)

// Config carries the shared state the endpoints read. Archive, Inspector
// and Console are optional; endpoints backed by an absent dependency
// answer 503, and /ws is only registered when Inspector is set.
type Config struct {
	Renderer  render.Interface
	Heatmap   *heatmap.Engine
	Archive   *archive.Archive
	Inspector *inspector.Server
	Console   *Console
	Logger    *slog.Logger
}

// Server serves the diagnostics API on one address.
type Server struct {
	addr   string
	logger *slog.Logger
	router *gin.Engine
}

// New assembles the router. The JSON API lives under /api, metrics under
// /metrics, the websocket transport under /ws.
func New(addr string, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLog(cfg.Logger))

	h := NewHandlers(cfg)
	RegisterRoutes(router.Group("/api"), h)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.Inspector != nil {
		router.GET("/ws", h.HandleWebSocket)
	}

	return &Server{addr: addr, logger: cfg.Logger, router: router}
}

// RegisterRoutes registers the JSON API on the given group.
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.GET("/health", h.HandleHealth)
	rg.GET("/renderinfo", h.HandleRenderInfo)
	rg.GET("/camera", h.HandleCamera)
	rg.GET("/preview", h.HandlePreview)
	rg.GET("/heatmap", h.HandleHeatmap)
	rg.GET("/console", h.HandleConsole)

	sessions := rg.Group("/sessions")
	{
		sessions.GET("", h.HandleSessions)
		sessions.GET("/:id/pixels", h.HandleSessionPixels)
		sessions.GET("/:id/pixel", h.HandleSessionPixel)
	}
}

// Router returns the assembled handler tree.
func (s *Server) Router() http.Handler { return s.router }

// Run serves until ctx is canceled, then shuts down gracefully. The
// returned error is ctx's cause on a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("diagnostics server listening", "addr", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("web server: shutdown: %w", err)
		}
		<-errc
		return ctx.Err()
	case err := <-errc:
		return fmt.Errorf("web server: %w", err)
	}
}

func requestLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}
