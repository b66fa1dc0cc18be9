package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/df07/go-render-inspector/pkg/archive"
	"github.com/df07/go-render-inspector/pkg/heatmap"
	"github.com/df07/go-render-inspector/pkg/metrics"
	"github.com/df07/go-render-inspector/pkg/render"
	inspector "github.com/df07/go-render-inspector/pkg/server"
	"github.com/df07/go-render-inspector/pkg/wire"
)

// ErrorResponse is the JSON error body returned by every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse reports the serving renderer and scene.
type HealthResponse struct {
	Status   string `json:"status"`
	Renderer string `json:"renderer"`
	Scene    string `json:"scene"`
}

// Handlers serves the diagnostics API over the shared inspection state.
type Handlers struct {
	renderer  render.Interface
	heat      *heatmap.Engine
	arch      *archive.Archive
	inspector *inspector.Server
	console   *Console
	logger    *slog.Logger
}

// NewHandlers creates handlers over the configured state.
func NewHandlers(cfg Config) *Handlers {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		renderer:  cfg.Renderer,
		heat:      cfg.Heatmap,
		arch:      cfg.Archive,
		inspector: cfg.Inspector,
		console:   cfg.Console,
		logger:    logger,
	}
}

// HandleHealth handles GET /api/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "ok",
		Renderer: h.renderer.RendererName(),
		Scene:    h.renderer.SceneName(),
	})
}

// The inspector is a local development tool; pages from any origin may
// open a websocket session.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// HandleWebSocket handles GET /ws. The upgraded connection runs the same
// request loop as a TCP session, under its own session id.
func (h *Handlers) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	logger := h.logger.With("session", id, "remote", c.Request.RemoteAddr)

	metrics.ConnectionsTotal.Inc()
	metrics.ActiveConnections.Inc()
	defer metrics.ActiveConnections.Dec()

	stream := wire.NewWebSocketStream(conn)
	defer stream.Close()

	logger.Info("websocket session started")
	switch err := h.inspector.ServeStream(c.Request.Context(), stream, id); {
	case err == nil:
		logger.Info("client disconnected")
	case errors.Is(err, inspector.ErrQuit):
		logger.Info("client requested shutdown")
	default:
		logger.Error("session ended", "error", err)
	}
}

// parseCoord reads a required unsigned coordinate query parameter.
func parseCoord(c *gin.Context, key string) (uint32, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", key)
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return uint32(v), nil
}
