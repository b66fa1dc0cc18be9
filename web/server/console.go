package server

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/df07/go-render-inspector/pkg/core"
)

// ConsoleMessage is one retained renderer log line.
type ConsoleMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
}

// ConsoleResponse lists retained log lines, oldest first.
type ConsoleResponse struct {
	Messages []ConsoleMessage `json:"messages"`
}

// Console implements core.Logger, forwarding each line to an underlying
// logger while retaining the most recent ones for the console endpoint.
// Printf may be called from rendering goroutines.
type Console struct {
	mu   sync.Mutex
	next core.Logger
	buf  []ConsoleMessage
	max  int
}

// NewConsole creates a console retaining up to capacity lines. next may
// be nil when lines should only be retained.
func NewConsole(next core.Logger, capacity int) *Console {
	if capacity <= 0 {
		capacity = 200
	}
	return &Console{next: next, max: capacity}
}

// Printf implements core.Logger.
func (cs *Console) Printf(format string, args ...interface{}) {
	if cs.next != nil {
		cs.next.Printf(format, args...)
	}
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	if msg == "" {
		return
	}

	cs.mu.Lock()
	cs.buf = append(cs.buf, ConsoleMessage{
		Message:   msg,
		Timestamp: time.Now(),
		Level:     "info",
	})
	if len(cs.buf) > cs.max {
		n := copy(cs.buf, cs.buf[len(cs.buf)-cs.max:])
		cs.buf = cs.buf[:n]
	}
	cs.mu.Unlock()
}

// Messages returns the retained lines, oldest first.
func (cs *Console) Messages() []ConsoleMessage {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]ConsoleMessage, len(cs.buf))
	copy(out, cs.buf)
	return out
}

// HandleConsole handles GET /api/console.
func (h *Handlers) HandleConsole(c *gin.Context) {
	if h.console == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "console retention is not configured",
			Code:  "CONSOLE_DISABLED",
		})
		return
	}
	c.JSON(http.StatusOK, ConsoleResponse{Messages: h.console.Messages()})
}
