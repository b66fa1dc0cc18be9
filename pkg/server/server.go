// Package server speaks the binary inspection protocol with visualization
// clients. Each connection gets a handshake (hello exchange plus the list
// of supported plugin ids) and then a request loop. Connections are
// accepted concurrently but requests run one at a time: the renderer,
// capture store and heatmap engine are shared state sized for a single
// inspection session.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/df07/go-render-inspector/pkg/archive"
	"github.com/df07/go-render-inspector/pkg/capture"
	"github.com/df07/go-render-inspector/pkg/heatmap"
	"github.com/df07/go-render-inspector/pkg/metrics"
	"github.com/df07/go-render-inspector/pkg/plugin"
	"github.com/df07/go-render-inspector/pkg/render"
	"github.com/df07/go-render-inspector/pkg/wire"
)

// ErrQuit is returned by Serve after a client sent the quit message.
var ErrQuit = errors.New("server: quit requested by client")

// Config wires the server's collaborators. Renderer, Store and Heatmap are
// required; Plugins, Archive and Logger are optional.
type Config struct {
	Renderer render.Interface
	Store    *capture.Store
	Heatmap  *heatmap.Engine
	Plugins  *plugin.Registry
	Archive  *archive.Archive
	Logger   *slog.Logger
}

// Server owns the request dispatch for the inspection protocol.
type Server struct {
	renderer render.Interface
	store    *capture.Store
	heat     *heatmap.Engine
	plugins  *plugin.Registry
	arch     *archive.Archive
	logger   *slog.Logger

	// mu serializes request handling across connections
	mu       sync.Mutex
	quit     chan struct{}
	quitOnce sync.Once
}

// New creates a Server from its collaborators
func New(cfg Config) *Server {
	if cfg.Plugins == nil {
		cfg.Plugins = plugin.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		renderer: cfg.Renderer,
		store:    cfg.Store,
		heat:     cfg.Heatmap,
		plugins:  cfg.Plugins,
		arch:     cfg.Archive,
		logger:   cfg.Logger,
		quit:     make(chan struct{}),
	}
}

// Quit asks the server to shut down. Safe to call from any goroutine and
// more than once.
func (s *Server) Quit() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// Serve accepts inspection clients on ln until ctx is canceled or a client
// sends the quit message. In the quit case it returns ErrQuit so callers
// sharing an errgroup can take the rest of the process down with it.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-s.quit:
		case <-done:
		}
		ln.Close()
	}()

	s.logger.Info("inspection server listening", "addr", ln.Addr().String())

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			wg.Wait()
			select {
			case <-s.quit:
				return ErrQuit
			default:
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	id := uuid.NewString()
	logger := s.logger.With("session", id, "remote", conn.RemoteAddr().String())

	metrics.ConnectionsTotal.Inc()
	metrics.ActiveConnections.Inc()
	defer metrics.ActiveConnections.Dec()

	stream := wire.NewSocketStream(conn)
	defer stream.Close()

	logger.Info("client connected")
	switch err := s.ServeStream(ctx, stream, id); {
	case err == nil:
		logger.Info("client disconnected")
	case errors.Is(err, ErrQuit):
		logger.Info("client requested shutdown")
	default:
		logger.Error("session ended", "error", err)
	}
}

// ServeStream runs the handshake and request loop over an established
// stream. The websocket endpoint drives the same loop for browser clients.
// Returns nil when the client disconnects, ErrQuit when it asks the whole
// server to stop.
func (s *Server) ServeStream(ctx context.Context, stream wire.Stream, sessionID string) error {
	sess := &session{
		id:     sessionID,
		stream: countingStream{stream},
		logger: s.logger.With("session", sessionID),
	}
	sess.w = wire.NewWriter(sess.stream)
	sess.r = wire.NewReader(sess.stream)

	if err := s.handshake(sess); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	sess.logger.Info("handshake complete")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg := sess.r.ReadShort()
		if err := sess.r.Err(); err != nil {
			if isClientGone(err) {
				return nil
			}
			return err
		}

		done, err := s.dispatch(ctx, sess, msg)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// handshake introduces both sides: the server greets first, the client
// echoes, then the server announces the plugin ids it can answer.
func (s *Server) handshake(sess *session) error {
	sess.w.WriteShort(wire.MsgHello)
	if err := sess.flush(); err != nil {
		return err
	}

	msg := sess.r.ReadShort()
	if err := sess.r.Err(); err != nil {
		return err
	}
	if msg != wire.MsgHello {
		return fmt.Errorf("expected hello, got 0x%04x", msg)
	}

	return s.respondSupportedPlugins(sess)
}

// dispatch routes one request. Plugin ids take precedence over the built-in
// message set. The returned done flag ends the session without error.
func (s *Server) dispatch(ctx context.Context, sess *session, msg int16) (bool, error) {
	if p := s.plugins.ByID(msg); p != nil {
		metrics.RequestsTotal.WithLabelValues("plugin").Inc()
		s.mu.Lock()
		err := runPlugin(p, sess)
		s.mu.Unlock()
		if err != nil {
			return false, fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		return false, nil
	}

	switch msg {
	case wire.MsgRequestRenderInfo:
		metrics.RequestsTotal.WithLabelValues("render_info").Inc()
		return false, s.locked(func() error { return s.respondRenderInfo(sess) })

	case wire.MsgRequestCamera:
		metrics.RequestsTotal.WithLabelValues("camera").Inc()
		return false, s.locked(func() error { return s.respondCamera(sess) })

	case wire.MsgRequestScene:
		metrics.RequestsTotal.WithLabelValues("scene").Inc()
		return false, s.locked(func() error { return s.respondScene(sess) })

	case wire.MsgRequestReloadScene:
		metrics.RequestsTotal.WithLabelValues("reload_scene").Inc()
		return false, s.locked(func() error { return s.respondReloadScene(sess) })

	case wire.MsgRequestRenderImage:
		metrics.RequestsTotal.WithLabelValues("render_image").Inc()
		return false, s.locked(func() error { return s.respondRenderImage(ctx, sess) })

	case wire.MsgRequestRenderPixel:
		metrics.RequestsTotal.WithLabelValues("render_pixel").Inc()
		return false, s.locked(func() error { return s.respondRenderPixel(ctx, sess) })

	case wire.MsgDisconnect:
		sess.w.WriteShort(wire.MsgDisconnect)
		return true, sess.flush()

	case wire.MsgQuit:
		s.Quit()
		sess.w.WriteShort(wire.MsgDisconnect)
		if err := sess.flush(); err != nil {
			return false, err
		}
		return false, ErrQuit

	default:
		// nothing is known about the payload, so nothing can be skipped;
		// the client and server stay in sync only for empty requests
		metrics.RequestsTotal.WithLabelValues("unknown").Inc()
		sess.logger.Warn("unknown message", "msg", fmt.Sprintf("0x%04x", msg))
		return false, nil
	}
}

func (s *Server) locked(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// session bundles the per-connection protocol state.
type session struct {
	id     string
	stream wire.Stream
	r      *wire.Reader
	w      *wire.Writer
	logger *slog.Logger
}

// flush surfaces any latched write error before flushing the transport
func (c *session) flush() error {
	if err := c.w.Err(); err != nil {
		return err
	}
	return c.stream.Flush()
}

// countingStream adds written bytes to the response byte counter.
type countingStream struct {
	wire.Stream
}

func (c countingStream) Write(p []byte) (int, error) {
	n, err := c.Stream.Write(p)
	metrics.ResponseBytes.Add(float64(n))
	return n, err
}

func isClientGone(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed)
}
