package server

import (
	"context"
	"time"

	"github.com/df07/go-render-inspector/pkg/metrics"
	"github.com/df07/go-render-inspector/pkg/plugin"
	"github.com/df07/go-render-inspector/pkg/wire"
)

func (s *Server) respondSupportedPlugins(sess *session) error {
	ids := s.plugins.IDs()
	sess.w.WriteShort(wire.MsgSupportedPlugins)
	sess.w.WriteUInt(uint32(len(ids)))
	for _, id := range ids {
		sess.w.WriteShort(id)
	}
	return sess.flush()
}

func (s *Server) respondRenderInfo(sess *session) error {
	sess.w.WriteShort(wire.MsgResponseRenderInfo)
	sess.w.WriteString(s.renderer.RendererName())
	sess.w.WriteString(s.renderer.SceneName())
	sess.w.WriteUInt(s.renderer.SampleCount())
	return sess.flush()
}

func (s *Server) respondCamera(sess *session) error {
	sess.w.WriteShort(wire.MsgResponseCamera)
	cam := s.renderer.Camera()
	if err := cam.Serialize(sess.w); err != nil {
		return err
	}
	return sess.flush()
}

func (s *Server) respondScene(sess *session) error {
	if err := s.writeSceneData(sess); err != nil {
		return err
	}
	return sess.flush()
}

// writeSceneData sends either the finalized heatmap proxies with their
// display options or, when no heatmap has been collected, the raw scene
// shapes. Each shape record carries its own type tag.
func (s *Server) writeSceneData(sess *session) error {
	sess.w.WriteShort(wire.MsgResponseScene)

	hasHeatmap := s.heat.HasData()
	sess.w.WriteBool(hasHeatmap)

	if hasHeatmap {
		opts := s.heat.Options()
		sess.w.WriteString(opts.Colormap)
		sess.w.WriteBool(opts.ShowColorbar)
		sess.w.WriteString(opts.Label)

		proxies, err := s.heat.ProxyMeshes()
		if err != nil {
			return err
		}
		sess.w.WriteUInt(uint32(len(proxies)))
		for _, m := range proxies {
			if err := m.Serialize(sess.w); err != nil {
				return err
			}
		}
		return nil
	}

	meshes := s.renderer.Meshes()
	spheres := s.renderer.Spheres()
	sess.w.WriteUInt(uint32(len(meshes) + len(spheres)))
	for _, m := range meshes {
		if err := m.Serialize(sess.w); err != nil {
			return err
		}
	}
	for _, sp := range spheres {
		if err := sp.Serialize(sess.w); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) respondReloadScene(sess *session) error {
	if err := s.renderer.Reload(); err != nil {
		// keep serving the previous scene
		sess.logger.Error("scene reload failed", "error", err)
		return nil
	}
	sess.logger.Info("scene reloaded")
	sess.w.WriteShort(wire.MsgResponseReloadScene)
	return sess.flush()
}

func (s *Server) respondRenderImage(ctx context.Context, sess *session) error {
	sampleCount := sess.r.ReadUInt()
	if err := sess.r.Err(); err != nil {
		return err
	}
	s.renderer.SetSampleCount(sampleCount)

	start := time.Now()
	path, err := s.renderer.RenderImage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sess.logger.Error("image render failed", "error", err)
		return nil
	}
	elapsed := time.Since(start)
	metrics.RenderDuration.Observe(elapsed.Seconds())
	sess.logger.Info("image rendered", "path", path, "samples", sampleCount, "elapsed", elapsed)

	sess.w.WriteShort(wire.MsgResponseRenderImage)
	sess.w.WriteString(path)
	if err := sess.flush(); err != nil {
		return err
	}

	// the render may have produced heatmap data; push the refreshed scene
	if s.heat.HasData() {
		return s.respondScene(sess)
	}
	return nil
}

func (s *Server) respondRenderPixel(ctx context.Context, sess *session) error {
	x := sess.r.ReadUInt()
	y := sess.r.ReadUInt()
	sampleCount := sess.r.ReadUInt()
	if err := sess.r.Err(); err != nil {
		return err
	}
	s.renderer.SetSampleCount(sampleCount)

	s.store.Enable()
	defer s.store.Disable()

	start := time.Now()
	if err := s.renderer.RenderPixel(ctx, x, y); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sess.logger.Error("pixel render failed", "x", x, "y", y, "error", err)
		return nil
	}
	metrics.PixelCaptureDuration.Observe(time.Since(start).Seconds())

	// serialize once; the same blob answers the client and feeds the archive
	blob := wire.NewBufferStream()
	if err := s.store.SerializePixel(wire.NewWriter(blob), x, y); err != nil {
		return err
	}

	sess.w.WriteShort(wire.MsgResponseRenderPixel)
	if _, err := sess.stream.Write(blob.Bytes()); err != nil {
		return err
	}
	if err := sess.flush(); err != nil {
		return err
	}

	s.archivePixel(sess, x, y, blob.Bytes())
	return nil
}

func (s *Server) archivePixel(sess *session, x, y uint32, blob []byte) {
	if s.arch == nil {
		return
	}
	if err := s.arch.Put(sess.id, x, y, blob); err != nil {
		sess.logger.Error("archive capture failed", "x", x, "y", y, "error", err)
		return
	}
	metrics.ArchivedBlobs.Inc()
	sess.logger.Debug("capture archived", "x", x, "y", y, "bytes", len(blob))
}

// runPlugin lets a plugin read its request, execute, and write its response
func runPlugin(p plugin.Plugin, sess *session) error {
	if err := p.Deserialize(sess.r); err != nil {
		return err
	}
	if err := p.Run(); err != nil {
		return err
	}
	if err := p.Serialize(sess.w); err != nil {
		return err
	}
	return sess.flush()
}
