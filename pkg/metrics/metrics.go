// Package metrics holds the prometheus collectors for the inspection
// server. Collectors register themselves on the default registry and are
// exposed through the diagnostics server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsTotal counts accepted inspection client connections.
	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inspector_connections_total",
		Help: "Inspection client connections accepted",
	})

	// ActiveConnections tracks clients currently connected.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inspector_active_connections",
		Help: "Inspection clients currently connected",
	})

	// RequestsTotal counts protocol requests by type.
	// Labels: "render_info", "render_image", "render_pixel", "camera",
	// "scene", "reload_scene", "plugin", "unknown"
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspector_requests_total",
		Help: "Protocol requests handled by request type",
	}, []string{"type"})

	// ResponseBytes counts bytes written back to inspection clients.
	ResponseBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inspector_response_bytes_total",
		Help: "Bytes written to inspection clients",
	})

	// RenderDuration observes full image render times.
	RenderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inspector_render_duration_seconds",
		Help:    "Full image render duration",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	})

	// PixelCaptureDuration observes single pixel re-render times.
	PixelCaptureDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inspector_pixel_capture_duration_seconds",
		Help:    "Single pixel capture duration",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
	})

	// ArchivedBlobs counts pixel capture blobs written to the archive.
	ArchivedBlobs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inspector_archived_captures_total",
		Help: "Pixel capture blobs written to the archive",
	})
)
