// Package render defines the contract between the inspection server and the
// renderer it fronts, plus a small tile-parallel path tracer that fulfils it.
// The built-in tracer doubles as the reference integration: while tracing it
// feeds per-bounce records into a capture store and per-face samples into a
// heatmap engine, which is exactly what an external renderer is expected to
// do with the same two engines.
package render

import (
	"context"

	"github.com/df07/go-render-inspector/pkg/scenedata"
)

// Interface is the renderer as seen by the inspection server. RenderImage
// and RenderPixel honor context cancellation; everything else is expected to
// return quickly.
type Interface interface {
	// RendererName identifies the renderer to the client.
	RendererName() string

	// SceneName identifies the loaded scene to the client.
	SceneName() string

	// SampleCount returns the samples taken per pixel.
	SampleCount() uint32

	// SetSampleCount changes the samples per pixel for subsequent renders.
	// Capture records are keyed by sample index, so implementations must
	// resize their capture store when the count changes.
	SetSampleCount(n uint32)

	// RenderImage renders the whole frame and returns the path of the
	// written image file.
	RenderImage(ctx context.Context) (string, error)

	// RenderPixel re-renders a single pixel, one record per sample, writing
	// trajectory data into the capture store. The caller is responsible for
	// enabling the store beforehand and serializing it afterwards.
	RenderPixel(ctx context.Context, x, y uint32) error

	// Camera describes the camera in client proxy form.
	Camera() scenedata.Camera

	// Meshes returns the client proxies of the scene's triangle meshes.
	// The slice index of a mesh is its heatmap mesh id.
	Meshes() []*scenedata.Mesh

	// Spheres returns the client proxies of the scene's analytic spheres.
	Spheres() []*scenedata.Sphere

	// Reload rebuilds the scene from its source configuration.
	Reload() error
}
