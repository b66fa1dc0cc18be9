// Package scenedata defines the camera and shape descriptions a renderer
// exposes to the inspection client, along with their wire serialization.
package scenedata

import (
	"github.com/df07/go-render-inspector/pkg/core"
	"github.com/df07/go-render-inspector/pkg/wire"
)

// Camera describes the view used to render the image. The client uses it
// to set up its 3D scene viewer to match the renderer.
type Camera struct {
	Origin    core.Vec3
	Direction core.Vec3
	Up        core.Vec3
	NearClip  float32
	FarClip   float32
	FOV       float32
}

// Serialize writes the camera in client decode order
func (c *Camera) Serialize(w *wire.Writer) error {
	w.WriteVec3(c.Origin)
	w.WriteVec3(c.Direction)
	w.WriteVec3(c.Up)
	w.WriteFloat(c.NearClip)
	w.WriteFloat(c.FarClip)
	w.WriteFloat(c.FOV)
	return w.Err()
}

// DeserializeCamera reads a Camera written by Serialize
func DeserializeCamera(r *wire.Reader) (Camera, error) {
	var c Camera
	c.Origin = r.ReadVec3()
	c.Direction = r.ReadVec3()
	c.Up = r.ReadVec3()
	c.NearClip = r.ReadFloat()
	c.FarClip = r.ReadFloat()
	c.FOV = r.ReadFloat()
	return c, r.Err()
}
