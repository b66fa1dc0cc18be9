package render

import (
	"math"
	"math/rand"

	"github.com/df07/go-render-inspector/pkg/core"
	"github.com/df07/go-render-inspector/pkg/scenedata"
)

// CameraConfig describes a look-at camera
type CameraConfig struct {
	Center   core.Vec3 // Camera position
	LookAt   core.Vec3 // Point the camera looks at
	Up       core.Vec3 // Up direction
	VFov     float32   // Vertical field of view in degrees
	Width    int       // Image width in pixels
	Height   int       // Image height in pixels
	NearClip float32   // Near clip distance reported to the client
	FarClip  float32   // Far clip distance reported to the client
}

// Camera generates primary rays through image pixels
type Camera struct {
	config          CameraConfig
	origin          core.Vec3
	lowerLeftCorner core.Vec3
	horizontal      core.Vec3
	vertical        core.Vec3
}

// NewCamera creates a camera from a look-at configuration
func NewCamera(config CameraConfig) *Camera {
	aspect := float32(config.Width) / float32(config.Height)
	theta := float64(config.VFov) * math.Pi / 180.0
	halfHeight := float32(math.Tan(theta / 2))
	halfWidth := aspect * halfHeight

	// Orthonormal basis: w looks backwards, u right, v up
	w := config.Center.Subtract(config.LookAt).Normalize()
	u := config.Up.Cross(w).Normalize()
	v := w.Cross(u)

	origin := config.Center
	lowerLeftCorner := origin.
		Subtract(u.Multiply(halfWidth)).
		Subtract(v.Multiply(halfHeight)).
		Subtract(w)

	return &Camera{
		config:          config,
		origin:          origin,
		lowerLeftCorner: lowerLeftCorner,
		horizontal:      u.Multiply(2 * halfWidth),
		vertical:        v.Multiply(2 * halfHeight),
	}
}

// GetRay generates a ray through pixel (i, j), jittered within the pixel.
// Pixel (0, 0) is the top-left corner of the image.
func (c *Camera) GetRay(i, j int, rng *rand.Rand) core.Ray {
	s := (float32(i) + rng.Float32()) / float32(c.config.Width)
	t := 1 - (float32(j)+rng.Float32())/float32(c.config.Height)

	direction := c.lowerLeftCorner.
		Add(c.horizontal.Multiply(s)).
		Add(c.vertical.Multiply(t)).
		Subtract(c.origin)

	return core.NewRay(c.origin, direction)
}

// Describe returns the camera in client proxy form
func (c *Camera) Describe() scenedata.Camera {
	return scenedata.Camera{
		Origin:    c.config.Center,
		Direction: c.config.LookAt.Subtract(c.config.Center).Normalize(),
		Up:        c.config.Up,
		NearClip:  c.config.NearClip,
		FarClip:   c.config.FarClip,
		FOV:       c.config.VFov,
	}
}
