package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/df07/go-render-inspector/pkg/archive"
	"github.com/df07/go-render-inspector/pkg/capture"
	"github.com/df07/go-render-inspector/pkg/core"
	"github.com/df07/go-render-inspector/pkg/wire"
)

// SessionsResponse lists the sessions with archived captures.
type SessionsResponse struct {
	Sessions []string `json:"sessions"`
}

// PixelRef identifies one archived pixel.
type PixelRef struct {
	X uint32 `json:"x"`
	Y uint32 `json:"y"`
}

// PixelsResponse lists the archived pixels of one session in scanline order.
type PixelsResponse struct {
	Session string     `json:"session"`
	Pixels  []PixelRef `json:"pixels"`
}

// PixelResponse is one archived capture decoded for display: the per-sample
// path trajectories recorded at that pixel.
type PixelResponse struct {
	Session string     `json:"session"`
	X       uint32     `json:"x"`
	Y       uint32     `json:"y"`
	Samples []PathJSON `json:"samples"`
}

// PathJSON is the display form of one sample's trajectory.
type PathJSON struct {
	SampleIdx     uint32             `json:"sampleIdx"`
	PathDepth     uint32             `json:"pathDepth"`
	Origin        [3]float32         `json:"origin"`
	FinalEstimate *[3]float32        `json:"finalEstimate,omitempty"`
	Attributes    []AttributeJSON    `json:"attributes,omitempty"`
	Intersections []IntersectionJSON `json:"intersections"`
}

// IntersectionJSON is the display form of one bounce. Optional fields are
// omitted when the renderer never reported them.
type IntersectionJSON struct {
	Depth      uint32          `json:"depth"`
	Pos        *[3]float32     `json:"pos,omitempty"`
	NEEPos     *[3]float32     `json:"neePos,omitempty"`
	NEEVisible *bool           `json:"neeVisible,omitempty"`
	Estimate   *[3]float32     `json:"estimate,omitempty"`
	Emission   *[3]float32     `json:"emission,omitempty"`
	Attributes []AttributeJSON `json:"attributes,omitempty"`
}

// AttributeJSON is one dynamic attribute reported by the renderer.
type AttributeJSON struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// HandleSessions handles GET /api/sessions.
func (h *Handlers) HandleSessions(c *gin.Context) {
	if h.arch == nil {
		archiveDisabled(c)
		return
	}
	sessions, err := h.arch.Sessions()
	if err != nil {
		h.logger.Error("session listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "ARCHIVE_FAILED",
		})
		return
	}
	if sessions == nil {
		sessions = []string{}
	}
	c.JSON(http.StatusOK, SessionsResponse{Sessions: sessions})
}

// HandleSessionPixels handles GET /api/sessions/:id/pixels.
func (h *Handlers) HandleSessionPixels(c *gin.Context) {
	if h.arch == nil {
		archiveDisabled(c)
		return
	}
	session := c.Param("id")
	pixels, err := h.arch.Pixels(session)
	if err != nil {
		h.logger.Error("pixel listing failed", "session", session, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "ARCHIVE_FAILED",
		})
		return
	}
	refs := make([]PixelRef, len(pixels))
	for i, p := range pixels {
		refs[i] = PixelRef{X: p.X, Y: p.Y}
	}
	c.JSON(http.StatusOK, PixelsResponse{Session: session, Pixels: refs})
}

// HandleSessionPixel handles GET /api/sessions/:id/pixel?x=&y=.
func (h *Handlers) HandleSessionPixel(c *gin.Context) {
	if h.arch == nil {
		archiveDisabled(c)
		return
	}
	session := c.Param("id")

	x, err := parseCoord(c, "x")
	if err != nil {
		badCoordinate(c, err)
		return
	}
	y, err := parseCoord(c, "y")
	if err != nil {
		badCoordinate(c, err)
		return
	}
	h.respondPixel(c, session, x, y)
}

func badCoordinate(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: err.Error(),
		Code:  "INVALID_COORDINATE",
	})
}

func (h *Handlers) respondPixel(c *gin.Context, session string, x, y uint32) {
	blob, err := h.arch.Get(session, x, y)
	if errors.Is(err, archive.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: fmt.Sprintf("no capture archived for pixel (%d,%d)", x, y),
			Code:  "PIXEL_NOT_FOUND",
		})
		return
	}
	if err != nil {
		h.logger.Error("capture read failed", "session", session, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "ARCHIVE_FAILED",
		})
		return
	}

	samples, err := decodeCapture(blob)
	if err != nil {
		h.logger.Error("capture decode failed", "session", session, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "CAPTURE_CORRUPT",
		})
		return
	}
	c.JSON(http.StatusOK, PixelResponse{Session: session, X: x, Y: y, Samples: samples})
}

func archiveDisabled(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{
		Error: "capture archive is not configured",
		Code:  "ARCHIVE_DISABLED",
	})
}

// decodeCapture reads an archived pixel blob back into display form. The
// blob is the exact byte sequence sent to the inspection client.
func decodeCapture(blob []byte) ([]PathJSON, error) {
	stream := wire.NewBufferStream()
	stream.Write(blob)
	r := wire.NewReader(stream)

	count := r.ReadUInt()
	if err := r.Err(); err != nil {
		return nil, err
	}
	samples := make([]PathJSON, 0, count)
	for i := uint32(0); i < count; i++ {
		p, err := capture.DeserializePath(r)
		if err != nil {
			return nil, err
		}
		samples = append(samples, pathJSON(p))
	}
	return samples, nil
}

func pathJSON(p capture.Path) PathJSON {
	out := PathJSON{
		SampleIdx:     p.SampleIdx,
		PathDepth:     p.PathDepth,
		Origin:        vec3JSON(p.Origin),
		Attributes:    attrsJSON(p.Bag),
		Intersections: make([]IntersectionJSON, 0, len(p.Intersections)),
	}
	if p.HasFinalEstimate {
		out.FinalEstimate = colorJSON(p.FinalEstimate)
	}
	for _, its := range p.Intersections {
		out.Intersections = append(out.Intersections, intersectionJSON(its))
	}
	return out
}

func intersectionJSON(its capture.Intersection) IntersectionJSON {
	out := IntersectionJSON{
		Depth:      its.DepthIdx,
		Attributes: attrsJSON(its.Bag),
	}
	if its.HasPos {
		v := vec3JSON(its.Pos)
		out.Pos = &v
	}
	if its.HasNEE {
		v := vec3JSON(its.NEEPos)
		out.NEEPos = &v
		visible := its.NEEVisible
		out.NEEVisible = &visible
	}
	if its.HasEstimate {
		out.Estimate = colorJSON(its.Estimate)
	}
	if its.HasEmission {
		out.Emission = colorJSON(its.Emission)
	}
	return out
}

func attrsJSON(bag capture.Bag) []AttributeJSON {
	if len(bag) == 0 {
		return nil
	}
	out := make([]AttributeJSON, len(bag))
	for i, attr := range bag {
		out[i] = AttributeJSON{Name: attr.Name, Value: attr.Value.Interface()}
	}
	return out
}

func vec3JSON(v core.Vec3) [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

func colorJSON(c core.Color) *[3]float32 {
	v := [3]float32{c.R, c.G, c.B}
	return &v
}
