package server

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"os"
	"strconv"

	"github.com/HugoSmits86/nativewebp"
	"github.com/gin-gonic/gin"
	"golang.org/x/image/draw"

	"github.com/df07/go-render-inspector/pkg/core"
	"github.com/df07/go-render-inspector/pkg/heatmap"
)

// RenderInfoResponse mirrors the render info sent over the wire protocol.
type RenderInfoResponse struct {
	Renderer        string `json:"renderer"`
	Scene           string `json:"scene"`
	SamplesPerPixel uint32 `json:"samplesPerPixel"`
}

// CameraResponse is the scene camera in display form.
type CameraResponse struct {
	Origin    [3]float32 `json:"origin"`
	Direction [3]float32 `json:"direction"`
	Up        [3]float32 `json:"up"`
	NearClip  float32    `json:"nearClip"`
	FarClip   float32    `json:"farClip"`
	FOV       float32    `json:"fov"`
}

// HeatmapResponse summarizes the collected heatmap. Meshes is empty until
// a collecting render has finalized.
type HeatmapResponse struct {
	Collected    bool              `json:"collected"`
	Label        string            `json:"label"`
	Colormap     string            `json:"colormap"`
	ShowColorbar bool              `json:"showColorbar"`
	DensityMode  bool              `json:"densityMode"`
	Meshes       []HeatmapMeshJSON `json:"meshes,omitempty"`
}

// HeatmapMeshJSON summarizes one mesh's accumulated values. Min and max
// are luminances over the faces that received samples.
type HeatmapMeshJSON struct {
	MeshID       uint32  `json:"meshId"`
	Faces        int     `json:"faces"`
	SampledFaces int     `json:"sampledFaces"`
	Samples      uint64  `json:"samples"`
	MinValue     float32 `json:"minValue"`
	MaxValue     float32 `json:"maxValue"`
}

// HandleRenderInfo handles GET /api/renderinfo.
func (h *Handlers) HandleRenderInfo(c *gin.Context) {
	c.JSON(http.StatusOK, RenderInfoResponse{
		Renderer:        h.renderer.RendererName(),
		Scene:           h.renderer.SceneName(),
		SamplesPerPixel: h.renderer.SampleCount(),
	})
}

// HandleCamera handles GET /api/camera.
func (h *Handlers) HandleCamera(c *gin.Context) {
	cam := h.renderer.Camera()
	c.JSON(http.StatusOK, CameraResponse{
		Origin:    vec3JSON(cam.Origin),
		Direction: vec3JSON(cam.Direction),
		Up:        vec3JSON(cam.Up),
		NearClip:  cam.NearClip,
		FarClip:   cam.FarClip,
		FOV:       cam.FOV,
	})
}

// HandlePreview handles GET /api/preview?scale=&format=. It serves the
// most recently rendered image, optionally downscaled, as PNG or WebP.
func (h *Handlers) HandlePreview(c *gin.Context) {
	src, ok := h.renderer.(interface{ LastImage() string })
	if !ok || src.LastImage() == "" {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "no image has been rendered",
			Code:  "NO_IMAGE",
		})
		return
	}

	scale, err := parseScale(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_SCALE",
		})
		return
	}
	format := c.DefaultQuery("format", "png")
	if format != "png" && format != "webp" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("unsupported format %q", format),
			Code:  "INVALID_FORMAT",
		})
		return
	}

	img, err := loadPNG(src.LastImage())
	if err != nil {
		h.logger.Error("preview source unreadable", "path", src.LastImage(), "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "IMAGE_UNREADABLE",
		})
		return
	}
	if scale < 1 {
		img = downscale(img, scale)
	}

	var buf bytes.Buffer
	contentType := "image/png"
	if format == "webp" {
		contentType = "image/webp"
		err = nativewebp.Encode(&buf, img, nil)
	} else {
		err = png.Encode(&buf, img)
	}
	if err != nil {
		h.logger.Error("preview encode failed", "format", format, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "ENCODE_FAILED",
		})
		return
	}
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// HandleHeatmap handles GET /api/heatmap.
func (h *Handlers) HandleHeatmap(c *gin.Context) {
	opts := h.heat.Options()
	resp := HeatmapResponse{
		Collected:    h.heat.HasData(),
		Label:        opts.Label,
		Colormap:     opts.Colormap,
		ShowColorbar: opts.ShowColorbar,
		DensityMode:  opts.DensityMode,
	}
	if !resp.Collected {
		c.JSON(http.StatusOK, resp)
		return
	}

	for i := 0; i < h.heat.NumMeshes(); i++ {
		values, err := h.heat.LeafValues(uint32(i))
		if err != nil {
			h.logger.Error("heatmap summary failed", "mesh", i, "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error: err.Error(),
				Code:  "HEATMAP_FAILED",
			})
			return
		}
		resp.Meshes = append(resp.Meshes, summarizeMesh(uint32(i), values))
	}
	c.JSON(http.StatusOK, resp)
}

func summarizeMesh(meshID uint32, values []heatmap.FaceValue) HeatmapMeshJSON {
	out := HeatmapMeshJSON{MeshID: meshID, Faces: len(values)}
	for _, v := range values {
		if v.Samples == 0 {
			continue
		}
		lum := core.NewColor(v.R, v.G, v.B).Luminance()
		if out.SampledFaces == 0 || lum < out.MinValue {
			out.MinValue = lum
		}
		if out.SampledFaces == 0 || lum > out.MaxValue {
			out.MaxValue = lum
		}
		out.SampledFaces++
		out.Samples += uint64(v.Samples)
	}
	return out
}

// parseScale reads the optional scale parameter, in (0, 1].
func parseScale(c *gin.Context) (float64, error) {
	raw := c.Query("scale")
	if raw == "" {
		return 1, nil
	}
	scale, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid scale: %q", raw)
	}
	if scale <= 0 || scale > 1 {
		return 0, fmt.Errorf("scale must be in (0, 1], got %g", scale)
	}
	return scale, nil
}

func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}

func downscale(img image.Image, scale float64) image.Image {
	b := img.Bounds()
	w := int(float64(b.Dx()) * scale)
	h := int(float64(b.Dy()) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
