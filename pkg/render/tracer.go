package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/df07/go-render-inspector/pkg/capture"
	"github.com/df07/go-render-inspector/pkg/core"
	"github.com/df07/go-render-inspector/pkg/heatmap"
	"github.com/df07/go-render-inspector/pkg/scenedata"
)

const defaultTileSize = 64

// Config holds the demo renderer settings
type Config struct {
	Width             int
	Height            int
	SamplesPerPixel   int
	MaxDepth          int
	TileSize          int
	Workers           int    // 0 means one per CPU
	OutputDir         string // Where rendered images are written
	Scene             string // Scene name, "cornell" by default
	MeshPath          string // Optional PLY model dropped into the scene
	SubdivisionBudget int64  // Heatmap budget, 0 means the default
}

// Demo is a tile-parallel path tracing renderer around the Cornell box.
// It implements Interface and feeds the capture store and heatmap that
// the inspection server serves to clients.
type Demo struct {
	mu sync.Mutex

	config Config
	scene  *Scene
	store  *capture.Store
	heat   *heatmap.Engine
	tracer *PathTracer
	logger core.Logger

	sampleCount uint32
	lastImage   string
}

// NewDemo builds the scene and sizes the capture store and heatmap for it
func NewDemo(config Config, store *capture.Store, heat *heatmap.Engine, logger core.Logger) (*Demo, error) {
	// The capture store keeps a record per pixel per sample, so the
	// defaults stay modest
	defaults := DefaultSamplingConfig()
	if config.Width <= 0 {
		config.Width = 256
	}
	if config.Height <= 0 {
		config.Height = 256
	}
	if config.SamplesPerPixel <= 0 {
		config.SamplesPerPixel = defaults.SamplesPerPixel
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = defaults.MaxDepth
	}
	if config.TileSize <= 0 {
		config.TileSize = defaultTileSize
	}
	if logger == nil {
		logger = log.Default()
	}

	scene, err := buildScene(config)
	if err != nil {
		return nil, err
	}

	d := &Demo{
		config:      config,
		scene:       scene,
		store:       store,
		heat:        heat,
		logger:      logger,
		sampleCount: uint32(config.SamplesPerPixel),
	}

	if err := store.Initialize(uint32(config.Height), uint32(config.Width), d.sampleCount); err != nil {
		return nil, fmt.Errorf("initialize capture store: %w", err)
	}
	heat.Initialize(scene.Meshes, d.subdivisionBudget())

	samplingConfig := SamplingConfig{
		SamplesPerPixel:           config.SamplesPerPixel,
		MaxDepth:                  config.MaxDepth,
		RussianRouletteMinBounces: defaults.RussianRouletteMinBounces,
		RussianRouletteMinSamples: defaults.RussianRouletteMinSamples,
	}
	d.tracer = NewPathTracer(samplingConfig, store, heat)

	return d, nil
}

// buildScene constructs the named scene, dropping in the optional PLY model
func buildScene(config Config) (*Scene, error) {
	switch config.Scene {
	case "", "cornell":
		s := NewCornellScene(config.Width, config.Height)
		if config.MeshPath != "" {
			data, err := LoadPLYMesh(config.MeshPath)
			if err != nil {
				return nil, fmt.Errorf("load mesh %s: %w", config.MeshPath, err)
			}
			// Scaled to sit between the spheres
			FitMesh(data, core.NewVec3(278, 120, 260), 200)
			albedo := core.NewColor(0.8, 0.6, 0.2)
			data.DiffuseColor = albedo
			s.AddMesh(data, NewLambertian(albedo))
		}
		s.Preprocess()
		return s, nil
	default:
		return nil, fmt.Errorf("unknown scene %q", config.Scene)
	}
}

func (d *Demo) subdivisionBudget() int64 {
	if d.config.SubdivisionBudget > 0 {
		return d.config.SubdivisionBudget
	}
	return heatmap.DefaultSubdivisionBudget
}

// RendererName identifies this renderer to connecting clients
func (d *Demo) RendererName() string { return "tile path tracer" }

// SceneName returns the name of the loaded scene
func (d *Demo) SceneName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scene.Name
}

// SampleCount returns the current samples per pixel
func (d *Demo) SampleCount() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sampleCount
}

// SetSampleCount changes the samples per pixel and resizes the capture
// store, which discards previously captured paths
func (d *Demo) SetSampleCount(n uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n == 0 || n == d.sampleCount {
		return
	}
	d.sampleCount = n
	if err := d.store.Initialize(uint32(d.config.Height), uint32(d.config.Width), n); err != nil {
		d.logger.Printf("resize capture store: %v", err)
	}
}

// Camera describes the scene camera for the wire
func (d *Demo) Camera() scenedata.Camera {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scene.Camera.Describe()
}

// Meshes returns the client proxies of the scene's triangle meshes
func (d *Demo) Meshes() []*scenedata.Mesh {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scene.Meshes
}

// Spheres returns the client proxies of the scene's analytic spheres
func (d *Demo) Spheres() []*scenedata.Sphere {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scene.Spheres()
}

// tile is one rectangle of the image rendered by a single worker
type tile struct {
	id             int
	x0, y0, x1, y1 int
}

// newTileGrid covers the image with tiles of at most tileSize per side
func newTileGrid(width, height, tileSize int) []tile {
	tilesX := (width + tileSize - 1) / tileSize
	tilesY := (height + tileSize - 1) / tileSize

	tiles := make([]tile, 0, tilesX*tilesY)
	id := 0
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			tiles = append(tiles, tile{
				id: id,
				x0: tx * tileSize,
				y0: ty * tileSize,
				x1: min((tx+1)*tileSize, width),
				y1: min((ty+1)*tileSize, height),
			})
			id++
		}
	}
	return tiles
}

// RenderImage renders the full image in parallel tiles and writes it as a
// PNG, returning the file path. The heatmap aggregates during the render
// when its collection is enabled; per-path capture stays quiet because the
// store is only enabled around single-pixel renders.
func (d *Demo) RenderImage(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	width, height := d.config.Width, d.config.Height
	spp := int(d.sampleCount)

	workers := d.config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	d.logger.Printf("Rendering %dx%d at %d samples per pixel (%d workers)", width, height, spp, workers)

	d.tracer.rec.reset()
	pixels := make([]PixelStats, width*height)
	tiles := newTileGrid(width, height, d.config.TileSize)

	// Workers pull tiles from a shared queue; each tile writes a disjoint
	// region of the pixel array
	taskQueue := make(chan tile, len(tiles))
	for _, t := range tiles {
		taskQueue <- t
	}
	close(taskQueue)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for t := range taskQueue {
				if err := ctx.Err(); err != nil {
					return err
				}
				d.renderTile(t, pixels, spp)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	if d.heat.IsCollecting() {
		d.heat.Finalize()
	}

	path, err := d.writePNG(d.assembleImage(pixels, width, height))
	if err != nil {
		return "", err
	}
	d.lastImage = path

	totalSamples := width * height * spp
	d.logger.Printf("Render finished in %v (%d samples) -> %s", time.Since(start).Round(time.Millisecond), totalSamples, path)
	return path, nil
}

// renderTile renders one tile with a deterministic per-tile generator
func (d *Demo) renderTile(t tile, pixels []PixelStats, spp int) {
	random := rand.New(rand.NewSource(int64(t.id + 42))) // +42 to avoid seed 0
	maxDepth := d.tracer.config.MaxDepth
	white := core.NewColor(1, 1, 1)

	for j := t.y0; j < t.y1; j++ {
		for i := t.x0; i < t.x1; i++ {
			ps := &pixels[j*d.config.Width+i]
			for s := 0; s < spp; s++ {
				ray := d.scene.Camera.GetRay(i, j, random)
				ps.AddSample(d.tracer.RayColor(ray, d.scene, random, maxDepth, white, s))
			}
		}
	}
}

// RenderPixel re-renders a single pixel so the capture store can record
// every path. The caller enables collection beforehand and serializes the
// result afterwards. The pixel's generator is seeded from its coordinates,
// making repeated inspections of the same pixel deterministic.
func (d *Demo) RenderPixel(ctx context.Context, x, y uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	width, height := d.config.Width, d.config.Height
	if x >= uint32(width) || y >= uint32(height) {
		return fmt.Errorf("pixel (%d,%d) outside %dx%d image", x, y, width, height)
	}

	random := rand.New(rand.NewSource(int64(y)*int64(width) + int64(x) + 42))
	maxDepth := d.tracer.config.MaxDepth
	rec := d.tracer.rec
	rec.reset()
	rec.pixel(x, y)

	for s := 0; s < int(d.sampleCount); s++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec.sampleIdx(uint32(s))
		ray := d.scene.Camera.GetRay(int(x), int(y), random)
		rec.pathOrigin(ray.Origin)
		estimate := d.tracer.RayColor(ray, d.scene, random, maxDepth, core.NewColor(1, 1, 1), s)
		rec.finalEstimate(estimate)
		rec.pathFloat("luminance", estimate.Luminance())
	}
	return rec.Err()
}

// Reload rebuilds the scene from its source, reinitializes the heatmap
// for the new meshes and drops captured paths
func (d *Demo) Reload() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	scene, err := buildScene(d.config)
	if err != nil {
		return fmt.Errorf("reload scene: %w", err)
	}
	d.scene = scene
	d.heat.Initialize(scene.Meshes, d.subdivisionBudget())
	d.store.Clear()

	d.logger.Printf("Scene %q reloaded: %d meshes, %d shapes", scene.Name, len(scene.Meshes), len(scene.Shapes))
	return nil
}

// LastImage returns the path of the most recently rendered image, empty
// before the first render
func (d *Demo) LastImage() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastImage
}

// assembleImage converts accumulated pixel statistics to an RGBA image
func (d *Demo) assembleImage(pixels []PixelStats, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for j := 0; j < height; j++ {
		for i := 0; i < width; i++ {
			img.SetRGBA(i, j, toRGBA(pixels[j*width+i].GetColor()))
		}
	}
	return img
}

// toRGBA converts a linear color to sRGB-ish bytes with gamma 2.0
func toRGBA(c core.Color) color.RGBA {
	c = c.GammaCorrect(2.0).Clamp(0, 1)
	return color.RGBA{
		R: uint8(255 * c.R),
		G: uint8(255 * c.G),
		B: uint8(255 * c.B),
		A: 255,
	}
}

// writePNG writes the image under the output directory
func (d *Demo) writePNG(img *image.RGBA) (string, error) {
	dir := d.config.OutputDir
	if dir == "" {
		dir = "output"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s.png", d.scene.Name, time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("encode PNG: %w", err)
	}
	return path, nil
}
