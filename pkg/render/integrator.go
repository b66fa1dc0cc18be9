package render

import (
	"math"
	"math/rand"

	"github.com/df07/go-render-inspector/pkg/capture"
	"github.com/df07/go-render-inspector/pkg/core"
	"github.com/df07/go-render-inspector/pkg/heatmap"
)

const infinity = float32(math.MaxFloat32)

// SamplingConfig controls path tracing depth and termination
type SamplingConfig struct {
	SamplesPerPixel           int
	MaxDepth                  int
	RussianRouletteMinBounces int // Minimum bounces before RR termination kicks in
	RussianRouletteMinSamples int // Minimum samples per pixel before RR kicks in
}

// DefaultSamplingConfig returns settings tuned for the Cornell box
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{
		SamplesPerPixel:           32,
		MaxDepth:                  40,
		RussianRouletteMinBounces: 4,
		RussianRouletteMinSamples: 6,
	}
}

// recorder funnels instrumentation calls to the capture store and retains
// the first error, so the tracer's hot path never has to check one. The
// store mutates nothing while collection is disabled, which keeps the
// recorder safe to share across render workers.
type recorder struct {
	store *capture.Store
	err   error
}

func (r *recorder) record(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

func (r *recorder) pixel(x, y uint32)  { r.store.SetPixel(x, y) }
func (r *recorder) sampleIdx(c uint32) { r.store.SetSampleIdx(c) }
func (r *recorder) depth(d uint32)     { r.record(r.store.SetDepthIdx(d)) }
func (r *recorder) pathOrigin(p core.Vec3) {
	r.record(r.store.SetPathOrigin(p))
}
func (r *recorder) finalEstimate(c core.Color) {
	r.record(r.store.SetFinalEstimate(c))
}
func (r *recorder) pathFloat(name string, v float32) {
	r.record(r.store.AddPathFloat(name, v))
}
func (r *recorder) hitPos(p core.Vec3) {
	r.record(r.store.SetIntersectionPos(p))
}
func (r *recorder) hitEstimate(c core.Color) {
	r.record(r.store.SetIntersectionEstimate(c))
}
func (r *recorder) hitEmission(c core.Color) {
	r.record(r.store.SetIntersectionEmission(c))
}
func (r *recorder) nee(p core.Vec3, visible bool) {
	r.record(r.store.SetNextEventEstimationPos(p, visible))
}
func (r *recorder) hitVec3(name string, v core.Vec3) {
	r.record(r.store.AddIntersectionVec3f(name, v.X, v.Y, v.Z))
}

// Err returns the first instrumentation error, if any
func (r *recorder) Err() error { return r.err }

// reset clears the retained error before a new render operation
func (r *recorder) reset() { r.err = nil }

// PathTracer implements unidirectional path tracing with next event
// estimation. Every intersection is reported to the capture store and the
// heatmap; both are no-ops while their collection is disabled, so the same
// code path serves full renders and single-pixel inspection.
type PathTracer struct {
	config SamplingConfig
	rec    *recorder
	heat   *heatmap.Engine
}

// NewPathTracer creates a path tracer wired to the given instrumentation.
// heat may be nil when no heatmap is attached.
func NewPathTracer(config SamplingConfig, store *capture.Store, heat *heatmap.Engine) *PathTracer {
	return &PathTracer{
		config: config,
		rec:    &recorder{store: store},
		heat:   heat,
	}
}

// RayColor computes the color for a single camera ray
func (pt *PathTracer) RayColor(ray core.Ray, scene *Scene, random *rand.Rand, depth int, throughput core.Color, sampleIndex int) core.Color {
	// Bounce limit reached, no more light is gathered
	if depth <= 0 {
		return core.NewColor(0, 0, 0)
	}

	terminate, rrCompensation := pt.applyRussianRoulette(depth, throughput, sampleIndex, random)
	if terminate {
		return core.NewColor(0, 0, 0)
	}

	var hit HitRecord
	if !scene.BVH.Hit(ray, 0.001, infinity, &hit) {
		return scene.Background(ray).Multiply(rrCompensation)
	}

	bounce := uint32(pt.config.MaxDepth - depth)
	pt.rec.depth(bounce)
	pt.rec.hitPos(hit.Point)
	pt.rec.hitVec3("normal", hit.Normal)

	colorEmitted := pt.emittedLight(&hit)
	pt.rec.hitEmission(colorEmitted)

	scatter, didScatter := hit.Material.Scatter(ray, hit, random)
	if !didScatter {
		// Material absorbed the ray, only emitted light escapes
		final := colorEmitted.Multiply(rrCompensation)
		pt.recordHit(&hit, bounce, final)
		return final
	}

	var colorScattered core.Color
	if scatter.IsSpecular() {
		colorScattered = pt.specularColor(scatter, scene, depth, throughput, sampleIndex, random)
	} else {
		colorScattered = pt.diffuseColor(scatter, &hit, scene, depth, throughput, sampleIndex, random)
	}

	final := colorEmitted.Add(colorScattered).Multiply(rrCompensation)
	pt.recordHit(&hit, bounce, final)
	return final
}

// recordHit stamps the estimate for one bounce. The recursive call has
// moved the capture depth cursor by the time we get here, so the bounce is
// reselected first. Heatmap samples only exist for triangle mesh hits.
func (pt *PathTracer) recordHit(hit *HitRecord, bounce uint32, estimate core.Color) {
	pt.rec.depth(bounce)
	pt.rec.hitEstimate(estimate)
	if pt.heat != nil && hit.HasFace {
		pt.rec.record(pt.heat.AddSample(hit.MeshID, hit.Point, hit.FaceID, estimate, 1))
	}
}

// emittedLight returns the light emitted toward the ray, front faces only
func (pt *PathTracer) emittedLight(hit *HitRecord) core.Color {
	if emitter, isEmissive := hit.Material.(Emitter); isEmissive && hit.FrontFace {
		return emitter.Emit()
	}
	return core.NewColor(0, 0, 0)
}

// specularColor follows a mirror bounce; no light sampling applies
func (pt *PathTracer) specularColor(scatter ScatterResult, scene *Scene, depth int, throughput core.Color, sampleIndex int, random *rand.Rand) core.Color {
	newThroughput := throughput.MultiplyColor(scatter.Attenuation)
	incoming := pt.RayColor(scatter.Scattered, scene, random, depth-1, newThroughput, sampleIndex)
	return scatter.Attenuation.MultiplyColor(incoming)
}

// diffuseColor combines direct light sampling and material sampling with
// multiple importance sampling
func (pt *PathTracer) diffuseColor(scatter ScatterResult, hit *HitRecord, scene *Scene, depth int, throughput core.Color, sampleIndex int, random *rand.Rand) core.Color {
	directLight := pt.calculateDirectLighting(scene, scatter, hit, random)
	indirectLight := pt.calculateIndirectLighting(scene, scatter, hit, depth, throughput, sampleIndex, random)
	return directLight.Add(indirectLight)
}

// calculateDirectLighting samples a light for next event estimation
func (pt *PathTracer) calculateDirectLighting(scene *Scene, scatter ScatterResult, hit *HitRecord, random *rand.Rand) core.Color {
	lightSample, hasLight := SampleLight(scene.Lights, hit.Point, random)
	if !hasLight {
		return core.NewColor(0, 0, 0)
	}

	// Shadow ray toward the sampled light point
	shadowRay := core.NewRay(hit.Point, lightSample.Direction)
	var shadowHit HitRecord
	blocked := scene.BVH.Hit(shadowRay, 0.001, lightSample.Distance-0.001, &shadowHit)
	pt.rec.nee(lightSample.Point, !blocked)
	if blocked {
		return core.NewColor(0, 0, 0)
	}

	cosine := lightSample.Direction.Dot(hit.Normal)
	if cosine <= 0 || lightSample.PDF <= 0 {
		return core.NewColor(0, 0, 0)
	}

	// Lambertian PDF for this direction, for the MIS weight
	materialPDF := cosine / float32(math.Pi)
	misWeight := PowerHeuristic(1, lightSample.PDF, 1, materialPDF)

	brdf := scatter.Attenuation
	return brdf.MultiplyColor(lightSample.Emission).Multiply(cosine * misWeight / lightSample.PDF)
}

// calculateIndirectLighting follows the material's sampled direction
func (pt *PathTracer) calculateIndirectLighting(scene *Scene, scatter ScatterResult, hit *HitRecord, depth int, throughput core.Color, sampleIndex int, random *rand.Rand) core.Color {
	if scatter.PDF <= 0 {
		return core.NewColor(0, 0, 0)
	}

	scatterDirection := scatter.Scattered.Direction.Normalize()
	cosine := scatterDirection.Dot(hit.Normal)
	if cosine <= 0 {
		return core.NewColor(0, 0, 0)
	}

	lightPDF := CalculateLightPDF(scene.Lights, hit.Point, scatterDirection)
	misWeight := PowerHeuristic(1, scatter.PDF, 1, lightPDF)

	newThroughput := throughput.MultiplyColor(scatter.Attenuation).Multiply(cosine / scatter.PDF)
	incomingLight := pt.RayColor(scatter.Scattered, scene, random, depth-1, newThroughput, sampleIndex)

	return scatter.Attenuation.Multiply(cosine * misWeight / scatter.PDF).MultiplyColor(incomingLight)
}

// applyRussianRoulette decides whether to terminate the path early and
// returns the energy compensation factor for survivors
func (pt *PathTracer) applyRussianRoulette(depth int, throughput core.Color, sampleIndex int, random *rand.Rand) (bool, float32) {
	currentBounce := pt.config.MaxDepth - depth
	shouldApply := currentBounce >= pt.config.RussianRouletteMinBounces &&
		sampleIndex >= pt.config.RussianRouletteMinSamples
	if !shouldApply {
		return false, 1.0
	}

	// Survival probability follows throughput luminance, clamped so the
	// compensation factor stays between 1.05x and 2x
	survivalProb := min(float32(0.95), max(float32(0.5), throughput.Luminance()))
	if random.Float32() > survivalProb {
		return true, 0
	}
	return false, 1.0 / survivalProb
}
