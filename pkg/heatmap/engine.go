// Package heatmap aggregates weighted per-face sample values over
// adaptively subdivided triangle meshes. Faces that saturate with samples
// are refined on the fly while the renderer keeps reporting against the
// coarse mesh, so dense regions gain resolution without the renderer
// knowing about the refinement.
package heatmap

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/df07/go-render-inspector/pkg/core"
	"github.com/df07/go-render-inspector/pkg/scenedata"
)

const (
	// DefaultSubdivisionBudget caps the subdivision nodes created across
	// all meshes of one engine instance
	DefaultSubdivisionBudget = 1 << 23

	// saturationWeight is the accumulated weight beyond which a leaf is
	// subdivided before accepting further samples
	saturationWeight = 256.0

	numStripes = 64
)

// DisplayOptions configures how the client presents the finalized heatmap.
type DisplayOptions struct {
	Label        string `yaml:"label"`
	Colormap     string `yaml:"colormap"`
	ShowColorbar bool   `yaml:"show_colorbar"`

	// DensityMode replaces accumulated values with normalized sample
	// counts during finalization
	DensityMode bool `yaml:"density_mode"`
}

// DefaultDisplayOptions returns the display defaults expected by the client
func DefaultDisplayOptions() DisplayOptions {
	return DisplayOptions{
		Label:        "unknown",
		Colormap:     "plasma",
		ShowColorbar: true,
	}
}

// FaceValue is the running mean accumulated on one (sub)face. R, G and B
// hold the weighted mean of the reported values; Weight the total weight;
// Samples the number of direct samples.
type FaceValue struct {
	R, G, B float32
	Weight  float32
	Samples uint32
}

// merge folds another running mean into this one. Sample counts are not
// combined; they track direct samples only.
func (v *FaceValue) merge(o FaceValue) {
	if o.Weight == 0 {
		return
	}
	v.Weight += o.Weight
	rate := o.Weight / v.Weight
	v.R += (o.R - v.R) * rate
	v.G += (o.G - v.G) * rate
	v.B += (o.B - v.B) * rate
}

// accumulate folds one weighted sample into the running mean
func (v *FaceValue) accumulate(value core.Color, weight float32) {
	v.merge(FaceValue{R: value.R, G: value.G, B: value.B, Weight: weight})
	v.Samples++
}

// Engine collects heatmap samples across all meshes of a scene.
//
// Lifecycle: Initialize puts the engine in the collecting state; Enable
// and Disable toggle sample intake; Finalize prepares the collected data
// for export; Enable on a finalized engine resets accumulators first
// (keeping the refined topology) and starts a fresh pass.
//
// AddSample may be called from multiple rendering goroutines. Lifecycle
// transitions must not run concurrently with active sampling.
type Engine struct {
	mu     sync.Mutex
	meshes []*meshHeatmap
	opts   DisplayOptions

	budget     atomic.Int64
	collecting atomic.Bool
	finalized  bool
}

// NewEngine creates an engine with the given display options
func NewEngine(opts DisplayOptions) *Engine {
	return &Engine{opts: opts}
}

// Options returns the configured display options
func (e *Engine) Options() DisplayOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts
}

// SetOptions replaces the display options
func (e *Engine) SetOptions(opts DisplayOptions) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts = opts
}

// Initialize builds one heatmap per mesh and starts collecting. The
// budget bounds the subdivision nodes shared across all meshes; values
// below one select DefaultSubdivisionBudget.
func (e *Engine) Initialize(meshes []*scenedata.Mesh, budget int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if budget < 1 {
		budget = DefaultSubdivisionBudget
	}
	e.budget.Store(budget)

	e.meshes = make([]*meshHeatmap, len(meshes))
	for i, m := range meshes {
		e.meshes[i] = newMeshHeatmap(m, &e.budget)
	}
	e.finalized = false
	e.collecting.Store(true)
}

// Enable resumes sample intake. Enabling a finalized engine implicitly
// resets it first, starting a fresh collection pass over the existing
// topology.
func (e *Engine) Enable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized {
		e.resetLocked()
	}
	e.collecting.Store(true)
}

// Disable pauses sample intake without touching accumulated data
func (e *Engine) Disable() { e.collecting.Store(false) }

// IsCollecting reports whether samples are currently accepted
func (e *Engine) IsCollecting() bool { return e.collecting.Load() }

// Reset clears all accumulators and the finalized flag. The subdivision
// topology is kept, so repeated collection passes do not pay for
// refinement again.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *Engine) resetLocked() {
	for _, mh := range e.meshes {
		mh.mu.Lock()
		for i := range mh.data {
			mh.data[i] = FaceValue{}
		}
		mh.mu.Unlock()
	}
	e.finalized = false
}

// HasData reports whether finalized data is available
func (e *Engine) HasData() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finalized
}

// NumMeshes returns the number of registered meshes
func (e *Engine) NumMeshes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.meshes)
}

// AddSample accumulates value*weight at the point p on the given face.
// The face is refined first when it has saturated and budget remains.
// Silent no-op while collection is disabled; samples against unknown
// meshes or faces are dropped with an UnknownFaceError.
func (e *Engine) AddSample(meshID uint32, p core.Vec3, faceID uint32, value core.Color, weight float32) error {
	if !e.collecting.Load() {
		return nil
	}
	if int(meshID) >= len(e.meshes) {
		return &UnknownFaceError{MeshID: meshID, FaceID: faceID}
	}
	mh := e.meshes[meshID]
	if faceID >= mh.tess.NumBaseFaces() {
		return &UnknownFaceError{MeshID: meshID, FaceID: faceID}
	}
	mh.addSample(p, faceID, value, weight)
	return nil
}

// Finalize distributes the values accumulated on subdivided faces to
// their children and, in density mode, replaces values with normalized
// sample counts. Only the first call after a collection pass has any
// effect.
func (e *Engine) Finalize() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized {
		return
	}
	for _, mh := range e.meshes {
		mh.finalize(e.opts.DensityMode)
	}
	e.finalized = true
}

// LeafValues returns the finalized value of each leaf face of one mesh
// in face id order. Leaves that never received samples are estimated
// from their neighbors where possible. Fails with ErrNotReady before
// Finalize.
func (e *Engine) LeafValues(meshID uint32) ([]FaceValue, error) {
	mh, err := e.finalizedMesh(meshID)
	if err != nil {
		return nil, err
	}
	mh.mu.RLock()
	defer mh.mu.RUnlock()
	return mh.leafValuesLocked(), nil
}

// ProxyMeshes builds one renderable mesh per heatmap: the tessellated
// geometry with the finalized values attached as face colors. Fails with
// ErrNotReady before Finalize.
func (e *Engine) ProxyMeshes() ([]*scenedata.Mesh, error) {
	e.mu.Lock()
	if !e.finalized {
		e.mu.Unlock()
		return nil, ErrNotReady
	}
	meshes := e.meshes
	e.mu.Unlock()

	out := make([]*scenedata.Mesh, len(meshes))
	for i, mh := range meshes {
		out[i] = mh.proxyMesh()
	}
	return out, nil
}

func (e *Engine) finalizedMesh(meshID uint32) (*meshHeatmap, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.finalized {
		return nil, ErrNotReady
	}
	if int(meshID) >= len(e.meshes) {
		return nil, fmt.Errorf("heatmap: unknown mesh %d", meshID)
	}
	return e.meshes[meshID], nil
}

// meshHeatmap pairs one mesh's tessellation with its per-face
// accumulators. The RWMutex guards topology growth (write) against
// lookups and accumulation (read); the stripes serialize accumulation on
// individual faces.
type meshHeatmap struct {
	mu      sync.RWMutex
	tess    *Tessellation
	data    []FaceValue
	stripes [numStripes]sync.Mutex
}

func newMeshHeatmap(m *scenedata.Mesh, budget *atomic.Int64) *meshHeatmap {
	t := NewTessellation(m, budget)
	return &meshHeatmap{
		tess: t,
		data: make([]FaceValue, t.NumFaces()),
	}
}

func (mh *meshHeatmap) addSample(p core.Vec3, face uint32, value core.Color, weight float32) {
	mh.mu.RLock()
	leaf := mh.tess.Locate(p, face)
	stripe := &mh.stripes[leaf%numStripes]
	stripe.Lock()
	if mh.data[leaf].Weight <= saturationWeight {
		mh.data[leaf].accumulate(value, weight)
		stripe.Unlock()
		mh.mu.RUnlock()
		return
	}
	stripe.Unlock()
	mh.mu.RUnlock()

	// the leaf has saturated: refine it, then place the sample in the
	// child containing p. Subdivision may fail on budget exhaustion, or
	// may already have happened on another goroutine; both leave a valid
	// leaf to accumulate into.
	mh.mu.Lock()
	if sub := mh.tess.SubdivideFace(leaf); sub != 0 {
		for uint32(len(mh.data)) < mh.tess.NumFaces() {
			mh.data = append(mh.data, FaceValue{})
		}
	}
	mh.mu.Unlock()

	mh.mu.RLock()
	leaf = mh.tess.Locate(p, leaf)
	stripe = &mh.stripes[leaf%numStripes]
	stripe.Lock()
	mh.data[leaf].accumulate(value, weight)
	stripe.Unlock()
	mh.mu.RUnlock()
}

func (mh *meshHeatmap) finalize(densityMode bool) {
	mh.mu.Lock()
	defer mh.mu.Unlock()

	numFaces := mh.tess.NumFaces()

	// pass parent data down in id order; children of children appear at
	// higher ids, so inheritance is transitive through nested subdivisions
	for id := uint32(0); id < numFaces; id++ {
		sub := mh.tess.SubdivisionID(id)
		if sub == 0 {
			continue
		}
		parent := mh.data[id]
		children := mh.data[sub : sub+4]

		var childWeight float32
		for i := range children {
			childWeight += children[i].Weight
		}

		if childWeight > saturationWeight {
			// enough direct child samples: distribute proportionally to
			// where they landed
			factor := parent.Weight / childWeight
			for i := range children {
				share := parent
				share.Weight = children[i].Weight * factor
				children[i].merge(share)
			}
		} else {
			// few child samples: distribute uniformly
			share := parent
			share.Weight = parent.Weight * 0.25
			for i := range children {
				children[i].merge(share)
			}
		}
	}

	if densityMode {
		var maxSamples uint32
		for id := uint32(0); id < numFaces; id++ {
			if !mh.tess.IsSubdivided(id) && mh.data[id].Samples > maxSamples {
				maxSamples = mh.data[id].Samples
			}
		}
		for id := uint32(0); id < numFaces; id++ {
			if mh.tess.IsSubdivided(id) {
				continue
			}
			v := &mh.data[id]
			var density float32
			if maxSamples > 0 {
				density = float32(v.Samples) / float32(maxSamples)
			}
			v.R, v.G, v.B = density, density, density
			v.Weight = 1
		}
	}
}

// leafValuesLocked collects leaf values in id order and fills gaps from
// neighboring faces. Caller holds at least a read lock.
func (mh *meshHeatmap) leafValuesLocked() []FaceValue {
	numFaces := mh.tess.NumFaces()

	filled := make([]FaceValue, numFaces)
	// vertex id -> leaf faces without data touching it
	unknownByVertex := make(map[uint32][]uint32)
	gotData := false
	numUnknown := 0

	for id := uint32(0); id < numFaces; id++ {
		if mh.tess.IsSubdivided(id) {
			continue
		}
		v := mh.data[id]
		if v.Weight == 0 || math.IsNaN(float64(v.Weight)) {
			for _, vid := range mh.tess.Face(id) {
				unknownByVertex[vid] = append(unknownByVertex[vid], id)
			}
			numUnknown++
			continue
		}
		filled[id] = v
		gotData = true
	}

	if gotData && numUnknown > 0 {
		mh.fillUnknownLeaves(filled, unknownByVertex)
	}

	out := make([]FaceValue, 0, mh.tess.NumLeafFaces())
	for id := uint32(0); id < numFaces; id++ {
		if !mh.tess.IsSubdivided(id) {
			out = append(out, filled[id])
		}
	}
	return out
}

// fillUnknownLeaves estimates values for sample-free leaves from leaves
// sharing a vertex. A few passes let estimates propagate into clusters of
// unknown faces; the estimate's weight is deliberately knocked down so it
// reads as a hint, not as data.
func (mh *meshHeatmap) fillUnknownLeaves(filled []FaceValue, unknownByVertex map[uint32][]uint32) {
	neighbors := make(map[uint32][]uint32)
	for id := uint32(0); id < mh.tess.NumFaces(); id++ {
		if mh.tess.IsSubdivided(id) {
			continue
		}
		for _, vid := range mh.tess.Face(id) {
			for _, unknown := range unknownByVertex[vid] {
				if unknown != id {
					neighbors[unknown] = append(neighbors[unknown], id)
				}
			}
		}
	}

	for pass := 0; pass < 3 && len(neighbors) > 0; pass++ {
		ids := make([]uint32, 0, len(neighbors))
		for id := range neighbors {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		filledCount := 0
		for _, id := range ids {
			var estimate FaceValue
			numValid := 0
			for _, n := range neighbors[id] {
				if filled[n].Weight > 0 {
					estimate.merge(filled[n])
					numValid++
				}
			}
			if numValid == 0 {
				continue
			}
			estimate.Weight /= float32(numValid * 32)
			filled[id] = estimate
			delete(neighbors, id)
			filledCount++
		}
		if filledCount == 0 {
			break
		}
	}
}

func (mh *meshHeatmap) proxyMesh() *scenedata.Mesh {
	mh.mu.RLock()
	verts := mh.tess.TessellatedVertices()
	faces := mh.tess.TessellatedFaces()
	values := mh.leafValuesLocked()
	mh.mu.RUnlock()

	faceColors := make([]core.Color, len(values))
	for i, v := range values {
		faceColors[i] = core.NewColor(v.R, v.G, v.B)
	}
	base := mh.tess.BaseMesh()
	return &scenedata.Mesh{
		Vertices:      verts,
		Triangles:     faces,
		FaceColors:    faceColors,
		DiffuseColor:  base.DiffuseColor,
		SpecularColor: base.SpecularColor,
	}
}
