package render

import (
	"github.com/df07/go-render-inspector/pkg/core"
)

// Leaf threshold: nodes with this many or fewer shapes become leaves
const leafThreshold = 8

// BVHNode represents a node in the bounding volume hierarchy
type BVHNode struct {
	BoundingBox core.AABB
	Left        *BVHNode
	Right       *BVHNode
	Shapes      []Shape // Populated for leaf nodes, nil for internal nodes
}

// BVH is a bounding volume hierarchy for fast ray-object intersection
type BVH struct {
	Root   *BVHNode
	Center core.Vec3 // Scene center from the root bounds
	Radius float32   // Scene radius from the root bounds
}

// NewBVH constructs a BVH from a slice of shapes
func NewBVH(shapes []Shape) *BVH {
	if len(shapes) == 0 {
		return &BVH{}
	}

	// Copy so concurrent builders never mutate the caller's slice
	shapesCopy := make([]Shape, len(shapes))
	copy(shapesCopy, shapes)

	root := buildBVH(shapesCopy)

	center := root.BoundingBox.Center()
	radius := root.BoundingBox.Max.Subtract(center).Length()

	return &BVH{Root: root, Center: center, Radius: radius}
}

// buildBVH recursively builds the hierarchy using median splits along the
// longest axis. Median splitting avoids the sorting cost of SAH builds
// while keeping intersection performance good enough for interactive use.
func buildBVH(shapes []Shape) *BVHNode {
	boundingBox := shapes[0].BoundingBox()
	for i := 1; i < len(shapes); i++ {
		boundingBox = boundingBox.Union(shapes[i].BoundingBox())
	}

	if len(shapes) <= leafThreshold {
		return &BVHNode{BoundingBox: boundingBox, Shapes: shapes}
	}

	axis, splitPos, ok := findSplit(boundingBox)
	if !ok {
		return &BVHNode{BoundingBox: boundingBox, Shapes: shapes}
	}

	leftShapes, rightShapes := partitionShapes(shapes, axis, splitPos)
	if len(leftShapes) == 0 || len(rightShapes) == 0 {
		return &BVHNode{BoundingBox: boundingBox, Shapes: shapes}
	}

	return &BVHNode{
		BoundingBox: boundingBox,
		Left:        buildBVH(leftShapes),
		Right:       buildBVH(rightShapes),
	}
}

// findSplit picks the longest axis and its midpoint as the split plane
func findSplit(boundingBox core.AABB) (axis int, splitPos float32, ok bool) {
	axis = boundingBox.LongestAxis()

	var lo, hi float32
	switch axis {
	case 0:
		lo, hi = boundingBox.Min.X, boundingBox.Max.X
	case 1:
		lo, hi = boundingBox.Min.Y, boundingBox.Max.Y
	case 2:
		lo, hi = boundingBox.Min.Z, boundingBox.Max.Z
	}

	if hi <= lo {
		return 0, 0, false
	}
	return axis, (lo + hi) * 0.5, true
}

// partitionShapes splits shapes by bounding box center against the split plane
func partitionShapes(shapes []Shape, axis int, splitPos float32) ([]Shape, []Shape) {
	var left, right []Shape

	for _, shape := range shapes {
		center := shape.BoundingBox().Center()
		var v float32
		switch axis {
		case 0:
			v = center.X
		case 1:
			v = center.Y
		case 2:
			v = center.Z
		}

		if v < splitPos {
			left = append(left, shape)
		} else {
			right = append(right, shape)
		}
	}

	return left, right
}

// Hit tests if a ray intersects any shape in the BVH, filling hit with the
// closest intersection
func (bvh *BVH) Hit(ray core.Ray, tMin, tMax float32, hit *HitRecord) bool {
	if bvh.Root == nil {
		return false
	}
	return hitNode(bvh.Root, ray, tMin, tMax, hit)
}

func hitNode(node *BVHNode, ray core.Ray, tMin, tMax float32, hit *HitRecord) bool {
	if !node.BoundingBox.Hit(ray, tMin, tMax) {
		return false
	}

	if node.Shapes != nil {
		hitAnything := false
		closestSoFar := tMax
		for _, shape := range node.Shapes {
			if shape.Hit(ray, tMin, closestSoFar, hit) {
				hitAnything = true
				closestSoFar = hit.T
			}
		}
		return hitAnything
	}

	hitAnything := false
	closestSoFar := tMax

	if node.Left != nil && hitNode(node.Left, ray, tMin, closestSoFar, hit) {
		hitAnything = true
		closestSoFar = hit.T
	}
	if node.Right != nil && hitNode(node.Right, ray, tMin, closestSoFar, hit) {
		hitAnything = true
	}

	return hitAnything
}

// BoundingBox returns the overall bounding box of the BVH
func (bvh *BVH) BoundingBox() core.AABB {
	if bvh.Root == nil {
		return core.AABB{}
	}
	return bvh.Root.BoundingBox
}
