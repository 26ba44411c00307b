// Package spatial indexes agent positions for radius queries.
//
// The index is an R-tree of points keyed by agent id. It is rebuilt from scratch
// after every simulation tick because agents move, and it is only read while
// agents interact.
package spatial

import (
	"fmt"
	"math"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// R-tree node fan-out.
const (
	minChildren = 25
	maxChildren = 50
)

// entry is one agent position stored in the tree.
type entry struct {
	geom.Point
	id string
}

// Tree is an R-tree over agent positions.
type Tree struct {
	tree *rtree.Rtree
	size int
}

// NewTree returns an empty index.
func NewTree() *Tree {
	return &Tree{tree: rtree.NewTree(minChildren, maxChildren)}
}

// Rebuild discards the current contents and indexes points. The index is left
// unchanged when any point is malformed.
func (t *Tree) Rebuild(points map[string]geom.Point) error {
	ids := make([]string, 0, len(points))
	for id, p := range points {
		if err := Validate(p); err != nil {
			return fmt.Errorf("rebuild index: agent %s: %w", id, err)
		}
		ids = append(ids, id)
	}
	// Insertion order shapes the tree, so keep it stable across runs.
	sort.Strings(ids)

	tree := rtree.NewTree(minChildren, maxChildren)
	for _, id := range ids {
		tree.Insert(&entry{Point: points[id], id: id})
	}
	t.tree = tree
	t.size = len(ids)
	return nil
}

// Insert adds a single point without rebuilding.
func (t *Tree) Insert(id string, p geom.Point) error {
	if err := Validate(p); err != nil {
		return fmt.Errorf("insert agent %s: %w", id, err)
	}
	t.tree.Insert(&entry{Point: p, id: id})
	t.size++
	return nil
}

// Len reports the number of indexed points.
func (t *Tree) Len() int {
	return t.size
}

// Within returns the ids of all indexed points at Euclidean distance <= radius
// from center, sorted.
func (t *Tree) Within(center geom.Point, radius float64) []string {
	if radius < 0 || t.size == 0 {
		return nil
	}
	// Pad the box so points lying exactly on the radius survive the
	// rectangle test; the distance filter below is exact.
	pad := radius + 1e-12*math.Max(1, math.Max(math.Abs(center.X), math.Abs(center.Y)))
	box := &geom.Bounds{
		Min: geom.Point{X: center.X - pad, Y: center.Y - pad},
		Max: geom.Point{X: center.X + pad, Y: center.Y + pad},
	}

	var ids []string
	for _, s := range t.tree.SearchIntersect(box) {
		e, ok := s.(*entry)
		if !ok {
			continue
		}
		if Distance(center, e.Point) <= radius {
			ids = append(ids, e.id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Distance is the planar Euclidean distance between a and b.
func Distance(a, b geom.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Validate rejects points that cannot be placed in the index.
func Validate(p geom.Point) error {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidPoint, p.X, p.Y)
	}
	return nil
}
