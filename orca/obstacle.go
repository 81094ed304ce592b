package orca

import (
	"errors"
	"fmt"

	"github.com/gorustyt/goorca/common"
)

var (
	ErrTooFewVertices = errors.New("obstacle needs at least two vertices")
	ErrDegenerateEdge = errors.New("obstacle has a zero-length edge")
)

// Obstacle is one edge of a static obstacle, from Point to the Point of the
// Next edge. Edges of one polygon form a loop through Prev and Next, which
// index into the owning ObstacleSet.
type Obstacle struct {
	ID      int
	Point   Vec2
	Dir     Vec2 ///< Unit direction towards the next vertex.
	Convex  bool ///< Convexity of the vertex at Point.
	Prev    int
	Next    int
	Polygon int
	Layer   uint32
}

// ObstacleSet is an arena of obstacle edges. Edges are appended and never
// mutated once added, so it can be shared read-only by all agents of a tick.
type ObstacleSet struct {
	edges    []Obstacle
	polygons int
}

func NewObstacleSet() *ObstacleSet {
	return &ObstacleSet{}
}

func (s *ObstacleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.edges)
}

func (s *ObstacleSet) Polygons() int {
	if s == nil {
		return 0
	}
	return s.polygons
}

// Edge returns the edge with the given id. The pointer stays valid until the
// next Add call.
func (s *ObstacleSet) Edge(id int) *Obstacle {
	return &s.edges[id]
}

func (s *ObstacleSet) Edges() []Obstacle {
	if s == nil {
		return nil
	}
	return s.edges
}

// Segment returns the end points of the edge.
func (s *ObstacleSet) Segment(id int) (Vec2, Vec2) {
	e := &s.edges[id]
	return e.Point, s.edges[e.Next].Point
}

// AddPolygon adds a closed obstacle. Vertices are listed counter-clockwise
// for an obstacle agents stay outside of; a two-vertex polygon is a segment
// that blocks from both sides. It returns the id of the first edge.
func (s *ObstacleSet) AddPolygon(verts []Vec2, layer uint32) (int, error) {
	if len(verts) < 2 {
		return -1, ErrTooFewVertices
	}
	for i := range verts {
		if verts[i] == verts[common.Next(i, len(verts))] {
			return -1, fmt.Errorf("vertex %d: %w", i, ErrDegenerateEdge)
		}
	}

	n := len(verts)
	first := len(s.edges)
	poly := s.polygons
	s.polygons++

	for i := 0; i < n; i++ {
		prev := verts[common.Prev(i, n)]
		cur := verts[i]
		next := verts[common.Next(i, n)]

		e := Obstacle{
			ID:      first + i,
			Point:   cur,
			Dir:     common.Normalize(next.Sub(cur)),
			Prev:    first + common.Prev(i, n),
			Next:    first + common.Next(i, n),
			Polygon: poly,
			Layer:   layer,
		}
		if n == 2 {
			e.Convex = true
		} else {
			e.Convex = common.LeftOf(prev, cur, next) >= 0
		}
		s.edges = append(s.edges, e)
	}
	return first, nil
}

// AddPolyline adds an open chain of segments. The chain is stored as the
// closed loop v0..vn-1..v1 so that every segment blocks from both sides.
func (s *ObstacleSet) AddPolyline(verts []Vec2, layer uint32) (int, error) {
	if len(verts) < 2 {
		return -1, ErrTooFewVertices
	}
	loop := make([]Vec2, 0, 2*len(verts)-2)
	loop = append(loop, verts...)
	for i := len(verts) - 2; i >= 1; i-- {
		loop = append(loop, verts[i])
	}
	return s.AddPolygon(loop, layer)
}
