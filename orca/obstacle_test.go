package orca

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPolygonLinksLoop(t *testing.T) {
	s := NewObstacleSet()
	first, err := s.AddPolygon([]Vec2{{0, 0}, {2, 0}, {2, 2}, {0, 2}}, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, first)
	require.Equal(t, 4, s.Len())
	assert.Equal(t, 1, s.Polygons())

	for i, e := range s.Edges() {
		assert.Equal(t, i, e.ID)
		assert.Equal(t, (i+1)%4, e.Next)
		assert.Equal(t, (i+3)%4, e.Prev)
		assert.True(t, e.Convex, "vertex %d of a square", i)
		assert.Equal(t, uint32(3), e.Layer)
	}
	assert.Equal(t, Vec2{1, 0}, s.Edge(0).Dir)
	assert.Equal(t, Vec2{0, 1}, s.Edge(1).Dir)

	p, q := s.Segment(3)
	assert.Equal(t, Vec2{0, 2}, p)
	assert.Equal(t, Vec2{0, 0}, q)
}

func TestAddPolygonReflexVertex(t *testing.T) {
	s := NewObstacleSet()
	// L shape with a reflex vertex at (1,1).
	_, err := s.AddPolygon([]Vec2{{0, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 2}, {0, 2}}, 0)
	require.NoError(t, err)

	for _, e := range s.Edges() {
		if e.Point == (Vec2{1, 1}) {
			assert.False(t, e.Convex)
		} else {
			assert.True(t, e.Convex, "vertex %v", e.Point)
		}
	}
}

func TestSecondPolygonOffsetsIDs(t *testing.T) {
	s := NewObstacleSet()
	_, err := s.AddPolygon([]Vec2{{0, 0}, {1, 0}, {0, 1}}, 0)
	require.NoError(t, err)
	first, err := s.AddPolygon([]Vec2{{5, 5}, {6, 5}, {5, 6}}, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, first)
	assert.Equal(t, 2, s.Polygons())
	assert.Equal(t, 5, s.Edge(3).Prev)
	assert.Equal(t, 4, s.Edge(3).Next)
	assert.Equal(t, 1, s.Edge(4).Polygon)
}

func TestAddPolylineStoresOutAndBack(t *testing.T) {
	s := NewObstacleSet()
	_, err := s.AddPolyline([]Vec2{{0, 0}, {1, 0}, {2, 1}}, 0)
	require.NoError(t, err)

	require.Equal(t, 4, s.Len())
	got := make([]Vec2, 0, s.Len())
	for _, e := range s.Edges() {
		got = append(got, e.Point)
	}
	assert.Equal(t, []Vec2{{0, 0}, {1, 0}, {2, 1}, {1, 0}}, got)
}

func TestTwoVertexObstacleIsConvex(t *testing.T) {
	s := NewObstacleSet()
	_, err := s.AddPolyline([]Vec2{{0, 0}, {0, 3}}, 0)
	require.NoError(t, err)

	require.Equal(t, 2, s.Len())
	assert.True(t, s.Edge(0).Convex)
	assert.True(t, s.Edge(1).Convex)
	assert.Equal(t, 1, s.Edge(0).Next)
	assert.Equal(t, 1, s.Edge(0).Prev)
}

func TestAddPolygonRejectsBadInput(t *testing.T) {
	s := NewObstacleSet()

	_, err := s.AddPolygon([]Vec2{{1, 1}}, 0)
	assert.ErrorIs(t, err, ErrTooFewVertices)

	_, err = s.AddPolyline(nil, 0)
	assert.ErrorIs(t, err, ErrTooFewVertices)

	_, err = s.AddPolygon([]Vec2{{0, 0}, {1, 0}, {1, 0}, {0, 1}}, 0)
	assert.ErrorIs(t, err, ErrDegenerateEdge)

	assert.Zero(t, s.Len(), "rejected input adds nothing")
}

func TestNilObstacleSetIsEmpty(t *testing.T) {
	var s *ObstacleSet
	assert.Zero(t, s.Len())
	assert.Zero(t, s.Polygons())
	assert.Nil(t, s.Edges())
}

func TestInsertAgentNeighborKeepsClosest(t *testing.T) {
	p := testParams()
	p.MaxNeighbors = 3
	a := NewAgent(0, Vec2{}, p)

	var agents []*Agent
	agents = append(agents, a)
	for i, x := range []float64{5, 1, 4, 2, 3} {
		agents = append(agents, NewAgent(i+1, Vec2{x, 0}, testParams()))
	}

	rangeSq := 100.0
	for _, other := range agents {
		rangeSq = a.InsertAgentNeighbor(other, rangeSq)
	}

	require.Len(t, a.AgentNeighbors(), 3)
	for i, want := range []float64{1, 4, 9} {
		assert.Equal(t, want, a.AgentNeighbors()[i].DistSq)
	}
	assert.Equal(t, 9.0, rangeSq, "range shrinks to the farthest kept neighbour")
}

func TestInsertAgentNeighborFilters(t *testing.T) {
	p := testParams()
	p.IgnoreLayers = 0b10
	a := NewAgent(0, Vec2{}, p)

	far := NewAgent(1, Vec2{20, 0}, testParams())
	ignored := NewAgent(2, Vec2{1, 0}, testParams())
	ignored.Layer = 0b10
	kept := NewAgent(3, Vec2{0, 1}, testParams())
	kept.Layer = 0b01

	rangeSq := 100.0
	for _, other := range []*Agent{a, far, ignored, kept} {
		rangeSq = a.InsertAgentNeighbor(other, rangeSq)
	}

	require.Len(t, a.AgentNeighbors(), 1)
	assert.Same(t, kept, a.AgentNeighbors()[0].Agent)
	assert.Equal(t, 100.0, rangeSq, "range is kept while the list has room")
}

func TestZeroMaxNeighborsIgnoresAgents(t *testing.T) {
	p := testParams()
	p.MaxNeighbors = 0
	a := NewAgent(0, Vec2{}, p)
	b := NewAgent(1, Vec2{0.5, 0}, testParams())

	a.ComputeNeighbors(&bruteIndex{agents: []*Agent{a, b}}, nil)
	assert.Empty(t, a.AgentNeighbors())
}

func TestObstacleNeighborsSortedAndFacing(t *testing.T) {
	s := NewObstacleSet()
	_, err := s.AddPolygon([]Vec2{{1, -1}, {3, -1}, {3, 1}, {1, 1}}, 0)
	require.NoError(t, err)
	_, err = s.AddPolygon([]Vec2{{-1, 2}, {1, 2}, {1, 3}, {-1, 3}}, 0)
	require.NoError(t, err)

	a := NewAgent(0, Vec2{}, testParams())
	a.ComputeNeighbors(&bruteIndex{obstacles: s, reverse: true}, s)

	nbs := a.ObstacleNeighbors()
	require.Len(t, nbs, 2, "only edges facing the agent")
	assert.Equal(t, 3, nbs[0].Edge)
	assert.Equal(t, 1.0, nbs[0].DistSq)
	assert.Equal(t, 4, nbs[1].Edge)
	assert.Equal(t, 4.0, nbs[1].DistSq)
}

func TestObstacleNeighborsSkipIgnoredLayers(t *testing.T) {
	s := NewObstacleSet()
	_, err := s.AddPolyline([]Vec2{{2, -1}, {2, 1}}, 0b10)
	require.NoError(t, err)
	_, err = s.AddPolyline([]Vec2{{-2, 1}, {-2, -1}}, 0b01)
	require.NoError(t, err)

	p := testParams()
	p.IgnoreLayers = 0b10
	a := NewAgent(0, Vec2{}, p)
	a.ComputeNeighbors(&bruteIndex{obstacles: s}, s)

	nbs := a.ObstacleNeighbors()
	require.Len(t, nbs, 1, "the wall on the ignored layer is passed through")
	assert.Equal(t, uint32(0b01), s.Edge(nbs[0].Edge).Layer)

	a.PrefVelocity = Vec2{2, 0}
	a.ComputeNewVelocity(0.25)
	assert.Equal(t, Vec2{2, 0}, a.NewVelocity())
}
