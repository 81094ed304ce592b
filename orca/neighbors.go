package orca

import "github.com/gorustyt/goorca/common"

// InsertAgentNeighbor keeps the MaxNeighbors closest agents sorted by
// squared distance. Once the list is full the returned range shrinks to the
// farthest kept neighbour.
func (a *Agent) InsertAgentNeighbor(other *Agent, rangeSq float64) float64 {
	if other == a || a.MaxNeighbors <= 0 {
		return rangeSq
	}
	if other.Layer&a.IgnoreLayers != 0 {
		return rangeSq
	}

	distSq := common.AbsSq(a.Position.Sub(other.Position))
	if distSq >= rangeSq {
		return rangeSq
	}

	if len(a.agentNeighbors) < a.MaxNeighbors {
		a.agentNeighbors = append(a.agentNeighbors, AgentNeighbor{})
	}

	// The last slot is free or holds the farthest entry, which is dropped.
	i := len(a.agentNeighbors) - 1
	for i != 0 && distSq < a.agentNeighbors[i-1].DistSq {
		a.agentNeighbors[i] = a.agentNeighbors[i-1]
		i--
	}
	a.agentNeighbors[i] = AgentNeighbor{DistSq: distSq, Agent: other}

	if len(a.agentNeighbors) == a.MaxNeighbors {
		rangeSq = a.agentNeighbors[len(a.agentNeighbors)-1].DistSq
	}
	return rangeSq
}

// InsertObstacleNeighbor adds an edge within range, sorted by squared
// distance to the segment. Edges on an ignored layer are skipped, as are
// edges seen from their inner side; the opposite edge of the same wall
// covers those.
func (a *Agent) InsertObstacleNeighbor(edge int, rangeSq float64) {
	o := a.obstacles.Edge(edge)
	if o.Layer&a.IgnoreLayers != 0 {
		return
	}
	next := a.obstacles.Edge(o.Next)

	if common.LeftOf(o.Point, next.Point, a.Position) >= 0 {
		return
	}

	distSq := common.DistSqPointLineSegment(o.Point, next.Point, a.Position)
	if distSq >= rangeSq {
		return
	}

	a.obstacleNeighbors = append(a.obstacleNeighbors, ObstacleNeighbor{})
	i := len(a.obstacleNeighbors) - 1
	for i != 0 && distSq < a.obstacleNeighbors[i-1].DistSq {
		a.obstacleNeighbors[i] = a.obstacleNeighbors[i-1]
		i--
	}
	a.obstacleNeighbors[i] = ObstacleNeighbor{DistSq: distSq, Edge: edge}
}
