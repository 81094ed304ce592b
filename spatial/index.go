package spatial

import (
	"math"
	"sync"

	"github.com/gorustyt/goorca/common"
	"github.com/gorustyt/goorca/orca"
)

// Index answers orca neighbour queries from two grids, one of agent centres
// and one of obstacle edges. Rebuild calls must not overlap queries; queries
// may run concurrently.
type Index struct {
	agentGrid    *Grid
	obstacleGrid *Grid

	agents    []*orca.Agent
	obstacles *orca.ObstacleSet

	scratch sync.Pool
}

var _ orca.NeighborIndex = (*Index)(nil)

func NewIndex(cellSize float64) *Index {
	x := &Index{
		agentGrid:    NewGrid(64, cellSize),
		obstacleGrid: NewGrid(64, cellSize),
	}
	x.scratch.New = func() any {
		ids := make([]int, 0, 64)
		return &ids
	}
	return x
}

// RebuildAgents indexes agents at their current positions. The slice is
// retained until the next call.
func (x *Index) RebuildAgents(agents []*orca.Agent) {
	x.agents = agents
	x.agentGrid.Reset(len(agents))
	for i, a := range agents {
		x.agentGrid.AddItem(i, a.Position[0], a.Position[1], a.Position[0], a.Position[1])
	}
}

// RebuildObstacles indexes every edge of set by the bounding box of its
// segment.
func (x *Index) RebuildObstacles(set *orca.ObstacleSet) {
	x.obstacles = set
	x.obstacleGrid.Reset(set.Len())
	for _, e := range set.Edges() {
		p, q := set.Segment(e.ID)
		x.obstacleGrid.AddItem(e.ID,
			math.Min(p[0], q[0]), math.Min(p[1], q[1]),
			math.Max(p[0], q[0]), math.Max(p[1], q[1]))
	}
}

func (x *Index) QueryAgentNeighbors(pos orca.Vec2, rangeSq float64, sink orca.AgentSink) {
	if len(x.agents) == 0 {
		return
	}
	ids := x.query(x.agentGrid, pos, rangeSq)
	for _, id := range *ids {
		other := x.agents[id]
		if common.AbsSq(other.Position.Sub(pos)) < rangeSq {
			rangeSq = sink.InsertAgentNeighbor(other, rangeSq)
		}
	}
	x.scratch.Put(ids)
}

func (x *Index) QueryObstacleNeighbors(pos orca.Vec2, rangeSq float64, sink orca.ObstacleSink) {
	if x.obstacles.Len() == 0 {
		return
	}
	ids := x.query(x.obstacleGrid, pos, rangeSq)
	for _, id := range *ids {
		sink.InsertObstacleNeighbor(id, rangeSq)
	}
	x.scratch.Put(ids)
}

func (x *Index) query(g *Grid, pos orca.Vec2, rangeSq float64) *[]int {
	ids := x.scratch.Get().(*[]int)
	r := math.Sqrt(rangeSq)
	*ids = g.QueryItems(pos[0]-r, pos[1]-r, pos[0]+r, pos[1]+r, (*ids)[:0])
	return ids
}
