package orca

import (
	"fmt"

	"github.com/gorustyt/goorca/common"
)

// Params holds the per-agent configuration. TimeHorizon, TimeHorizonObst
// and MaxSpeed must be positive.
type Params struct {
	Radius          float64 ///< Agent radius. [Limit: > 0]
	MaxSpeed        float64 ///< Maximum speed. [Limit: > 0]
	MaxNeighbors    int     ///< Number of other agents taken into account. [Limit: >= 0]
	NeighborDist    float64 ///< Center to center search distance for other agents. [Limit: > 0]
	TimeHorizon     float64 ///< Time for which velocities are safe with respect to other agents. [Limit: > 0]
	TimeHorizonObst float64 ///< Time for which velocities are safe with respect to obstacles. [Limit: > 0]

	Layer        uint32 ///< Layers this agent occupies.
	IgnoreLayers uint32 ///< Agents and obstacle edges on any of these layers are not avoided.
}

// Phase is the position of an agent in its per-tick update sequence.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseNeighborsComputed
	PhaseConstraintsBuilt
	PhaseVelocitySolved
	PhaseCommitted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseNeighborsComputed:
		return "neighbors-computed"
	case PhaseConstraintsBuilt:
		return "constraints-built"
	case PhaseVelocitySolved:
		return "velocity-solved"
	case PhaseCommitted:
		return "committed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// AgentSink receives agent candidates from a NeighborIndex. It returns the
// possibly reduced squared search range the index may prune with.
type AgentSink interface {
	InsertAgentNeighbor(other *Agent, rangeSq float64) float64
}

// ObstacleSink receives obstacle edge candidates from a NeighborIndex.
type ObstacleSink interface {
	InsertObstacleNeighbor(edge int, rangeSq float64)
}

// NeighborIndex finds candidate neighbours around a position. Candidates
// may be offered in any order and may lie outside the range; sinks filter.
type NeighborIndex interface {
	QueryAgentNeighbors(pos Vec2, rangeSq float64, sink AgentSink)
	QueryObstacleNeighbors(pos Vec2, rangeSq float64, sink ObstacleSink)
}

type AgentNeighbor struct {
	DistSq float64
	Agent  *Agent
}

type ObstacleNeighbor struct {
	DistSq float64
	Edge   int
}

// Agent is a disc moving in the plane. The exported fields are its
// configuration and committed state; everything else is rebuilt each tick
// into buffers the agent owns.
type Agent struct {
	Params

	ID           int
	Position     Vec2
	PrefVelocity Vec2
	Velocity     Vec2

	newVelocity Vec2
	phase       Phase

	obstacles         *ObstacleSet
	agentNeighbors    []AgentNeighbor
	obstacleNeighbors []ObstacleNeighbor
	lines             []Line
	projLines         []Line
	numObstLines      int
}

func NewAgent(id int, pos Vec2, params Params) *Agent {
	return &Agent{
		Params:   params,
		ID:       id,
		Position: pos,
	}
}

// NewVelocity is the velocity solved for in the current tick, not yet
// committed.
func (a *Agent) NewVelocity() Vec2 {
	return a.newVelocity
}

func (a *Agent) Phase() Phase {
	return a.phase
}

// Lines returns the constraints of the last velocity computation, obstacle
// lines first. The slice is reused by the next tick.
func (a *Agent) Lines() []Line { return a.lines }

// NumObstacleLines is the number of leading entries of Lines that come from
// obstacles.
func (a *Agent) NumObstacleLines() int { return a.numObstLines }

func (a *Agent) AgentNeighbors() []AgentNeighbor {
	return a.agentNeighbors
}

func (a *Agent) ObstacleNeighbors() []ObstacleNeighbor {
	return a.obstacleNeighbors
}

// ComputeNeighbors refills the neighbour lists from index. obstacles must be
// the set the index was built from and stays referenced until the next call.
func (a *Agent) ComputeNeighbors(index NeighborIndex, obstacles *ObstacleSet) {
	a.obstacles = obstacles
	a.obstacleNeighbors = a.obstacleNeighbors[:0]
	a.agentNeighbors = a.agentNeighbors[:0]

	if index != nil {
		if obstacles.Len() > 0 {
			rangeSq := common.Sqr(a.TimeHorizonObst*a.MaxSpeed + a.Radius)
			index.QueryObstacleNeighbors(a.Position, rangeSq, a)
		}
		if a.MaxNeighbors > 0 {
			rangeSq := common.Sqr(a.NeighborDist)
			index.QueryAgentNeighbors(a.Position, rangeSq, a)
		}
	}
	a.phase = PhaseNeighborsComputed
}

// ComputeNewVelocity builds the ORCA lines for the current neighbours and
// solves for the velocity closest to PrefVelocity. timeStep is only used
// for neighbours that already overlap.
func (a *Agent) ComputeNewVelocity(timeStep float64) {
	a.lines = a.lines[:0]
	a.buildObstacleLines()
	a.numObstLines = len(a.lines)
	a.buildAgentLines(timeStep)
	a.phase = PhaseConstraintsBuilt

	a.newVelocity, a.projLines = solve(a.lines, a.numObstLines, a.MaxSpeed, a.PrefVelocity, a.projLines)
	a.phase = PhaseVelocitySolved
}

// Commit applies the computed velocity and advances the position by one
// explicit Euler step.
func (a *Agent) Commit(timeStep float64) {
	a.Velocity = a.newVelocity
	a.Position = a.Position.Add(a.Velocity.Mul(timeStep))
	a.phase = PhaseCommitted
}
