// Package simulator owns a set of ORCA agents and static obstacles and
// advances them in fixed time steps.
//
// Each Step runs in two phases separated by a barrier. In the read phase
// every agent gathers neighbours and solves for a new velocity using only
// the committed state of the others. In the commit phase every agent applies
// its own new velocity. Both phases are spread over a bounded pool of
// goroutines.
package simulator

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gorustyt/goorca/common"
	"github.com/gorustyt/goorca/common/message"
	"github.com/gorustyt/goorca/config"
	"github.com/gorustyt/goorca/orca"
	"github.com/gorustyt/goorca/spatial"
)

// Index is a neighbour index the simulator can rebuild.
type Index interface {
	orca.NeighborIndex
	RebuildAgents(agents []*orca.Agent)
	RebuildObstacles(set *orca.ObstacleSet)
}

// Publisher receives an encoded frame after every step. The slice is not
// reused by the simulator.
type Publisher interface {
	Publish(frame []byte)
}

type Option func(*Simulator)

func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

func WithIndex(idx Index) Option {
	return func(s *Simulator) { s.index = idx }
}

func WithPublisher(p Publisher) Option {
	return func(s *Simulator) { s.publisher = p }
}

type Simulator struct {
	cfg       *config.Config
	logger    *zap.Logger
	index     Index
	publisher Publisher

	agents []*orca.Agent
	nextID int

	obstacles      *orca.ObstacleSet
	obstaclesDirty bool

	timeStep   float64
	globalTime float64
	tick       uint64
}

// New creates an empty simulator. cfg is expected to be validated.
func New(cfg *config.Config, opts ...Option) *Simulator {
	s := &Simulator{
		cfg:       cfg,
		logger:    zap.NewNop(),
		obstacles: orca.NewObstacleSet(),
		timeStep:  cfg.TimeStep,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.index == nil {
		s.index = spatial.NewIndex(cfg.Grid.CellSize)
	}
	return s
}

// AddAgent adds an agent with the configured default parameters.
func (s *Simulator) AddAgent(pos common.Vec2) *orca.Agent {
	return s.AddAgentWith(pos, s.cfg.Agent.Params())
}

func (s *Simulator) AddAgentWith(pos common.Vec2, params orca.Params) *orca.Agent {
	a := orca.NewAgent(s.nextID, pos, params)
	s.nextID++
	s.agents = append(s.agents, a)
	return a
}

// RemoveAgent removes the agent with the given id and reports whether it
// existed. Ids are not reused.
func (s *Simulator) RemoveAgent(id int) bool {
	n := len(s.agents)
	s.agents = slices.DeleteFunc(s.agents, func(a *orca.Agent) bool { return a.ID == id })
	return len(s.agents) != n
}

func (s *Simulator) Agent(id int) *orca.Agent {
	i, ok := slices.BinarySearchFunc(s.agents, id, func(a *orca.Agent, id int) int { return a.ID - id })
	if !ok {
		return nil
	}
	return s.agents[i]
}

// Agents returns the agents in insertion order. The slice must not be
// modified.
func (s *Simulator) Agents() []*orca.Agent {
	return s.agents
}

func (s *Simulator) NumAgents() int {
	return len(s.agents)
}

// AddObstacle adds a closed polygon, or an open polyline when closed is
// false. It takes effect at the next Step or ProcessObstacles call.
func (s *Simulator) AddObstacle(verts []common.Vec2, closed bool, layer uint32) (int, error) {
	var (
		first int
		err   error
	)
	if closed {
		first, err = s.obstacles.AddPolygon(verts, layer)
	} else {
		first, err = s.obstacles.AddPolyline(verts, layer)
	}
	if err != nil {
		return -1, fmt.Errorf("add obstacle: %w", err)
	}
	s.obstaclesDirty = true
	return first, nil
}

func (s *Simulator) Obstacles() *orca.ObstacleSet {
	return s.obstacles
}

// ProcessObstacles rebuilds the obstacle index.
func (s *Simulator) ProcessObstacles() {
	s.index.RebuildObstacles(s.obstacles)
	s.obstaclesDirty = false
	s.logger.Info("obstacles processed",
		zap.Int("polygons", s.obstacles.Polygons()),
		zap.Int("edges", s.obstacles.Len()))
}

func (s *Simulator) SetTimeStep(dt float64) {
	s.timeStep = dt
}

func (s *Simulator) TimeStep() float64 {
	return s.timeStep
}

func (s *Simulator) GlobalTime() float64 {
	return s.globalTime
}

// Tick is the number of completed steps.
func (s *Simulator) Tick() uint64 {
	return s.tick
}

// Step advances the simulation by one time step. ctx is checked only before
// the step starts; a started step always completes.
func (s *Simulator) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.timeStep <= 0 {
		return fmt.Errorf("time step must be positive, got %v", s.timeStep)
	}
	if s.obstaclesDirty {
		s.ProcessObstacles()
	}

	dt := s.timeStep
	s.index.RebuildAgents(s.agents)

	err := s.forEachAgent(func(a *orca.Agent) {
		a.ComputeNeighbors(s.index, s.obstacles)
		a.ComputeNewVelocity(dt)
	})
	if err != nil {
		return fmt.Errorf("tick %d: compute velocities: %w", s.tick, err)
	}

	err = s.forEachAgent(func(a *orca.Agent) {
		a.Commit(dt)
	})
	if err != nil {
		return fmt.Errorf("tick %d: commit: %w", s.tick, err)
	}

	s.globalTime += dt
	s.tick++

	if ce := s.logger.Check(zap.DebugLevel, "step"); ce != nil {
		ce.Write(zap.Uint64("tick", s.tick), zap.Float64("time", s.globalTime), zap.Int("agents", len(s.agents)))
	}

	if s.publisher != nil {
		f := s.Frame()
		s.publisher.Publish(message.Encode(nil, &f))
	}
	return nil
}

// forEachAgent runs fn over contiguous chunks of agents and returns once all
// chunks are done.
func (s *Simulator) forEachAgent(fn func(a *orca.Agent)) error {
	workers := max(s.cfg.Workers, 1)
	var g errgroup.Group
	g.SetLimit(workers)
	for _, r := range common.Chunks(len(s.agents), workers) {
		chunk := s.agents[r[0]:r[1]]
		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("agent update panicked: %v", rec)
				}
			}()
			for _, a := range chunk {
				fn(a)
			}
			return nil
		})
	}
	return g.Wait()
}

// Frame snapshots the committed state of every agent.
func (s *Simulator) Frame() message.Frame {
	f := message.Frame{
		Tick:   s.tick,
		Time:   s.globalTime,
		Agents: make([]message.AgentState, len(s.agents)),
	}
	for i, a := range s.agents {
		f.Agents[i] = message.AgentState{
			ID:     int64(a.ID),
			PX:     a.Position[0],
			PY:     a.Position[1],
			VX:     a.Velocity[0],
			VY:     a.Velocity[1],
			Radius: a.Radius,
		}
	}
	return f
}

// SetPreferredVelocitiesToward points every agent at its goal at full speed,
// slowing down within one unit of it. Agents without a goal stop.
func (s *Simulator) SetPreferredVelocitiesToward(goals map[int]common.Vec2) {
	for _, a := range s.agents {
		goal, ok := goals[a.ID]
		if !ok {
			a.PrefVelocity = common.Vec2{}
			continue
		}
		a.PrefVelocity = common.ClampLen(goal.Sub(a.Position), 1).Mul(a.MaxSpeed)
	}
}
