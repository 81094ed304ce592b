// Package scenario builds the benchmark crowds used by the command line
// driver and the tests.
package scenario

import (
	"errors"
	"fmt"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/gorustyt/goorca/common"
	"github.com/gorustyt/goorca/config"
	"github.com/gorustyt/goorca/simulator"
)

var ErrUnknownScenario = errors.New("unknown scenario")

// perturbation is the magnitude of the noise added to preferred velocities
// so that perfectly symmetric crowds do not deadlock.
const perturbation = 1e-4

// Scenario holds the goal of every agent it placed.
type Scenario struct {
	Name  string
	Goals map[int]common.Vec2

	noise opensimplex.Noise
}

func newScenario(name string, seed int64) *Scenario {
	return &Scenario{
		Name:  name,
		Goals: make(map[int]common.Vec2),
		noise: opensimplex.NewNormalized(seed),
	}
}

// Build places the scenario named by cfg into sim.
func Build(sim *simulator.Simulator, cfg config.Scenario) (*Scenario, error) {
	switch cfg.Name {
	case "circle":
		if cfg.Agents <= 0 || cfg.Radius <= 0 {
			return nil, fmt.Errorf("circle needs agents and radius, got %d and %v", cfg.Agents, cfg.Radius)
		}
		return Circle(sim, cfg.Agents, cfg.Radius, cfg.Seed), nil
	case "blocks":
		return Blocks(sim, cfg.Seed)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownScenario, cfg.Name)
}

// Circle spaces n agents evenly on a circle of the given radius, each headed
// for the antipodal point. Start positions are jittered by noise.
func Circle(sim *simulator.Simulator, n int, radius float64, seed int64) *Scenario {
	s := newScenario("circle", seed)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		pos := common.Vec2{math.Cos(angle), math.Sin(angle)}.Mul(radius)
		jitter := common.Vec2{
			s.noise.Eval2(pos[0], pos[1]) - 0.5,
			s.noise.Eval2(pos[1], pos[0]) - 0.5,
		}.Mul(0.1)

		a := sim.AddAgent(pos.Add(jitter))
		s.Goals[a.ID] = pos.Mul(-1)
	}
	return s
}

// Blocks places four groups of 25 agents in the corners of a square with
// four block obstacles in between. Each group crosses to the opposite
// corner.
func Blocks(sim *simulator.Simulator, seed int64) (*Scenario, error) {
	s := newScenario("blocks", seed)
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			x := 55 + float64(i)*10
			y := 55 + float64(j)*10
			s.add(sim, common.Vec2{x, y}, common.Vec2{-75, -75})
			s.add(sim, common.Vec2{-x, y}, common.Vec2{75, -75})
			s.add(sim, common.Vec2{x, -y}, common.Vec2{-75, 75})
			s.add(sim, common.Vec2{-x, -y}, common.Vec2{75, 75})
		}
	}

	blocks := [][]common.Vec2{
		{{-10, 40}, {-40, 40}, {-40, 10}, {-10, 10}},
		{{10, 40}, {10, 10}, {40, 10}, {40, 40}},
		{{10, -40}, {40, -40}, {40, -10}, {10, -10}},
		{{-10, -40}, {-10, -10}, {-40, -10}, {-40, -40}},
	}
	for i, verts := range blocks {
		if _, err := sim.AddObstacle(verts, true, 0); err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
	}
	sim.ProcessObstacles()
	return s, nil
}

func (s *Scenario) add(sim *simulator.Simulator, pos, goal common.Vec2) {
	a := sim.AddAgent(pos)
	s.Goals[a.ID] = goal
}

// Update points every agent at its goal and adds a small perturbation that
// varies smoothly with position and time.
func (s *Scenario) Update(sim *simulator.Simulator) {
	sim.SetPreferredVelocitiesToward(s.Goals)
	t := sim.GlobalTime()
	for _, a := range sim.Agents() {
		angle := s.noise.Eval3(a.Position[0], a.Position[1], t) * 2 * math.Pi
		a.PrefVelocity = a.PrefVelocity.Add(common.Vec2{math.Cos(angle), math.Sin(angle)}.Mul(perturbation))
	}
}

// Done reports whether every agent is within its radius of its goal.
func (s *Scenario) Done(sim *simulator.Simulator) bool {
	for _, a := range sim.Agents() {
		goal, ok := s.Goals[a.ID]
		if !ok {
			continue
		}
		if common.AbsSq(goal.Sub(a.Position)) > a.Radius*a.Radius {
			return false
		}
	}
	return true
}
