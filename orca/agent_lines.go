package orca

import (
	"math"

	"github.com/gorustyt/goorca/common"
)

// buildAgentLines appends exactly one line per agent neighbour. Each agent
// takes half of the velocity change needed to leave the velocity obstacle.
func (a *Agent) buildAgentLines(timeStep float64) {
	invTimeHorizon := 1.0 / a.TimeHorizon

	for _, nb := range a.agentNeighbors {
		other := nb.Agent

		relPos := other.Position.Sub(a.Position)
		relVel := a.Velocity.Sub(other.Velocity)
		distSq := common.AbsSq(relPos)
		combinedRadius := a.Radius + other.Radius
		combinedRadiusSq := combinedRadius * combinedRadius

		var line Line
		var u Vec2

		if distSq > combinedRadiusSq {
			// No collision. w goes from the cut-off center to the relative velocity.
			w := relVel.Sub(relPos.Mul(invTimeHorizon))
			wLengthSq := common.AbsSq(w)
			dotProduct1 := w.Dot(relPos)

			if dotProduct1 < 0 && dotProduct1*dotProduct1 > combinedRadiusSq*wLengthSq {
				// Project on cut-off circle.
				wLength := math.Sqrt(wLengthSq)
				unitW := w.Mul(1 / wLength)

				line.Dir = Vec2{unitW[1], -unitW[0]}
				u = unitW.Mul(combinedRadius*invTimeHorizon - wLength)
			} else {
				// Project on legs.
				leg := math.Sqrt(distSq - combinedRadiusSq)

				if common.Det(relPos, w) > 0 {
					line.Dir = Vec2{
						relPos[0]*leg - relPos[1]*combinedRadius,
						relPos[0]*combinedRadius + relPos[1]*leg,
					}.Mul(1 / distSq)
				} else {
					line.Dir = Vec2{
						relPos[0]*leg + relPos[1]*combinedRadius,
						-relPos[0]*combinedRadius + relPos[1]*leg,
					}.Mul(-1 / distSq)
				}

				dotProduct2 := relVel.Dot(line.Dir)
				u = line.Dir.Mul(dotProduct2).Sub(relVel)
			}
		} else {
			// Collision. Project on the cut-off circle of one time step.
			invTimeStep := 1.0 / timeStep

			w := relVel.Sub(relPos.Mul(invTimeStep))
			wLength := common.Abs2(w)
			unitW := separationDir(a, other, w, wLength, relPos)

			line.Dir = Vec2{unitW[1], -unitW[0]}
			u = unitW.Mul(combinedRadius*invTimeStep - wLength)
		}

		line.Point = a.Velocity.Add(u.Mul(0.5))
		a.lines = append(a.lines, line)
	}
}

// separationDir is w normalised. When w vanishes the agents move apart along
// their center line, or, on top of each other, in opposite directions picked
// by id.
func separationDir(a, other *Agent, w Vec2, wLength float64, relPos Vec2) Vec2 {
	if wLength > Epsilon {
		return w.Mul(1 / wLength)
	}
	if common.AbsSq(relPos) > Epsilon*Epsilon {
		return common.Normalize(relPos.Mul(-1))
	}
	if a.ID > other.ID {
		return Vec2{-1, 0}
	}
	return Vec2{1, 0}
}
