// Package orca computes collision-free velocities for discs moving in the
// plane with optimal reciprocal collision avoidance.
package orca

import "github.com/gorustyt/goorca/common"

type Vec2 = common.Vec2

// Epsilon is the tolerance shared by the constraint builders and the linear
// programs. It is read concurrently during a tick; change it only between
// ticks.
var Epsilon = 0.00001

// Line is a directed line in velocity space. Velocities v with
// Det(Dir, Point-v) <= 0, on the left of the line, satisfy the constraint.
type Line struct {
	Point Vec2
	Dir   Vec2
}

// Violation returns the signed distance by which v lies on the infeasible
// side of the line. Non-positive values mean v satisfies it.
func (l Line) Violation(v Vec2) float64 {
	return common.Det(l.Dir, l.Point.Sub(v))
}
