package orca

import (
	"math"

	"github.com/gorustyt/goorca/common"
)

// buildObstacleLines appends at most one line per obstacle neighbour,
// nearest first.
func (a *Agent) buildObstacleLines() {
	invTimeHorizonObst := 1.0 / a.TimeHorizonObst
	radius := a.Radius
	radiusSq := radius * radius
	cutOffRadius := radius * invTimeHorizonObst

	for _, nb := range a.obstacleNeighbors {
		o1 := a.obstacles.Edge(nb.Edge)
		o2 := a.obstacles.Edge(o1.Next)

		relPos1 := o1.Point.Sub(a.Position)
		relPos2 := o2.Point.Sub(a.Position)

		if a.obstacleCovered(relPos1, relPos2, invTimeHorizonObst) {
			continue
		}

		// Not yet covered. Check for collisions.
		distSq1 := common.AbsSq(relPos1)
		distSq2 := common.AbsSq(relPos2)

		obstacleVector := o2.Point.Sub(o1.Point)
		s := relPos1.Mul(-1).Dot(obstacleVector) / common.AbsSq(obstacleVector)
		distSqLine := common.AbsSq(relPos1.Mul(-1).Sub(obstacleVector.Mul(s)))

		switch {
		case s < 0 && distSq1 <= radiusSq:
			// Collision with left vertex. Ignore if non-convex.
			if o1.Convex {
				a.lines = append(a.lines, Line{Dir: common.Normalize(Vec2{-relPos1[1], relPos1[0]})})
			}
			continue
		case s > 1 && distSq2 <= radiusSq:
			// Collision with right vertex. Ignore if non-convex or if the
			// neighbouring edge takes care of it.
			if o2.Convex && common.Det(relPos2, o2.Dir) >= 0 {
				a.lines = append(a.lines, Line{Dir: common.Normalize(Vec2{-relPos2[1], relPos2[0]})})
			}
			continue
		case s >= 0 && s < 1 && distSqLine <= radiusSq:
			// Collision with the segment.
			a.lines = append(a.lines, Line{Dir: o1.Dir.Mul(-1)})
			continue
		}

		// No collision. Compute legs. Viewed obliquely both legs can come
		// from a single vertex. Legs extend the cut-off line at a non-convex
		// vertex.
		var leftLegDir, rightLegDir Vec2

		switch {
		case s < 0 && distSqLine <= radiusSq:
			// Left vertex defines the velocity obstacle.
			if !o1.Convex {
				continue
			}
			o2 = o1
			leftLegDir = leftLeg(relPos1, distSq1, radius)
			rightLegDir = rightLeg(relPos1, distSq1, radius)
		case s > 1 && distSqLine <= radiusSq:
			// Right vertex defines the velocity obstacle.
			if !o2.Convex {
				continue
			}
			o1 = o2
			leftLegDir = leftLeg(relPos2, distSq2, radius)
			rightLegDir = rightLeg(relPos2, distSq2, radius)
		default:
			if o1.Convex {
				leftLegDir = leftLeg(relPos1, distSq1, radius)
			} else {
				leftLegDir = o1.Dir.Mul(-1)
			}
			if o2.Convex {
				rightLegDir = rightLeg(relPos2, distSq2, radius)
			} else {
				rightLegDir = o1.Dir
			}
		}

		// A leg never points into the neighbouring edge at a convex vertex;
		// that edge's cut-off line is taken instead and marked foreign.
		leftNeighbor := a.obstacles.Edge(o1.Prev)
		isLeftLegForeign := false
		isRightLegForeign := false

		if o1.Convex && common.Det(leftLegDir, leftNeighbor.Dir.Mul(-1)) >= 0 {
			leftLegDir = leftNeighbor.Dir.Mul(-1)
			isLeftLegForeign = true
		}
		if o2.Convex && common.Det(rightLegDir, o2.Dir) <= 0 {
			rightLegDir = o2.Dir
			isRightLegForeign = true
		}

		leftCutOff := o1.Point.Sub(a.Position).Mul(invTimeHorizonObst)
		rightCutOff := o2.Point.Sub(a.Position).Mul(invTimeHorizonObst)
		cutOffVector := rightCutOff.Sub(leftCutOff)
		sameVertex := o1 == o2

		// Project current velocity on the velocity obstacle.
		t := 0.5
		if !sameVertex {
			t = a.Velocity.Sub(leftCutOff).Dot(cutOffVector) / common.AbsSq(cutOffVector)
		}
		tLeft := a.Velocity.Sub(leftCutOff).Dot(leftLegDir)
		tRight := a.Velocity.Sub(rightCutOff).Dot(rightLegDir)

		if (t < 0 && tLeft < 0) || (sameVertex && tLeft < 0 && tRight < 0) {
			// Left cut-off circle.
			unitW := common.Normalize(a.Velocity.Sub(leftCutOff))
			a.lines = append(a.lines, Line{
				Dir:   Vec2{unitW[1], -unitW[0]},
				Point: leftCutOff.Add(unitW.Mul(cutOffRadius)),
			})
			continue
		} else if t > 1 && tRight < 0 {
			// Right cut-off circle.
			unitW := common.Normalize(a.Velocity.Sub(rightCutOff))
			a.lines = append(a.lines, Line{
				Dir:   Vec2{unitW[1], -unitW[0]},
				Point: rightCutOff.Add(unitW.Mul(cutOffRadius)),
			})
			continue
		}

		// Left leg, right leg or cut-off line, whichever is closest.
		distSqCutoff := math.Inf(1)
		if t >= 0 && t <= 1 && !sameVertex {
			distSqCutoff = common.AbsSq(a.Velocity.Sub(leftCutOff.Add(cutOffVector.Mul(t))))
		}
		distSqLeft := math.Inf(1)
		if tLeft >= 0 {
			distSqLeft = common.AbsSq(a.Velocity.Sub(leftCutOff.Add(leftLegDir.Mul(tLeft))))
		}
		distSqRight := math.Inf(1)
		if tRight >= 0 {
			distSqRight = common.AbsSq(a.Velocity.Sub(rightCutOff.Add(rightLegDir.Mul(tRight))))
		}

		if distSqCutoff <= distSqLeft && distSqCutoff <= distSqRight {
			dir := o1.Dir.Mul(-1)
			a.lines = append(a.lines, Line{
				Dir:   dir,
				Point: leftCutOff.Add(common.Perp(dir).Mul(cutOffRadius)),
			})
			continue
		}

		if distSqLeft <= distSqRight {
			if isLeftLegForeign {
				continue
			}
			a.lines = append(a.lines, Line{
				Dir:   leftLegDir,
				Point: leftCutOff.Add(common.Perp(leftLegDir).Mul(cutOffRadius)),
			})
			continue
		}

		if isRightLegForeign {
			continue
		}
		dir := rightLegDir.Mul(-1)
		a.lines = append(a.lines, Line{
			Dir:   dir,
			Point: rightCutOff.Add(common.Perp(dir).Mul(cutOffRadius)),
		})
	}
}

// obstacleCovered reports whether both end points of an edge already lie
// beyond every obstacle line built so far.
func (a *Agent) obstacleCovered(relPos1, relPos2 Vec2, invTimeHorizonObst float64) bool {
	margin := invTimeHorizonObst * a.Radius
	p1 := relPos1.Mul(invTimeHorizonObst)
	p2 := relPos2.Mul(invTimeHorizonObst)
	for _, l := range a.lines {
		if common.Det(p1.Sub(l.Point), l.Dir)-margin >= -Epsilon &&
			common.Det(p2.Sub(l.Point), l.Dir)-margin >= -Epsilon {
			return true
		}
	}
	return false
}

// leftLeg is the unit direction of the left tangent from the origin to the
// disc of the given radius around relPos.
func leftLeg(relPos Vec2, distSq, radius float64) Vec2 {
	leg := math.Sqrt(distSq - radius*radius)
	return Vec2{
		relPos[0]*leg - relPos[1]*radius,
		relPos[0]*radius + relPos[1]*leg,
	}.Mul(1 / distSq)
}

func rightLeg(relPos Vec2, distSq, radius float64) Vec2 {
	leg := math.Sqrt(distSq - radius*radius)
	return Vec2{
		relPos[0]*leg + relPos[1]*radius,
		-relPos[0]*radius + relPos[1]*leg,
	}.Mul(1 / distSq)
}
