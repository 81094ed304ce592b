package orca

import (
	"math"

	"github.com/gorustyt/goorca/common"
)

// Solve returns the velocity within the maxSpeed disc that is closest to
// pref while satisfying lines. When no velocity satisfies all of them, the
// first numObstLines lines are kept hard and the largest violation of the
// others is minimised.
func Solve(lines []Line, numObstLines int, maxSpeed float64, pref Vec2) Vec2 {
	v, _ := solve(lines, numObstLines, maxSpeed, pref, nil)
	return v
}

func solve(lines []Line, numObstLines int, maxSpeed float64, pref Vec2, scratch []Line) (Vec2, []Line) {
	result, lineFail := linearProgram2(lines, maxSpeed, pref, false)
	if lineFail < len(lines) {
		result, scratch = linearProgram3(lines, numObstLines, lineFail, maxSpeed, result, scratch)
	}
	return result, scratch
}

// linearProgram1 solves the one-dimensional program on line lineNo subject
// to lines[:lineNo] and the disc of the given radius. With dirOpt, optVel is
// a unit direction and the extreme point along it is taken; otherwise the
// point closest to optVel. It reports false when the program is infeasible.
func linearProgram1(lines []Line, lineNo int, radius float64, optVel Vec2, dirOpt bool) (Vec2, bool) {
	line := lines[lineNo]
	dotProduct := line.Point.Dot(line.Dir)
	discriminant := dotProduct*dotProduct + radius*radius - common.AbsSq(line.Point)

	if discriminant < 0 {
		// Max speed circle fully invalidates line lineNo.
		return Vec2{}, false
	}

	sqrtDiscriminant := math.Sqrt(discriminant)
	tLeft := -dotProduct - sqrtDiscriminant
	tRight := -dotProduct + sqrtDiscriminant

	for i := 0; i < lineNo; i++ {
		denominator := common.Det(line.Dir, lines[i].Dir)
		numerator := common.Det(lines[i].Dir, line.Point.Sub(lines[i].Point))

		if math.Abs(denominator) <= Epsilon {
			// Lines lineNo and i are (almost) parallel.
			if numerator < 0 {
				return Vec2{}, false
			}
			continue
		}

		t := numerator / denominator
		if denominator >= 0 {
			// Line i bounds line lineNo on the right.
			tRight = math.Min(tRight, t)
		} else {
			// Line i bounds line lineNo on the left.
			tLeft = math.Max(tLeft, t)
		}

		if tLeft > tRight {
			return Vec2{}, false
		}
	}

	if dirOpt {
		if optVel.Dot(line.Dir) > 0 {
			return line.Point.Add(line.Dir.Mul(tRight)), true
		}
		return line.Point.Add(line.Dir.Mul(tLeft)), true
	}

	t := common.Clamp(line.Dir.Dot(optVel.Sub(line.Point)), tLeft, tRight)
	return line.Point.Add(line.Dir.Mul(t)), true
}

// linearProgram2 solves the two-dimensional program incrementally. It
// returns the index of the first line it could not satisfy, or len(lines)
// on success; on failure the result satisfies lines[:index].
func linearProgram2(lines []Line, radius float64, optVel Vec2, dirOpt bool) (Vec2, int) {
	var result Vec2
	switch {
	case dirOpt:
		// optVel is of unit length in this case.
		result = optVel.Mul(radius)
	case common.AbsSq(optVel) > radius*radius:
		result = common.Normalize(optVel).Mul(radius)
	default:
		result = optVel
	}

	for i := range lines {
		if lines[i].Violation(result) > 0 {
			next, ok := linearProgram1(lines, i, radius, optVel, dirOpt)
			if !ok {
				return result, i
			}
			result = next
		}
	}
	return result, len(lines)
}

// linearProgram3 is the fallback after linearProgram2 failed on beginLine.
// Obstacle lines stay hard; for every violated agent line the velocity that
// minimises the maximum violation so far is found by projecting the earlier
// agent lines onto it. projLines is a reusable buffer and is returned grown.
func linearProgram3(lines []Line, numObstLines, beginLine int, radius float64, result Vec2, projLines []Line) (Vec2, []Line) {
	distance := 0.0

	for i := beginLine; i < len(lines); i++ {
		if lines[i].Violation(result) <= distance {
			continue
		}

		projLines = append(projLines[:0], lines[:numObstLines]...)

		for j := numObstLines; j < i; j++ {
			var line Line

			determinant := common.Det(lines[i].Dir, lines[j].Dir)
			if math.Abs(determinant) <= Epsilon {
				// Line i and line j are parallel.
				if lines[i].Dir.Dot(lines[j].Dir) > 0 {
					// Same direction.
					continue
				}
				// Opposite direction.
				line.Point = lines[i].Point.Add(lines[j].Point).Mul(0.5)
			} else {
				line.Point = lines[i].Point.Add(lines[i].Dir.Mul(
					common.Det(lines[j].Dir, lines[i].Point.Sub(lines[j].Point)) / determinant))
			}

			line.Dir = common.Normalize(lines[j].Dir.Sub(lines[i].Dir))
			projLines = append(projLines, line)
		}

		candidate, lineFail := linearProgram2(projLines, radius, common.Perp(lines[i].Dir), true)
		// A failure here is floating point error only; the current result
		// is already feasible for projLines.
		if lineFail == len(projLines) {
			result = candidate
		}

		distance = lines[i].Violation(result)
	}
	return result, projLines
}
