package common

import (
	"cmp"
	"math"
)

// / Returns the square of the value.
// / @param[in]		a	The value.
// / @return The square of the value.
func Sqr[T IT](a T) T {
	return a * a
}

// / Returns the absolute value.
// / @param[in]		a	The value.
// / @return The absolute value of the specified value.
func Abs[T IT](a T) T {
	if a < 0 {
		return -a
	}
	return a
}

// / Clamps the value to the specified range.
// / @param[in]		value			The value to clamp.
// / @param[in]		minInclusive	The minimum permitted return value.
// / @param[in]		maxInclusive	The maximum permitted return value.
// / @return The value, clamped to the specified range.
func Clamp[T cmp.Ordered](value, minInclusive, maxInclusive T) T {
	if value < minInclusive {
		return minInclusive
	}
	if value > maxInclusive {
		return maxInclusive
	}
	return value
}

// / Computes the determinant of the 2x2 matrix formed by two column vectors,
// / i.e. the signed area of the parallelogram spanned by @p a and @p b.
// / @param[in]		a	The first vector. [(x, y)]
// / @param[in]		b	The second vector. [(x, y)]
// / @return Positive when @p b is counter-clockwise of @p a.
func Det(a, b Vec2) float64 {
	return a[0]*b[1] - a[1]*b[0]
}

// / Returns the squared length of the vector.
func AbsSq(v Vec2) float64 {
	return v[0]*v[0] + v[1]*v[1]
}

// / Returns the length of the vector.
func Abs2(v Vec2) float64 {
	return math.Sqrt(AbsSq(v))
}

// / Returns the unit vector of @p v, or the zero vector when @p v has
// / (almost) no length.
func Normalize(v Vec2) Vec2 {
	l := Abs2(v)
	if l < 1e-12 {
		return Vec2{}
	}
	return Vec2{v[0] / l, v[1] / l}
}

// / Returns @p v rotated by 90 degrees counter-clockwise.
func Perp(v Vec2) Vec2 {
	return Vec2{-v[1], v[0]}
}

// / Computes the signed distance from a line connecting the specified points
// / to a specified point.
// / @param[in]		a	The first point on the line.
// / @param[in]		b	The second point on the line.
// / @param[in]		c	The point to which the signed distance is computed.
// / @return Positive when @p c lies to the left of the line ab.
func LeftOf(a, b, c Vec2) float64 {
	return Det(a.Sub(c), b.Sub(a))
}

// / Computes the squared distance from a line segment with the specified
// / endpoints to a specified point.
// / @param[in]		a	The first endpoint of the segment.
// / @param[in]		b	The second endpoint of the segment.
// / @param[in]		c	The point to which the squared distance is computed.
func DistSqPointLineSegment(a, b, c Vec2) float64 {
	ab := b.Sub(a)
	lenSq := AbsSq(ab)
	if lenSq == 0 {
		return AbsSq(c.Sub(a))
	}
	r := c.Sub(a).Dot(ab) / lenSq
	if r < 0 {
		return AbsSq(c.Sub(a))
	}
	if r > 1 {
		return AbsSq(c.Sub(b))
	}
	return AbsSq(c.Sub(a.Add(ab.Mul(r))))
}

// / Returns @p v scaled down to @p maxLen when it is longer.
func ClampLen(v Vec2, maxLen float64) Vec2 {
	if AbsSq(v) > maxLen*maxLen {
		return Normalize(v).Mul(maxLen)
	}
	return v
}

func IsFinite(v Vec2) bool {
	return !math.IsNaN(v[0]) && !math.IsInf(v[0], 0) && !math.IsNaN(v[1]) && !math.IsInf(v[1], 0)
}

func NextPow2(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
