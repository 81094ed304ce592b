package common

import (
	"math"
	"testing"
)

func assertTrue(t *testing.T, value bool, msg string) {
	t.Helper()
	if !value {
		t.Error(msg)
	}
}

func TestClamp(t *testing.T) {
	assertTrue(t, Clamp(2, 0, 1) == 1, "Higher than range error")
	assertTrue(t, Clamp(1, 0, 2) == 1, "Within range error")
	assertTrue(t, Clamp(0, 1, 2) == 1, "Lower than range error")
}

func TestSqr(t *testing.T) {
	assertTrue(t, Sqr(2) == 4, "Sqr squares a number")
	assertTrue(t, Sqr(-4) == 16, "Sqr squares a number")
	assertTrue(t, Sqr(0.5) == 0.25, "Sqr squares a number")
}

func TestDet(t *testing.T) {
	assertTrue(t, Det(Vec2{1, 0}, Vec2{0, 1}) == 1, "counter-clockwise pair is positive")
	assertTrue(t, Det(Vec2{0, 1}, Vec2{1, 0}) == -1, "clockwise pair is negative")
	assertTrue(t, Det(Vec2{2, 3}, Vec2{4, 6}) == 0, "parallel vectors have zero determinant")
}

func TestLeftOf(t *testing.T) {
	a := Vec2{0, 0}
	b := Vec2{1, 0}
	assertTrue(t, LeftOf(a, b, Vec2{0.5, 1}) > 0, "point above an eastward line is on its left")
	assertTrue(t, LeftOf(a, b, Vec2{0.5, -1}) < 0, "point below an eastward line is on its right")
	assertTrue(t, LeftOf(a, b, Vec2{3, 0}) == 0, "collinear point")
}

func TestDistSqPointLineSegment(t *testing.T) {
	a := Vec2{0, 0}
	b := Vec2{2, 0}
	assertTrue(t, DistSqPointLineSegment(a, b, Vec2{1, 2}) == 4, "projection inside segment")
	assertTrue(t, DistSqPointLineSegment(a, b, Vec2{-1, 0}) == 1, "closest to first endpoint")
	assertTrue(t, DistSqPointLineSegment(a, b, Vec2{5, 4}) == 25, "closest to second endpoint")
	assertTrue(t, DistSqPointLineSegment(a, a, Vec2{3, 4}) == 25, "degenerate segment")
}

func TestNormalize(t *testing.T) {
	v := Normalize(Vec2{3, 4})
	assertTrue(t, math.Abs(v[0]-0.6) < 1e-12 && math.Abs(v[1]-0.8) < 1e-12, "normalizing reduces magnitude to 1")
	z := Normalize(Vec2{})
	assertTrue(t, z == Vec2{}, "zero vector stays zero")
}

func TestClampLen(t *testing.T) {
	v := ClampLen(Vec2{10, 0}, 5)
	assertTrue(t, v == Vec2{5, 0}, "long vector is clipped")
	v = ClampLen(Vec2{1, 1}, 5)
	assertTrue(t, v == Vec2{1, 1}, "short vector is kept")
}

func TestNextPow2(t *testing.T) {
	assertTrue(t, NextPow2(1) == 1, "1")
	assertTrue(t, NextPow2(3) == 4, "3")
	assertTrue(t, NextPow2(64) == 64, "64")
	assertTrue(t, NextPow2(65) == 128, "65")
}

func TestChunks(t *testing.T) {
	c := Chunks(10, 3)
	assertTrue(t, len(c) == 3, "three chunks")
	assertTrue(t, c[0] == [2]int{0, 4} && c[1] == [2]int{4, 7} && c[2] == [2]int{7, 10}, "chunk bounds")
	assertTrue(t, len(Chunks(2, 8)) == 2, "never more chunks than items")
	assertTrue(t, Chunks(0, 4) == nil, "no items no chunks")
}

func TestRingIndex(t *testing.T) {
	assertTrue(t, Prev(0, 4) == 3, "Prev wraps")
	assertTrue(t, Prev(2, 4) == 1, "Prev")
	assertTrue(t, Next(3, 4) == 0, "Next wraps")
	assertTrue(t, Next(1, 4) == 2, "Next")
}
