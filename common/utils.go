package common

import (
	"github.com/go-gl/mathgl/mgl64"
)

type Vec2 = mgl64.Vec2
type Vec3 = mgl64.Vec3

type IT interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Prev is the index before i in a ring of n elements.
func Prev[T IT](i, n T) T {
	if i-1 >= 0 {
		return i - 1
	}
	return n - 1
}

// Next is the index after i in a ring of n elements.
func Next[T IT](i, n T) T {
	if i+1 < n {
		return i + 1
	}
	return 0
}

// Chunks splits [0,n) into at most parts contiguous half-open ranges of
// near-equal size. Empty ranges are never returned.
func Chunks(n, parts int) [][2]int {
	if n <= 0 {
		return nil
	}
	if parts <= 0 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	res := make([][2]int, 0, parts)
	size := n / parts
	rem := n % parts
	begin := 0
	for i := 0; i < parts; i++ {
		end := begin + size
		if i < rem {
			end++
		}
		res = append(res, [2]int{begin, end})
		begin = end
	}
	return res
}
