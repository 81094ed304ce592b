// Package spatial holds the uniform hash grid used to find neighbour
// candidates for agents and obstacle edges.
package spatial

import (
	"math"
	"slices"

	"github.com/gorustyt/goorca/common"
)

const (
	nilItem  = -1
	maxCells = 1 << 30
)

type item struct {
	id   int
	x, y int
	next int
}

// Grid is a spatial hash of integer ids. Each id is stored once for every
// cell its bounding box overlaps; buckets chain items through the pool.
type Grid struct {
	invCellSize float64
	pool        []item
	buckets     []int

	bounds [4]int
}

func hashPos2(x, y, n int) int {
	return ((x * 73856093) ^ (y * 19349663)) & (n - 1)
}

// NewGrid creates a grid sized for about poolSize items. Both arguments must
// be positive.
func NewGrid(poolSize int, cellSize float64) *Grid {
	if poolSize <= 0 {
		panic("spatial: pool size must be positive")
	}
	if cellSize <= 0 {
		panic("spatial: cell size must be positive")
	}
	g := &Grid{
		invCellSize: 1.0 / cellSize,
	}
	g.Reset(poolSize)
	return g
}

// Bounds returns the covered cell range as minx, miny, maxx, maxy. An empty
// grid has min > max.
func (g *Grid) Bounds() [4]int { return g.bounds }

func (g *Grid) Len() int { return len(g.pool) }

// Reset clears the grid and resizes the bucket table for poolSize items.
func (g *Grid) Reset(poolSize int) {
	size := int(common.NextPow2(uint32(max(poolSize, 1))))
	if len(g.buckets) != size {
		g.buckets = make([]int, size)
	}
	g.Clear()
}

func (g *Grid) Clear() {
	for i := range g.buckets {
		g.buckets[i] = nilItem
	}
	g.pool = g.pool[:0]
	g.bounds = [4]int{math.MaxInt32, math.MaxInt32, math.MinInt32, math.MinInt32}
}

func (g *Grid) cell(v float64) int {
	return int(common.Clamp(math.Floor(v*g.invCellSize), -maxCells, maxCells))
}

// AddItem stores id in every cell overlapped by the box.
func (g *Grid) AddItem(id int, minx, miny, maxx, maxy float64) {
	iminx, iminy := g.cell(minx), g.cell(miny)
	imaxx, imaxy := g.cell(maxx), g.cell(maxy)

	g.bounds[0] = min(g.bounds[0], iminx)
	g.bounds[1] = min(g.bounds[1], iminy)
	g.bounds[2] = max(g.bounds[2], imaxx)
	g.bounds[3] = max(g.bounds[3], imaxy)

	for y := iminy; y <= imaxy; y++ {
		for x := iminx; x <= imaxx; x++ {
			h := hashPos2(x, y, len(g.buckets))
			g.pool = append(g.pool, item{id: id, x: x, y: y, next: g.buckets[h]})
			g.buckets[h] = len(g.pool) - 1
		}
	}
}

// QueryItems appends to ids every id stored in a cell overlapped by the box,
// each once and in ascending order. The box is clipped to the grid bounds.
func (g *Grid) QueryItems(minx, miny, maxx, maxy float64, ids []int) []int {
	iminx := max(g.cell(minx), g.bounds[0])
	iminy := max(g.cell(miny), g.bounds[1])
	imaxx := min(g.cell(maxx), g.bounds[2])
	imaxy := min(g.cell(maxy), g.bounds[3])

	start := len(ids)
	for y := iminy; y <= imaxy; y++ {
		for x := iminx; x <= imaxx; x++ {
			h := hashPos2(x, y, len(g.buckets))
			for idx := g.buckets[h]; idx != nilItem; idx = g.pool[idx].next {
				it := &g.pool[idx]
				if it.x == x && it.y == y {
					ids = append(ids, it.id)
				}
			}
		}
	}

	found := ids[start:]
	slices.Sort(found)
	return append(ids[:start], slices.Compact(found)...)
}

// ItemCountAt returns the number of items stored in cell (x, y).
func (g *Grid) ItemCountAt(x, y int) int {
	n := 0
	h := hashPos2(x, y, len(g.buckets))
	for idx := g.buckets[h]; idx != nilItem; idx = g.pool[idx].next {
		if g.pool[idx].x == x && g.pool[idx].y == y {
			n++
		}
	}
	return n
}
