// Package raycast projects 3D rays onto the simulation plane and tests them
// against obstacle edges.
package raycast

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gorustyt/goorca/common"
	"github.com/gorustyt/goorca/orca"
)

// AxisPair names the two world axes that span the simulation plane.
type AxisPair int

const (
	XY AxisPair = iota // z is the baseline
	XZ                 // y is the baseline
)

func (p AxisPair) String() string {
	switch p {
	case XY:
		return "xy"
	case XZ:
		return "xz"
	}
	return fmt.Sprintf("AxisPair(%d)", int(p))
}

// ParseAxisPair is the inverse of AxisPair.String.
func ParseAxisPair(s string) (AxisPair, error) {
	switch s {
	case "xy", "XY":
		return XY, nil
	case "xz", "XZ":
		return XZ, nil
	}
	return 0, fmt.Errorf("unknown axis pair %q", s)
}

// Ray is a world space query. Distance is the maximum length checked.
type Ray struct {
	Origin      common.Vec3
	Dir         common.Vec3
	Distance    float64
	LayerIgnore uint32
	TwoSided    bool
}

// RaycastData is a Ray flattened onto the simulation plane. Baseline keeps
// the dropped coordinate so results can be lifted back into the world.
type RaycastData struct {
	Position      common.Vec2
	Direction     common.Vec2
	Distance      float64
	WorldPosition common.Vec3
	WorldDir      common.Vec3
	Baseline      float64
	LayerIgnore   uint32
	TwoSided      bool
}

func project(plane AxisPair, r *Ray) RaycastData {
	d := RaycastData{
		Distance:      r.Distance,
		WorldPosition: r.Origin,
		WorldDir:      r.Dir,
		LayerIgnore:   r.LayerIgnore,
		TwoSided:      r.TwoSided,
	}
	if plane == XY {
		d.Position = common.Vec2{r.Origin[0], r.Origin[1]}
		d.Direction = common.Vec2{r.Dir[0], r.Dir[1]}
		d.Baseline = r.Origin[2]
	} else {
		d.Position = common.Vec2{r.Origin[0], r.Origin[2]}
		d.Direction = common.Vec2{r.Dir[0], r.Dir[2]}
		d.Baseline = r.Origin[1]
	}
	return d
}

// Provider projects batches of rays. The output buffer is owned by the
// provider and overwritten by the next Project call.
type Provider struct {
	Plane   AxisPair
	Workers int

	out []RaycastData
}

// Project returns one RaycastData per ray, in input order.
func (p *Provider) Project(ctx context.Context, rays []Ray) ([]RaycastData, error) {
	if cap(p.out) < len(rays) {
		p.out = make([]RaycastData, len(rays))
	}
	p.out = p.out[:len(rays)]

	workers := max(p.Workers, 1)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, r := range common.Chunks(len(rays), workers) {
		lo, hi := r[0], r[1]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				p.out[i] = project(p.Plane, &rays[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return p.out, nil
}

// Hit is the nearest obstacle edge crossed by a ray.
type Hit struct {
	Edge     int
	Point    common.Vec2
	Distance float64 // from the ray origin
}

// FirstHit finds the closest edge of set crossed by r within r.Distance.
// Edges on an ignored layer are skipped, as are edges seen from behind
// unless the ray is two-sided.
func FirstHit(r *RaycastData, set *orca.ObstacleSet) (Hit, bool) {
	dir := common.Normalize(r.Direction)
	if dir == (common.Vec2{}) || r.Distance <= 0 {
		return Hit{}, false
	}
	u := dir.Mul(r.Distance)

	best := Hit{Edge: -1}
	tmin := 2.0
	for _, e := range set.Edges() {
		if e.Layer&r.LayerIgnore != 0 {
			continue
		}
		p, q := set.Segment(e.ID)
		if !r.TwoSided && common.LeftOf(p, q, r.Position) >= 0 {
			continue
		}
		t, ok := isectRaySeg(r.Position, u, p, q)
		if !ok || t >= tmin {
			continue
		}
		tmin = t
		best = Hit{Edge: e.ID, Point: r.Position.Add(u.Mul(t)), Distance: t * r.Distance}
	}
	return best, best.Edge >= 0
}

// isectRaySeg intersects ap + t*u, t in [0,1], with the segment bp-bq.
func isectRaySeg(ap, u, bp, bq common.Vec2) (float64, bool) {
	v := bq.Sub(bp)
	w := ap.Sub(bp)
	d := common.Det(u, v)
	if common.Abs(d) < 1e-12 {
		return 0, false
	}
	d = 1.0 / d
	t := common.Det(v, w) * d
	if t < 0 || t > 1 {
		return 0, false
	}
	s := common.Det(u, w) * d
	if s < 0 || s > 1 {
		return 0, false
	}
	return t, true
}
