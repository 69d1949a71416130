package physics

import (
	"math"

	"github.com/isirmt/nextjs-go-admin-portfolio/internal/geom"
)

const contactSlop = 1e-3

// contact is the result of a polygon overlap test. Normal points from b
// toward a; moving a by Normal*Depth separates the pair.
type contact struct {
	Normal geom.Vec2
	Depth  float64
	Point  geom.Vec2
}

// collide runs a separating-axis test on two convex polygons.
func collide(a, b []geom.Vec2) (contact, bool) {
	best := contact{Depth: math.Inf(1)}
	for _, poly := range [][]geom.Vec2{a, b} {
		for i := range poly {
			edge := poly[(i+1)%len(poly)].Sub(poly[i])
			l := edge.Len()
			if l == 0 {
				continue
			}
			axis := edge.Perp().Scale(1 / l)
			minA, maxA := project(a, axis)
			minB, maxB := project(b, axis)
			overlap := math.Min(maxA, maxB) - math.Max(minA, minB)
			if overlap <= 0 {
				return contact{}, false
			}
			if overlap < best.Depth {
				best.Depth = overlap
				best.Normal = axis
			}
		}
	}
	if centroid(a).Sub(centroid(b)).Dot(best.Normal) < 0 {
		best.Normal = best.Normal.Scale(-1)
	}
	best.Point = contactPoint(a, b, best.Normal)
	return best, true
}

func project(poly []geom.Vec2, axis geom.Vec2) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range poly {
		p := v.Dot(axis)
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	return lo, hi
}

func centroid(poly []geom.Vec2) geom.Vec2 {
	var c geom.Vec2
	for _, v := range poly {
		c = c.Add(v)
	}
	return c.Scale(1 / float64(len(poly)))
}

// contactPoint returns the deepest point of the overlap. A lone vertex of
// either polygon wins; face against face uses the middle of the shared span.
func contactPoint(a, b []geom.Vec2, n geom.Vec2) geom.Vec2 {
	deepA := extreme(a, n.Scale(-1))
	deepB := extreme(b, n)
	switch {
	case len(deepA) == 1 && len(deepB) == 1:
		return deepA[0].Add(deepB[0]).Scale(0.5)
	case len(deepA) == 1:
		return deepA[0]
	case len(deepB) == 1:
		return deepB[0]
	}
	t := n.Perp()
	loA, hiA := project(deepA, t)
	loB, hiB := project(deepB, t)
	mid := (math.Max(loA, loB) + math.Min(hiA, hiB)) / 2
	return t.Scale(mid).Add(n.Scale(deepA[0].Dot(n)))
}

// extreme returns the vertices furthest along dir, within contactSlop.
func extreme(poly []geom.Vec2, dir geom.Vec2) []geom.Vec2 {
	best := math.Inf(-1)
	for _, v := range poly {
		best = math.Max(best, v.Dot(dir))
	}
	var out []geom.Vec2
	for _, v := range poly {
		if best-v.Dot(dir) <= contactSlop {
			out = append(out, v)
		}
	}
	return out
}

// bounds returns the axis-aligned bounds of a polygon.
func bounds(poly []geom.Vec2) (lo, hi geom.Vec2) {
	lo = geom.Vec2{X: math.Inf(1), Y: math.Inf(1)}
	hi = geom.Vec2{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, v := range poly {
		lo.X, lo.Y = math.Min(lo.X, v.X), math.Min(lo.Y, v.Y)
		hi.X, hi.Y = math.Max(hi.X, v.X), math.Max(hi.Y, v.Y)
	}
	return lo, hi
}

// transform places local vertices at pos rotated by angle.
func transform(local []geom.Vec2, pos geom.Vec2, angle float64) []geom.Vec2 {
	out := make([]geom.Vec2, len(local))
	for i, v := range local {
		out[i] = v.Rotate(angle).Add(pos)
	}
	return out
}

// area returns the polygon area regardless of winding.
func area(poly []geom.Vec2) float64 {
	var s float64
	for i := range poly {
		s += poly[i].Cross(poly[(i+1)%len(poly)])
	}
	return math.Abs(s) / 2
}

// inertia returns the polar moment of a convex polygon about its local
// origin per unit mass.
func inertia(poly []geom.Vec2) float64 {
	var num, den float64
	for i := range poly {
		p, q := poly[i], poly[(i+1)%len(poly)]
		c := math.Abs(p.Cross(q))
		num += c * (p.Dot(p) + p.Dot(q) + q.Dot(q))
		den += c
	}
	if den == 0 {
		return 0
	}
	return num / (6 * den)
}
