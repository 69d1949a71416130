// Package render draws the world into a terminal grid. The orthographic
// Camera maps simulation units to cells; Render and Pick only read world
// state and never mutate it.
package render

import (
	"math"

	"github.com/isirmt/nextjs-go-admin-portfolio/internal/geom"
)

// Camera is an orthographic camera centred on the world origin. Zoom is
// columns per unit; terminal cells are about twice as tall as wide, so a
// unit spans Zoom/2 rows.
type Camera struct {
	Cols int
	Rows int
	Zoom float64
}

// NewCamera returns a camera with the given zoom and no area yet.
func NewCamera(zoom float64) Camera {
	if zoom <= 0 {
		zoom = 8
	}
	return Camera{Zoom: zoom}
}

// Resize sets the drawable area in cells.
func (c *Camera) Resize(cols, rows int) {
	c.Cols = max(cols, 0)
	c.Rows = max(rows, 0)
}

func (c Camera) rowsPerUnit() float64 { return c.Zoom / 2 }

// Viewport reports the visible area in world units. One pixel is one row.
func (c Camera) Viewport() geom.Viewport {
	if c.Cols == 0 || c.Rows == 0 {
		return geom.Viewport{}
	}
	return geom.Viewport{
		Width:        float64(c.Cols) / c.Zoom,
		Height:       float64(c.Rows) / c.rowsPerUnit(),
		PixelToWorld: 1 / c.rowsPerUnit(),
	}
}

// Project maps a world point to fractional cell coordinates.
func (c Camera) Project(p geom.Vec2) (col, row float64) {
	col = float64(c.Cols)/2 + p.X*c.Zoom
	row = float64(c.Rows)/2 - p.Y*c.rowsPerUnit()
	return col, row
}

// Unproject maps the centre of a cell back to world coordinates.
func (c Camera) Unproject(col, row int) geom.Vec2 {
	return geom.Vec2{
		X: (float64(col) + 0.5 - float64(c.Cols)/2) / c.Zoom,
		Y: (float64(c.Rows)/2 - float64(row) - 0.5) / c.rowsPerUnit(),
	}
}

// cellBounds returns the inclusive cell range covering poly, clipped to
// the camera.
func (c Camera) cellBounds(poly []geom.Vec2) (c0, r0, c1, r1 int) {
	minC, minR := math.Inf(1), math.Inf(1)
	maxC, maxR := math.Inf(-1), math.Inf(-1)
	for _, v := range poly {
		col, row := c.Project(v)
		minC, maxC = math.Min(minC, col), math.Max(maxC, col)
		minR, maxR = math.Min(minR, row), math.Max(maxR, row)
	}
	c0 = max(int(math.Floor(minC)), 0)
	r0 = max(int(math.Floor(minR)), 0)
	c1 = min(int(math.Ceil(maxC)), c.Cols-1)
	r1 = min(int(math.Ceil(maxR)), c.Rows-1)
	return c0, r0, c1, r1
}

// contains reports whether p lies inside the convex polygon, in either
// winding.
func contains(poly []geom.Vec2, p geom.Vec2) bool {
	if len(poly) < 3 {
		return false
	}
	var sign float64
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		cross := b.Sub(a).Cross(p.Sub(a))
		if cross == 0 {
			continue
		}
		if sign == 0 {
			sign = cross
			continue
		}
		if (cross > 0) != (sign > 0) {
			return false
		}
	}
	return true
}
