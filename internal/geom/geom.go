// Package geom holds the small vector and viewport types shared by the
// spawner, the physics world and the renderer.
package geom

import "math"

// Vec2 is a point or direction in the simulation plane. Y points up.
type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Dot(o Vec2) float64   { return v.X*o.X + v.Y*o.Y }
func (v Vec2) Len() float64         { return math.Hypot(v.X, v.Y) }
func (v Vec2) Vec3() Vec3           { return Vec3{X: v.X, Y: v.Y} }
func (v Vec2) Cross(o Vec2) float64 { return v.X*o.Y - v.Y*o.X }
func (v Vec2) Perp() Vec2           { return Vec2{-v.Y, v.X} }
func (v Vec2) Equal(o Vec2) bool    { return v.X == o.X && v.Y == o.Y }
func (v Vec2) Rotate(rad float64) Vec2 {
	s, c := math.Sincos(rad)
	return Vec2{v.X*c - v.Y*s, v.X*s + v.Y*c}
}

// Vec3 carries the third component the wire model and the body kick use.
// The world is planar, so Z is ignored for translation and only Z matters
// for rotation.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) XY() Vec2             { return Vec2{v.X, v.Y} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Viewport is the visible area in simulation units, centred on the origin.
// PixelToWorld converts one screen pixel (one terminal row) to units.
type Viewport struct {
	Width        float64
	Height       float64
	PixelToWorld float64
}

// Valid reports whether the viewport has a usable area.
func (vp Viewport) Valid() bool {
	return vp.Width > 0 && vp.Height > 0
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
