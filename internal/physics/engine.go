// Package physics owns the simulation of falling boxes. World configures a
// rigid-body Engine once, keeps the static colliders in step with the
// viewport, and advances the simulation on a fixed timestep. Tests
// substitute a fake Engine.
package physics

import "github.com/isirmt/nextjs-go-admin-portfolio/internal/geom"

// BodyID identifies a body inside one Engine.
type BodyID int

// Shape is a convex polygon in body-local coordinates.
type Shape struct {
	Vertices []geom.Vec2
}

// BoxShape returns an axis-aligned rectangle centred on the body.
func BoxShape(halfW, halfH float64) Shape {
	return Shape{Vertices: []geom.Vec2{
		{X: -halfW, Y: -halfH},
		{X: halfW, Y: -halfH},
		{X: halfW, Y: halfH},
		{X: -halfW, Y: halfH},
	}}
}

// PolygonShape returns a convex polygon from local vertices.
func PolygonShape(vertices ...geom.Vec2) Shape {
	return Shape{Vertices: append([]geom.Vec2(nil), vertices...)}
}

// Material describes contact and damping behaviour.
type Material struct {
	Friction       float64
	Restitution    float64
	LinearDamping  float64
	AngularDamping float64
	Density        float64 // mass per unit area, scaled by Depth
	Depth          float64 // out-of-plane thickness used for mass
}

// BodyDesc describes a body at creation.
type BodyDesc struct {
	Position geom.Vec2
	Angle    float64
	Shape    Shape
	Static   bool
	CanSleep bool
	Material Material
	Label    string
}

// BodyState is a snapshot of one body.
type BodyState struct {
	ID              BodyID
	Position        geom.Vec2
	Angle           float64
	LinearVelocity  geom.Vec2
	AngularVelocity float64
	Sleeping        bool
	Static          bool
	Label           string
}

// Engine is the rigid-body backend. Bodies translate in the XY plane and
// rotate about Z only: Z components of linear inputs and X/Y components of
// angular inputs are ignored.
type Engine interface {
	CreateBody(desc BodyDesc) BodyID
	RemoveBody(id BodyID)
	SetLinearVelocity(id BodyID, v geom.Vec3)
	ApplyImpulse(id BodyID, impulse geom.Vec3)
	ApplyTorqueImpulse(id BodyID, torque geom.Vec3)
	SetAngularVelocity(id BodyID, w geom.Vec3)
	Step(dt float64)
	Body(id BodyID) (BodyState, bool)
}

// Factory creates an Engine with the given gravity.
type Factory func(gravity geom.Vec2) (Engine, error)
