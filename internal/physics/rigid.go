package physics

import (
	"errors"
	"fmt"
	"math"

	"github.com/isirmt/nextjs-go-admin-portfolio/internal/geom"
	"github.com/solarlune/resolv"
)

const (
	tagBody = "body"

	defaultExtent = 64.0 // half-size of the simulated area, in units
	defaultScale  = 8.0  // resolv space pixels per unit
	cellSize      = 16
	maxSpaceCells = 4096
	// broadPad widens resolv bounds on every side. resolv's last covered
	// cell is X+W-1, which otherwise misses touching edges on cell lines.
	broadPad = 1.5

	bounceThreshold = 1.0 // closing speed below which contacts do not bounce
	sleepLinear     = 0.05
	sleepAngular    = 0.05
	sleepDelay      = 0.5 // seconds at rest before a body sleeps
	maxMoveSteps    = 16
)

// EngineOptions tunes the resolv-backed engine. Zero values select defaults.
type EngineOptions struct {
	// Extent is the half-size of the square area with collision coverage.
	// Bodies outside it keep moving but no longer collide.
	Extent float64
	// Scale is the number of resolv space pixels per simulation unit.
	Scale float64
}

type body struct {
	id       BodyID
	label    string
	static   bool
	canSleep bool
	sleeping bool
	idle     float64

	local []geom.Vec2
	world []geom.Vec2
	pos   geom.Vec2
	angle float64

	vel    geom.Vec2
	angVel float64

	invMass    float64
	invInertia float64
	minExtent  float64
	mat        Material

	obj *resolv.Object
}

func (b *body) wake() {
	b.sleeping = false
	b.idle = 0
}

func (b *body) applyAt(impulse, r geom.Vec2) {
	b.vel = b.vel.Add(impulse.Scale(b.invMass))
	b.angVel += r.Cross(impulse) * b.invInertia
}

// velocityAt is the velocity of the material point at offset r.
func (b *body) velocityAt(r geom.Vec2) geom.Vec2 {
	return b.vel.Add(geom.Vec2{X: -b.angVel * r.Y, Y: b.angVel * r.X})
}

// RigidEngine is a small impulse-based 2D rigid-body engine. Broad-phase
// collision uses a resolv.Space; contacts are resolved with a
// separating-axis test on convex polygons.
type RigidEngine struct {
	gravity geom.Vec2
	extent  float64
	scale   float64
	space   *resolv.Space
	bodies  map[BodyID]*body
	order   []*body
	nextID  BodyID
}

// NewRigidEngine creates an engine with the given gravity.
func NewRigidEngine(gravity geom.Vec2, opts EngineOptions) (*RigidEngine, error) {
	if math.IsNaN(gravity.X) || math.IsNaN(gravity.Y) || math.IsInf(gravity.X, 0) || math.IsInf(gravity.Y, 0) {
		return nil, errors.New("gravity must be finite")
	}
	if opts.Extent <= 0 {
		opts.Extent = defaultExtent
	}
	if opts.Scale <= 0 {
		opts.Scale = defaultScale
	}
	size := int(math.Ceil(2 * opts.Extent * opts.Scale))
	if cells := size / cellSize; cells > maxSpaceCells {
		return nil, fmt.Errorf("collision space of %d cells per side exceeds %d", cells, maxSpaceCells)
	}
	return &RigidEngine{
		gravity: gravity,
		extent:  opts.Extent,
		scale:   opts.Scale,
		space:   resolv.NewSpace(size, size, cellSize, cellSize),
		bodies:  make(map[BodyID]*body),
	}, nil
}

// RigidFactory returns a Factory producing RigidEngines.
func RigidFactory(opts EngineOptions) Factory {
	return func(gravity geom.Vec2) (Engine, error) {
		e, err := NewRigidEngine(gravity, opts)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}

func (e *RigidEngine) CreateBody(desc BodyDesc) BodyID {
	e.nextID++
	b := &body{
		id:       e.nextID,
		label:    desc.Label,
		static:   desc.Static,
		canSleep: desc.CanSleep,
		local:    append([]geom.Vec2(nil), desc.Shape.Vertices...),
		pos:      desc.Position,
		angle:    desc.Angle,
		mat:      desc.Material,
	}

	lo, hi := bounds(b.local)
	b.minExtent = math.Min(hi.X-lo.X, hi.Y-lo.Y)
	if !b.static {
		density, depth := desc.Material.Density, desc.Material.Depth
		if density <= 0 {
			density = 1
		}
		if depth <= 0 {
			depth = 1
		}
		mass := density * depth * area(b.local)
		if mass > 0 {
			b.invMass = 1 / mass
			if i := mass * inertia(b.local); i > 0 {
				b.invInertia = 1 / i
			}
		}
	}

	b.obj = resolv.NewObject(0, 0, 1, 1, tagBody)
	b.obj.Data = b
	e.space.Add(b.obj)
	e.sync(b)

	e.bodies[b.id] = b
	e.order = append(e.order, b)
	return b.id
}

func (e *RigidEngine) RemoveBody(id BodyID) {
	b, ok := e.bodies[id]
	if !ok {
		return
	}
	e.space.Remove(b.obj)
	delete(e.bodies, id)
	for i, o := range e.order {
		if o == b {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	// Bodies resting on a removed collider must fall again.
	for _, o := range e.order {
		o.wake()
	}
}

func (e *RigidEngine) dynamic(id BodyID) *body {
	b, ok := e.bodies[id]
	if !ok || b.static {
		return nil
	}
	return b
}

func (e *RigidEngine) SetLinearVelocity(id BodyID, v geom.Vec3) {
	if b := e.dynamic(id); b != nil {
		b.vel = v.XY()
		b.wake()
	}
}

func (e *RigidEngine) ApplyImpulse(id BodyID, impulse geom.Vec3) {
	if b := e.dynamic(id); b != nil {
		b.vel = b.vel.Add(impulse.XY().Scale(b.invMass))
		b.wake()
	}
}

func (e *RigidEngine) ApplyTorqueImpulse(id BodyID, torque geom.Vec3) {
	if b := e.dynamic(id); b != nil {
		b.angVel += torque.Z * b.invInertia
		b.wake()
	}
}

func (e *RigidEngine) SetAngularVelocity(id BodyID, w geom.Vec3) {
	if b := e.dynamic(id); b != nil {
		b.angVel = w.Z
		b.wake()
	}
}

func (e *RigidEngine) Body(id BodyID) (BodyState, bool) {
	b, ok := e.bodies[id]
	if !ok {
		return BodyState{}, false
	}
	return BodyState{
		ID:              b.id,
		Position:        b.pos,
		Angle:           b.angle,
		LinearVelocity:  b.vel,
		AngularVelocity: b.angVel,
		Sleeping:        b.sleeping,
		Static:          b.static,
		Label:           b.label,
	}, true
}

// Step advances the simulation by dt seconds. Fast bodies are moved in
// several sub-moves so they cannot pass through thin colliders.
func (e *RigidEngine) Step(dt float64) {
	if dt <= 0 {
		return
	}

	moves := 1
	for _, b := range e.order {
		if b.static || b.sleeping {
			continue
		}
		b.vel = b.vel.Add(e.gravity.Scale(dt)).Scale(1 / (1 + dt*b.mat.LinearDamping))
		b.angVel /= 1 + dt*b.mat.AngularDamping
		if b.minExtent > 0 {
			n := int(math.Ceil(b.vel.Len() * dt / (0.25 * b.minExtent)))
			moves = max(moves, n)
		}
	}
	moves = min(moves, maxMoveSteps)

	h := dt / float64(moves)
	for i := 0; i < moves; i++ {
		for _, b := range e.order {
			if b.static || b.sleeping {
				continue
			}
			b.pos = b.pos.Add(b.vel.Scale(h))
			b.angle += b.angVel * h
			e.sync(b)
		}
		e.resolve()
	}

	for _, b := range e.order {
		if b.static || b.sleeping || !b.canSleep {
			continue
		}
		if b.vel.Len() < sleepLinear && math.Abs(b.angVel) < sleepAngular {
			b.idle += dt
			if b.idle >= sleepDelay {
				b.sleeping = true
				b.vel = geom.Vec2{}
				b.angVel = 0
			}
		} else {
			b.idle = 0
		}
	}
}

func (e *RigidEngine) resolve() {
	for _, a := range e.order {
		if a.static || a.sleeping {
			continue
		}
		coll := a.obj.Check(0, 0, tagBody)
		if coll == nil {
			continue
		}
		for _, o := range coll.Objects {
			b, ok := o.Data.(*body)
			if !ok || b == a {
				continue
			}
			// Awake dynamic pairs are handled once, from the lower id.
			if !b.static && !b.sleeping && b.id < a.id {
				continue
			}
			if c, hit := collide(a.world, b.world); hit {
				e.respond(a, b, c)
			}
		}
	}
}

func (e *RigidEngine) respond(a, b *body, c contact) {
	n := c.Normal
	closing := a.velocityAt(c.Point.Sub(a.pos)).Sub(b.velocityAt(c.Point.Sub(b.pos))).Dot(n)
	if b.sleeping && -closing > bounceThreshold {
		b.wake()
	}

	// A sleeping body stays put and behaves like a static one.
	bInvMass, bInvInertia := b.invMass, b.invInertia
	if b.sleeping {
		bInvMass, bInvInertia = 0, 0
	}
	invSum := a.invMass + bInvMass
	if invSum == 0 {
		return
	}

	if push := c.Depth - contactSlop; push > 0 {
		a.pos = a.pos.Add(n.Scale(push * a.invMass / invSum))
		e.sync(a)
		if bInvMass > 0 {
			b.pos = b.pos.Sub(n.Scale(push * bInvMass / invSum))
			e.sync(b)
		}
	}

	ra, rb := c.Point.Sub(a.pos), c.Point.Sub(b.pos)
	rel := a.velocityAt(ra).Sub(b.velocityAt(rb))
	vn := rel.Dot(n)
	if vn >= 0 {
		return
	}

	restitution := (a.mat.Restitution + b.mat.Restitution) / 2
	if -vn < bounceThreshold {
		restitution = 0
	}
	raN, rbN := ra.Cross(n), rb.Cross(n)
	k := invSum + raN*raN*a.invInertia + rbN*rbN*bInvInertia
	j := -(1 + restitution) * vn / k
	a.applyAt(n.Scale(j), ra)
	if bInvMass > 0 {
		b.applyAt(n.Scale(-j), rb)
	}

	rel = a.velocityAt(ra).Sub(b.velocityAt(rb))
	tangent := rel.Sub(n.Scale(rel.Dot(n)))
	if l := tangent.Len(); l > 1e-9 {
		t := tangent.Scale(1 / l)
		raT, rbT := ra.Cross(t), rb.Cross(t)
		kt := invSum + raT*raT*a.invInertia + rbT*rbT*bInvInertia
		jt := -rel.Dot(t) / kt
		mu := (a.mat.Friction + b.mat.Friction) / 2
		jt = geom.Clamp(jt, -mu*j, mu*j)
		a.applyAt(t.Scale(jt), ra)
		if bInvMass > 0 {
			b.applyAt(t.Scale(-jt), rb)
		}
	}
}

// sync refreshes a body's world polygon and its resolv bounds. resolv
// space has y pointing down with the origin at the top-left corner.
func (e *RigidEngine) sync(b *body) {
	b.world = transform(b.local, b.pos, b.angle)
	lo, hi := bounds(b.world)
	b.obj.X = (lo.X+e.extent)*e.scale - broadPad
	b.obj.Y = (e.extent-hi.Y)*e.scale - broadPad
	b.obj.W = (hi.X-lo.X)*e.scale + 2*broadPad + 1
	b.obj.H = (hi.Y-lo.Y)*e.scale + 2*broadPad + 1
	b.obj.Update()
}
