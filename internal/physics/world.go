package physics

import (
	"log"
	"math"
	"time"

	"github.com/isirmt/nextjs-go-admin-portfolio/internal/geom"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/spawn"
)

const (
	wallRatio    = 0.6 // visible floor and wall thickness, in box sizes
	minThickness = 2.0 // colliders extend this far out of view at least
	ceilingRoom  = 3.0 // ceiling height above the viewport top, in box sizes
	minDepth     = 0.25
	depthRate    = 0.4
)

var (
	boxMaterial = Material{
		Friction:       0.6,
		Restitution:    0.7,
		LinearDamping:  0.2,
		AngularDamping: 0.15,
		Density:        1,
	}
	staticMaterial = Material{
		Friction:    0,
		Restitution: 0.7,
	}
)

// Config is the fixed world configuration.
type Config struct {
	Gravity     float64       // vertical acceleration, negative is down
	Timestep    time.Duration // fixed simulation step
	MaxSubsteps int           // steps allowed per Advance call
	FloorOffset float64       // floor height above the viewport bottom, in pixels
	RampSize    float64       // ramp leg length, in pixels
}

// ColliderKind names a static collider.
type ColliderKind int

const (
	Floor ColliderKind = iota
	LeftWall
	RightWall
	Ramp
	Ceiling
)

func (k ColliderKind) String() string {
	switch k {
	case Floor:
		return "floor"
	case LeftWall:
		return "left wall"
	case RightWall:
		return "right wall"
	case Ramp:
		return "ramp"
	case Ceiling:
		return "ceiling"
	default:
		return "unknown"
	}
}

// Collider is a static collider in world coordinates.
type Collider struct {
	Kind     ColliderKind
	ID       BodyID
	Position geom.Vec2
	Vertices []geom.Vec2
}

type boxBody struct {
	id     string
	workID string
	size   float64
	body   BodyID
}

// BoxState is a render snapshot of one falling box.
type BoxState struct {
	ID       string
	WorkID   string
	Size     float64
	Position geom.Vec2
	Angle    float64
	Sleeping bool
	Vertices []geom.Vec2
}

// World owns the simulation of all falling boxes. Boxes are never removed.
// When the engine failed to start, every method is a no-op.
type World struct {
	cfg       Config
	engine    Engine
	acc       time.Duration
	boxes     []boxBody
	colliders []Collider
}

// NewWorld configures the world once. A nil factory, a factory error or a
// nil engine leaves the world unavailable instead of failing.
func NewWorld(cfg Config, factory Factory) *World {
	if cfg.Timestep <= 0 {
		cfg.Timestep = time.Second / 60
	}
	if cfg.MaxSubsteps <= 0 {
		cfg.MaxSubsteps = 1
	}
	w := &World{cfg: cfg}
	if factory == nil {
		log.Printf("physics: no engine configured, world disabled")
		return w
	}
	engine, err := factory(geom.Vec2{Y: cfg.Gravity})
	if err != nil {
		log.Printf("physics: engine unavailable, world disabled: %v", err)
		return w
	}
	if engine == nil {
		log.Printf("physics: engine factory returned nothing, world disabled")
		return w
	}
	w.engine = engine
	return w
}

// Available reports whether the world simulates anything.
func (w *World) Available() bool {
	return w.engine != nil
}

// Resize rebuilds the floor, walls, ramp and ceiling for a new viewport.
// The inner faces of the floor and walls sit on the viewport edges; their
// bulk and the ceiling lie out of view. The walls run from under the floor
// to the ceiling, which sits above the spawn corner, so no box can leave.
func (w *World) Resize(vp geom.Viewport, boxSize float64) {
	if !w.Available() || !vp.Valid() {
		return
	}
	for _, c := range w.colliders {
		w.engine.RemoveBody(c.ID)
	}
	w.colliders = w.colliders[:0]

	thickness := math.Max(wallRatio*boxSize, minThickness)
	floorY := -vp.Height/2 + w.cfg.FloorOffset*vp.PixelToWorld
	ceilingY := vp.Height/2 + ceilingRoom*boxSize
	rightX := vp.Width / 2

	bottom, top := floorY-thickness, ceilingY+thickness
	wallY, wallHalf := (bottom+top)/2, (top-bottom)/2

	w.addCollider(Floor, geom.Vec2{Y: floorY - thickness/2}, BoxShape(vp.Width/2, thickness/2))
	w.addCollider(LeftWall, geom.Vec2{X: -rightX - thickness/2, Y: wallY}, BoxShape(thickness/2, wallHalf))
	w.addCollider(RightWall, geom.Vec2{X: rightX + thickness/2, Y: wallY}, BoxShape(thickness/2, wallHalf))

	if leg := w.cfg.RampSize * vp.PixelToWorld; leg > 0 {
		w.addCollider(Ramp, geom.Vec2{X: rightX, Y: floorY}, PolygonShape(
			geom.Vec2{},
			geom.Vec2{X: -leg},
			geom.Vec2{Y: leg},
		))
	}
	w.addCollider(Ceiling, geom.Vec2{Y: ceilingY + thickness/2}, BoxShape(rightX+thickness, thickness/2))
}

func (w *World) addCollider(kind ColliderKind, pos geom.Vec2, shape Shape) {
	id := w.engine.CreateBody(BodyDesc{
		Position: pos,
		Shape:    shape,
		Static:   true,
		Material: staticMaterial,
		Label:    kind.String(),
	})
	w.colliders = append(w.colliders, Collider{
		Kind:     kind,
		ID:       id,
		Position: pos,
		Vertices: transform(shape.Vertices, pos, 0),
	})
}

// Add creates the body for box and applies its one-time kick: velocity,
// then impulse, then torque impulse, then angular velocity.
func (w *World) Add(box spawn.FallingBox) {
	if !w.Available() {
		return
	}
	mat := boxMaterial
	mat.Depth = math.Max(minDepth, depthRate*box.Size)

	half := box.Size / 2
	id := w.engine.CreateBody(BodyDesc{
		Position: box.Position.XY(),
		Shape:    BoxShape(half, half),
		CanSleep: true,
		Material: mat,
		Label:    box.ID,
	})
	w.engine.SetLinearVelocity(id, box.Velocity)
	w.engine.ApplyImpulse(id, box.Impulse)
	w.engine.ApplyTorqueImpulse(id, box.TorqueImpulse)
	w.engine.SetAngularVelocity(id, geom.Vec3{Z: box.Spin})

	w.boxes = append(w.boxes, boxBody{id: box.ID, workID: box.WorkID, size: box.Size, body: id})
}

// Advance runs as many fixed steps as elapsed covers, up to MaxSubsteps.
// Time beyond that is dropped so a stalled frame does not cause a burst.
func (w *World) Advance(elapsed time.Duration) int {
	if !w.Available() || elapsed <= 0 {
		return 0
	}
	w.acc += elapsed
	dt := w.cfg.Timestep.Seconds()
	steps := 0
	for w.acc >= w.cfg.Timestep && steps < w.cfg.MaxSubsteps {
		w.engine.Step(dt)
		w.acc -= w.cfg.Timestep
		steps++
	}
	if w.acc >= w.cfg.Timestep {
		w.acc %= w.cfg.Timestep
	}
	return steps
}

// Boxes returns a snapshot of every box in spawn order.
func (w *World) Boxes() []BoxState {
	if !w.Available() {
		return nil
	}
	out := make([]BoxState, 0, len(w.boxes))
	for _, b := range w.boxes {
		st, ok := w.engine.Body(b.body)
		if !ok {
			continue
		}
		half := b.size / 2
		out = append(out, BoxState{
			ID:       b.id,
			WorkID:   b.workID,
			Size:     b.size,
			Position: st.Position,
			Angle:    st.Angle,
			Sleeping: st.Sleeping,
			Vertices: transform(BoxShape(half, half).Vertices, st.Position, st.Angle),
		})
	}
	return out
}

// Colliders returns the current static colliders.
func (w *World) Colliders() []Collider {
	return append([]Collider(nil), w.colliders...)
}

// Len returns the number of boxes in the world.
func (w *World) Len() int {
	return len(w.boxes)
}
