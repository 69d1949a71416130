// Package spawn decides when and where falling boxes enter the world. The
// Scheduler turns accepted work clicks into boxes under a population cap and
// the Sampler drives the one-off welcome animation.
package spawn

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/geom"
)

const (
	minBoxSize = 0.5
	maxBoxSize = 1.0

	cornerInset = 1.2 // spawn corner inset, in box sizes
	jitter      = 0.4 // position jitter, in box sizes

	minAngleDeg = 200.0
	maxAngleDeg = 255.0
	minSpeed    = 10.0
)

// FallingBox is one spawned body before the physics world takes ownership
// of its motion. WorkID is a weak reference into the work catalogue.
type FallingBox struct {
	ID            string
	WorkID        string
	Size          float64
	Position      geom.Vec3
	Velocity      geom.Vec3
	Impulse       geom.Vec3
	TorqueImpulse geom.Vec3
	Spin          float64 // angular velocity about z, rad/s
}

// Geometry is the viewport-derived spawn layout.
type Geometry struct {
	BoxSize float64
	Corner  geom.Vec2
}

// GeometryFor derives box size and spawn corner from the viewport. Box size
// is a tenth of the width clamped to [0.5, 1]; an empty viewport gets 1.
func GeometryFor(vp geom.Viewport) Geometry {
	size := maxBoxSize
	if vp.Width > 0 {
		size = geom.Clamp(vp.Width/10, minBoxSize, maxBoxSize)
	}
	return Geometry{
		BoxSize: size,
		Corner: geom.Vec2{
			X: vp.Width/2 - cornerInset*size,
			Y: vp.Height/2 + cornerInset*size,
		},
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// newBox samples a box for workID. Velocity points down and across the
// world, so every box starts falling toward the opposite wall.
func newBox(workID string, g Geometry, rng *rand.Rand, now time.Time, suffix string) FallingBox {
	size := g.BoxSize
	pos := geom.Vec3{
		X: g.Corner.X + uniform(rng, -jitter*size, jitter*size),
		Y: g.Corner.Y + uniform(rng, -jitter*size, jitter*size),
	}

	angle := uniform(rng, minAngleDeg, maxAngleDeg) * math.Pi / 180
	speed := math.Max(minSpeed, size*uniform(rng, 18, 26))
	dir := geom.Vec3{X: math.Cos(angle), Y: math.Sin(angle)}

	return FallingBox{
		ID:            boxID(workID, now, suffix),
		WorkID:        workID,
		Size:          size,
		Position:      pos,
		Velocity:      dir.Scale(speed),
		Impulse:       dir.Scale(speed * uniform(rng, 0.4, 0.7)),
		TorqueImpulse: geom.Vec3{Z: uniform(rng, -3.5, 3.5)},
		Spin:          uniform(rng, -10, 10),
	}
}

func boxID(workID string, now time.Time, suffix string) string {
	return workID + "-" + strconv.FormatInt(now.UnixMilli(), 36) + "-" + suffix
}

// randomSuffix returns six characters of a fresh random UUID.
func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}
