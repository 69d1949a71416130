package spawn

import (
	"log"
	"math/rand"
	"time"

	"github.com/isirmt/nextjs-go-admin-portfolio/internal/geom"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRand sets the random source used for box sampling.
func WithRand(rng *rand.Rand) Option {
	return func(s *Scheduler) { s.rng = rng }
}

// WithClock sets the time source used for box ids.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithIDSuffix replaces the random id suffix generator.
func WithIDSuffix(fn func() string) Option {
	return func(s *Scheduler) { s.suffix = fn }
}

// Scheduler creates boxes and hands them to the sink until the population
// cap is reached. It is owned by the UI loop and not safe for concurrent use.
type Scheduler struct {
	limit   int
	sink    func(FallingBox)
	onCap   func()
	rng     *rand.Rand
	now     func() time.Time
	suffix  func() string
	geom    Geometry
	palette Palette
	count   int
	capped  bool
	closed  bool
}

// NewScheduler returns a scheduler that delivers boxes to sink. onCap is
// called once, when the population first reaches limit.
func NewScheduler(limit int, sink func(FallingBox), onCap func(), opts ...Option) *Scheduler {
	s := &Scheduler{
		limit:  limit,
		sink:   sink,
		onCap:  onCap,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
		suffix: randomSuffix,
		geom:   GeometryFor(geom.Viewport{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetViewport recomputes spawn geometry. Existing boxes are unaffected.
func (s *Scheduler) SetViewport(vp geom.Viewport) {
	s.geom = GeometryFor(vp)
}

// Geometry returns the current spawn geometry.
func (s *Scheduler) Geometry() Geometry { return s.geom }

// SetPalette replaces the catalogue used to validate work ids.
func (s *Scheduler) SetPalette(p Palette) {
	s.palette = p
}

// Spawn creates one box for workID. The request is dropped when the cap is
// reached, the scheduler is closed, or workID is not in the catalogue.
func (s *Scheduler) Spawn(workID string) (FallingBox, bool) {
	if s.closed || s.count >= s.limit {
		return FallingBox{}, false
	}
	if !s.palette.Has(workID) {
		log.Printf("spawn: dropping unknown work %q", workID)
		return FallingBox{}, false
	}

	box := newBox(workID, s.geom, s.rng, s.now(), s.suffix())
	s.count++
	if s.sink != nil {
		s.sink(box)
	}

	if s.count >= s.limit && !s.capped {
		s.capped = true
		log.Printf("spawn: population cap %d reached", s.limit)
		if s.onCap != nil {
			s.onCap()
		}
	}
	return box, true
}

// Close stops all further spawns without firing the cap callback.
func (s *Scheduler) Close() { s.closed = true }

// Count returns the number of boxes spawned.
func (s *Scheduler) Count() int { return s.count }

// Limit returns the population cap.
func (s *Scheduler) Limit() int { return s.limit }

// Capped reports whether the cap has been reached.
func (s *Scheduler) Capped() bool { return s.capped }
