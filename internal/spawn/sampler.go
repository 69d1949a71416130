package spawn

import "math/rand"

// Sampler is the idle welcome animation: once the catalogue is first
// non-empty it yields a random work per tick, a fixed number of times.
// Tick timing is left to the caller.
type Sampler struct {
	total     int
	remaining int
	started   bool
	rng       *rand.Rand
}

// NewSampler returns a sampler that yields count works.
func NewSampler(count int, rng *rand.Rand) *Sampler {
	return &Sampler{total: count, rng: rng}
}

// Start arms the sampler. It returns true only on the first call made with
// a non-empty palette; later calls are no-ops.
func (s *Sampler) Start(p Palette) bool {
	if s.started || p.Len() == 0 || s.total <= 0 {
		return false
	}
	s.started = true
	s.remaining = s.total
	return true
}

// Tick picks a uniformly random work from p. ok is false once the sampler
// is exhausted or stopped. An empty palette consumes the tick without a pick.
func (s *Sampler) Tick(p Palette) (workID string, ok bool) {
	if s.remaining <= 0 {
		return "", false
	}
	s.remaining--
	if p.Len() == 0 {
		return "", false
	}
	return p.At(s.rng.Intn(p.Len())), true
}

// Active reports whether more ticks are due.
func (s *Sampler) Active() bool { return s.remaining > 0 }

// Stop cancels the remaining ticks.
func (s *Sampler) Stop() { s.remaining = 0 }
