// Package mock drives the feed server with synthetic visitor clicks so the
// world can be exercised without a browser.
package mock

import (
	"context"
	"log"
	"math/rand"
	"time"
)

// Clicker records and broadcasts a click on a work.
type Clicker interface {
	Click(workID string) (uint64, error)
}

// Catalog lists the work ids clicks are drawn from.
type Catalog interface {
	IDs() []string
}

// Every burstEvery ticks a visitor clicks through several works at once.
const (
	burstEvery = 7
	burstSize  = 3
)

type Generator struct {
	catalog  Catalog
	clicker  Clicker
	interval time.Duration
	rng      *rand.Rand
	tick     int
}

func NewGenerator(catalog Catalog, clicker Clicker, interval time.Duration) *Generator {
	if interval <= 0 {
		interval = 4 * time.Second
	}
	return &Generator{
		catalog:  catalog,
		clicker:  clicker,
		interval: interval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start launches the click loop. It returns immediately; the loop stops
// when ctx is cancelled.
func (g *Generator) Start(ctx context.Context) {
	go g.run(ctx)
}

func (g *Generator) run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Tick()
		}
	}
}

// Tick emits one round of clicks and returns the work ids that were
// broadcast.
func (g *Generator) Tick() []string {
	g.tick++
	n := 1
	if g.tick%burstEvery == 0 {
		n = burstSize
	}

	var sent []string
	for i := 0; i < n; i++ {
		id, ok := g.pick()
		if !ok {
			return sent
		}
		seq, err := g.clicker.Click(id)
		if err != nil {
			log.Printf("mock click %s: %v", id, err)
			continue
		}
		log.Printf("mock click %s (seq %d)", id, seq)
		sent = append(sent, id)
	}
	return sent
}

func (g *Generator) pick() (string, bool) {
	ids := g.catalog.IDs()
	if len(ids) == 0 {
		return "", false
	}
	return ids[g.rng.Intn(len(ids))], true
}
