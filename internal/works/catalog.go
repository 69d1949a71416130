// Package works holds the feed server's work catalogue, per-work click
// counts and the per-visitor click limiter.
package works

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ErrUnknownWork is returned for ids missing from the catalogue.
var ErrUnknownWork = errors.New("unknown work")

// Work is one catalogue entry as served by GET /api/works.
type Work struct {
	ID          string  `yaml:"id" json:"id"`
	Title       string  `yaml:"title" json:"title"`
	Comment     string  `yaml:"comment" json:"comment"`
	Description *string `yaml:"description" json:"description"`
	AccentColor string  `yaml:"accent_color" json:"accent_color"`
	CreatedAt   string  `yaml:"created_at" json:"created_at,omitempty"`
	Clicks      uint64  `yaml:"-" json:"clicks"`
}

// Catalog is the set of known works. It is safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	order  []string
	works  map[string]Work
	clicks map[string]uint64
}

// New validates works and builds a catalogue. Ids must be unique and
// non-empty, titles non-empty, and accent colors #rrggbb.
func New(list []Work) (*Catalog, error) {
	c := &Catalog{
		works:  make(map[string]Work, len(list)),
		clicks: make(map[string]uint64, len(list)),
	}
	for i, w := range list {
		w.ID = strings.TrimSpace(w.ID)
		w.Title = strings.TrimSpace(w.Title)
		if w.ID == "" {
			return nil, fmt.Errorf("work %d: id is required", i)
		}
		if _, dup := c.works[w.ID]; dup {
			return nil, fmt.Errorf("work %q: duplicate id", w.ID)
		}
		if w.Title == "" {
			return nil, fmt.Errorf("work %q: title is required", w.ID)
		}
		if !hexColorPattern.MatchString(w.AccentColor) {
			return nil, fmt.Errorf("work %q: accent_color %q must be #rrggbb", w.ID, w.AccentColor)
		}
		c.order = append(c.order, w.ID)
		c.works[w.ID] = w
	}
	return c, nil
}

// Load reads a yaml list of works from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list []Work
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	c, err := New(list)
	if err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return c, nil
}

// List returns every work in file order with its current click count.
func (c *Catalog) List() []Work {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Work, 0, len(c.order))
	for _, id := range c.order {
		w := c.works[id]
		w.Clicks = c.clicks[id]
		out = append(out, w)
	}
	return out
}

// IDs returns the work ids in file order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Get returns the work with id.
func (c *Catalog) Get(id string) (Work, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.works[id]
	if ok {
		w.Clicks = c.clicks[id]
	}
	return w, ok
}

// RecordClick increments the click count of id and returns the new total.
func (c *Catalog) RecordClick(id string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.works[id]; !ok {
		return 0, ErrUnknownWork
	}
	c.clicks[id]++
	return c.clicks[id], nil
}

// Len returns the number of works.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Counts returns a snapshot of the click count of every work.
func (c *Catalog) Counts() map[string]uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]uint64, len(c.clicks))
	for id, n := range c.clicks {
		out[id] = n
	}
	return out
}

// Restore seeds click counts, typically from a CountStore. Counts for ids
// missing from the catalogue are ignored and their number returned.
func (c *Catalog) Restore(counts map[string]uint64) (skipped int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, n := range counts {
		if _, ok := c.works[id]; !ok {
			skipped++
			continue
		}
		c.clicks[id] = n
	}
	return skipped
}
