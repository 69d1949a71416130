package spawn

import "github.com/isirmt/nextjs-go-admin-portfolio/internal/client"

// Palette maps work ids to accent colours. It is never mutated after
// construction; a changed catalogue produces a new Palette.
type Palette struct {
	ids    []string
	colors map[string]string
	titles map[string]string
}

// NewPalette builds a palette from the catalogue, keeping catalogue order.
// Later duplicates of an id replace earlier colours but keep one slot.
func NewPalette(works []client.Work) Palette {
	p := Palette{
		ids:    make([]string, 0, len(works)),
		colors: make(map[string]string, len(works)),
		titles: make(map[string]string, len(works)),
	}
	for _, w := range works {
		if w.ID == "" {
			continue
		}
		if _, seen := p.colors[w.ID]; !seen {
			p.ids = append(p.ids, w.ID)
		}
		p.colors[w.ID] = w.AccentColor
		p.titles[w.ID] = w.Title
	}
	return p
}

// Len returns the number of works.
func (p Palette) Len() int { return len(p.ids) }

// Has reports whether id is in the catalogue.
func (p Palette) Has(id string) bool {
	_, ok := p.colors[id]
	return ok
}

// Color returns the accent colour for id.
func (p Palette) Color(id string) (string, bool) {
	c, ok := p.colors[id]
	return c, ok
}

// Title returns the work title for id, or "" when unknown.
func (p Palette) Title(id string) string {
	return p.titles[id]
}

// At returns the i-th work id in catalogue order.
func (p Palette) At(i int) string {
	return p.ids[i]
}
