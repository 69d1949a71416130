package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/geom"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/physics"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/theme"
)

const (
	glyphBox   = '█'
	glyphWall  = '▒'
	glyphRamp  = '░'
	glyphEmpty = ' '
)

// Colors resolves a work's accent color.
type Colors interface {
	Color(workID string) (string, bool)
}

// Scene is everything one frame draws.
type Scene struct {
	Boxes      []physics.BoxState
	Colliders  []physics.Collider
	HoveredBox string // box id drawn in the hover color
	Colors     Colors
}

type cell struct {
	glyph rune
	color lipgloss.Color
}

// Render draws the scene as cam.Rows lines of cam.Cols cells. Boxes are
// painted in spawn order so later boxes cover earlier ones.
func Render(cam Camera, scene Scene) string {
	if cam.Cols <= 0 || cam.Rows <= 0 {
		return ""
	}
	grid := make([][]cell, cam.Rows)
	for r := range grid {
		grid[r] = make([]cell, cam.Cols)
		for c := range grid[r] {
			grid[r][c] = cell{glyph: glyphEmpty}
		}
	}

	for _, col := range scene.Colliders {
		glyph, color := glyphWall, theme.ColorCollider
		if col.Kind == physics.Ramp {
			glyph, color = glyphRamp, theme.ColorRamp
		}
		fill(cam, grid, col.Vertices, cell{glyph: glyph, color: color})
	}

	colorCache := make(map[string]lipgloss.Color)
	for _, b := range scene.Boxes {
		hovered := b.ID == scene.HoveredBox && b.ID != ""
		color, cached := colorCache[b.WorkID]
		if !cached {
			accent, ok := "", false
			if scene.Colors != nil {
				accent, ok = scene.Colors.Color(b.WorkID)
			}
			color = theme.BoxColor(accent, ok, false)
			colorCache[b.WorkID] = color
		}
		if hovered {
			color = theme.BoxColor("", false, true)
		}
		fill(cam, grid, b.Vertices, cell{glyph: glyphBox, color: color})
	}

	var sb strings.Builder
	for r, row := range grid {
		if r > 0 {
			sb.WriteByte('\n')
		}
		writeRow(&sb, row)
	}
	return sb.String()
}

func fill(cam Camera, grid [][]cell, poly []geom.Vec2, v cell) {
	if len(poly) < 3 {
		return
	}
	c0, r0, c1, r1 := cam.cellBounds(poly)
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			if contains(poly, cam.Unproject(c, r)) {
				grid[r][c] = v
			}
		}
	}
}

// writeRow renders runs of equally colored cells with one style each.
func writeRow(sb *strings.Builder, row []cell) {
	start := 0
	for i := 1; i <= len(row); i++ {
		if i < len(row) && row[i].color == row[start].color {
			continue
		}
		var run strings.Builder
		for _, c := range row[start:i] {
			run.WriteRune(c.glyph)
		}
		if row[start].color == "" {
			sb.WriteString(run.String())
		} else {
			sb.WriteString(lipgloss.NewStyle().Foreground(row[start].color).Render(run.String()))
		}
		start = i
	}
}

// Pick returns the top-most box under the cell, if any.
func Pick(cam Camera, boxes []physics.BoxState, col, row int) (physics.BoxState, bool) {
	if col < 0 || row < 0 || col >= cam.Cols || row >= cam.Rows {
		return physics.BoxState{}, false
	}
	p := cam.Unproject(col, row)
	for i := len(boxes) - 1; i >= 0; i-- {
		if contains(boxes[i].Vertices, p) {
			return boxes[i], true
		}
	}
	return physics.BoxState{}, false
}
