// Package detail renders the flyout for the selected work.
package detail

import (
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/client"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/theme"
	"github.com/muesli/reflow/wordwrap"
)

const (
	panelWidth = 48
	fps        = 60
)

var (
	stylePanel = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.ColorBorder).
			Padding(0, 1)

	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorBright)

	styleComment = lipgloss.NewStyle().
			Italic(true).
			Foreground(theme.ColorDimmed)

	styleFooter = lipgloss.NewStyle().
			Foreground(theme.ColorDimmed)
)

// FrameMsg advances the slide-in animation.
type FrameMsg struct{}

// Model holds the state for the detail flyout.
type Model struct {
	Work *client.Work

	offset   float64 // columns still hidden off the right edge
	velocity float64
	spring   harmonica.Spring
	renderer *glamour.TermRenderer
}

// New creates a detail model rendering markdown with the named glamour
// style ("dark", "light", "notty", ...).
func New(style string) Model {
	r, _ := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(panelWidth-4),
	)
	return Model{
		spring:   harmonica.NewSpring(harmonica.FPS(fps), 6.0, 0.8),
		renderer: r,
	}
}

// Show opens the flyout for w and starts the slide-in.
func (m *Model) Show(w client.Work) tea.Cmd {
	m.Work = &w
	m.offset = panelWidth
	m.velocity = 0
	return frame()
}

// Hide closes the flyout.
func (m *Model) Hide() {
	m.Work = nil
	m.offset = 0
	m.velocity = 0
}

// Visible reports whether a work is shown.
func (m Model) Visible() bool {
	return m.Work != nil
}

// Animating reports whether the slide-in is still running.
func (m Model) Animating() bool {
	return m.Work != nil && (math.Abs(m.offset) >= 0.5 || math.Abs(m.velocity) >= 0.5)
}

// Width returns the rendered width of the flyout at rest.
func (m Model) Width() int {
	return panelWidth + 2
}

// Offset returns the hidden column count.
func (m Model) Offset() int {
	return int(math.Round(m.offset))
}

// Update steps the spring on FrameMsg.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if _, ok := msg.(FrameMsg); !ok || m.Work == nil {
		return m, nil
	}
	m.offset, m.velocity = m.spring.Update(m.offset, m.velocity, 0)
	if !m.Animating() {
		m.offset, m.velocity = 0, 0
		return m, nil
	}
	return m, frame()
}

func frame() tea.Cmd {
	return tea.Tick(time.Second/fps, func(time.Time) tea.Msg {
		return FrameMsg{}
	})
}

// View renders the flyout. Returns an empty string if no work is shown.
func (m Model) View() string {
	if m.Work == nil {
		return ""
	}
	w := m.Work
	var b strings.Builder

	title := w.Title
	if title == "" {
		title = w.ID
	}
	accent := w.AccentColor
	if !theme.ValidHex(accent) {
		accent = theme.DefaultBoxHex
	}
	swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(accent)).Render("■")
	b.WriteString(swatch + " " + styleTitle.Render(wordwrap.String(title, panelWidth-6)) + "\n")
	b.WriteString(strings.Repeat("─", panelWidth-4) + "\n")

	if w.Comment != "" {
		b.WriteString(styleComment.Render(wordwrap.String(w.Comment, panelWidth-4)) + "\n")
	}
	if w.Description != nil && *w.Description != "" {
		b.WriteString(m.markdown(*w.Description))
	}
	if w.CreatedAt != "" {
		b.WriteString(styleFooter.Render("created " + w.CreatedAt) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(styleFooter.Render("[click] toggle  [esc] close"))

	panel := stylePanel.Width(panelWidth).Render(b.String())
	if off := m.Offset(); off > 0 {
		panel = lipgloss.NewStyle().MarginLeft(off).Render(panel)
	}
	return panel
}

func (m Model) markdown(src string) string {
	if m.renderer != nil {
		if out, err := m.renderer.Render(src); err == nil {
			return out
		}
	}
	return wordwrap.String(src, panelWidth-4) + "\n"
}
