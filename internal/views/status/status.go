package status

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/theme"
)

const pointerGlyph = "☛"

// Model holds the status bar state.
type Model struct {
	State   string // one of the theme.State* values
	Count   int
	Cap     int
	Works   int
	Hovered string // title of the hovered work
	Pointer bool   // the pointer is over a clickable box
	Server  string // feed server summary from the last health check
	Width   int

	spinner spinner.Model
}

// New creates a status bar model.
func New() Model {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorLive)
	return Model{
		State:   theme.StateConnecting,
		spinner: s,
	}
}

// Tick starts the live indicator.
func (m Model) Tick() tea.Cmd {
	return m.spinner.Tick
}

// Update advances the live indicator.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// SetPopulation updates the box counter.
func (m *Model) SetPopulation(count, limit int) {
	m.Count = count
	m.Cap = limit
}

// SetHealth summarises a feed server health report.
func (m *Model) SetHealth(clients int, seq uint64) {
	m.Server = fmt.Sprintf("%d online  seq %d", clients, seq)
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	color := theme.ConnectionColor(m.State)
	glyph := theme.ConnectionGlyph(m.State)
	if m.State == theme.StateLive {
		glyph = m.spinner.View()
	}
	connStr := glyph + " " + lipgloss.NewStyle().Foreground(color).Render(stateLabel(m.State))

	counts := fmt.Sprintf("%d/%d boxes  %d works", m.Count, m.Cap, m.Works)
	if m.Cap > 0 && m.Count >= m.Cap {
		counts = theme.StyleDimmed.Render(counts + "  (full)")
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := connStr + sep + counts
	if m.Server != "" {
		content += sep + theme.StyleDimmed.Render(m.Server)
	}
	if m.Hovered != "" {
		title := m.Hovered
		if m.Pointer {
			title = pointerGlyph + " " + title
		}
		content += sep + theme.StyleSelected.Render(title)
	}

	bar := lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)

	return bar
}

func stateLabel(state string) string {
	switch state {
	case theme.StateLive:
		return "Live"
	case theme.StateConnecting:
		return "Connecting..."
	case theme.StateOffline:
		return "Offline"
	default:
		return "Stream ended"
	}
}
