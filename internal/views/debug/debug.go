// Package debug keeps the diagnostics log shown over the world when the
// debug key is pressed.
package debug

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/theme"
	"github.com/muesli/reflow/truncate"
)

const (
	maxEntries = 200
	stampWidth = len("15:04:05.000")
	kindWidth  = 4
)

// Entry kinds.
const (
	KindStream = "ws"
	KindSpawn  = "box"
	KindClick  = "clk"
	KindWorks  = "wrk"
	KindError  = "err"
)

// Entry is one logged event.
type Entry struct {
	Time    time.Time
	Kind    string
	Message string
}

// Model is a bounded event log. Offset counts entries hidden below the
// visible window; zero follows the newest entry.
type Model struct {
	Entries []Entry
	Offset  int
	now     func() time.Time
}

func New() Model {
	return Model{now: time.Now}
}

// Add records an event, drops the oldest beyond maxEntries and jumps back
// to the newest entry.
func (m *Model) Add(kind, message string) {
	now := m.now
	if now == nil {
		now = time.Now
	}
	m.Entries = append(m.Entries, Entry{Time: now(), Kind: kind, Message: message})
	if over := len(m.Entries) - maxEntries; over > 0 {
		m.Entries = m.Entries[over:]
	}
	m.Offset = 0
}

func (m *Model) Addf(kind, format string, args ...any) {
	m.Add(kind, fmt.Sprintf(format, args...))
}

// ScrollUp reveals n older entries. The newest entry always stays reachable.
func (m *Model) ScrollUp(n int) {
	m.Offset = min(m.Offset+n, max(len(m.Entries)-1, 0))
}

func (m *Model) ScrollDown(n int) {
	m.Offset = max(m.Offset-n, 0)
}

// window returns the entry range shown in rows lines.
func (m Model) window(rows int) (start, end int) {
	end = max(len(m.Entries)-m.Offset, 0)
	return max(end-rows, 0), end
}

// counts tallies entries per kind for the header.
func (m Model) counts() map[string]int {
	out := make(map[string]int)
	for _, e := range m.Entries {
		out[e.Kind]++
	}
	return out
}

// View renders the log in a width by height panel.
func (m Model) View(width, height int) string {
	inner := max(width-4, 20)
	rows := max(height-6, 3)

	n := m.counts()
	header := theme.StyleHeader.Render(" EVENTS ") + theme.StyleDimmed.Render(fmt.Sprintf(
		"  %d spawned  %d clicks  %d errors", n[KindSpawn], n[KindClick], n[KindError]))
	footer := theme.StyleDimmed.Render("↑/↓ scroll  d/esc close")

	var body string
	if len(m.Entries) == 0 {
		body = theme.StyleDimmed.Render("  nothing logged yet")
	} else {
		start, end := m.window(rows)
		room := uint(max(inner-stampWidth-kindWidth-6, 8))
		lines := make([]string, 0, end-start)
		for _, e := range m.Entries[start:end] {
			lines = append(lines, strings.Join([]string{
				theme.StyleDimmed.Render(e.Time.Format("15:04:05.000")),
				lipgloss.NewStyle().Foreground(kindColor(e.Kind)).Width(kindWidth).Render(e.Kind),
				truncate.StringWithTail(e.Message, room, "…"),
			}, " "))
		}
		body = strings.Join(lines, "\n")
		if m.Offset > 0 {
			body += "\n" + theme.StyleDimmed.Render(fmt.Sprintf("  %d newer below", m.Offset))
		}
	}

	return lipgloss.NewStyle().
		Width(inner).
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", footer))
}

func kindColor(kind string) lipgloss.Color {
	switch kind {
	case KindStream:
		return theme.ColorLive
	case KindError:
		return theme.ColorOffline
	case KindSpawn:
		return theme.ColorAccent
	case KindClick, KindWorks:
		return theme.ColorConnecting
	}
	return theme.ColorDimmed
}
