// Package theme provides the Lip Gloss color palette and reusable styles
// for the live world. It is a leaf package with no internal imports to
// avoid import cycles.
package theme

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Box colors.
const (
	DefaultBoxHex = "#6dd3ce" // works missing from the catalogue
	HoverBoxHex   = "#751aab"
	BoxLighten    = 0.1
)

// World colors.
var (
	ColorCollider = lipgloss.Color("#4b5563")
	ColorRamp     = lipgloss.Color("#6b7280")
	ColorSky      = lipgloss.Color("#0b1020")
)

// Connection colors.
var (
	ColorLive       = lipgloss.Color("#22c55e")
	ColorConnecting = lipgloss.Color("#d97706")
	ColorOffline    = lipgloss.Color("#dc2626")
	ColorEnded      = lipgloss.Color("#6b7280")
)

// UI chrome colors.
var (
	ColorBorder = lipgloss.Color("#4b5563")
	ColorDimmed = lipgloss.Color("#6b7280")
	ColorBright = lipgloss.Color("#f9fafb")
	ColorBg     = lipgloss.Color("#111827")
	ColorAccent = lipgloss.Color(HoverBoxHex)
)

// Connection states shown in the status bar.
const (
	StateConnecting = "connecting"
	StateLive       = "live"
	StateOffline    = "offline"
	StateEnded      = "ended"
)

// ConnectionColor returns the color for a connection state.
func ConnectionColor(state string) lipgloss.Color {
	switch state {
	case StateLive:
		return ColorLive
	case StateConnecting:
		return ColorConnecting
	case StateOffline:
		return ColorOffline
	default:
		return ColorEnded
	}
}

// ConnectionGlyph returns a Unicode glyph for a connection state.
func ConnectionGlyph(state string) string {
	switch state {
	case StateLive:
		return "●"
	case StateConnecting:
		return "◌"
	case StateOffline:
		return "✗"
	default:
		return "○"
	}
}

// LightenHex moves hex toward white by amount in [0, 1]. Invalid input is
// returned unchanged.
func LightenHex(hex string, amount float64) string {
	c, err := colorful.Hex(hex)
	if err != nil {
		return hex
	}
	amount = max(0, min(1, amount))
	white := colorful.Color{R: 1, G: 1, B: 1}
	return c.BlendRgb(white, amount).Clamped().Hex()
}

// BoxColor returns the fill for a box: the hover color while hovered,
// otherwise the lightened accent, falling back to the default box color.
func BoxColor(accent string, ok, hovered bool) lipgloss.Color {
	if hovered {
		return lipgloss.Color(HoverBoxHex)
	}
	if !ok || !ValidHex(accent) {
		accent = DefaultBoxHex
	}
	return lipgloss.Color(LightenHex(accent, BoxLighten))
}

// ValidHex reports whether s parses as a #rgb or #rrggbb color.
func ValidHex(s string) bool {
	_, err := colorful.Hex(s)
	return err == nil
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)
)
