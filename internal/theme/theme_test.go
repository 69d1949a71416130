package theme

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestLightenHex(t *testing.T) {
	tests := []struct {
		in     string
		amount float64
		want   string
	}{
		{"#000000", 0.1, "#1a1a1a"},
		{"#6dd3ce", 0, "#6dd3ce"},
		{"#6dd3ce", 1, "#ffffff"},
		{"#6dd3ce", 2, "#ffffff"},
		{"#ff0000", -1, "#ff0000"},
		{"#808080", 0.5, "#c0c0c0"},
		{"#f00", 0.5, "#ff8080"},
		{"not-a-color", 0.1, "not-a-color"},
	}
	for _, tt := range tests {
		if got := LightenHex(tt.in, tt.amount); got != tt.want {
			t.Errorf("LightenHex(%q, %v) = %q, want %q", tt.in, tt.amount, got, tt.want)
		}
	}
}

func TestBoxColor(t *testing.T) {
	tests := []struct {
		name    string
		accent  string
		ok      bool
		hovered bool
		want    lipgloss.Color
	}{
		{"hovered wins", "#000000", true, true, lipgloss.Color(HoverBoxHex)},
		{"accent lightened", "#000000", true, false, lipgloss.Color("#1a1a1a")},
		{"unknown work", "", false, false, lipgloss.Color(LightenHex(DefaultBoxHex, BoxLighten))},
		{"bad accent", "blue", true, false, lipgloss.Color(LightenHex(DefaultBoxHex, BoxLighten))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BoxColor(tt.accent, tt.ok, tt.hovered); got != tt.want {
				t.Errorf("BoxColor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConnectionColor(t *testing.T) {
	for state, want := range map[string]lipgloss.Color{
		StateLive:       ColorLive,
		StateConnecting: ColorConnecting,
		StateOffline:    ColorOffline,
		StateEnded:      ColorEnded,
		"bogus":         ColorEnded,
	} {
		if got := ConnectionColor(state); got != want {
			t.Errorf("ConnectionColor(%q) = %q, want %q", state, got, want)
		}
		if ConnectionGlyph(state) == "" {
			t.Errorf("ConnectionGlyph(%q) is empty", state)
		}
	}
}
