package detail

import (
	"strings"
	"testing"

	"github.com/isirmt/nextjs-go-admin-portfolio/internal/client"
)

func work() client.Work {
	desc := "Built with **Next.js** and Go."
	return client.Work{
		ID:          "w1",
		Title:       "Portfolio",
		Comment:     "a personal site",
		Description: &desc,
		AccentColor: "#112233",
		CreatedAt:   "2024-05-01",
	}
}

func TestViewHidden(t *testing.T) {
	m := New("notty")
	if m.Visible() || m.View() != "" {
		t.Error("new model should render nothing")
	}
}

func TestShowRendersWork(t *testing.T) {
	m := New("notty")
	if cmd := m.Show(work()); cmd == nil {
		t.Fatal("Show() returned nil cmd")
	}
	v := m.View()
	for _, want := range []string{"Portfolio", "a personal site", "Next.js", "2024-05-01"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q:\n%s", want, v)
		}
	}
}

func TestTitleFallsBackToID(t *testing.T) {
	m := New("notty")
	m.Show(client.Work{ID: "untitled-42"})
	if v := m.View(); !strings.Contains(v, "untitled-42") {
		t.Errorf("view = %s", v)
	}
}

func TestSlideInSettles(t *testing.T) {
	m := New("notty")
	m.Show(work())
	if m.Offset() != panelWidth || !m.Animating() {
		t.Fatalf("offset = %d, animating = %v", m.Offset(), m.Animating())
	}

	var frames int
	for m.Animating() && frames < 10*fps {
		m, _ = m.Update(FrameMsg{})
		frames++
	}
	if m.Animating() || m.Offset() != 0 {
		t.Errorf("spring did not settle after %d frames: offset %d", frames, m.Offset())
	}
	if _, cmd := m.Update(FrameMsg{}); cmd != nil {
		t.Error("settled model keeps scheduling frames")
	}
}

func TestHide(t *testing.T) {
	m := New("notty")
	m.Show(work())
	m.Hide()
	if m.Visible() || m.Animating() {
		t.Error("Hide() left the flyout open")
	}
	if _, cmd := m.Update(FrameMsg{}); cmd != nil {
		t.Error("hidden model scheduled a frame")
	}
}
