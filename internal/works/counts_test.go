package works

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New([]Work{
		{ID: "a", Title: "A", AccentColor: "#aabbcc"},
		{ID: "b", Title: "B", AccentColor: "#ddeeff"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCountStore_LoadMissing(t *testing.T) {
	s := NewCountStore(filepath.Join(t.TempDir(), "counts.json"))
	counts, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if counts == nil || len(counts) != 0 {
		t.Errorf("Load() = %v, want empty map", counts)
	}
}

func TestCountStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "counts.json")
	s := NewCountStore(path)
	if s.Path() != path {
		t.Errorf("Path() = %q", s.Path())
	}

	if err := s.Save(map[string]uint64{"a": 3, "b": 7}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got["a"] != 3 || got["b"] != 7 || len(got) != 2 {
		t.Errorf("Load() = %v", got)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"version": 1`) {
		t.Errorf("file missing version: %s", data)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}
}

func TestCountStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.json")
	os.WriteFile(path, []byte("{not json"), 0o644)
	if _, err := NewCountStore(path).Load(); err == nil {
		t.Fatal("expected error for corrupt file")
	}
}

func TestCatalogRestore(t *testing.T) {
	c := testCatalog(t)
	skipped := c.Restore(map[string]uint64{"a": 5, "gone": 9})
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	n, _ := c.RecordClick("a")
	if n != 6 {
		t.Errorf("RecordClick after restore = %d, want 6", n)
	}
	counts := c.Counts()
	if counts["a"] != 6 || counts["b"] != 0 {
		t.Errorf("Counts() = %v", counts)
	}
	counts["a"] = 100
	if w, _ := c.Get("a"); w.Clicks != 6 {
		t.Error("Counts() returned a live map")
	}
}

func TestAutosave(t *testing.T) {
	c := testCatalog(t)
	s := NewCountStore(filepath.Join(t.TempDir(), "counts.json"))
	c.RecordClick("b")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Autosave(ctx, c, s, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Autosave did not return after cancel")
	}

	got, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got["b"] != 1 {
		t.Errorf("saved counts = %v, want b=1", got)
	}
}
