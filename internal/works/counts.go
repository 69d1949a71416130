package works

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// countsVersion is bumped when the file layout changes.
const countsVersion = 1

type countsFile struct {
	Version     int               `json:"version"`
	Clicks      map[string]uint64 `json:"clicks"`
	LastUpdated time.Time         `json:"lastUpdated"`
}

// CountStore persists click counts across feed server restarts.
type CountStore struct {
	path string
}

func NewCountStore(path string) *CountStore {
	return &CountStore{path: path}
}

// Path returns the full path to the counts file.
func (s *CountStore) Path() string {
	return s.path
}

// Load reads counts from disk. A missing file yields an empty map.
func (s *CountStore) Load() (map[string]uint64, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]uint64{}, nil
		}
		return nil, fmt.Errorf("reading counts: %w", err)
	}

	var f countsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing counts: %w", err)
	}
	if f.Clicks == nil {
		f.Clicks = map[string]uint64{}
	}
	return f.Clicks, nil
}

// Save writes counts using an atomic temp-file-then-rename.
func (s *CountStore) Save(counts map[string]uint64) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating counts dir: %w", err)
	}

	data, err := json.MarshalIndent(countsFile{
		Version:     countsVersion,
		Clicks:      counts,
		LastUpdated: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling counts: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ".counts-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("renaming counts file: %w", err)
	}
	committed = true
	return nil
}

// Autosave saves the catalogue's counts every interval and once more when
// ctx is cancelled. It blocks until then.
func Autosave(ctx context.Context, c *Catalog, s *CountStore, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	save := func() {
		if err := s.Save(c.Counts()); err != nil {
			log.Printf("saving click counts: %v", err)
		}
	}
	for {
		select {
		case <-ctx.Done():
			save()
			return
		case <-ticker.C:
			save()
		}
	}
}
