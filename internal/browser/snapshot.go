package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/runnerr0/tubesort/internal/tabs"
)

// Snapshot is an in-memory tab strip, optionally backed by a JSON file
// holding an array of tabs. It supports every capability, so a sort can be
// rehearsed offline and the result inspected.
type Snapshot struct {
	mu   sync.Mutex
	path string
	tabs []tabs.Tab
}

// NewSnapshot wraps a list of tabs. Save is a no-op without a path.
func NewSnapshot(list []tabs.Tab) *Snapshot {
	return &Snapshot{tabs: slices.Clone(list)}
}

// LoadSnapshot reads tabs from a JSON file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tab snapshot: %w", err)
	}
	var list []tabs.Tab
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing tab snapshot %s: %w", path, err)
	}
	return &Snapshot{path: path, tabs: list}, nil
}

// Save writes the current order back to the file the snapshot was loaded from.
func (s *Snapshot) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.tabs, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing tab snapshot: %w", err)
	}
	return nil
}

func (s *Snapshot) Query(ctx context.Context) ([]tabs.Tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tabs), nil
}

func (s *Snapshot) URL(ctx context.Context, tabID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(tabID)
	if i < 0 {
		return "", fmt.Errorf("tab %s: %w", tabID, ErrTabNotFound)
	}
	return s.tabs[i].URL, nil
}

func (s *Snapshot) Move(ctx context.Context, tabID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(tabID)
	if i < 0 {
		return fmt.Errorf("tab %s: %w", tabID, ErrTabNotFound)
	}
	t := s.tabs[i]
	s.tabs = slices.Delete(s.tabs, i, i+1)
	if index < 0 || index > len(s.tabs) {
		index = len(s.tabs)
	}
	s.tabs = slices.Insert(s.tabs, index, t)
	return nil
}

func (s *Snapshot) Reload(ctx context.Context, tabID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(tabID)
	if i < 0 {
		return fmt.Errorf("tab %s: %w", tabID, ErrTabNotFound)
	}
	s.tabs[i].Discarded = false
	if url != "" {
		s.tabs[i].URL = url
	}
	return nil
}

func (s *Snapshot) Activate(ctx context.Context, tabID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(tabID)
	if i < 0 {
		return fmt.Errorf("tab %s: %w", tabID, ErrTabNotFound)
	}
	for j := range s.tabs {
		s.tabs[j].Highlighted = j == i
	}
	s.tabs[i].Discarded = false
	return nil
}

func (s *Snapshot) index(tabID string) int {
	return slices.IndexFunc(s.tabs, func(t tabs.Tab) bool { return t.ID == tabID })
}
