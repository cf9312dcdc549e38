// Package leads pulls and pushes lead records against a CRM backend.
//
// Backends implement Store and may fail. Syncer wraps a backend and turns
// every failure into a degraded textual result, so callers always get a
// value back.
package leads

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/BerylCAtieno/radiant-launch-agent/internal/models"
)

// Store is a lead backend.
type Store interface {
	// Pull returns the leads whose serialization contains filter
	// case-insensitively, in store order. An empty filter matches all.
	Pull(ctx context.Context, filter string) ([]models.Lead, error)
	// Push appends lead. Duplicates are accepted.
	Push(ctx context.Context, lead models.Lead) error
}

// Matches reports whether lead matches filter.
func Matches(lead models.Lead, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(lead.String()), strings.ToLower(filter))
}

// Filter keeps the leads matching filter, preserving order.
func Filter(all []models.Lead, filter string) []models.Lead {
	out := make([]models.Lead, 0, len(all))
	for _, l := range all {
		if Matches(l, filter) {
			out = append(out, l.Clone())
		}
	}
	return out
}

// MemoryStore is the in-process mock CRM.
type MemoryStore struct {
	mu    sync.Mutex
	leads []models.Lead
}

// NewMemoryStore seeds a store with a copy of initial.
func NewMemoryStore(initial []models.Lead) *MemoryStore {
	s := &MemoryStore{leads: make([]models.Lead, 0, len(initial))}
	for _, l := range initial {
		s.leads = append(s.leads, l.Clone())
	}
	return s
}

func (s *MemoryStore) Pull(_ context.Context, filter string) ([]models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Filter(s.leads, filter), nil
}

func (s *MemoryStore) Push(_ context.Context, lead models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = append(s.leads, lead.Clone())
	return nil
}

// Len returns the number of stored leads.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.leads)
}

// LoadFile reads a JSON array of lead objects.
func LoadFile(path string) ([]models.Lead, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read leads file: %w", err)
	}
	var leads []models.Lead
	if err := json.Unmarshal(data, &leads); err != nil {
		return nil, fmt.Errorf("failed to parse leads file %s: %w", path, err)
	}
	out := leads[:0]
	for _, l := range leads {
		if l != nil {
			out = append(out, l)
		}
	}
	return out, nil
}
