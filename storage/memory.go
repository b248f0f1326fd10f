package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/c360studio/heritrace/graph"
)

// MemoryStore keeps entity data in an in-memory graph.
type MemoryStore struct {
	mu sync.RWMutex
	g  *graph.Graph
}

// NewMemoryStore wraps g, which the store owns from then on. A nil graph
// starts an empty store.
func NewMemoryStore(g *graph.Graph) *MemoryStore {
	if g == nil {
		g = graph.New()
	}
	return &MemoryStore{g: g}
}

// LoadMemoryStore reads the data files matched by patterns into a new store.
func LoadMemoryStore(patterns ...string) (*MemoryStore, error) {
	if len(patterns) == 0 {
		return NewMemoryStore(nil), nil
	}
	g, err := graph.LoadFiles(patterns...)
	if err != nil {
		return nil, fmt.Errorf("load data: %w", err)
	}
	return NewMemoryStore(g), nil
}

// Triples implements EntityStore.
func (s *MemoryStore) Triples(_ context.Context, subject graph.Term) ([]graph.Triple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.Match(subject, "", nil), nil
}

// Types implements EntityStore.
func (s *MemoryStore) Types(_ context.Context, subject graph.Term) ([]graph.IRI, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.Types(subject), nil
}

// InverseTypes implements EntityStore.
func (s *MemoryStore) InverseTypes(_ context.Context, subject graph.Term) ([]graph.IRI, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []graph.IRI
	seen := make(map[graph.IRI]bool)
	for _, t := range s.g.Match(nil, "", subject) {
		out = appendUniqueIRIs(out, seen, s.g.Types(t.Subject)...)
	}
	return out, nil
}

// Describe implements EntityStore.
func (s *MemoryStore) Describe(_ context.Context, subject graph.Term) (*graph.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	triples := s.g.Describe(subject)
	if len(triples) == 0 {
		return nil, fmt.Errorf("describe %s: %w", subject, ErrNotFound)
	}
	return graph.FromTriples(triples), nil
}

// Apply implements EntityStore.
func (s *MemoryStore) Apply(_ context.Context, cs Changeset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range cs.Remove {
		s.g.Remove(t)
	}
	s.g.AddAll(cs.Add)
	return nil
}

// Exists reports whether subject has any triple.
func (s *MemoryStore) Exists(_ context.Context, subject graph.Term) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.g.Match(subject, "", nil)) > 0, nil
}

// Snapshot returns a copy of the whole graph.
func (s *MemoryStore) Snapshot() *graph.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.Clone()
}
