package ontology

import (
	"context"
	"sync"
)

// StaticResolver resolves terms from an in-memory index. It backs offline
// validation and tests.
type StaticResolver struct {
	mu    sync.RWMutex
	terms map[cacheKey]Term
}

// NewStaticResolver creates a resolver preloaded with terms.
func NewStaticResolver(terms ...Term) *StaticResolver {
	s := &StaticResolver{terms: make(map[cacheKey]Term, len(terms))}
	for _, t := range terms {
		s.Add(t)
	}
	return s
}

// Add inserts or replaces a term.
func (s *StaticResolver) Add(t Term) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms[keyFor(t.Ontology, t.Label)] = t
}

// Len returns the number of indexed terms.
func (s *StaticResolver) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.terms)
}

// Lookup implements Resolver. It never fails.
func (s *StaticResolver) Lookup(_ context.Context, ontology, term string) (Match, error) {
	s.mu.RLock()
	t, ok := s.terms[keyFor(ontology, term)]
	s.mu.RUnlock()
	if !ok {
		return Match{Ontology: NormalizeOntology(ontology), Term: term}, nil
	}
	return t.match(term), nil
}

func (t Term) match(term string) Match {
	return Match{
		Found:    true,
		Ontology: NormalizeOntology(t.Ontology),
		Term:     term,
		Label:    t.Label,
		ID:       t.ID,
		IRI:      t.IRI,
	}
}
