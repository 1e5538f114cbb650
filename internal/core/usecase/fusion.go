package usecase

import (
	"fmt"

	"github.com/valleyair/district-assistant/internal/core/domain"
)

// CandidateSet is an insertion-ordered identity-key -> candidate map. The
// order candidates enter the set is the tie-break order downstream, so it
// must survive fusion intact.
type CandidateSet struct {
	keys  []string
	items map[string]domain.Candidate
}

func newCandidateSet(capacity int) *CandidateSet {
	return &CandidateSet{
		keys:  make([]string, 0, capacity),
		items: make(map[string]domain.Candidate, capacity),
	}
}

// put inserts or replaces, keeping the original insertion position on
// replacement.
func (s *CandidateSet) put(key string, c domain.Candidate) {
	if _, ok := s.items[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.items[key] = c
}

func (s *CandidateSet) putIfAbsent(key string, c domain.Candidate) {
	if _, ok := s.items[key]; ok {
		return
	}
	s.keys = append(s.keys, key)
	s.items[key] = c
}

func (s *CandidateSet) Has(key string) bool {
	_, ok := s.items[key]
	return ok
}

func (s *CandidateSet) Len() int { return len(s.keys) }

// Candidates returns the set in insertion order.
func (s *CandidateSet) Candidates() []domain.Candidate {
	out := make([]domain.Candidate, 0, len(s.keys))
	for _, key := range s.keys {
		out = append(out, s.items[key])
	}
	return out
}

// FuseCandidates merges the two retrieval legs into one identity space.
// Semantic candidates enter first, keyed by URL when present and a synthetic
// per-position key otherwise. Lexical candidates are added only when their
// URL is unseen; on collision the semantic copy wins outright, scores are
// never combined. Lexical candidates without a URL get a synthetic key so
// they are never dropped.
func FuseCandidates(semantic, lexical []domain.Candidate) *CandidateSet {
	set := newCandidateSet(len(semantic) + len(lexical))

	for i, c := range semantic {
		key := c.URL
		if key == "" {
			key = fmt.Sprintf("vector_%d", i)
		}
		set.put(key, c)
	}

	for i, c := range lexical {
		if c.URL == "" {
			set.putIfAbsent(fmt.Sprintf("bm25_%d", i), c)
			continue
		}
		set.putIfAbsent(c.URL, c)
	}

	return set
}
