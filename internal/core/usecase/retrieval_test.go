package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/valleyair/district-assistant/internal/core/domain"
)

func identityEncoder() *fakeEncoder {
	return &fakeEncoder{predictFn: func(_ string, passages []string) ([]float64, error) {
		scores := make([]float64, len(passages))
		for i := range scores {
			scores[i] = float64(len(passages) - i)
		}
		return scores, nil
	}}
}

func TestRetrieveWithoutSnapshotFails(t *testing.T) {
	svc := NewRetrievalService(&fakeStore{}, &fakeEmbedder{}, NewReranker(identityEncoder()), RetrievalOptions{})

	_, err := svc.Retrieve(context.Background(), domain.QueryContext{Original: "q"})
	if !errors.Is(err, domain.ErrCorpusUnavailable) {
		t.Fatalf("Retrieve() error = %v, want ErrCorpusUnavailable", err)
	}
}

func TestRefreshFailureKeepsServingOldSnapshot(t *testing.T) {
	calls := 0
	store := &fakeStore{
		loadFn: func(limit int) ([]domain.Document, error) {
			calls++
			if calls > 1 {
				return nil, errors.New("index offline")
			}
			return []domain.Document{{Content: "ozone forecast page", URL: "u"}}, nil
		},
	}
	svc := NewRetrievalService(store, &fakeEmbedder{}, NewReranker(identityEncoder()), RetrievalOptions{})

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("initial Refresh() failed: %v", err)
	}
	if err := svc.Refresh(context.Background()); !errors.Is(err, domain.ErrCorpusUnavailable) {
		t.Fatalf("second Refresh() error = %v, want ErrCorpusUnavailable", err)
	}

	out, err := svc.Retrieve(context.Background(), domain.QueryContext{Original: "ozone", Keywords: []string{"ozone"}})
	if err != nil {
		t.Fatalf("Retrieve() after failed refresh: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("stale snapshot not served after failed refresh")
	}
}

func TestRetrieveSemanticLegFailureDegrades(t *testing.T) {
	store := &fakeStore{
		loadFn: func(int) ([]domain.Document, error) {
			return []domain.Document{{Content: "wood burning curtailment ozone", URL: "https://valleyair.gov/x"}}, nil
		},
		vectorFn: func([]float32, int) ([]domain.Document, error) {
			return nil, errors.New("vector index down")
		},
	}
	svc := NewRetrievalService(store, &fakeEmbedder{}, NewReranker(identityEncoder()), RetrievalOptions{})
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	out, err := svc.Retrieve(context.Background(), domain.QueryContext{
		Original: "ozone",
		Rewrites: []string{"ozone"},
		Keywords: []string{"ozone"},
	})
	if err != nil {
		t.Fatalf("Retrieve() = %v, want lexical-only degradation", err)
	}
	if len(out) != 1 || out[0].Origin != domain.OriginLexical {
		t.Fatalf("degraded result = %+v, want one lexical candidate", out)
	}
}

func TestRetrieveEmbedsPrimaryRewriteOnly(t *testing.T) {
	store := &fakeStore{
		loadFn: func(int) ([]domain.Document, error) {
			return []domain.Document{{Content: "doc", URL: "u"}}, nil
		},
	}
	embedder := &fakeEmbedder{}
	svc := NewRetrievalService(store, embedder, NewReranker(identityEncoder()), RetrievalOptions{})
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	_, err := svc.Retrieve(context.Background(), domain.QueryContext{
		Original: "orig",
		Rewrites: []string{"first rewrite", "second rewrite", "third rewrite"},
		Keywords: []string{"doc"},
	})
	if err != nil {
		t.Fatalf("Retrieve() failed: %v", err)
	}
	if len(embedder.queries) != 1 || embedder.queries[0] != "first rewrite" {
		t.Fatalf("embedded %v, want only the first rewrite", embedder.queries)
	}
}

func TestRetrieveEnrichesFromStore(t *testing.T) {
	authoritative := domain.Document{
		Content:    "full chunk text",
		URL:        "https://valleyair.gov/rule4901",
		Title:      "Rule 4901",
		ChunkIndex: 2,
		Score:      12.5,
	}
	store := &fakeStore{
		loadFn: func(int) ([]domain.Document, error) {
			return []domain.Document{{Content: "full chunk text", URL: "https://valleyair.gov/rule4901"}}, nil
		},
		exactFn: func(match domain.ExactMatch) ([]domain.Document, error) {
			if match.URL != "https://valleyair.gov/rule4901" {
				t.Fatalf("exact match url = %q", match.URL)
			}
			if match.ChunkIndex != domain.ChunkIndexUnknown {
				t.Fatalf("exact match chunk index = %d, want unknown for lexical hits", match.ChunkIndex)
			}
			return []domain.Document{authoritative}, nil
		},
	}
	svc := NewRetrievalService(store, &fakeEmbedder{}, NewReranker(identityEncoder()), RetrievalOptions{})
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	out, err := svc.Retrieve(context.Background(), domain.QueryContext{
		Original: "rule 4901",
		Keywords: []string{"chunk"},
	})
	if err != nil {
		t.Fatalf("Retrieve() failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("retrieved %d candidates, want 1", len(out))
	}
	if out[0].Title != "Rule 4901" || out[0].ChunkIndex != 2 {
		t.Fatalf("enrichment did not replace candidate: %+v", out[0])
	}
	if out[0].Origin != domain.OriginLexical {
		t.Fatalf("enrichment changed origin: %q", out[0].Origin)
	}
}

func TestRetrieveEnrichmentMissPassesThrough(t *testing.T) {
	store := &fakeStore{
		loadFn: func(int) ([]domain.Document, error) {
			return []domain.Document{{Content: "orphaned chunk", URL: "u"}}, nil
		},
		exactFn: func(domain.ExactMatch) ([]domain.Document, error) {
			return nil, errors.New("lookup failed")
		},
	}
	svc := NewRetrievalService(store, &fakeEmbedder{}, NewReranker(identityEncoder()), RetrievalOptions{})
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	out, err := svc.Retrieve(context.Background(), domain.QueryContext{
		Original: "q",
		Keywords: []string{"orphaned"},
	})
	if err != nil {
		t.Fatalf("Retrieve() failed: %v", err)
	}
	if len(out) != 1 || out[0].Content != "orphaned chunk" {
		t.Fatalf("enrichment miss altered candidate: %+v", out)
	}
}

func TestRetrieveDeduplicatesAcrossLegs(t *testing.T) {
	shared := domain.Document{Content: "shared chunk ozone", URL: "https://valleyair.gov/shared", ChunkIndex: 0}
	store := &fakeStore{
		loadFn: func(int) ([]domain.Document, error) {
			return []domain.Document{shared}, nil
		},
		vectorFn: func([]float32, int) ([]domain.Document, error) {
			return []domain.Document{shared}, nil
		},
	}
	svc := NewRetrievalService(store, &fakeEmbedder{}, NewReranker(identityEncoder()), RetrievalOptions{})
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	out, err := svc.Retrieve(context.Background(), domain.QueryContext{
		Original: "ozone",
		Keywords: []string{"ozone"},
	})
	if err != nil {
		t.Fatalf("Retrieve() failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("retrieved %d candidates, want deduplicated single entry", len(out))
	}
	if out[0].Origin != domain.OriginSemantic {
		t.Fatalf("collision origin = %q, want semantic precedence", out[0].Origin)
	}
}
