package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/valleyair/district-assistant/internal/core/domain"
	"github.com/valleyair/district-assistant/internal/core/ports"
)

// RetrievalOptions bound the hybrid pipeline.
type RetrievalOptions struct {
	SnapshotSize int
	LexicalTopK  int
	SemanticTopK int
	RerankTopK   int
}

func (o RetrievalOptions) withDefaults() RetrievalOptions {
	if o.SnapshotSize <= 0 {
		o.SnapshotSize = 1000
	}
	if o.LexicalTopK <= 0 {
		o.LexicalTopK = 10
	}
	if o.SemanticTopK <= 0 {
		o.SemanticTopK = 10
	}
	if o.RerankTopK <= 0 {
		o.RerankTopK = 4
	}
	return o
}

// RetrievalService owns the corpus snapshot and runs the hybrid retrieval
// pipeline: lexical and semantic legs, fusion, reranking, and post-rerank
// metadata enrichment. The snapshot and its lexical index are replaced
// atomically by Refresh; concurrent queries read the previous snapshot until
// the swap.
type RetrievalService struct {
	store    ports.DocumentStore
	embedder ports.Embedder
	reranker *Reranker
	opts     RetrievalOptions

	mu        sync.RWMutex
	index     *bm25Index
	refreshed time.Time
}

func NewRetrievalService(
	store ports.DocumentStore,
	embedder ports.Embedder,
	reranker *Reranker,
	opts RetrievalOptions,
) *RetrievalService {
	return &RetrievalService{
		store:    store,
		embedder: embedder,
		reranker: reranker,
		opts:     opts.withDefaults(),
	}
}

// Refresh pulls a bounded corpus snapshot from the document store and
// rebuilds the lexical index. The first call happens at bootstrap and its
// failure aborts startup; later calls (timer- or event-driven) keep serving
// the stale snapshot on failure.
func (s *RetrievalService) Refresh(ctx context.Context) error {
	docs, err := s.store.LoadCorpus(ctx, s.opts.SnapshotSize)
	if err != nil {
		return domain.WrapError(domain.ErrCorpusUnavailable, "load corpus snapshot", err)
	}

	index := newBM25Index(docs)

	s.mu.Lock()
	s.index = index
	s.refreshed = time.Now()
	s.mu.Unlock()

	slog.Info("corpus_snapshot_refreshed", "documents", len(docs))
	return nil
}

// SnapshotAge reports how stale the current snapshot is; zero when no
// snapshot has been loaded yet.
func (s *RetrievalService) SnapshotAge() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.refreshed.IsZero() {
		return 0
	}
	return time.Since(s.refreshed)
}

func (s *RetrievalService) currentIndex() *bm25Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// Retrieve runs both legs, fuses, reranks against the original query and
// enriches the final top-K. A failed leg contributes an empty candidate list;
// only a missing snapshot is an error.
func (s *RetrievalService) Retrieve(ctx context.Context, qc domain.QueryContext) ([]domain.Candidate, error) {
	index := s.currentIndex()
	if index == nil {
		return nil, fmt.Errorf("retrieve: %w", domain.ErrCorpusUnavailable)
	}

	semantic := s.semanticLeg(ctx, qc)
	lexical := s.lexicalLeg(index, qc)

	fused := FuseCandidates(semantic, lexical).Candidates()
	top := s.reranker.Rerank(ctx, qc.Original, fused, s.opts.RerankTopK)

	enriched := make([]domain.Candidate, 0, len(top))
	for _, c := range top {
		enriched = append(enriched, s.enrich(ctx, c))
	}
	return enriched, nil
}

// semanticLeg embeds the primary rewrite and queries the store's vector
// index. Either call failing degrades the leg to empty.
func (s *RetrievalService) semanticLeg(ctx context.Context, qc domain.QueryContext) []domain.Candidate {
	vector, err := s.embedder.EmbedQuery(ctx, qc.PrimaryRewrite())
	if err != nil {
		slog.Warn("retrieval_leg_failed", "leg", "semantic", "stage", "embed", "error", err)
		return nil
	}

	hits, err := s.store.VectorSearch(ctx, vector, s.opts.SemanticTopK)
	if err != nil {
		slog.Warn("retrieval_leg_failed", "leg", "semantic", "stage", "search", "error", err)
		return nil
	}

	out := make([]domain.Candidate, 0, len(hits))
	for _, doc := range hits {
		out = append(out, domain.Candidate{Document: doc, Origin: domain.OriginSemantic})
	}
	return out
}

// lexicalLeg scores the keyword bag against the snapshot. Snapshot documents
// carry only content, url and title, so the chunk index is unknown here and
// resolved later by enrichment.
func (s *RetrievalService) lexicalLeg(index *bm25Index, qc domain.QueryContext) []domain.Candidate {
	scored := index.Score(qc.Keywords, s.opts.LexicalTopK)
	out := make([]domain.Candidate, 0, len(scored))
	for _, sd := range scored {
		doc := index.Document(sd.Index)
		doc.Score = sd.Score
		doc.ChunkIndex = domain.ChunkIndexUnknown
		out = append(out, domain.Candidate{Document: doc, Origin: domain.OriginLexical})
	}
	return out
}

// enrich re-resolves one final candidate against the store by identity so
// every result carries complete provenance: compound url+chunk_index match
// when both are known, url match when only the URL is, content match as a
// last resort. The store's authoritative record replaces the candidate on a
// hit; any miss or error passes the original through unchanged.
func (s *RetrievalService) enrich(ctx context.Context, c domain.Candidate) domain.Candidate {
	match := domain.ExactMatch{URL: c.URL, ChunkIndex: c.ChunkIndex}
	if c.URL == "" {
		match.Content = c.Content
	}

	hits, err := s.store.GetByExactMatch(ctx, match)
	if err != nil {
		slog.Warn("enrichment_lookup_failed", "url", c.URL, "error", err)
		return c
	}
	if len(hits) == 0 {
		return c
	}
	return domain.Candidate{Document: hits[0], Origin: c.Origin}
}
