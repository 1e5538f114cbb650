package usecase

import (
	"context"
	"log/slog"
	"sort"

	"github.com/valleyair/district-assistant/internal/core/domain"
	"github.com/valleyair/district-assistant/internal/core/ports"
)

// Reranker selects final evidence by scoring each fused candidate against
// the user's original query with a cross-encoder. Retrieval ran on expanded
// variants; reranking deliberately goes back to genuine user intent.
type Reranker struct {
	encoder ports.CrossEncoder
}

func NewReranker(encoder ports.CrossEncoder) *Reranker {
	return &Reranker{encoder: encoder}
}

// Rerank returns the topK candidates in descending cross-encoder score.
// Equal scores keep fusion insertion order. A scoring failure degrades to
// fusion order rather than failing the query.
func (r *Reranker) Rerank(ctx context.Context, query string, fused []domain.Candidate, topK int) []domain.Candidate {
	if len(fused) == 0 {
		return nil
	}
	if topK <= 0 || topK > len(fused) {
		topK = len(fused)
	}

	passages := make([]string, len(fused))
	for i, c := range fused {
		passages[i] = c.Content
	}

	scores, err := r.encoder.Predict(ctx, query, passages)
	if err != nil || len(scores) != len(fused) {
		slog.Warn("rerank_degraded_to_fusion_order", "error", err, "candidates", len(fused))
		return append([]domain.Candidate(nil), fused[:topK]...)
	}

	order := make([]int, len(fused))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	out := make([]domain.Candidate, 0, topK)
	for _, idx := range order[:topK] {
		c := fused[idx]
		c.Score = scores[idx]
		out = append(out, c)
	}
	return out
}
