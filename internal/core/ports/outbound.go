package ports

import (
	"context"

	"github.com/valleyair/district-assistant/internal/core/domain"
)

// DocumentStore is the external document index. It serves the corpus
// snapshot, free-text search, dense-vector search and exact-match resolution.
// Snapshot documents are url-level and carry ChunkIndexUnknown; only search
// hits carry chunk identity.
type DocumentStore interface {
	LoadCorpus(ctx context.Context, limit int) ([]domain.Document, error)
	Search(ctx context.Context, queryText string, limit int) ([]domain.Document, error)
	VectorSearch(ctx context.Context, queryVector []float32, limit int) ([]domain.Document, error)
	GetByExactMatch(ctx context.Context, match domain.ExactMatch) ([]domain.Document, error)
}

// Embedder builds the dense query vector for semantic retrieval.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// TextGenerator is the text-generation collaborator. Stream delivers the
// answer incrementally; onToken returning an error stops the stream.
type TextGenerator interface {
	Invoke(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string, onToken func(token string) error) error
}

// CrossEncoder scores (query, passage) pairs with a sentence-pair relevance
// model. The result has the same length and order as passages.
type CrossEncoder interface {
	Predict(ctx context.Context, query string, passages []string) ([]float64, error)
}

// AirQualityGateway wraps the real-time measurement collaborator. Geocode and
// FetchMeasurements return nil without error when nothing was found.
type AirQualityGateway interface {
	Geocode(ctx context.Context, location string) (*domain.Location, error)
	FetchMeasurements(ctx context.Context, latitude, longitude float64) (*domain.AirQualitySummary, error)
	InServiceArea(loc *domain.Location) bool
}

// CorpusEvents delivers corpus-updated notifications from the indexer so the
// in-memory snapshot can refresh without polling.
type CorpusEvents interface {
	PublishCorpusUpdated(ctx context.Context) error
	SubscribeCorpusUpdated(ctx context.Context, handler func(context.Context) error) error
}
