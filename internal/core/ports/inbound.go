package ports

import (
	"context"

	"github.com/valleyair/district-assistant/internal/core/domain"
)

// Assistant is the inbound contract for query answering. Stream's channel is
// closed after the terminal done event; abandoning the channel after ctx
// cancellation stops further stage work.
type Assistant interface {
	Answer(ctx context.Context, query string) (*domain.Answer, error)
	Stream(ctx context.Context, query string) (<-chan domain.Event, error)
}
