package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/valleyair/district-assistant/internal/core/domain"
	"github.com/valleyair/district-assistant/internal/core/ports"
)

// Expander widens retrieval recall by producing rewritten query variants and
// a lexical keyword set from one structured-output model call. A parse or
// model failure degrades to the original query as the only rewrite and its
// whitespace-split terms as keywords; expansion never fails the query.
type Expander struct {
	generator ports.TextGenerator
}

func NewExpander(generator ports.TextGenerator) *Expander {
	return &Expander{generator: generator}
}

func (e *Expander) Expand(ctx context.Context, query string) domain.QueryContext {
	qc := domain.QueryContext{Original: query}

	raw, err := e.generator.Invoke(ctx, buildExpansionPrompt(query))
	if err == nil {
		var parsed struct {
			Rewrites []string `json:"rewrites"`
			Keywords []string `json:"keywords"`
		}
		jsonErr := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed)
		if jsonErr == nil && len(parsed.Rewrites) > 0 && len(parsed.Keywords) > 0 {
			qc.Rewrites = parsed.Rewrites
			qc.Keywords = parsed.Keywords
			return qc
		}
		slog.Warn("query_expansion_fallback", "error", jsonErr, "raw", truncateForLog(raw, 200))
	} else {
		slog.Warn("query_expansion_call_failed", "error", err)
	}

	qc.Rewrites = []string{query}
	qc.Keywords = strings.Fields(query)
	return qc
}
