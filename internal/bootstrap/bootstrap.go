package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/valleyair/district-assistant/internal/config"
	"github.com/valleyair/district-assistant/internal/core/ports"
	"github.com/valleyair/district-assistant/internal/core/usecase"
	"github.com/valleyair/district-assistant/internal/infrastructure/airquality/openmeteo"
	"github.com/valleyair/district-assistant/internal/infrastructure/llm/watsonx"
	"github.com/valleyair/district-assistant/internal/infrastructure/queue/nats"
	"github.com/valleyair/district-assistant/internal/infrastructure/rerank/tei"
	"github.com/valleyair/district-assistant/internal/infrastructure/resilience"
	"github.com/valleyair/district-assistant/internal/infrastructure/search/elastic"
	"github.com/valleyair/district-assistant/internal/observability/metrics"
)

type App struct {
	Config    config.Config
	Assistant ports.Assistant
	Retrieval *usecase.RetrievalService
	Metrics   *metrics.HTTPServerMetrics
	Limiter   *rate.Limiter

	events  ports.CorpusEvents
	closeFn func()
}

// New wires the full pipeline. The initial corpus snapshot load is part of
// startup: a service that cannot retrieve has nothing to serve, so a failure
// here aborts instead of starting degraded.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	executor := resilience.NewExecutor(resilience.DefaultPolicy())

	store := elastic.New(cfg.ElasticURL, cfg.ElasticIndex, cfg.ElasticUsername, cfg.ElasticPassword)

	llmClient := watsonx.New(watsonx.Config{
		BaseURL:         cfg.WatsonxURL,
		TokenURL:        cfg.WatsonxTokenURL,
		APIKey:          cfg.WatsonxAPIKey,
		ProjectID:       cfg.WatsonxProjectID,
		GenerationModel: cfg.WatsonxGenModel,
		EmbeddingModel:  cfg.WatsonxEmbedModel,
		Version:         cfg.WatsonxVersion,
		MaxNewTokens:    cfg.WatsonxMaxTokens,
	}, executor)
	generator := watsonx.NewGenerator(llmClient)
	embedder := watsonx.NewEmbedder(llmClient)

	encoder := tei.New(cfg.RerankerURL)
	gateway := openmeteo.New(openmeteo.Options{
		RequestsPerSec: cfg.OpenMeteoRequestsPerSec,
		Burst:          cfg.OpenMeteoBurst,
	})

	retrieval := usecase.NewRetrievalService(store, embedder, usecase.NewReranker(encoder), usecase.RetrievalOptions{
		SnapshotSize: cfg.CorpusSnapshotSize,
		LexicalTopK:  cfg.RAGLexicalTopK,
		SemanticTopK: cfg.RAGSemanticTopK,
		RerankTopK:   cfg.RAGRerankTopK,
	})
	if err := retrieval.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("initial corpus snapshot: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init corpus events: %w", err)
	}

	workflow := usecase.NewWorkflow(
		usecase.NewClassifier(generator),
		usecase.NewExpander(generator),
		retrieval,
		usecase.NewSynthesizer(generator),
		usecase.NewAirQualityAgent(generator, gateway),
	)

	m := metrics.NewHTTPServerMetrics("district-assistant")

	app := &App{
		Config:    cfg,
		Assistant: workflow,
		Retrieval: retrieval,
		Metrics:   m,
		Limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst),
		events:    queue,
		closeFn: func() {
			queue.Close()
		},
	}
	return app, nil
}

// StartRefreshLoops keeps the corpus snapshot current: a periodic timer plus
// the corpus-updated subscription. Both run until ctx is cancelled; refresh
// failures keep the stale snapshot and get retried on the next trigger.
func (a *App) StartRefreshLoops(ctx context.Context) {
	refresh := func(ctx context.Context) error {
		err := a.Retrieval.Refresh(ctx)
		a.Metrics.RecordSnapshotRefresh("district-assistant", err)
		if err != nil {
			slog.Error("corpus_refresh_failed", "error", err, "snapshot_age", a.Retrieval.SnapshotAge().String())
		}
		return err
	}

	go func() {
		ticker := time.NewTicker(a.Config.CorpusRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = refresh(ctx)
			}
		}
	}()

	go func() {
		if err := a.events.SubscribeCorpusUpdated(ctx, refresh); err != nil && ctx.Err() == nil {
			slog.Error("corpus_events_subscription_failed", "error", err)
		}
	}()
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
