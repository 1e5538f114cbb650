package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/valleyair/district-assistant/internal/core/domain"
)

// Workflow is the routing state machine. Classify is the only branch point:
// a query goes either to the air-quality branch or through expansion,
// retrieval and synthesis. Blocking and streaming execution share the same
// stage functions so both modes produce identical outcomes.
type Workflow struct {
	classifier  *Classifier
	expander    *Expander
	retrieval   *RetrievalService
	synthesizer *Synthesizer
	airQuality  *AirQualityAgent
}

func NewWorkflow(
	classifier *Classifier,
	expander *Expander,
	retrieval *RetrievalService,
	synthesizer *Synthesizer,
	airQuality *AirQualityAgent,
) *Workflow {
	return &Workflow{
		classifier:  classifier,
		expander:    expander,
		retrieval:   retrieval,
		synthesizer: synthesizer,
		airQuality:  airQuality,
	}
}

func (w *Workflow) Answer(ctx context.Context, query string) (*domain.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("answer: %w: empty query", domain.ErrInvalidInput)
	}

	intent := w.classifier.Classify(ctx, query)
	if intent == domain.IntentAirQuality {
		return w.answerAirQuality(ctx, query)
	}

	qc := w.expander.Expand(ctx, query)
	qc.Intent = intent

	docs, err := w.retrieval.Retrieve(ctx, qc)
	if err != nil {
		return nil, err
	}

	answer, err := w.synthesizer.Answer(ctx, query, docs, nil, "")
	if err != nil {
		return nil, err
	}
	answer.Intent = intent
	return answer, nil
}

func (w *Workflow) answerAirQuality(ctx context.Context, query string) (*domain.Answer, error) {
	result := w.airQuality.Run(ctx, query)
	if result.NeedsLocation {
		return &domain.Answer{
			Text:    result.Message,
			Intent:  domain.IntentAirQuality,
			Sources: []domain.Source{},
		}, nil
	}

	answer, err := w.synthesizer.Answer(ctx, query, nil, result.Summary, result.Assessment)
	if err != nil {
		return nil, err
	}
	answer.Intent = domain.IntentAirQuality
	return answer, nil
}

// Stream runs the same pipeline as Answer but emits typed events as each
// stage completes. The channel is closed after the terminal done event. When
// ctx is cancelled the producer stops at the stage in flight; no further
// events are delivered.
func (w *Workflow) Stream(ctx context.Context, query string) (<-chan domain.Event, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("stream: %w: empty query", domain.ErrInvalidInput)
	}

	events := make(chan domain.Event)
	go func() {
		defer close(events)
		emit := func(ev domain.Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		w.runStream(ctx, query, emit)
	}()
	return events, nil
}

func (w *Workflow) runStream(ctx context.Context, query string, emit func(domain.Event) bool) {
	intent := w.classifier.Classify(ctx, query)
	if intent == domain.IntentAirQuality {
		w.streamAirQuality(ctx, query, emit)
		return
	}

	qc := w.expander.Expand(ctx, query)
	qc.Intent = intent
	if !emit(domain.Event{Type: domain.EventTool, Rewrites: qc.Rewrites, Keywords: qc.Keywords}) {
		return
	}

	docs, err := w.retrieval.Retrieve(ctx, qc)
	if err != nil {
		emit(domain.Event{Type: domain.EventDone, Sources: []domain.Source{}})
		return
	}

	if err := w.synthesizer.StreamAnswer(ctx, query, docs, nil, "", emit); err != nil {
		emit(domain.Event{Type: domain.EventDone, Sources: []domain.Source{}})
		return
	}
	emit(domain.Event{Type: domain.EventDone, Sources: CollectSources(docs)})
}

func (w *Workflow) streamAirQuality(ctx context.Context, query string, emit func(domain.Event) bool) {
	result := w.airQuality.Run(ctx, query)
	if result.NeedsLocation {
		if emit(domain.Event{Type: domain.EventLocationNeeded, Message: result.Message}) {
			emit(domain.Event{Type: domain.EventDone, Sources: []domain.Source{}})
		}
		return
	}

	if !emit(domain.Event{Type: domain.EventAirQuality, AirQuality: result.Summary}) {
		return
	}

	if err := w.synthesizer.StreamAnswer(ctx, query, nil, result.Summary, result.Assessment, emit); err != nil {
		emit(domain.Event{Type: domain.EventDone, Sources: []domain.Source{}})
		return
	}
	emit(domain.Event{Type: domain.EventDone, Sources: []domain.Source{}})
}
