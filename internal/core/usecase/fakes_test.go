package usecase

import (
	"context"

	"github.com/valleyair/district-assistant/internal/core/domain"
)

type fakeGenerator struct {
	invokeFn func(prompt string) (string, error)
	streamFn func(prompt string, onToken func(string) error) error
	prompts  []string
}

func (f *fakeGenerator) Invoke(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.invokeFn(prompt)
}

func (f *fakeGenerator) Stream(_ context.Context, prompt string, onToken func(string) error) error {
	f.prompts = append(f.prompts, prompt)
	if f.streamFn == nil {
		return nil
	}
	return f.streamFn(prompt, onToken)
}

type fakeStore struct {
	loadFn   func(limit int) ([]domain.Document, error)
	vectorFn func(vector []float32, limit int) ([]domain.Document, error)
	exactFn  func(match domain.ExactMatch) ([]domain.Document, error)
}

func (f *fakeStore) LoadCorpus(_ context.Context, limit int) ([]domain.Document, error) {
	return f.loadFn(limit)
}

func (f *fakeStore) Search(_ context.Context, _ string, _ int) ([]domain.Document, error) {
	return nil, nil
}

func (f *fakeStore) VectorSearch(_ context.Context, vector []float32, limit int) ([]domain.Document, error) {
	if f.vectorFn == nil {
		return nil, nil
	}
	return f.vectorFn(vector, limit)
}

func (f *fakeStore) GetByExactMatch(_ context.Context, match domain.ExactMatch) ([]domain.Document, error) {
	if f.exactFn == nil {
		return nil, nil
	}
	return f.exactFn(match)
}

type fakeEmbedder struct {
	embedFn func(text string) ([]float32, error)
	queries []string
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	if f.embedFn == nil {
		return []float32{0.1, 0.2}, nil
	}
	return f.embedFn(text)
}

type fakeEncoder struct {
	predictFn func(query string, passages []string) ([]float64, error)
	queries   []string
}

func (f *fakeEncoder) Predict(_ context.Context, query string, passages []string) ([]float64, error) {
	f.queries = append(f.queries, query)
	return f.predictFn(query, passages)
}

type fakeGateway struct {
	geocodeFn func(location string) (*domain.Location, error)
	fetchFn   func(lat, lon float64) (*domain.AirQualitySummary, error)
	inAreaFn  func(loc *domain.Location) bool
}

func (f *fakeGateway) Geocode(_ context.Context, location string) (*domain.Location, error) {
	return f.geocodeFn(location)
}

func (f *fakeGateway) FetchMeasurements(_ context.Context, lat, lon float64) (*domain.AirQualitySummary, error) {
	return f.fetchFn(lat, lon)
}

func (f *fakeGateway) InServiceArea(loc *domain.Location) bool {
	if f.inAreaFn == nil {
		return true
	}
	return f.inAreaFn(loc)
}
