package watsonx

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valleyair/district-assistant/internal/infrastructure/resilience"
)

// Config holds the watsonx.ai connection settings. Version is the dated API
// version query parameter the service requires on every call.
type Config struct {
	BaseURL         string
	TokenURL        string
	APIKey          string
	ProjectID       string
	GenerationModel string
	EmbeddingModel  string
	Version         string
	MaxNewTokens    int
}

// Client is the shared watsonx.ai transport: IAM-authenticated JSON calls
// against the text generation and embedding endpoints.
type Client struct {
	baseURL      string
	projectID    string
	genModel     string
	embedModel   string
	version      string
	maxNewTokens int
	tokens       *tokenSource
	httpClient   *http.Client
	executor     *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	version := cfg.Version
	if version == "" {
		version = "2024-05-31"
	}
	maxNewTokens := cfg.MaxNewTokens
	if maxNewTokens <= 0 {
		maxNewTokens = 512
	}
	httpClient := &http.Client{Timeout: 120 * time.Second}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		projectID:    cfg.ProjectID,
		genModel:     cfg.GenerationModel,
		embedModel:   cfg.EmbeddingModel,
		version:      version,
		maxNewTokens: maxNewTokens,
		tokens:       newTokenSource(cfg.TokenURL, cfg.APIKey, httpClient),
		httpClient:   httpClient,
		executor:     executor,
	}
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + path + "?version=" + url.QueryEscape(c.version)
}

type generationRequest struct {
	ModelID    string         `json:"model_id"`
	Input      string         `json:"input"`
	ProjectID  string         `json:"project_id"`
	Parameters map[string]any `json:"parameters"`
}

func (c *Client) generationRequest(prompt string) generationRequest {
	return generationRequest{
		ModelID:   c.genModel,
		Input:     prompt,
		ProjectID: c.projectID,
		Parameters: map[string]any{
			"decoding_method":    "greedy",
			"max_new_tokens":     c.maxNewTokens,
			"repetition_penalty": 1.05,
		},
	}
}

// Generator implements blocking and streaming text generation.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Invoke(ctx context.Context, prompt string) (string, error) {
	var response struct {
		Results []struct {
			GeneratedText string `json:"generated_text"`
		} `json:"results"`
	}

	call := func(ctx context.Context) error {
		return g.client.postJSON(ctx, "/ml/v1/text/generation", g.client.generationRequest(prompt), &response, "generate")
	}

	var err error
	if g.client.executor != nil {
		err = g.client.executor.Execute(ctx, "watsonx.generate", call, classifyWatsonxError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("generate", err)
	}
	if len(response.Results) == 0 {
		return "", fmt.Errorf("empty generation result")
	}
	return strings.TrimSpace(response.Results[0].GeneratedText), nil
}

// Stream delivers generated text incrementally. Retries do not apply here:
// replaying a partially delivered answer would duplicate tokens, so a failure
// surfaces to the caller instead.
func (g *Generator) Stream(ctx context.Context, prompt string, onToken func(token string) error) error {
	err := g.client.postStream(ctx, "/ml/v1/text/generation_stream", g.client.generationRequest(prompt), onToken)
	if err != nil {
		return wrapTemporaryIfNeeded("generate stream", err)
	}
	return nil
}

// Embedder builds query vectors with the embedding model.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	request := map[string]any{
		"model_id":   e.client.embedModel,
		"inputs":     []string{text},
		"project_id": e.client.projectID,
	}

	var response struct {
		Results []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"results"`
	}

	call := func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/ml/v1/text/embeddings", request, &response, "embed")
	}

	var err error
	if e.client.executor != nil {
		err = e.client.executor.Execute(ctx, "watsonx.embed", call, classifyWatsonxError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("embed", err)
	}
	if len(response.Results) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return response.Results[0].Embedding, nil
}
