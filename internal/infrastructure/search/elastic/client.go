package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/valleyair/district-assistant/internal/core/domain"
)

// Client talks to the Elasticsearch index of crawled district pages over the
// REST API. One index holds all chunks; the embedding field drives kNN search.
type Client struct {
	baseURL    string
	index      string
	username   string
	password   string
	httpClient *http.Client
}

func New(baseURL, index, username, password string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		index:      index,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// LoadCorpus pulls the snapshot the lexical index is built from. Chunk
// identity is not requested: lexical candidates are url-level until
// enrichment resolves the authoritative record.
func (c *Client) LoadCorpus(ctx context.Context, limit int) ([]domain.Document, error) {
	query := map[string]any{
		"size":    limit,
		"query":   map[string]any{"match_all": map[string]any{}},
		"_source": snapshotFields(),
	}
	docs, err := c.search(ctx, query, "load corpus")
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].ChunkIndex = domain.ChunkIndexUnknown
	}
	return docs, nil
}

func (c *Client) Search(ctx context.Context, queryText string, limit int) ([]domain.Document, error) {
	query := map[string]any{
		"size": limit,
		"query": map[string]any{
			"match": map[string]any{"content": queryText},
		},
		"_source": sourceFields(),
	}
	return c.search(ctx, query, "text search")
}

func (c *Client) VectorSearch(ctx context.Context, queryVector []float32, limit int) ([]domain.Document, error) {
	query := map[string]any{
		"size": limit,
		"knn": map[string]any{
			"field":          "embedding",
			"query_vector":   queryVector,
			"k":              limit,
			"num_candidates": limit * 10,
		},
		"_source": sourceFields(),
	}
	return c.search(ctx, query, "vector search")
}

// GetByExactMatch resolves the authoritative record for a candidate identity:
// term filters on url and chunk_index when both are known, url alone when the
// chunk index is not, and a content match as the no-URL fallback.
func (c *Client) GetByExactMatch(ctx context.Context, match domain.ExactMatch) ([]domain.Document, error) {
	var query map[string]any
	switch {
	case match.URL != "" && match.ChunkIndex != domain.ChunkIndexUnknown:
		query = map[string]any{
			"size": 1,
			"query": map[string]any{
				"bool": map[string]any{
					"must": []map[string]any{
						{"term": map[string]any{"url": match.URL}},
						{"term": map[string]any{"chunk_index": match.ChunkIndex}},
					},
				},
			},
			"_source": sourceFields(),
		}
	case match.URL != "":
		query = map[string]any{
			"size": 1,
			"query": map[string]any{
				"term": map[string]any{"url": match.URL},
			},
			"_source": sourceFields(),
		}
	default:
		query = map[string]any{
			"size": 1,
			"query": map[string]any{
				"match": map[string]any{"content": match.Content},
			},
			"_source": sourceFields(),
		}
	}
	return c.search(ctx, query, "exact match")
}

func (c *Client) search(ctx context.Context, query map[string]any, operation string) ([]domain.Document, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal %s body: %w", operation, err)
	}

	url := fmt.Sprintf("%s/%s/_search", c.baseURL, c.index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, formatElasticHTTPError(operation, resp)
	}

	var searchResp struct {
		Hits struct {
			Hits []struct {
				Score  float64 `json:"_score"`
				Source struct {
					Content    string `json:"content"`
					URL        string `json:"url"`
					Title      string `json:"title"`
					ChunkIndex int    `json:"chunk_index"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", operation, err)
	}

	out := make([]domain.Document, 0, len(searchResp.Hits.Hits))
	for _, hit := range searchResp.Hits.Hits {
		out = append(out, domain.Document{
			Content:    hit.Source.Content,
			URL:        hit.Source.URL,
			Title:      hit.Source.Title,
			ChunkIndex: hit.Source.ChunkIndex,
			Score:      hit.Score,
		})
	}
	return out, nil
}

func sourceFields() []string {
	return []string{"content", "url", "title", "chunk_index"}
}

func snapshotFields() []string {
	return []string{"content", "url", "title"}
}

func formatElasticHTTPError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("elasticsearch %s status: %s", operation, resp.Status)
	}
	return fmt.Errorf("elasticsearch %s status: %s: %s", operation, resp.Status, msg)
}
