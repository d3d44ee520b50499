package db

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// QdrantClient wraps HTTP calls to the Qdrant REST API.
// A thin hand-rolled client keeps the dependency surface to the index at the
// handful of endpoints this service actually uses.
type QdrantClient struct {
	baseURL    string
	httpClient *http.Client
}

// QdrantConfig holds configuration for the Qdrant connection.
type QdrantConfig struct {
	URL     string
	Timeout time.Duration
}

// Point is one vector with its payload, the unit of upsert.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// ScoredPoint is one search hit. Score is the index's native similarity score;
// a missing score decodes as nil and callers coerce it to 0.
type ScoredPoint struct {
	ID      any            `json:"id"`
	Score   *float64       `json:"score"`
	Payload map[string]any `json:"payload"`
}

// NewQdrantClient creates a Qdrant REST client.
func NewQdrantClient(config QdrantConfig) *QdrantClient {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &QdrantClient{
		baseURL: strings.TrimRight(config.URL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// CollectionExists checks whether the named collection exists.
func (c *QdrantClient) CollectionExists(ctx context.Context, name string) (bool, error) {
	url := fmt.Sprintf("%s/collections/%s/exists", c.baseURL, name)

	var resp struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return false, err
	}

	return resp.Result.Exists, nil
}

// EnsureCollection creates the collection when it does not exist yet.
// Calling it for an existing collection is a no-op.
func (c *QdrantClient) EnsureCollection(ctx context.Context, name string, dimension int, distance string) error {
	exists, err := c.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	if exists {
		return nil
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, name)
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": distance,
		},
	}

	if err := c.doJSON(ctx, http.MethodPut, url, body, nil); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	return nil
}

// UpsertPoints writes a batch of points, waiting for the write to be applied.
func (c *QdrantClient) UpsertPoints(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, collection)
	body := map[string]any{"points": points}

	if err := c.doJSON(ctx, http.MethodPut, url, body, nil); err != nil {
		return fmt.Errorf("failed to upsert %d points into %s: %w", len(points), collection, err)
	}

	return nil
}

// Search runs a nearest-neighbor query and returns hits best-first.
func (c *QdrantClient) Search(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredPoint, error) {
	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, collection)
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}

	var resp struct {
		Result []ScoredPoint `json:"result"`
	}
	if err := c.doJSON(ctx, http.MethodPost, url, body, &resp); err != nil {
		return nil, fmt.Errorf("search in %s failed: %w", collection, err)
	}

	return resp.Result, nil
}

func (c *QdrantClient) doJSON(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant returned status %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
