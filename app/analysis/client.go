package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

var _ KeywordExtractor = (*Client)(nil)
var _ SentimentAnalyzer = (*Client)(nil)

// Client talks to the external analysis service over HTTP. Both capabilities
// are synchronous request/response calls.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func NewClient(baseURL, userAgent string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: httpClient,
	}
}

type keywordsRequest struct {
	Text string `json:"text"`
	TopK int    `json:"top_k"`
}

type keywordsResponse struct {
	Keywords []string `json:"keywords"`
}

func (c *Client) Extract(ctx context.Context, text string, topK int) ([]string, error) {
	body, err := c.post(ctx, "/keywords", keywordsRequest{Text: text, TopK: topK})
	if err != nil {
		return nil, err
	}

	var resp keywordsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode keywords response: %w", err)
	}

	if len(resp.Keywords) > topK {
		resp.Keywords = resp.Keywords[:topK]
	}

	return resp.Keywords, nil
}

type sentimentRequest struct {
	Tokens []string `json:"tokens"`
}

func (c *Client) Analyze(ctx context.Context, tokens []string) (json.RawMessage, error) {
	body, err := c.post(ctx, "/sentiment", sentimentRequest{Tokens: tokens})
	if err != nil {
		return nil, err
	}

	// The emotion vector schema is service-defined; only validity is checked.
	if !json.Valid(body) {
		return nil, fmt.Errorf("sentiment response is not valid JSON")
	}

	return json.RawMessage(body), nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analysis service error: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}
