package embedding

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

// HTTPConfig holds API settings for an OpenAI-compatible /embeddings endpoint.
type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
}

// HTTPEmbedder calls an OpenAI-compatible embeddings API. Pointing BaseURL at
// a local Ollama server's /v1 keeps the whole pipeline offline.
type HTTPEmbedder struct {
	cfg        HTTPConfig
	httpClient *http.Client
}

func NewHTTPEmbedder(cfg HTTPConfig) *HTTPEmbedder {
	return &HTTPEmbedder{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Embed returns the normalized embedding vector for the given text.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("embedding input is empty")
	}
	vectors, err := e.request(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	NormalizeL2(vectors[0])
	return vectors[0], nil
}

// EmbedBatch returns embeddings for multiple texts using array input.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	trimmed := make([]string, 0, len(texts))
	for _, t := range texts {
		if s := strings.TrimSpace(t); s != "" {
			trimmed = append(trimmed, s)
		}
	}
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("no non-empty texts for embedding")
	}

	vectors, err := e.request(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(trimmed) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(trimmed))
	}
	for i := range vectors {
		NormalizeL2(vectors[i])
	}
	return vectors, nil
}

func (e *HTTPEmbedder) Dimensions() int {
	return e.cfg.Dimensions
}

func (e *HTTPEmbedder) Close() error {
	return nil
}

// request posts to /embeddings; input may be a string or a []string.
func (e *HTTPEmbedder) request(ctx context.Context, input interface{}) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"model": e.cfg.Model,
		"input": input,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request failed: %w", err)
	}

	url := strings.TrimRight(e.cfg.BaseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build embedding request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding json failed: %w", err)
	}
	result := make([][]float32, len(parsed.Data))
	for i := range parsed.Data {
		result[i] = parsed.Data[i].Embedding
	}
	return result, nil
}
