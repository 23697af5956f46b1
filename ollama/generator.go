// Package ollama implements combine.Generator against a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/toothbrush/confluence-export/combine"
)

const (
	DefaultURL   = "http://localhost:11434"
	DefaultModel = "llama3.3"

	// Local models are slow on large batches.
	generateTimeout = 10 * time.Minute
)

var _ combine.Generator = (*Generator)(nil)

// Generator calls Ollama's /api/generate endpoint.
type Generator struct {
	BaseURL string
	Model   string
	client  *http.Client
}

// NewGenerator creates a Generator.  Empty arguments select DefaultURL and DefaultModel.
func NewGenerator(baseURL, model string) *Generator {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Generator{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Model:   model,
		client:  &http.Client{Timeout: generateTimeout},
	}
}

// generateRequest is the request body for the Ollama generate API.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

// generateResponse is the non-streaming response body.
type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Generate sends one prompt and waits for the complete response.
func (g *Generator) Generate(ctx context.Context, system, prompt string) (string, error) {
	bodyBytes, err := json.Marshal(generateRequest{
		Model:  g.Model,
		Prompt: prompt,
		System: system,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("ollama: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/api/generate", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("ollama: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: calling %s: %w", g.BaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama: API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ollama: decoding response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}

	return out.Response, nil
}
