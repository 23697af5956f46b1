// Package gemini implements combine.Generator with Google Gemini.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/toothbrush/confluence-export/combine"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

// Ensure Generator implements combine.Generator at compile time.
var _ combine.Generator = (*Generator)(nil)

// Generator implements combine.Generator using Google Gemini.
type Generator struct {
	client *genai.Client
	model  string
}

// NewClient connects to the Gemini API.  baseURL overrides the endpoint and may be empty.
func NewClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: an API key is required (GEMINI_API_KEY)")
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to connect: %w", err)
	}
	return client, nil
}

// NewGenerator creates a new Generator.  An empty model selects DefaultModel.
func NewGenerator(client *genai.Client, model string) *Generator {
	if model == "" {
		model = DefaultModel
	}
	return &Generator{client: client, model: model}
}

// Generate sends one prompt and returns the text of the first candidate.
func (g *Generator) Generate(ctx context.Context, system, prompt string) (string, error) {
	if prompt == "" {
		return "", errors.New("gemini: prompt required")
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(prompt, "user")},
		BuildConfig(system),
	)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if result == nil {
		return "", errors.New("gemini: returned nil result")
	}

	return result.Text(), nil
}

// BuildConfig returns the GenerateContentConfig for a combination request.
func BuildConfig(system string) *genai.GenerateContentConfig {
	temp := float32(0.3)
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	return cfg
}
