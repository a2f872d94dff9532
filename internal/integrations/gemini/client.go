package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"prompt-gateway/internal/domain"
)

const DefaultModel = "gemini-1.5-flash"

// generator is the slice of *genai.GenerativeModel the client calls.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client adapts the Gemini SDK to the gateway's single-turn Complete call.
type Client struct {
	client *genai.Client
	model  string

	// newModel builds a per-call model so the system instruction and token
	// budget never leak between concurrent requests.
	newModel func(prompt domain.Prompt) generator
}

func New(ctx context.Context, apiKey, model string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini: api key must not be empty")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	c := &Client{client: client, model: model}
	c.newModel = c.configuredModel
	return c, nil
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) configuredModel(prompt domain.Prompt) generator {
	m := c.client.GenerativeModel(c.model)
	if prompt.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(prompt.MaxTokens))
	}
	if prompt.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(prompt.System)}}
	}
	return m
}

func (c *Client) Complete(ctx context.Context, prompt domain.Prompt) (string, error) {
	resp, err := c.newModel(prompt).GenerateContent(ctx, buildParts(prompt)...)
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return "", fmt.Errorf("gemini: status %d: %s", apiErr.Code, apiErr.Message)
		}
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	if resp == nil {
		return "", errors.New("gemini: empty response")
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("gemini: prompt blocked: %v", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("gemini: no candidates in response")
	}
	return extractText(resp), nil
}

func buildParts(prompt domain.Prompt) []genai.Part {
	parts := []genai.Part{genai.Text(prompt.Text)}
	if prompt.Image != nil {
		parts = append(parts, genai.Blob{MIMEType: prompt.Image.ContentType, Data: prompt.Image.Data})
	}
	return parts
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
