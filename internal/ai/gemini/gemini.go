// Package gemini implements article ranking and script writing on Google
// Gemini.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"dailybrief/internal/ai"
)

const defaultModel = "gemini-1.5-flash"

type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Rank asks the model to pick the best candidates and parses its JSON reply.
func (c *Client) Rank(ctx context.Context, candidates []ai.Candidate, count int, interests []string) (*ai.RankResult, error) {
	text, err := c.generate(ctx, ai.RankPrompt(candidates, count, interests))
	if err != nil {
		return nil, err
	}

	var result ai.RankResult
	if err := json.Unmarshal([]byte(ai.StripJSONFences(text)), &result); err != nil {
		return nil, fmt.Errorf("could not parse ranking response: %w", err)
	}
	if len(result.Selected) == 0 {
		return nil, fmt.Errorf("ranking response selected no articles")
	}
	return &result, nil
}

// WriteScript asks the model for the briefing narration.
func (c *Client) WriteScript(ctx context.Context, req ai.ScriptRequest) (string, error) {
	return c.generate(ctx, ai.ScriptPrompt(req))
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.model)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}

	return fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]), nil
}
