// Package openai implements ranking, script writing and speech synthesis on
// the OpenAI API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"dailybrief/internal/ai"
)

const (
	defaultChatModel = openai.GPT4oMini
	defaultTTSModel  = openai.TTSModel1
	defaultVoice     = string(openai.VoiceNova)
)

type Client struct {
	client    *openai.Client
	chatModel string
}

func NewClient(apiKey, chatModel string) *Client {
	if chatModel == "" {
		chatModel = defaultChatModel
	}
	return &Client{
		client:    openai.NewClient(apiKey),
		chatModel: chatModel,
	}
}

// Rank asks the chat model to pick the best candidates and parses its JSON
// reply.
func (c *Client) Rank(ctx context.Context, candidates []ai.Candidate, count int, interests []string) (*ai.RankResult, error) {
	text, err := c.complete(ctx, ai.RankPrompt(candidates, count, interests))
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

// WriteScript asks the chat model for the briefing narration.
func (c *Client) WriteScript(ctx context.Context, req ai.ScriptRequest) (string, error) {
	return c.complete(ctx, ai.ScriptPrompt(req))
}

// Synthesize renders the script to mp3 bytes.
func (c *Client) Synthesize(ctx context.Context, script string, voice string) ([]byte, error) {
	if voice == "" {
		voice = defaultVoice
	}

	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: defaultTTSModel,
		Input: script,
		Voice: openai.SpeechVoice(voice),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio stream: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("empty audio response")
	}
	return audio, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}
