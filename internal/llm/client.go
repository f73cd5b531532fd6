// Package llm wraps the OpenAI-compatible chat-completion provider behind the
// three call shapes the application needs: a token stream for the dialogue
// turn, a single-shot JSON-object completion for structured output (recipe
// generation, memory extraction), and a vision call for photo ingredient
// extraction.
//
// The package exposes plain channels and strings; prompt construction and
// response parsing belong to the services layer.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/adilkhanna/scratch-meal/internal/config"
)

// Roles for Message.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a provider-agnostic chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ErrEmptyCompletion is returned when the provider answers with no choices or
// empty content. Callers treat it as a hard upstream failure (no retry).
var ErrEmptyCompletion = errors.New("llm: empty completion")

// Client provides access to an OpenAI-compatible endpoint.
type Client struct {
	api         *openai.Client
	chatModel   string
	visionModel string
}

// New creates a Client from provider configuration. The base URL may point at
// any OpenAI-compatible endpoint.
func New(cfg config.OpenAIConfig) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return &Client{
		api:         openai.NewClientWithConfig(clientConfig),
		chatModel:   cfg.ChatModel,
		visionModel: cfg.VisionModel,
	}
}

// StreamChat opens a streaming chat completion and relays content deltas on
// the returned chunk channel. Both channels are closed when the stream ends;
// at most one error is sent. Cancelling ctx tears the stream down.
func (c *Client) StreamChat(ctx context.Context, messages []Message) (<-chan string, <-chan error) {
	chunks := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:       c.chatModel,
			Messages:    toOpenAI(messages),
			Stream:      true,
			MaxTokens:   1000,
			Temperature: 0.7,
		})
		if err != nil {
			errs <- fmt.Errorf("llm: open stream: %w", err)
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errs <- fmt.Errorf("llm: stream recv: %w", err)
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if delta := resp.Choices[0].Delta.Content; delta != "" {
				select {
				case chunks <- delta:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
		}
	}()

	return chunks, errs
}

// CompleteJSON performs a non-streaming completion with the provider's JSON
// object response format and returns the raw content string. The caller
// parses it exactly once; malformed output is the caller's error to surface.
func (c *Client) CompleteJSON(ctx context.Context, messages []Message, maxTokens int, temperature float32) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    toOpenAI(messages),
		MaxTokens:   maxTokens,
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}

	log.Debug().
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("llm completion")

	return resp.Choices[0].Message.Content, nil
}

// ingredientExtractionPrompt instructs the vision model to name individual
// ingredients, not dishes, and to answer with a single JSON object.
const ingredientExtractionPrompt = `You are an expert food recognition AI. Analyze this image and extract ALL visible food ingredients.

RULES:
1. Identify individual ingredients, not dishes or meals
2. Be specific (e.g., "red bell pepper" not just "pepper")
3. If something is unclear, make your best educated guess
4. Return only ingredient names
5. Use common English names

Return ONLY a JSON object:
{
  "ingredients": ["ingredient1", "ingredient2", ...]
}`

// ExtractIngredients runs the single-shot vision call over a base64 JPEG and
// returns the recognized ingredient names. An empty slice is a valid answer.
func (c *Client) ExtractIngredients(ctx context.Context, photoBase64 string) ([]string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: ingredientExtractionPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: "data:image/jpeg;base64," + photoBase64,
						},
					},
				},
			},
		},
		MaxTokens:   500,
		Temperature: 0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llm: extract ingredients: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	var parsed struct {
		Ingredients []string `json:"ingredients"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("llm: parse ingredient response: %w", err)
	}
	return parsed.Ingredients, nil
}

func toOpenAI(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
