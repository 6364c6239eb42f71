// Package llm wraps the OpenAI-compatible chat API behind the two calls the
// core needs: interactive reply completion and the off-path transcript
// summarization.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/DandyChux/raecer-bot/app/config"
	"github.com/DandyChux/raecer-bot/app/service/store"
	"github.com/samber/do"
	"github.com/sashabaranov/go-openai"

	_ "embed"
)

//go:embed system_prompt.txt
var systemPromptTemplate string

//go:embed summary_prompt.txt
var summaryPromptTemplate string

type Client struct {
	cfg *config.Config

	replyClient   *openai.Client
	summaryClient *openai.Client
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Client{
		cfg:           cfg,
		replyClient:   createClient(cfg.OpenAI.Reply),
		summaryClient: createClient(cfg.OpenAI.Summary),
	}, nil
}

func createClient(cfg config.ModelConfig) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.Token)

	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: 2 * time.Duration(cfg.TimeoutSeconds) * time.Second,
	}

	return openai.NewClientWithConfig(clientConfig)
}

// Complete generates the assistant reply for the given turn history. The
// accumulated entities are rendered into the system prompt so the model can
// steer around what has already been reported.
func (c *Client) Complete(ctx context.Context, turns []store.Turn, entities store.EntityMap) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: renderTemplate(systemPromptTemplate, entities),
	})
	messages = append(messages, toOpenAIMessages(turns)...)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ReplyTimeout())
	defer cancel()

	aiResponse, err := c.replyClient.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:               c.cfg.OpenAI.Reply.Model,
			Messages:            messages,
			MaxCompletionTokens: 1024,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(aiResponse.Choices) == 0 {
		return "", fmt.Errorf("no chat completion found")
	}

	return strings.TrimSpace(aiResponse.Choices[0].Message.Content), nil
}

// Summarize runs the final extraction prompt over the complete transcript
// and coerces the model's JSON into the narrative fields. Zero temperature
// for deterministic output.
func (c *Client) Summarize(ctx context.Context, turns []store.Turn, entities store.EntityMap) (concerns, fullSummary string, err error) {
	messages := toOpenAIMessages(turns)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: renderTemplate(summaryPromptTemplate, entities),
	})

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SummaryTimeout())
	defer cancel()

	aiResponse, err := c.summaryClient.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:               c.cfg.OpenAI.Summary.Model,
			Messages:            messages,
			MaxCompletionTokens: 2048,
			Temperature:         0,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return "", "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(aiResponse.Choices) == 0 {
		return "", "", fmt.Errorf("no chat completion found")
	}

	result := aiResponse.Choices[0].Message.Content
	result = strings.Trim(result, "`")
	result = strings.TrimSpace(result)
	result = strings.TrimPrefix(result, "json")
	result = strings.TrimSpace(result)

	var response struct {
		PatientConcerns string `json:"patient_concerns"`
		FullSummary     string `json:"full_summary"`
	}
	if err = json.Unmarshal([]byte(result), &response); err != nil {
		return "", "", fmt.Errorf("failed to unmarshal summary response: %w", err)
	}

	return response.PatientConcerns, response.FullSummary, nil
}

func toOpenAIMessages(turns []store.Turn) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns))

	for _, turn := range turns {
		role := openai.ChatMessageRoleUser
		if turn.Role == store.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}

		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}

	return messages
}

func renderTemplate(template string, entities store.EntityMap) string {
	return strings.ReplaceAll(template, "{entities}", formatEntities(entities))
}

func formatEntities(entities store.EntityMap) string {
	if entities.IsEmpty() {
		return "None yet."
	}

	var builder strings.Builder

	for _, category := range entities.Categories() {
		builder.WriteString(category)
		builder.WriteString(": ")
		builder.WriteString(strings.Join(entities.Terms(category), ", "))
		builder.WriteString("\n")
	}

	return strings.TrimSpace(builder.String())
}
