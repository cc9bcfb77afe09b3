package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/MindMate-tech/mri-processor/internal/domain/ai"
)

const maxTokens = 512

const systemPrompt = `You are a clinical documentation assistant. Given MRI volumetric
findings, write a short neutral narrative (3-5 sentences) for a doctor's record.
State observations only; do not diagnose or recommend treatment.`

type Client struct {
	*openai.Client
	Model string
}

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model}
}

// Narrative implements ai.Summarizer.
func (c *Client) Narrative(ctx context.Context, req ai.NarrativeRequest) (string, error) {
	model := c.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Patient: %s, %d years, %s.\n", req.PatientName, req.Age, req.Sex)
	if len(req.Findings) > 0 {
		b.WriteString("Model findings: " + strings.Join(req.Findings, "; ") + ".\n")
	}
	if len(req.Flags) > 0 {
		b.WriteString("Structural observations: " + strings.Join(req.Flags, "; ") + ".\n")
	}

	chatReq := openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: b.String()},
		},
	}

	resp, err := c.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
