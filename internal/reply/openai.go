package reply

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"

	openai "github.com/openai/openai-go/v3"
)

const systemPrompt = `
You are Jarvis, a voice-first desktop copilot.
Your answers are spoken aloud by a speech synthesizer.

RULES:
1. Answer in one or two short sentences.
2. Plain text only. No markdown, lists, code or emoji.
3. Do not spell out URLs.
4. If you do not know, say so briefly.
`

// OpenAI asks a chat completion model directly instead of going through a
// /api/jarvis backend.
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(client openai.Client, model string) *OpenAI {
	if model == "" {
		model = string(openai.ChatModelGPT5Nano)
	}
	return &OpenAI{client: client, model: model}
}

func (o *OpenAI) Reply(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(o.model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyReply
	}

	log.Debug("Completed", "model", o.model, "chars", len(content))

	return content, nil
}
