// Package answer phrases a natural-language answer from retrieved article
// text. The rest of the system treats the composer as an opaque function.
package answer

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "Jesteś prawnikiem specjalizującym się w polskim prawie. " +
	"Odpowiadasz na pytania użytkowników na podstawie przepisów prawnych."

// previewLimit caps each provision's contribution to the prompt.
const previewLimit = 300

// ArticleContext is one retrieved provision handed to the composer.
type ArticleContext struct {
	ArticleNumber string
	LawName       string
	Content       string
}

// Composer produces an answer string from a question and retrieved context.
type Composer interface {
	Compose(ctx context.Context, question string, contexts []ArticleContext) (string, error)
}

// OpenAIComposer calls the OpenAI chat completion API.
type OpenAIComposer struct {
	client      *openai.Client
	model       string
	temperature float32
}

func NewOpenAIComposer(apiKey, model string, temperature float32) *OpenAIComposer {
	return &OpenAIComposer{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
	}
}

func (c *OpenAIComposer) Compose(ctx context.Context, question string, contexts []ArticleContext) (string, error) {
	var sb strings.Builder
	for _, article := range contexts {
		fmt.Fprintf(&sb, "\n\nArtykuł %s (%s):\n%s", article.ArticleNumber, article.LawName, preview(article.Content))
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   1000,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Pytanie: %s\n\nPowiązane przepisy:%s", question, sb.String())},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit]) + "..."
}
