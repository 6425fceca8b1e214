// Package joke fetches short dad jokes from an OpenAI-compatible
// chat-completion API. The provider is total: every failure turns into the
// fallback joke.
package joke

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// FallbackJoke is returned whenever the LLM cannot produce a joke.
const FallbackJoke = "Why don't scientists trust atoms? Because they make up everything!"

type Source string

const (
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
)

type Result struct {
	Text   string
	Source Source
}

// ChatCompleter is the subset of *openai.Client the provider uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Provider struct {
	client  ChatCompleter
	prompt  PromptSpec
	model   string
	timeout time.Duration
}

func NewProvider(client ChatCompleter, prompt PromptSpec, model string) *Provider {
	if prompt.Model != "" {
		model = prompt.Model
	}
	return &Provider{client: client, prompt: prompt, model: model, timeout: 15 * time.Second}
}

// Joke asks the LLM for one joke. It never returns an empty Text.
func (p *Provider) Joke(ctx context.Context) Result {
	text, err := p.complete(ctx)
	if err != nil {
		log.Printf("[joke] error calling LLM API: %v", err)
		return Result{Text: FallbackJoke, Source: SourceFallback}
	}
	return Result{Text: text, Source: SourceLLM}
}

// GetJoke is Joke without the source tag.
func (p *Provider) GetJoke(ctx context.Context) string {
	return p.Joke(ctx).Text
}

func (p *Provider) complete(ctx context.Context) (string, error) {
	if p == nil || p.client == nil {
		return "", errors.New("no LLM client configured")
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: p.prompt.Temperature,
		MaxTokens:   p.prompt.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: p.prompt.User},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty completion")
	}
	return text, nil
}

// NewOpenRouterClient builds a go-openai client pointed at baseURL that adds
// the OpenRouter attribution headers to every request.
func NewOpenRouterClient(apiKey, baseURL, referer, title string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{
		Transport: &headerTransport{
			base: http.DefaultTransport,
			headers: map[string]string{
				"HTTP-Referer": referer,
				"X-Title":      title,
			},
		},
	}
	return openai.NewClientWithConfig(cfg)
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}
