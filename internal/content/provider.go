// Package content generates menu copy through a prioritized list of
// generative-text providers. Providers are interchangeable; callers see only
// the orchestrator and the audit metadata on each result.
package content

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/config"
	apperrors "github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/errors"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/ratelimit"
)

// GenerationRequest is one prompt sent to a provider.
type GenerationRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// GenerationResult is the raw provider output before parsing or validation.
type GenerationResult struct {
	Text  string
	Model string
}

// Provider is one generative-text backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
}

// httpProvider speaks the chat-completions wire format every configured
// backend exposes. Differences between backends live in config, not code.
type httpProvider struct {
	cfg  config.ProviderConfig
	http *ratelimit.Client
}

// NewHTTPProvider builds a Provider from one config entry.
func NewHTTPProvider(cfg config.ProviderConfig, httpClient *ratelimit.Client) Provider {
	return &httpProvider{cfg: cfg, http: httpClient}
}

func (p *httpProvider) Name() string { return p.cfg.Name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *httpProvider) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.cfg.Timeout)*time.Millisecond)
		defer cancel()
	}

	messages := []chatMessage{}
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = p.cfg.Temperature
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	var resp chatResponse
	endpoint := p.cfg.BaseURL + "/v1/chat/completions"
	err := p.http.PostJSON(ctx, "provider-"+p.cfg.Name, endpoint, header, chatRequest{
		Model:       p.cfg.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, apperrors.NewTransientUpstream("provider-"+p.cfg.Name, fmt.Errorf("empty choices"))
	}

	model := resp.Model
	if model == "" {
		model = p.cfg.Model
	}
	return &GenerationResult{Text: resp.Choices[0].Message.Content, Model: model}, nil
}
