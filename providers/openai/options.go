package openai

import (
	"net/http"

	"github.com/openai/openai-go/option"
)

// Option configures a Provider.
type Option func(*Provider)

func withRequestOption(opt option.RequestOption) Option {
	return func(p *Provider) {
		p.options = append(p.options, opt)
	}
}

// WithAPIKey overrides OPENAI_API_KEY.
func WithAPIKey(apiKey string) Option {
	return withRequestOption(option.WithAPIKey(apiKey))
}

// WithEndpoint points the client at an OpenAI-compatible base URL.
func WithEndpoint(endpoint string) Option {
	return withRequestOption(option.WithBaseURL(endpoint))
}

func WithClient(client *http.Client) Option {
	return withRequestOption(option.WithHTTPClient(client))
}

// WithMaxRetries bounds the SDK's own retries. The coordinator retries
// transient participant failures separately.
func WithMaxRetries(maxRetries int) Option {
	return withRequestOption(option.WithMaxRetries(maxRetries))
}

// WithModel selects the model every participant of this provider uses.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithMaxTokens caps the output tokens of a single participant turn.
func WithMaxTokens(maxTokens int) Option {
	return func(p *Provider) {
		p.maxTokens = maxTokens
	}
}
