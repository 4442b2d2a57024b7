package google

import "net/http"

// Option configures a Provider.
type Option func(*Provider)

// WithProjectID selects Vertex AI in the given project instead of the
// Gemini API.
func WithProjectID(projectID string) Option {
	return func(p *Provider) {
		p.projectID = projectID
	}
}

// WithLocation sets the Vertex AI region. Ignored without WithProjectID.
func WithLocation(location string) Option {
	return func(p *Provider) {
		p.location = location
	}
}

// WithModel selects the Gemini model every participant uses.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithMaxTokens caps the output tokens of one participant turn.
func WithMaxTokens(maxTokens int) Option {
	return func(p *Provider) {
		p.maxTokens = maxTokens
	}
}

// WithAPIKey overrides GEMINI_API_KEY and GOOGLE_API_KEY.
func WithAPIKey(apiKey string) Option {
	return func(p *Provider) {
		p.apiKey = apiKey
	}
}

// WithEndpoint overrides the API base URL.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) {
		p.endpoint = endpoint
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = client
	}
}
