// Package google implements a workflow participant backend on the Gemini
// API via google.golang.org/genai.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/deepnoodle-ai/relay/coordinator"
	"github.com/deepnoodle-ai/relay/participant"
	"github.com/deepnoodle-ai/relay/providers"
	"github.com/deepnoodle-ai/wonton/retry"
	"google.golang.org/genai"
)

const ProviderName = "google"

var (
	DefaultModel     = "gemini-2.5-flash"
	DefaultMaxTokens = 4096
)

var _ coordinator.Backend = &Provider{}

// Provider constructs participants backed by Gemini models. The genai client
// is created on first use.
type Provider struct {
	client     *genai.Client
	projectID  string
	location   string
	apiKey     string
	endpoint   string
	httpClient *http.Client
	model      string
	maxTokens  int
	mutex      sync.Mutex
}

// New returns a Provider. The API key defaults to GEMINI_API_KEY, then
// GOOGLE_API_KEY.
func New(opts ...Option) *Provider {
	var apiKey string
	if value := os.Getenv("GEMINI_API_KEY"); value != "" {
		apiKey = value
	} else if value := os.Getenv("GOOGLE_API_KEY"); value != "" {
		apiKey = value
	}
	p := &Provider{
		apiKey:    apiKey,
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) initClient(ctx context.Context) (*genai.Client, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	config := &genai.ClientConfig{
		APIKey:     p.apiKey,
		Project:    p.projectID,
		Location:   p.location,
		HTTPClient: p.httpClient,
		Backend:    genai.BackendGeminiAPI,
	}
	if p.projectID != "" {
		config.Backend = genai.BackendVertexAI
	}
	if p.endpoint != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: p.endpoint}
	}
	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create google genai client: %v", err)
	}
	p.client = client
	return p.client, nil
}

func (p *Provider) Name() string {
	return ProviderName
}

func (p *Provider) ModelName() string {
	return p.model
}

// NewParticipant returns a participant driven by spec.
func (p *Provider) NewParticipant(ctx context.Context, spec *coordinator.Spec) (participant.Participant, error) {
	if spec == nil || spec.ID == "" {
		return nil, errors.New("participant spec requires an id")
	}
	return &Participant{provider: p, spec: *spec}, nil
}

// Participant is a single configured Gemini persona.
type Participant struct {
	provider *Provider
	spec     coordinator.Spec
}

var _ participant.Participant = &Participant{}

func (pt *Participant) ID() string {
	return pt.spec.ID
}

func (pt *Participant) Invoke(ctx context.Context, inv *participant.Invocation) (*participant.Result, error) {
	client, err := pt.provider.initClient(ctx)
	if err != nil {
		return nil, err
	}
	contents, system, err := snapshotToContents(pt.spec.ID, inv.Snapshot)
	if err != nil {
		return nil, retry.MarkPermanent(err)
	}
	genConfig, err := buildGenerateConfig(
		providers.JoinInstructions(pt.spec.Instructions, inv.Instruction, system),
		pt.provider.maxTokens,
		providers.OfferedTools(pt.spec.Actions, inv),
	)
	if err != nil {
		return nil, retry.MarkPermanent(err)
	}
	resp, err := client.Models.GenerateContent(ctx, pt.provider.model, contents, genConfig)
	if err != nil {
		return nil, classifyError(err)
	}
	texts, calls, err := convertResponse(resp)
	if err != nil {
		return nil, err
	}
	return providers.BuildResult(pt.spec.ID, pt.spec.Actions, inv.Phase, texts, calls)
}

func classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return providers.WrapError(apiErr.Code, err)
	}
	return fmt.Errorf("error generating content: %w", err)
}
