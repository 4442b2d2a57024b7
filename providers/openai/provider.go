// Package openai implements a workflow participant backend on the OpenAI
// Responses API.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/deepnoodle-ai/relay/coordinator"
	"github.com/deepnoodle-ai/relay/participant"
	"github.com/deepnoodle-ai/relay/providers"
	"github.com/deepnoodle-ai/wonton/retry"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

var (
	DefaultModel     = openai.ChatModelGPT4o
	DefaultMaxTokens = 4096
)

var _ coordinator.Backend = &Provider{}

// Provider constructs participants that call the Responses API.
type Provider struct {
	client    openai.Client
	model     string
	maxTokens int
	options   []option.RequestOption
}

// New returns a Provider. Without WithAPIKey the client reads OPENAI_API_KEY.
func New(opts ...Option) *Provider {
	p := &Provider{
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.client = openai.NewClient(p.options...)
	return p
}

func (p *Provider) Name() string {
	return "openai"
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

// Participant is a single configured model persona.
type Participant struct {
	provider *Provider
	spec     coordinator.Spec
}

var _ participant.Participant = &Participant{}

// ID returns the participant id the model speaks as.
func (pt *Participant) ID() string {
	return pt.spec.ID
}

func (pt *Participant) Invoke(ctx context.Context, inv *participant.Invocation) (*participant.Result, error) {
	params, err := pt.buildRequestParams(inv)
	if err != nil {
		return nil, retry.MarkPermanent(err)
	}
	response, err := pt.provider.client.Responses.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}
	return pt.convertResponse(inv, response)
}

// classifyError marks API errors that a retry cannot fix as permanent.
func classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return providers.WrapError(apiErr.StatusCode, err)
	}
	return fmt.Errorf("error making request: %w", err)
}

func (pt *Participant) buildRequestParams(inv *participant.Invocation) (responses.ResponseNewParams, error) {
	input, err := convertSnapshot(pt.spec.ID, inv.Snapshot)
	if err != nil {
		return responses.ResponseNewParams{}, err
	}
	params := responses.ResponseNewParams{
		Model: pt.provider.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: input,
		},
	}
	if instructions := providers.JoinInstructions(pt.spec.Instructions, inv.Instruction); instructions != "" {
		params.Instructions = openai.String(instructions)
	}
	if pt.provider.maxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(pt.provider.maxTokens))
	}
	tools, err := convertTools(providers.OfferedTools(pt.spec.Actions, inv))
	if err != nil {
		return responses.ResponseNewParams{}, err
	}
	if len(tools) > 0 {
		params.Tools = tools
	}
	return params, nil
}

func (pt *Participant) convertResponse(inv *participant.Invocation, response *responses.Response) (*participant.Result, error) {
	if response == nil {
		return nil, errors.New("empty response")
	}
	calls := make([]providers.FunctionCall, 0, len(response.Output))
	var texts []string
	for _, item := range response.Output {
		switch item.Type {
		case "message":
			for _, content := range item.AsMessage().Content {
				switch content.Type {
				case "output_text":
					texts = append(texts, content.AsOutputText().Text)
				case "refusal":
					texts = append(texts, content.AsRefusal().Refusal)
				}
			}
		case "function_call":
			call := item.AsFunctionCall()
			calls = append(calls, providers.FunctionCall{ID: call.CallID, Name: call.Name, Arguments: call.Arguments})
		}
	}
	return providers.BuildResult(pt.spec.ID, pt.spec.Actions, inv.Phase, texts, calls)
}
