package providers

import (
	"encoding/json"
	"fmt"

	"github.com/deepnoodle-ai/relay/conversation"
	"github.com/deepnoodle-ai/relay/coordinator"
	"github.com/deepnoodle-ai/relay/participant"
	"github.com/deepnoodle-ai/wonton/retry"
	"github.com/deepnoodle-ai/wonton/schema"
)

// FunctionCall is a tool call decoded from a provider response.
type FunctionCall struct {
	ID        string
	Name      string
	Arguments string
}

// OfferedTools returns the tools a participant may call for inv. Routing
// actions are only offered on routing hops; synthesis must answer in text.
func OfferedTools(actions []coordinator.Action, inv *participant.Invocation) []participant.Tool {
	var tools []participant.Tool
	if inv.Phase != participant.PhaseSynthesize {
		for _, a := range actions {
			tools = append(tools, a.Tool())
		}
	}
	return append(tools, inv.Tools...)
}

// SchemaMap converts a schema to the generic map form provider SDKs accept.
func SchemaMap(s *schema.Schema) (map[string]any, error) {
	if s == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("error marshaling schema: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("error unmarshaling schema: %w", err)
	}
	return out, nil
}

// BuildResult assembles the participant result from decoded response
// content. Text becomes participant messages and every call is recorded as
// a tool_call message. On routing hops the first call naming a routing
// action is converted into the raw decision.
func BuildResult(self string, actions []coordinator.Action, phase participant.Phase, texts []string, calls []FunctionCall) (*participant.Result, error) {
	result := &participant.Result{}
	for _, text := range texts {
		if text == "" {
			continue
		}
		result.Messages = append(result.Messages, conversation.NewParticipantMessage(self, text))
	}
	decided := false
	for _, call := range calls {
		args := call.Arguments
		if args == "" {
			args = "{}"
		}
		result.Messages = append(result.Messages, conversation.NewToolCallMessage(self, conversation.ToolCallPayload{
			ID:    call.ID,
			Name:  call.Name,
			Input: json.RawMessage(args),
		}))
		if decided || phase == participant.PhaseSynthesize {
			continue
		}
		action, ok := coordinator.FindAction(actions, call.Name)
		if !ok {
			continue
		}
		decision, err := action.Decision(json.RawMessage(args))
		if err != nil {
			return nil, retry.MarkPermanent(err)
		}
		result.RawDecision = decision
		decided = true
	}
	return result, nil
}
