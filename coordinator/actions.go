package coordinator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/relay/participant"
	"github.com/deepnoodle-ai/relay/routing"
	"github.com/deepnoodle-ai/wonton/schema"
)

// ActionKind is the routing effect of a synthetic action.
type ActionKind string

const (
	ActionRoute   ActionKind = "route"
	ActionAskUser ActionKind = "ask_user"
	ActionFinish  ActionKind = "finish"
)

const (
	routeActionPrefix = "route_to_"
	askUserAction     = "ask_user"
	finishAction      = "finish"
)

// Action is a synthetic routing action offered to a derived coordinator.
// Backends with native tool calling expose actions as tools and convert the
// chosen call into a raw decision with Decision.
type Action struct {
	Name        string
	Description string
	Kind        ActionKind
	Target      string
	Schema      *schema.Schema
}

// Tool returns the action as a participant tool description.
func (a Action) Tool() participant.Tool {
	return participant.Tool{Name: a.Name, Description: a.Description, Schema: a.Schema}
}

type actionInput struct {
	Summary    string `json:"summary"`
	UserPrompt string `json:"user_prompt"`
}

// Decision converts the arguments of an action call into the raw decision
// payload understood by routing.Parser.
func (a Action) Decision(input json.RawMessage) (string, error) {
	var in actionInput
	if len(input) > 0 {
		if err := json.Unmarshal(input, &in); err != nil {
			return "", fmt.Errorf("invalid arguments for action %s: %w", a.Name, err)
		}
	}
	d := routing.Decision{Summary: in.Summary}
	switch a.Kind {
	case ActionRoute:
		d.NextParticipant = a.Target
	case ActionAskUser:
		d.UserInputNeeded = true
		d.UserPrompt = in.UserPrompt
	case ActionFinish:
	default:
		return "", fmt.Errorf("unknown action kind %q", a.Kind)
	}
	return d.JSON(), nil
}

// FindAction returns the action with the given name.
func FindAction(actions []Action, name string) (Action, bool) {
	for _, a := range actions {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}

// RoutingActions returns one route action per participant followed by the
// ask_user and finish actions. Ids that map to the same action name get a
// numeric suffix in registration order.
func RoutingActions(descriptions []participant.Description) []Action {
	actions := make([]Action, 0, len(descriptions)+2)
	used := make(map[string]bool, len(descriptions))
	for _, d := range descriptions {
		name := RouteActionName(d.ID)
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s_%d", RouteActionName(d.ID), n)
		}
		used[name] = true
		actions = append(actions, Action{
			Name:        name,
			Description: fmt.Sprintf("Route the work to %s: %s", d.DisplayName, d.Description),
			Kind:        ActionRoute,
			Target:      d.ID,
			Schema:      summarySchema(),
		})
	}
	actions = append(actions,
		Action{
			Name:        askUserAction,
			Description: "Pause the workflow and ask the user a question",
			Kind:        ActionAskUser,
			Schema: &schema.Schema{
				Type:     "object",
				Required: []string{"summary", "user_prompt"},
				Properties: map[string]*schema.Property{
					"summary":     {Type: "string", Description: "Why the question is needed"},
					"user_prompt": {Type: "string", Description: "The question to show the user"},
				},
			},
		},
		Action{
			Name:        finishAction,
			Description: "Finish routing and move on to the final result",
			Kind:        ActionFinish,
			Schema:      summarySchema(),
		},
	)
	return actions
}

// RouteActionName returns the name of the route action for a participant id.
// Characters outside [a-zA-Z0-9_-] are replaced with underscores.
func RouteActionName(id string) string {
	var b strings.Builder
	b.WriteString(routeActionPrefix)
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func summarySchema() *schema.Schema {
	return &schema.Schema{
		Type:     "object",
		Required: []string{"summary"},
		Properties: map[string]*schema.Property{
			"summary": {Type: "string", Description: "A brief summary of the work so far"},
		},
	}
}
