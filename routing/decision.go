// Package routing extracts and validates the routing decision a participant
// emits at the end of each hop.
package routing

import (
	"encoding/json"

	"github.com/deepnoodle-ai/wonton/schema"
)

// Decision is the structured signal a participant produces to say where the
// workflow goes next.
type Decision struct {
	// Summary is a short description of what the participant accomplished.
	Summary string `json:"summary"`

	// NextParticipant is the id of the participant to route to. Empty means
	// the workflow is done and should be synthesized.
	NextParticipant string `json:"next_participant,omitempty"`

	// UserInputNeeded requests a suspension for external input.
	UserInputNeeded bool `json:"user_input_needed"`

	// UserPrompt is shown to the external actor when UserInputNeeded is set.
	UserPrompt string `json:"user_prompt,omitempty"`
}

// Terminal reports whether the decision ends routing.
func (d Decision) Terminal() bool {
	return !d.UserInputNeeded && d.NextParticipant == ""
}

// JSON returns the canonical encoding of the decision.
func (d Decision) JSON() string {
	data, _ := json.Marshal(d)
	return string(data)
}

// Schema returns the JSON schema of a decision payload.
func Schema() *schema.Schema {
	return &schema.Schema{
		Type:     "object",
		Required: []string{"summary", "user_input_needed"},
		Properties: map[string]*schema.Property{
			"summary": {
				Type:        "string",
				Description: "A brief summary of the work performed in this step",
			},
			"next_participant": {
				Type:        "string",
				Description: "The id of the participant that should act next. Omit or leave empty when the work is complete",
			},
			"user_input_needed": {
				Type:        "boolean",
				Description: "Whether the workflow must pause for input from the user",
			},
			"user_prompt": {
				Type:        "string",
				Description: "The question to ask the user. Required when user_input_needed is true",
			},
		},
	}
}

// FormatInstructions explains to a participant how to report its decision.
const FormatInstructions = `When you finish your turn, end your response with a routing decision wrapped
in <decision></decision> tags containing a single JSON object:

<decision>
{"summary": "...", "next_participant": "<id or empty>", "user_input_needed": false, "user_prompt": ""}
</decision>

- "summary" and "user_input_needed" are required.
- Set "next_participant" to the id of the participant that should act next,
  or leave it empty when the work is complete.
- Set "user_input_needed" to true and provide "user_prompt" when you need
  information from the user before continuing.`
