package coordinator

import (
	"bytes"
	"fmt"
	"text/template"
)

var instructionsTemplate *template.Template

func init() {
	var err error
	instructionsTemplate, err = template.New("coordinator_instructions").Parse(instructionsText)
	if err != nil {
		panic(err)
	}
}

func executeTemplate(tmpl *template.Template, input any) (string, error) {
	var buffer bytes.Buffer
	if err := tmpl.Execute(&buffer, input); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buffer.String(), nil
}

type instructionsData struct {
	Name          string
	Workflow      string
	Directory     string
	DecisionRules string
}

var instructionsText = `# Your Role

You are "{{ .Name }}", the coordinator of
{{- if .Workflow }} the "{{ .Workflow }}" workflow{{ else }} this workflow{{ end }}.
You receive every request first and you produce the final result last. In
between, you decide which specialist should work on the request next.

# Participants

The following participants are available. Route to them by id.

{{ .Directory }}

# Routing

- Read the whole conversation before deciding. Earlier participants' work is
  included as plain text.
- Route to the single participant best suited to the next step of the work.
- Route back to yourself only when you must reconsider the plan.
- If the request is ambiguous and you cannot proceed, ask the user a concise
  question instead of guessing.
- When the work is complete, leave the next participant empty. You will then
  be asked to write the final result.

# Decision Format

{{ .DecisionRules }}
`

// FinalSynthesisInstruction is given to the coordinator when the workflow
// reaches a terminal decision.
const FinalSynthesisInstruction = `The workflow is complete. Produce the final consolidated result for the
user based on the entire conversation above. Combine the contributions of
every participant into one coherent answer. Do not include a routing
decision and do not ask further questions.`
