package openai

import (
	"errors"
	"fmt"

	"github.com/deepnoodle-ai/relay/conversation"
	"github.com/deepnoodle-ai/relay/participant"
	"github.com/deepnoodle-ai/relay/providers"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
)

// convertSnapshot renders the conversation as Responses API input items.
func convertSnapshot(self string, snapshot conversation.Snapshot) ([]responses.ResponseInputItemUnionParam, error) {
	turns := providers.Turns(self, snapshot)
	if len(turns) == 0 {
		return nil, errors.New("no messages provided")
	}
	items := make([]responses.ResponseInputItemUnionParam, 0, len(turns))
	for _, turn := range turns {
		items = append(items, responses.ResponseInputItemUnionParam{
			OfMessage: &responses.EasyInputMessageParam{
				Role: responses.EasyInputMessageRole(turn.Role),
				Content: responses.EasyInputMessageContentUnionParam{
					OfString: openai.String(turn.Text),
				},
			},
		})
	}
	return items, nil
}

// convertTools exposes tools as strict-off function tools.
func convertTools(tools []participant.Tool) ([]responses.ToolUnionParam, error) {
	out := make([]responses.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		parameters, err := providers.SchemaMap(tool.Schema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", tool.Name, err)
		}
		out = append(out, responses.ToolUnionParam{
			OfFunction: &responses.FunctionToolParam{
				Name:        tool.Name,
				Strict:      openai.Bool(false),
				Description: openai.String(tool.Description),
				Parameters:  parameters,
			},
		})
	}
	return out, nil
}
