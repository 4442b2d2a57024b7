package google

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/deepnoodle-ai/relay/conversation"
	"github.com/deepnoodle-ai/relay/participant"
	"github.com/deepnoodle-ai/relay/providers"
	"github.com/deepnoodle-ai/wonton/schema"
	"google.golang.org/genai"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

// snapshotToContents converts the conversation to genai contents. System
// messages are returned separately since Gemini takes them as the system
// instruction.
func snapshotToContents(self string, snapshot conversation.Snapshot) ([]*genai.Content, string, error) {
	turns := providers.Turns(self, snapshot)
	contents := make([]*genai.Content, 0, len(turns))
	var system []string
	for _, turn := range turns {
		var role string
		switch turn.Role {
		case providers.TurnSystem:
			system = append(system, turn.Text)
			continue
		case providers.TurnAssistant:
			role = roleModel
		default:
			role = roleUser
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(turn.Text)},
		})
	}
	if len(contents) == 0 {
		return nil, "", errors.New("no messages provided")
	}
	return contents, providers.JoinInstructions(system...), nil
}

// buildGenerateConfig creates the generation config for one call.
func buildGenerateConfig(instructions string, maxTokens int, tools []participant.Tool) (*genai.GenerateContentConfig, error) {
	genConfig := &genai.GenerateContentConfig{}
	if maxTokens > 0 {
		genConfig.MaxOutputTokens = int32(maxTokens)
	}
	if instructions != "" {
		genConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(instructions)},
		}
	}
	if len(tools) == 0 {
		return genConfig, nil
	}
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		if tool.Name == "" {
			return nil, fmt.Errorf("name is required for tool %+v", tool)
		}
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  convertSchemaToGenAI(tool.Schema),
		})
	}
	genConfig.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
	genConfig.ToolConfig = &genai.ToolConfig{FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto}}
	return genConfig, nil
}

// convertResponse extracts text and function calls from the first candidate.
func convertResponse(resp *genai.GenerateContentResponse) ([]string, []providers.FunctionCall, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, nil, fmt.Errorf("empty response from Google GenAI")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return nil, nil, fmt.Errorf("no content in response")
	}
	var texts []string
	var calls []providers.FunctionCall
	for _, part := range candidate.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return nil, nil, fmt.Errorf("error marshaling function call args: %w", err)
			}
			calls = append(calls, providers.FunctionCall{
				ID:        part.FunctionCall.ID,
				Name:      part.FunctionCall.Name,
				Arguments: string(args),
			})
		case part.Text != "" && !part.Thought:
			texts = append(texts, part.Text)
		}
	}
	return texts, calls, nil
}

// convertSchemaToGenAI converts a tool schema to the genai schema format
func convertSchemaToGenAI(s *schema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	genaiSchema := &genai.Schema{
		Type:        genai.Type(s.Type),
		Description: s.Description,
	}
	if s.Properties != nil {
		genaiSchema.Properties = make(map[string]*genai.Schema)
		for name, prop := range s.Properties {
			genaiSchema.Properties[name] = convertPropertyToGenAI(prop)
		}
	}
	if len(s.Required) > 0 {
		genaiSchema.Required = s.Required
	}
	return genaiSchema
}

func convertPropertyToGenAI(prop *schema.Property) *genai.Schema {
	if prop == nil {
		return nil
	}
	genaiSchema := &genai.Schema{
		Type:        genai.Type(prop.Type),
		Description: prop.Description,
	}
	if len(prop.Enum) > 0 {
		enumValues := make([]string, 0, len(prop.Enum))
		for _, v := range prop.Enum {
			if s, ok := v.(string); ok {
				enumValues = append(enumValues, s)
			}
		}
		genaiSchema.Enum = enumValues
	}
	if prop.Items != nil {
		genaiSchema.Items = convertPropertyToGenAI(prop.Items)
	}
	if prop.Properties != nil {
		genaiSchema.Properties = make(map[string]*genai.Schema)
		for name, nested := range prop.Properties {
			genaiSchema.Properties[name] = convertPropertyToGenAI(nested)
		}
	}
	if len(prop.Required) > 0 {
		genaiSchema.Required = prop.Required
	}
	return genaiSchema
}
