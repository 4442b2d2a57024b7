package routing

import (
	"encoding/json"
	"strings"
)

// Lookup reports whether a participant id is registered.
type Lookup interface {
	Has(id string) bool
}

// Parser extracts decisions from participant output and validates them
// against the set of known participants.
type Parser struct {
	lookup Lookup
}

// NewParser returns a Parser that validates next_participant with lookup.
func NewParser(lookup Lookup) *Parser {
	return &Parser{lookup: lookup}
}

// Parse extracts a Decision from raw participant output. Rules are applied
// in order and the first violation is returned:
//
//  1. a decision object with "summary" and "user_input_needed" must be
//     present (*ParseError)
//  2. a non-empty next_participant must be registered (*RoutingError)
//  3. user_input_needed requires a non-empty user_prompt (*ValidationError)
func (p *Parser) Parse(raw string) (Decision, error) {
	payload, ok := Extract(raw)
	if !ok {
		return Decision{}, &ParseError{Raw: raw, Reason: "no decision object found in output"}
	}
	decision, err := decode(payload)
	if err != nil {
		return Decision{}, err
	}
	if decision.NextParticipant != "" && (p.lookup == nil || !p.lookup.Has(decision.NextParticipant)) {
		return Decision{}, &RoutingError{Raw: payload, Participant: decision.NextParticipant}
	}
	if decision.UserInputNeeded && strings.TrimSpace(decision.UserPrompt) == "" {
		return Decision{}, &ValidationError{
			Raw:    payload,
			Field:  "user_prompt",
			Reason: "must be non-empty when user_input_needed is true",
		}
	}
	return decision, nil
}

// Extract locates the decision payload within raw output. It looks for a
// <decision> tag first, then a fenced json block, then the last top-level
// JSON object in the text.
func Extract(raw string) (string, bool) {
	if payload, ok := extractTag(raw, "decision"); ok {
		return payload, true
	}
	if payload, ok := extractFence(raw); ok {
		return payload, true
	}
	return extractLastObject(raw)
}

func extractTag(text, tag string) (string, bool) {
	openTag := "<" + tag + ">"
	closeTag := "</" + tag + ">"
	start := strings.LastIndex(text, openTag)
	if start == -1 {
		return "", false
	}
	end := strings.Index(text[start:], closeTag)
	if end == -1 {
		return "", false
	}
	body := strings.TrimSpace(text[start+len(openTag) : start+end])
	if body == "" {
		return "", false
	}
	if inner, ok := extractFence(body); ok {
		return inner, true
	}
	return body, true
}

func extractFence(text string) (string, bool) {
	const fence = "```"
	var found string
	rest := text
	for {
		start := strings.Index(rest, fence)
		if start == -1 {
			break
		}
		afterOpen := rest[start+len(fence):]
		// Skip the language tag, if any.
		newline := strings.IndexByte(afterOpen, '\n')
		if newline == -1 {
			break
		}
		lang := strings.TrimSpace(afterOpen[:newline])
		body := afterOpen[newline+1:]
		end := strings.Index(body, fence)
		if end == -1 {
			break
		}
		if lang == "" || strings.EqualFold(lang, "json") {
			candidate := strings.TrimSpace(body[:end])
			if strings.HasPrefix(candidate, "{") {
				found = candidate
			}
		}
		rest = body[end+len(fence):]
	}
	return found, found != ""
}

func extractLastObject(text string) (string, bool) {
	var (
		last     string
		depth    int
		start    = -1
		inString bool
		escaped  bool
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				candidate := text[start : i+1]
				if json.Valid([]byte(candidate)) {
					last = candidate
				}
				start = -1
			}
		}
	}
	return last, last != ""
}

func decode(payload string) (Decision, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return Decision{}, &ParseError{Raw: payload, Reason: "decision is not a JSON object", Err: err}
	}
	var d Decision
	if err := requireField(fields, payload, "summary", &d.Summary); err != nil {
		return Decision{}, err
	}
	if err := requireField(fields, payload, "user_input_needed", &d.UserInputNeeded); err != nil {
		return Decision{}, err
	}
	if err := optionalString(fields, payload, "next_participant", &d.NextParticipant); err != nil {
		return Decision{}, err
	}
	if err := optionalString(fields, payload, "user_prompt", &d.UserPrompt); err != nil {
		return Decision{}, err
	}
	d.NextParticipant = strings.TrimSpace(d.NextParticipant)
	return d, nil
}

func requireField(fields map[string]json.RawMessage, payload, name string, dst any) error {
	value, ok := fields[name]
	if !ok || string(value) == "null" {
		return &ParseError{Raw: payload, Reason: "missing required field " + name}
	}
	if err := json.Unmarshal(value, dst); err != nil {
		return &ParseError{Raw: payload, Reason: "invalid field " + name, Err: err}
	}
	return nil
}

func optionalString(fields map[string]json.RawMessage, payload, name string, dst *string) error {
	value, ok := fields[name]
	if !ok || string(value) == "null" {
		return nil
	}
	if err := json.Unmarshal(value, dst); err != nil {
		return &ParseError{Raw: payload, Reason: "invalid field " + name, Err: err}
	}
	return nil
}
