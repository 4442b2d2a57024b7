package config

// Merge merges two configs, with the second one taking precedence.
// Participants are matched by ID; new ones are appended in order.
func Merge(base, override *Config) *Config {
	result := *base

	if override.Name != "" {
		result.Name = override.Name
	}
	if override.Description != "" {
		result.Description = override.Description
	}
	if override.MaxHops != 0 {
		result.MaxHops = override.MaxHops
	}
	if override.Coordinator != "" {
		result.Coordinator = override.Coordinator
	}
	if override.Backend.Provider != "" {
		result.Backend.Provider = override.Backend.Provider
	}
	if override.Backend.Model != "" {
		result.Backend.Model = override.Backend.Model
	}
	if override.Store.Type != "" {
		result.Store = override.Store
	}
	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}

	participants := make([]Participant, 0, len(base.Participants)+len(override.Participants))
	index := make(map[string]int, len(base.Participants))
	for _, p := range base.Participants {
		index[p.ID] = len(participants)
		participants = append(participants, p)
	}
	for _, p := range override.Participants {
		if i, ok := index[p.ID]; ok {
			participants[i] = p
			continue
		}
		index[p.ID] = len(participants)
		participants = append(participants, p)
	}
	result.Participants = participants
	return &result
}
