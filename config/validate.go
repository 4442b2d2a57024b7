package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate reports every problem found in the config.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, errors.New("workflow name is required"))
	}
	if len(c.Participants) == 0 {
		errs = append(errs, errors.New("at least one participant is required"))
	}
	if c.MaxHops < 0 {
		errs = append(errs, fmt.Errorf("max hops must not be negative, got %d", c.MaxHops))
	}
	seen := map[string]bool{}
	for i, p := range c.Participants {
		switch {
		case p.ID == "":
			errs = append(errs, fmt.Errorf("participant %d: ID is required", i))
		case seen[p.ID]:
			errs = append(errs, fmt.Errorf("participant %s: duplicate ID", p.ID))
		}
		seen[p.ID] = true
		if strings.TrimSpace(p.Description) == "" {
			errs = append(errs, fmt.Errorf("participant %s: description is required", p.ID))
		}
		if _, err := p.Retry.Options(); err != nil {
			errs = append(errs, fmt.Errorf("participant %s: retry: %w", p.ID, err))
		}
	}
	if c.Coordinator != "" && !seen[c.Coordinator] {
		errs = append(errs, fmt.Errorf("coordinator %q is not a participant", c.Coordinator))
	}
	switch c.Store.Type {
	case "", StoreMemory, StoreFile, StoreSQLite, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown store type %q", c.Store.Type))
	}
	if err := c.Logging.validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
