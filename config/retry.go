package config

import (
	"fmt"
	"time"

	"github.com/deepnoodle-ai/relay/participant"
)

// Options converts the retry settings to participant.RetryOptions. Unset
// fields keep the participant package defaults.
func (r *Retry) Options() (participant.RetryOptions, error) {
	var opts participant.RetryOptions
	if r == nil {
		return opts, nil
	}
	if r.MaxAttempts < 0 {
		return opts, fmt.Errorf("max attempts must not be negative, got %d", r.MaxAttempts)
	}
	opts.MaxAttempts = r.MaxAttempts
	var err error
	if opts.BaseWait, err = parseDuration("base wait", r.BaseWait); err != nil {
		return opts, err
	}
	if opts.MaxWait, err = parseDuration("max wait", r.MaxWait); err != nil {
		return opts, err
	}
	return opts, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", field, value)
	}
	return d, nil
}
