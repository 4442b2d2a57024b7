package participant

import (
	"context"
	"time"

	"github.com/deepnoodle-ai/wonton/retry"
)

var (
	DefaultMaxAttempts   = 3
	DefaultRetryBaseWait = time.Second
	DefaultRetryMaxWait  = 30 * time.Second
)

// RetryOptions configures WithRetry.
type RetryOptions struct {
	MaxAttempts int
	BaseWait    time.Duration
	MaxWait     time.Duration
}

// WithRetry wraps p so that failed invocations are retried with exponential
// backoff. Errors marked with retry.MarkPermanent are returned immediately.
// This is a collaborator-side policy; the workflow engine itself never
// retries.
func WithRetry(p Participant, opts RetryOptions) Participant {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseWait <= 0 {
		opts.BaseWait = DefaultRetryBaseWait
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultRetryMaxWait
	}
	return &retryingParticipant{inner: p, opts: opts}
}

type retryingParticipant struct {
	inner Participant
	opts  RetryOptions
}

func (p *retryingParticipant) Invoke(ctx context.Context, inv *Invocation) (*Result, error) {
	var result *Result
	err := retry.DoSimple(ctx, func() error {
		r, err := p.inner.Invoke(ctx, inv)
		if err != nil {
			return err
		}
		result = r
		return nil
	}, retry.WithMaxAttempts(p.opts.MaxAttempts), retry.WithBackoff(p.opts.BaseWait, p.opts.MaxWait))
	if err != nil {
		return nil, err
	}
	return result, nil
}
