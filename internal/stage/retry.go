package stage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/utils"
)

const (
	DefaultTimeout = 45 * time.Second
	DefaultBackoff = 500 * time.Millisecond
)

// Policy bounds every attempt of a stage against the completion service.
type Policy struct {
	// Timeout applies to each attempt separately.
	Timeout time.Duration
	// Backoff is the pause before the single retry.
	Backoff time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Timeout: DefaultTimeout, Backoff: DefaultBackoff}
}

func (p Policy) withDefaults() Policy {
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	return p
}

// Invoke runs fn under the per-attempt timeout and retries it once with the
// same input when the first attempt failed transiently. No retry happens after
// the parent context is done.
func Invoke[T any](ctx context.Context, log *zap.Logger, policy Policy, fn func(context.Context) (T, error)) (T, error) {
	policy = policy.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}

	result, err := attempt(ctx, policy.Timeout, fn)
	if err == nil {
		return result, nil
	}

	if ctx.Err() != nil || Classify(err) != CauseTransient {
		return result, err
	}

	log.Warn("transient failure, retrying once",
		zap.Duration("backoff", policy.Backoff),
		zap.Error(err),
	)

	if waitErr := utils.WaitFor(ctx, policy.Backoff); waitErr != nil {
		return result, waitErr
	}

	return attempt(ctx, policy.Timeout, fn)
}

func attempt[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(callCtx)
}
