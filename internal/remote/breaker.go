package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerEndpoint guards an Endpoint with a circuit breaker so a dead remote
// is not hammered on every poll tick.
type BreakerEndpoint struct {
	next Endpoint
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker wraps next. The breaker opens after 3 consecutive failures and
// probes again after timeout. Version conflicts do not count as failures.
func WithBreaker(name string, next Endpoint, timeout time.Duration) *BreakerEndpoint {
	st := gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrVersionConflict) || errors.Is(err, context.Canceled)
		},
	}
	return &BreakerEndpoint{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

func (b *BreakerEndpoint) Fetch(ctx context.Context, owner string) (*Document, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.Fetch(ctx, owner)
	})
	if err != nil {
		return nil, breakerErr(err)
	}
	doc, _ := v.(*Document)
	return doc, nil
}

func (b *BreakerEndpoint) Save(ctx context.Context, owner string, doc Document) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Save(ctx, owner, doc)
	})
	return breakerErr(err)
}

// State reports the breaker state, e.g. for readiness checks.
func (b *BreakerEndpoint) State() gobreaker.State {
	return b.cb.State()
}

func breakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
