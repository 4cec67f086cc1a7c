package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-compliance/internal/models"
)

// RetryPolicy bounds the exponential backoff applied to store calls.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy is used when Options leave the policy zero.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:      4,
	InitialInterval: 200 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

// withRetry runs fn until it succeeds, fails with anything but
// ErrStoreUnavailable, runs out of retries or ctx ends.
func (s *Service) withRetry(ctx context.Context, op string, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retry.InitialInterval
	bo.MaxInterval = s.retry.MaxInterval
	bo.MaxElapsedTime = 0

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if !errors.Is(err, models.ErrStoreUnavailable) {
			return backoff.Permanent(err)
		}
		s.log.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt,
		}).WithError(err).Warn("Store unavailable, backing off")
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, s.retry.MaxRetries), ctx))
}
