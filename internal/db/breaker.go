package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"github.com/ukydev/fleet-compliance/internal/models"
)

// BreakerSettings configures the circuit breaker around the work order store.
type BreakerSettings struct {
	Name        string
	MaxFailures uint32
	Interval    time.Duration
	Timeout     time.Duration
}

// BreakerCollection guards a WorkOrderCollection with a circuit breaker. Only
// ErrStoreUnavailable counts as a failure; an open breaker is reported as
// ErrStoreUnavailable without touching the store.
type BreakerCollection struct {
	next WorkOrderCollection
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerCollection wraps next.
func NewBreakerCollection(next WorkOrderCollection, s BreakerSettings) *BreakerCollection {
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	maxFailures := s.MaxFailures
	return &BreakerCollection{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     s.Name,
			Interval: s.Interval,
			Timeout:  s.Timeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= maxFailures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || !errors.Is(err, models.ErrStoreUnavailable)
			},
		}),
	}
}

// State exposes the breaker state for health reporting.
func (b *BreakerCollection) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerCollection) execute(fn func() (interface{}, error)) (interface{}, error) {
	res, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: breaker %s: %v", models.ErrStoreUnavailable, b.cb.Name(), err)
	}
	return res, err
}

// InsertWorkOrder implements WorkOrderCollection.
func (b *BreakerCollection) InsertWorkOrder(ctx context.Context, order models.WorkOrder) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.next.InsertWorkOrder(ctx, order)
	})
	return err
}

// FindWorkOrderByID implements WorkOrderCollection.
func (b *BreakerCollection) FindWorkOrderByID(ctx context.Context, id string) (*models.WorkOrder, error) {
	res, err := b.execute(func() (interface{}, error) {
		return b.next.FindWorkOrderByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return res.(*models.WorkOrder), nil
}

// FindWorkOrders implements WorkOrderCollection.
func (b *BreakerCollection) FindWorkOrders(ctx context.Context, filter models.WorkOrderFilter) ([]models.WorkOrder, error) {
	res, err := b.execute(func() (interface{}, error) {
		return b.next.FindWorkOrders(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	return res.([]models.WorkOrder), nil
}

// UpdateWorkOrder implements WorkOrderCollection.
func (b *BreakerCollection) UpdateWorkOrder(ctx context.Context, order models.WorkOrder, expected models.WorkOrderStatus) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.next.UpdateWorkOrder(ctx, order, expected)
	})
	return err
}
