// Package workorder owns the work order status graph.
//
// Valid transitions:
//
//	draft -> approved -> in_progress -> completed -> closed
//
// with cancelled reachable from every non-terminal status. closed and
// cancelled are terminal.
package workorder

import (
	"fmt"
	"time"

	"github.com/ukydev/fleet-compliance/internal/models"
)

// AllowedNext returns the statuses reachable in one step from s.
// Terminal and unknown statuses return nil.
func AllowedNext(s models.WorkOrderStatus) []models.WorkOrderStatus {
	switch s {
	case models.StatusDraft:
		return []models.WorkOrderStatus{models.StatusApproved, models.StatusCancelled}
	case models.StatusApproved:
		return []models.WorkOrderStatus{models.StatusInProgress, models.StatusCancelled}
	case models.StatusInProgress:
		return []models.WorkOrderStatus{models.StatusCompleted, models.StatusCancelled}
	case models.StatusCompleted:
		return []models.WorkOrderStatus{models.StatusClosed, models.StatusCancelled}
	default:
		return nil
	}
}

// CanTransition reports whether to is in AllowedNext(from).
func CanTransition(from, to models.WorkOrderStatus) bool {
	for _, next := range AllowedNext(from) {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s models.WorkOrderStatus) bool {
	return s == models.StatusClosed || s == models.StatusCancelled
}

// IsBacklog reports whether an order in status s still counts as outstanding work.
func IsBacklog(s models.WorkOrderStatus) bool {
	switch s {
	case models.StatusCompleted, models.StatusClosed, models.StatusCancelled:
		return false
	default:
		return true
	}
}

// ApplyTransition returns a copy of order moved to status to.
// Entering approved stamps ApprovedAt/ApprovedBy, entering completed stamps
// CompletedAt and entering cancelled clears it, so CompletedAt is set only while
// the order is completed or closed. Nothing is persisted here.
func ApplyTransition(order models.WorkOrder, to models.WorkOrderStatus, actor string, at time.Time) (models.WorkOrder, error) {
	if !CanTransition(order.Status, to) {
		return order, fmt.Errorf("%w: cannot move work order %s from %s to %s",
			models.ErrInvalidTransition, order.ID, order.Status, to)
	}

	next := order
	next.Status = to
	switch to {
	case models.StatusApproved:
		approvedAt := at
		next.ApprovedAt = &approvedAt
		next.ApprovedBy = actor
	case models.StatusCompleted:
		completedAt := at
		next.CompletedAt = &completedAt
	case models.StatusCancelled:
		next.CompletedAt = nil
	}
	return next, nil
}
