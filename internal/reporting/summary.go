// Package reporting derives dashboard KPIs and the risk watchlist from work
// orders and inspections. Everything here is computed on demand from the
// slices handed in; nothing is cached or persisted.
package reporting

import (
	"math"
	"time"

	"github.com/ukydev/fleet-compliance/internal/models"
	"github.com/ukydev/fleet-compliance/internal/trigger"
	"github.com/ukydev/fleet-compliance/internal/workorder"
)

// Summarize computes the KPI snapshot of orders as of asOf.
func Summarize(orders []models.WorkOrder, asOf time.Time) models.ReportingSnapshot {
	snap := models.ReportingSnapshot{
		AsOf:        asOf,
		TotalOrders: len(orders),
	}

	var (
		done        int
		repairTotal float64
		repaired    int
	)
	for i := range orders {
		o := &orders[i]
		if workorder.IsBacklog(o.Status) {
			snap.BacklogCount++
			if IsOverdue(o, asOf) {
				snap.OverdueCount++
			}
		}
		if o.Status == models.StatusCompleted || o.Status == models.StatusClosed {
			done++
		}
		if o.CompletedAt != nil {
			repairTotal += o.CompletedAt.Sub(o.CreatedAt).Hours() / 24
			repaired++
		}
	}

	if repaired > 0 {
		mttr := repairTotal / float64(repaired)
		snap.MTTRDays = &mttr
	}
	if snap.TotalOrders > 0 {
		snap.CompletionRatePercent = int(math.Round(100 * float64(done) / float64(snap.TotalOrders)))
	}
	return snap
}

// IsOverdue reports whether a backlog order's due day is before asOf's day.
func IsOverdue(o *models.WorkOrder, asOf time.Time) bool {
	if o.DueDate == nil || !workorder.IsBacklog(o.Status) {
		return false
	}
	return trigger.DateOf(*o.DueDate).Before(trigger.DateOf(asOf))
}

// Window is a half-open [From, To) reporting range. A zero bound is open.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && !t.Before(w.To) {
		return false
	}
	return true
}

// FilterCreatedWithin returns the orders created inside w.
func FilterCreatedWithin(orders []models.WorkOrder, w Window) []models.WorkOrder {
	out := make([]models.WorkOrder, 0, len(orders))
	for _, o := range orders {
		if w.Contains(o.CreatedAt) {
			out = append(out, o)
		}
	}
	return out
}
