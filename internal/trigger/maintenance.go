// Package trigger holds the pure rules that decide when work is warranted.
// Nothing in here reads a clock or touches storage; every "current" value is an argument.
package trigger

import (
	"time"

	"github.com/ukydev/fleet-compliance/internal/models"
)

// Reading is the evaluation of one configured metric of a template.
type Reading struct {
	Metric   models.Metric `json:"metric"`
	Elapsed  float64       `json:"elapsed"`
	Interval float64       `json:"interval"`
}

// Due reports whether the reading has reached its interval. The boundary is inclusive.
func (r Reading) Due() bool {
	return r.Elapsed >= r.Interval
}

// DueReport collects the readings of every metric configured on a template.
type DueReport struct {
	Readings []Reading `json:"readings"`
}

// Due fires when any configured metric is due (whichever comes first).
func (d DueReport) Due() bool {
	for _, r := range d.Readings {
		if r.Due() {
			return true
		}
	}
	return false
}

// Overshoot is the largest elapsed/interval - 1 across the readings, or 0 with none.
// A value of 0.25 means the most worn metric is 25% past its interval.
func (d DueReport) Overshoot() float64 {
	var worst float64
	for i, r := range d.Readings {
		o := r.Elapsed/r.Interval - 1
		if i == 0 || o > worst {
			worst = o
		}
	}
	return worst
}

// Evaluate computes the elapsed usage of every metric configured on tpl.
// A metric with a missing interval, baseline or current reading is skipped.
func Evaluate(tpl models.MaintenanceTemplate, obs models.UsageObservation) DueReport {
	var report DueReport

	if tpl.IntervalDays != nil && *tpl.IntervalDays > 0 && tpl.LastServiceDate != nil && !obs.CurrentDate.IsZero() {
		report.Readings = append(report.Readings, Reading{
			Metric:   models.MetricDays,
			Elapsed:  float64(CalendarDaysBetween(*tpl.LastServiceDate, obs.CurrentDate)),
			Interval: float64(*tpl.IntervalDays),
		})
	}
	if tpl.IntervalMiles != nil && *tpl.IntervalMiles > 0 && tpl.LastServiceMiles != nil && obs.CurrentMiles != nil {
		report.Readings = append(report.Readings, Reading{
			Metric:   models.MetricMiles,
			Elapsed:  *obs.CurrentMiles - *tpl.LastServiceMiles,
			Interval: *tpl.IntervalMiles,
		})
	}
	if tpl.IntervalHours != nil && *tpl.IntervalHours > 0 && tpl.LastServiceHours != nil && obs.CurrentHours != nil {
		report.Readings = append(report.Readings, Reading{
			Metric:   models.MetricHours,
			Elapsed:  *obs.CurrentHours - *tpl.LastServiceHours,
			Interval: *tpl.IntervalHours,
		})
	}

	return report
}

// IsDue reports whether tpl needs service given the observation.
func IsDue(tpl models.MaintenanceTemplate, obs models.UsageObservation) bool {
	return Evaluate(tpl, obs).Due()
}

// CalendarDaysBetween counts whole UTC calendar days from a to b. It is negative when b precedes a.
func CalendarDaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
