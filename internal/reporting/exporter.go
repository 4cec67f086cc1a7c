package reporting

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ukydev/fleet-compliance/internal/models"
)

const namespace = "fleet_compliance"

// Exporter publishes the latest snapshot as Prometheus gauges.
type Exporter struct {
	total      prometheus.Gauge
	backlog    prometheus.Gauge
	overdue    prometheus.Gauge
	completion prometheus.Gauge
	mttr       prometheus.Gauge
	mttrKnown  prometheus.Gauge
}

// NewExporter registers the gauges with reg.
func NewExporter(reg prometheus.Registerer) *Exporter {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Subsystem: "work_orders", Name: name, Help: help})
	}
	e := &Exporter{
		total:      gauge("total", "Work orders in the reporting window."),
		backlog:    gauge("backlog", "Work orders not yet completed, closed or cancelled."),
		overdue:    gauge("overdue", "Backlog work orders past their due date."),
		completion: gauge("completion_rate_percent", "Share of work orders completed or closed."),
		mttr:       gauge("mttr_days", "Mean days from creation to completion."),
		mttrKnown:  gauge("mttr_defined", "1 when at least one order has completed, else 0."),
	}
	reg.MustRegister(e.total, e.backlog, e.overdue, e.completion, e.mttr, e.mttrKnown)
	return e
}

// Publish sets every gauge from snap.
func (e *Exporter) Publish(snap models.ReportingSnapshot) {
	e.total.Set(float64(snap.TotalOrders))
	e.backlog.Set(float64(snap.BacklogCount))
	e.overdue.Set(float64(snap.OverdueCount))
	e.completion.Set(float64(snap.CompletionRatePercent))
	if snap.MTTRDays != nil {
		e.mttr.Set(*snap.MTTRDays)
		e.mttrKnown.Set(1)
	} else {
		e.mttr.Set(0)
		e.mttrKnown.Set(0)
	}
}
