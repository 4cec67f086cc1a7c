package models

import (
	"time"
)

// ReportingSnapshot holds KPIs derived from a set of work orders. It is never persisted.
type ReportingSnapshot struct {
	AsOf                  time.Time `json:"as_of"`
	TotalOrders           int       `json:"total_orders"`
	BacklogCount          int       `json:"backlog_count"`
	OverdueCount          int       `json:"overdue_count"`
	MTTRDays              *float64  `json:"mttr_days"`
	CompletionRatePercent int       `json:"completion_rate_percent"`
}

// EquipmentRisk is one equipment row on the risk watchlist.
type EquipmentRisk struct {
	EquipmentID             string `json:"equipment_id"`
	OpenOrders              int    `json:"open_orders"`
	OverdueOrders           int    `json:"overdue_orders"`
	OutOfServiceInspections int    `json:"out_of_service_inspections"`
}

// DriverRisk is one driver row on the risk watchlist.
type DriverRisk struct {
	DriverID                string `json:"driver_id"`
	Inspections             int    `json:"inspections"`
	OutOfServiceInspections int    `json:"out_of_service_inspections"`
	DriverViolations        int    `json:"driver_violations"`
}

// Watchlist groups the equipment and driver risk rows.
type Watchlist struct {
	AsOf      time.Time       `json:"as_of"`
	Equipment []EquipmentRisk `json:"equipment"`
	Drivers   []DriverRisk    `json:"drivers"`
}
