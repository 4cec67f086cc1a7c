package models

import (
	"time"
)

// MaintenanceTemplate is a recurring-service rule for one piece of equipment.
// Each interval is paired with its last-service baseline; a pair left nil is
// not configured.
type MaintenanceTemplate struct {
	ID               string     `json:"id" bson:"_id" validate:"required"`
	Name             string     `json:"name" bson:"name" validate:"required"`
	EquipmentID      string     `json:"equipment_id" bson:"equipment_id" validate:"required"`
	IntervalDays     *int       `json:"interval_days,omitempty" bson:"interval_days,omitempty" validate:"omitempty,gt=0"`
	LastServiceDate  *time.Time `json:"last_service_date,omitempty" bson:"last_service_date,omitempty"`
	IntervalMiles    *float64   `json:"interval_miles,omitempty" bson:"interval_miles,omitempty" validate:"omitempty,gt=0"`
	LastServiceMiles *float64   `json:"last_service_miles,omitempty" bson:"last_service_miles,omitempty" validate:"omitempty,gte=0"`
	IntervalHours    *float64   `json:"interval_hours,omitempty" bson:"interval_hours,omitempty" validate:"omitempty,gt=0"`
	LastServiceHours *float64   `json:"last_service_hours,omitempty" bson:"last_service_hours,omitempty" validate:"omitempty,gte=0"`
	CreatedAt        time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" bson:"updated_at"`
}

// UsageObservation carries the "current" readings a template is evaluated against.
type UsageObservation struct {
	EquipmentID  string    `json:"equipment_id" bson:"_id" validate:"required"`
	CurrentDate  time.Time `json:"current_date" bson:"current_date" validate:"required"`
	CurrentMiles *float64  `json:"current_miles,omitempty" bson:"current_miles,omitempty" validate:"omitempty,gte=0"`
	CurrentHours *float64  `json:"current_hours,omitempty" bson:"current_hours,omitempty" validate:"omitempty,gte=0"`
}

// Metric is a usage dimension a template can be scheduled on.
type Metric string

const (
	MetricDays  Metric = "days"
	MetricMiles Metric = "miles"
	MetricHours Metric = "hours"
)
