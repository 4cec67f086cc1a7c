package models

import (
	"time"
)

// ViolationType says whether a violation was written against the vehicle or the driver.
type ViolationType string

const (
	ViolationVehicle ViolationType = "vehicle"
	ViolationDriver  ViolationType = "driver"
)

// Violation is a single finding on a roadside or yard inspection.
type Violation struct {
	Code        string        `json:"code" bson:"code" validate:"required"`
	Description string        `json:"description" bson:"description"`
	Type        ViolationType `json:"type" bson:"type" validate:"required,oneof=vehicle driver"`
	OOS         bool          `json:"oos" bson:"oos"`
}

// InspectionEvent is an inspection record received from the intake side.
type InspectionEvent struct {
	ID                 string      `json:"id" bson:"_id" validate:"required"`
	ReportNumber       string      `json:"report_number" bson:"report_number" validate:"required"`
	VehicleID          string      `json:"vehicle_id" bson:"vehicle_id" validate:"required"`
	DriverID           string      `json:"driver_id,omitempty" bson:"driver_id,omitempty"`
	InspectionDate     time.Time   `json:"inspection_date" bson:"inspection_date"`
	OutOfService       bool        `json:"out_of_service" bson:"out_of_service"`
	Violations         []Violation `json:"violations" bson:"violations" validate:"dive"`
	RemediationStatus  string      `json:"remediation_status,omitempty" bson:"remediation_status,omitempty"` // "open", "in_progress", "remediated"
	RemediationDueDate *time.Time  `json:"remediation_due_date,omitempty" bson:"remediation_due_date,omitempty"`
}
