package models

import (
	"time"
)

// WorkOrderStatus is a step in the work order lifecycle.
type WorkOrderStatus string

const (
	StatusDraft      WorkOrderStatus = "draft"
	StatusApproved   WorkOrderStatus = "approved"
	StatusInProgress WorkOrderStatus = "in_progress"
	StatusCompleted  WorkOrderStatus = "completed"
	StatusClosed     WorkOrderStatus = "closed"
	StatusCancelled  WorkOrderStatus = "cancelled"
)

// AllStatuses lists every work order status in lifecycle order.
var AllStatuses = []WorkOrderStatus{
	StatusDraft,
	StatusApproved,
	StatusInProgress,
	StatusCompleted,
	StatusClosed,
	StatusCancelled,
}

// IsValidStatus checks if a status is one of the known lifecycle steps
func IsValidStatus(s WorkOrderStatus) bool {
	switch s {
	case StatusDraft, StatusApproved, StatusInProgress, StatusCompleted, StatusClosed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Priority of a work order.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValidPriority checks if a priority is valid
func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Source records what created a work order.
type Source string

const (
	SourceInspection  Source = "inspection"
	SourceMaintenance Source = "maintenance"
	SourceManual      Source = "manual"
)

// WorkOrder is a trackable unit of maintenance or repair work.
type WorkOrder struct {
	ID           string          `json:"id" bson:"_id"`
	Title        string          `json:"title" bson:"title"`
	Description  string          `json:"description" bson:"description"`
	Status       WorkOrderStatus `json:"status" bson:"status"`
	Priority     Priority        `json:"priority" bson:"priority"`
	Source       Source          `json:"source" bson:"source"`
	AssignedTo   string          `json:"assigned_to,omitempty" bson:"assigned_to,omitempty"`
	DueDate      *time.Time      `json:"due_date,omitempty" bson:"due_date,omitempty"`
	EquipmentID  string          `json:"equipment_id,omitempty" bson:"equipment_id,omitempty"`
	InspectionID string          `json:"inspection_id,omitempty" bson:"inspection_id,omitempty"`
	TemplateID   string          `json:"template_id,omitempty" bson:"template_id,omitempty"`
	CreatedBy    string          `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt    time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" bson:"updated_at"`
	ApprovedAt   *time.Time      `json:"approved_at,omitempty" bson:"approved_at,omitempty"`
	ApprovedBy   string          `json:"approved_by,omitempty" bson:"approved_by,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// CreateWorkOrderRequest is a work order raised directly by a user.
type CreateWorkOrderRequest struct {
	Title       string     `json:"title" validate:"required,min=2,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Priority    Priority   `json:"priority" validate:"required,oneof=low medium high"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	EquipmentID string     `json:"equipment_id,omitempty"`
}

// TransitionRequest asks for a work order to move to a new status.
type TransitionRequest struct {
	To WorkOrderStatus `json:"to"`
}

// WorkOrderFilter narrows a work order listing. Zero fields match everything.
type WorkOrderFilter struct {
	EquipmentID  string
	TemplateID   string
	InspectionID string
	Statuses     []WorkOrderStatus
}

// Matches reports whether an order satisfies the filter.
func (f WorkOrderFilter) Matches(o *WorkOrder) bool {
	if f.EquipmentID != "" && o.EquipmentID != f.EquipmentID {
		return false
	}
	if f.TemplateID != "" && o.TemplateID != f.TemplateID {
		return false
	}
	if f.InspectionID != "" && o.InspectionID != f.InspectionID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if o.Status == s {
			return true
		}
	}
	return false
}
