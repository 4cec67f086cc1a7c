package db

import (
	"context"

	"github.com/ukydev/fleet-compliance/internal/models"
	"github.com/ukydev/fleet-compliance/internal/workorder"
)

// WorkOrderCollection defines the interface for work order persistence.
//
// InsertWorkOrder fails with models.ErrDuplicateTrigger when the order would be a
// second record for the same inspection, or a second open order for the same
// (equipment, template) pair. UpdateWorkOrder only applies when the stored status
// still equals expected, otherwise models.ErrConcurrentModify.
type WorkOrderCollection interface {
	InsertWorkOrder(ctx context.Context, order models.WorkOrder) error
	FindWorkOrderByID(ctx context.Context, id string) (*models.WorkOrder, error)
	FindWorkOrders(ctx context.Context, filter models.WorkOrderFilter) ([]models.WorkOrder, error)
	UpdateWorkOrder(ctx context.Context, order models.WorkOrder, expected models.WorkOrderStatus) error
}

// TemplateCollection defines the interface for maintenance template operations.
type TemplateCollection interface {
	UpsertTemplate(ctx context.Context, tpl models.MaintenanceTemplate) error
	// FindTemplates returns all templates, or only one equipment's when equipmentID is set.
	FindTemplates(ctx context.Context, equipmentID string) ([]models.MaintenanceTemplate, error)
}

// UsageCollection keeps the latest usage reading per equipment.
type UsageCollection interface {
	RecordUsage(ctx context.Context, obs models.UsageObservation) error
	LatestUsage(ctx context.Context, equipmentID string) (*models.UsageObservation, error)
}

// InspectionCollection defines the interface for recorded inspections.
type InspectionCollection interface {
	// InsertInspection returns models.ErrDuplicateTrigger for an inspection already recorded.
	InsertInspection(ctx context.Context, ev models.InspectionEvent) error
	FindInspections(ctx context.Context) ([]models.InspectionEvent, error)
}

// OpenKey identifies the single open maintenance order allowed per equipment and
// template. It is empty for every other order.
func OpenKey(o models.WorkOrder) string {
	if o.Source != models.SourceMaintenance || workorder.IsTerminal(o.Status) {
		return ""
	}
	return "maintenance:" + o.EquipmentID + ":" + o.TemplateID
}
