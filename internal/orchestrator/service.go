// Package orchestrator turns inspection events, usage readings and user
// actions into persisted work order changes.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-compliance/internal/db"
	"github.com/ukydev/fleet-compliance/internal/models"
	"github.com/ukydev/fleet-compliance/internal/trigger"
	"github.com/ukydev/fleet-compliance/internal/workorder"
)

// Stores groups the collections the service reads and writes. Only Orders is required.
type Stores struct {
	Orders      db.WorkOrderCollection
	Templates   db.TemplateCollection
	Usage       db.UsageCollection
	Inspections db.InspectionCollection
}

// Options tune the service. Zero values pick the defaults.
type Options struct {
	// EscalationRatio raises maintenance orders to high priority once the most
	// worn metric is this far past its interval (0.25 = 25%). 0 disables it.
	EscalationRatio float64
	Retry           RetryPolicy
	Now             func() time.Time
	NewID           func() string
}

// Service coordinates the evaluators, the state machine and the stores.
type Service struct {
	stores Stores
	log    logrus.FieldLogger
	locks  *KeyLock

	escalation float64
	retry      RetryPolicy
	now        func() time.Time
	newID      func() string
}

// NewService creates a service over stores.
func NewService(stores Stores, logger logrus.FieldLogger, opts Options) *Service {
	if opts.Retry == (RetryPolicy{}) {
		opts.Retry = DefaultRetryPolicy
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Service{
		stores:     stores,
		log:        logger.WithField("component", "orchestrator"),
		locks:      NewKeyLock(),
		escalation: opts.EscalationRatio,
		retry:      opts.Retry,
		now:        opts.Now,
		newID:      opts.NewID,
	}
}

// OnInspectionRecorded records ev and opens a remediation order when it warrants one.
// It returns nil when no order was created, including on redelivery of an inspection
// that already produced one.
func (s *Service) OnInspectionRecorded(ctx context.Context, ev models.InspectionEvent) (*models.WorkOrder, error) {
	if err := trigger.ValidateInspection(ev); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(inspectionKey(ev.ID))
	defer unlock()

	logger := s.log.WithFields(logrus.Fields{
		"inspection_id": ev.ID,
		"report_number": ev.ReportNumber,
		"vehicle_id":    ev.VehicleID,
	})

	if s.stores.Inspections != nil {
		err := s.withRetry(ctx, "insert_inspection", func() error {
			return s.stores.Inspections.InsertInspection(ctx, ev)
		})
		switch {
		case errors.Is(err, models.ErrDuplicateTrigger):
			logger.Debug("Inspection already recorded")
		case err != nil:
			return nil, fmt.Errorf("record inspection %s: %w", ev.ID, err)
		}
	}

	if !trigger.ShouldCreateWorkOrder(ev.OutOfService, ev.Violations) {
		logger.Debug("Inspection does not require remediation")
		return nil, nil
	}

	now := s.now()
	order := models.WorkOrder{
		ID:           s.newID(),
		Title:        fmt.Sprintf("Remediate inspection %s on %s", ev.ReportNumber, ev.VehicleID),
		Description:  inspectionDescription(ev),
		Status:       models.StatusDraft,
		Priority:     inspectionPriority(ev),
		Source:       models.SourceInspection,
		DueDate:      ev.RemediationDueDate,
		EquipmentID:  ev.VehicleID,
		InspectionID: ev.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.insert(ctx, order, logger)
	if err != nil {
		return nil, fmt.Errorf("create order for inspection %s: %w", ev.ID, err)
	}
	return created, nil
}

// OnMaintenanceTick opens a maintenance order for tpl when obs shows it is due and
// no open order exists for the same equipment and template. Ticks that find an
// open order are no-ops and return nil.
func (s *Service) OnMaintenanceTick(ctx context.Context, tpl models.MaintenanceTemplate, obs models.UsageObservation) (*models.WorkOrder, error) {
	if err := trigger.ValidateTemplate(tpl); err != nil {
		return nil, err
	}
	if err := trigger.ValidateObservation(obs); err != nil {
		return nil, err
	}
	if obs.EquipmentID != tpl.EquipmentID {
		return nil, fmt.Errorf("%w: observation for %s evaluated against template %s of %s",
			models.ErrInvalidArgument, obs.EquipmentID, tpl.ID, tpl.EquipmentID)
	}

	report := trigger.Evaluate(tpl, obs)
	if !report.Due() {
		return nil, nil
	}

	unlock := s.locks.Lock(maintenanceKey(tpl.EquipmentID, tpl.ID))
	defer unlock()

	logger := s.log.WithFields(logrus.Fields{
		"template_id":  tpl.ID,
		"equipment_id": tpl.EquipmentID,
	})

	var open []models.WorkOrder
	err := s.withRetry(ctx, "find_open_maintenance", func() error {
		var err error
		open, err = s.stores.Orders.FindWorkOrders(ctx, models.WorkOrderFilter{
			EquipmentID: tpl.EquipmentID,
			TemplateID:  tpl.ID,
			Statuses:    openStatuses(),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("look up open orders for template %s: %w", tpl.ID, err)
	}
	if len(open) > 0 {
		logger.WithField("work_order_id", open[0].ID).Debug("Maintenance already has an open order")
		return nil, nil
	}

	priority := models.PriorityMedium
	if s.escalation > 0 && report.Overshoot() >= s.escalation {
		priority = models.PriorityHigh
	}

	now := s.now()
	order := models.WorkOrder{
		ID:          s.newID(),
		Title:       fmt.Sprintf("%s due for %s", tpl.Name, tpl.EquipmentID),
		Description: maintenanceDescription(report),
		Status:      models.StatusDraft,
		Priority:    priority,
		Source:      models.SourceMaintenance,
		EquipmentID: tpl.EquipmentID,
		TemplateID:  tpl.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.insert(ctx, order, logger)
	if err != nil {
		return nil, fmt.Errorf("create maintenance order for template %s: %w", tpl.ID, err)
	}
	return created, nil
}

// insert stores order, treating ErrDuplicateTrigger as a logged no-op.
func (s *Service) insert(ctx context.Context, order models.WorkOrder, logger logrus.FieldLogger) (*models.WorkOrder, error) {
	err := s.insertOrder(ctx, order)
	if errors.Is(err, models.ErrDuplicateTrigger) {
		logger.WithError(err).Info("Duplicate trigger ignored")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"work_order_id": order.ID,
		"priority":      order.Priority,
		"source":        order.Source,
	}).Info("Work order created")
	return &order, nil
}

// insertOrder stores order with retries. A retried insert that hits a
// duplicate for this very ID means an earlier attempt landed and only its
// reply was lost, so it counts as success.
func (s *Service) insertOrder(ctx context.Context, order models.WorkOrder) error {
	attempt := 0
	return s.withRetry(ctx, "insert_work_order", func() error {
		attempt++
		err := s.stores.Orders.InsertWorkOrder(ctx, order)
		if attempt > 1 && errors.Is(err, models.ErrDuplicateTrigger) && s.stored(ctx, order.ID, func(*models.WorkOrder) bool { return true }) {
			return nil
		}
		return err
	})
}

// updateOrder applies a compare-and-swap update with retries. A retried update
// that loses the swap because the stored order already equals next was applied
// by an earlier attempt whose reply was lost.
func (s *Service) updateOrder(ctx context.Context, next models.WorkOrder, expected models.WorkOrderStatus) error {
	attempt := 0
	return s.withRetry(ctx, "update_work_order", func() error {
		attempt++
		err := s.stores.Orders.UpdateWorkOrder(ctx, next, expected)
		if attempt > 1 && errors.Is(err, models.ErrConcurrentModify) && s.stored(ctx, next.ID, func(o *models.WorkOrder) bool { return sameTransition(o, &next) }) {
			return nil
		}
		return err
	})
}

// stored reloads id and reports whether it exists and satisfies match.
func (s *Service) stored(ctx context.Context, id string, match func(*models.WorkOrder) bool) bool {
	o, err := s.stores.Orders.FindWorkOrderByID(ctx, id)
	if err != nil {
		s.log.WithField("work_order_id", id).WithError(err).Warn("Failed to reload work order after retry")
		return false
	}
	return match(o)
}

// sameTransition compares the fields a transition writes. Times are compared
// at millisecond precision, which is what Mongo keeps.
func sameTransition(a, b *models.WorkOrder) bool {
	return a.Status == b.Status &&
		a.ApprovedBy == b.ApprovedBy &&
		sameInstant(a.UpdatedAt, b.UpdatedAt) &&
		sameStamp(a.ApprovedAt, b.ApprovedAt) &&
		sameStamp(a.CompletedAt, b.CompletedAt)
}

func sameInstant(a, b time.Time) bool {
	return a.Truncate(time.Millisecond).Equal(b.Truncate(time.Millisecond))
}

func sameStamp(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return sameInstant(*a, *b)
}

// Transition moves an order to status to on behalf of actor.
func (s *Service) Transition(ctx context.Context, orderID string, to models.WorkOrderStatus, actor string) (*models.WorkOrder, error) {
	unlock := s.locks.Lock(orderKey(orderID))
	defer unlock()

	current, err := s.GetWorkOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next, err := workorder.ApplyTransition(*current, to, actor, now)
	if err != nil {
		return nil, err
	}
	next.UpdatedAt = now

	if err := s.updateOrder(ctx, next, current.Status); err != nil {
		return nil, fmt.Errorf("transition work order %s: %w", orderID, err)
	}

	s.log.WithFields(logrus.Fields{
		"work_order_id": orderID,
		"from":          current.Status,
		"to":            to,
		"actor":         actor,
	}).Info("Work order transitioned")
	return &next, nil
}

// CreateWorkOrder opens a draft order raised directly by a user.
func (s *Service) CreateWorkOrder(ctx context.Context, req models.CreateWorkOrderRequest, actor string) (*models.WorkOrder, error) {
	if err := trigger.ValidateCreateRequest(req); err != nil {
		return nil, err
	}

	now := s.now()
	order := models.WorkOrder{
		ID:          s.newID(),
		Title:       req.Title,
		Description: req.Description,
		Status:      models.StatusDraft,
		Priority:    req.Priority,
		Source:      models.SourceManual,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
		EquipmentID: req.EquipmentID,
		CreatedBy:   actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.insertOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create work order: %w", err)
	}
	s.log.WithFields(logrus.Fields{"work_order_id": order.ID, "actor": actor}).Info("Work order created")
	return &order, nil
}

// GetWorkOrder loads one order.
func (s *Service) GetWorkOrder(ctx context.Context, id string) (*models.WorkOrder, error) {
	var order *models.WorkOrder
	err := s.withRetry(ctx, "find_work_order", func() error {
		var err error
		order, err = s.stores.Orders.FindWorkOrderByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListWorkOrders returns the orders matching filter.
func (s *Service) ListWorkOrders(ctx context.Context, filter models.WorkOrderFilter) ([]models.WorkOrder, error) {
	var orders []models.WorkOrder
	err := s.withRetry(ctx, "find_work_orders", func() error {
		var err error
		orders, err = s.stores.Orders.FindWorkOrders(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list work orders: %w", err)
	}
	return orders, nil
}

func openStatuses() []models.WorkOrderStatus {
	var out []models.WorkOrderStatus
	for _, st := range models.AllStatuses {
		if !workorder.IsTerminal(st) {
			out = append(out, st)
		}
	}
	return out
}

// inspectionPriority follows the inspection-level out-of-service flag only.
// Violation-level OOS decides whether an order is raised, not its priority.
func inspectionPriority(ev models.InspectionEvent) models.Priority {
	if ev.OutOfService {
		return models.PriorityHigh
	}
	return models.PriorityMedium
}

func inspectionDescription(ev models.InspectionEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Inspection report %s for vehicle %s", ev.ReportNumber, ev.VehicleID)
	if ev.OutOfService {
		b.WriteString(" placed the vehicle out of service")
	}
	b.WriteString(".")
	for _, v := range ev.Violations {
		fmt.Fprintf(&b, "\n- %s (%s", v.Code, v.Type)
		if v.OOS {
			b.WriteString(", OOS")
		}
		b.WriteString(")")
		if v.Description != "" {
			b.WriteString(": " + v.Description)
		}
	}
	return b.String()
}

func maintenanceDescription(report trigger.DueReport) string {
	parts := make([]string, 0, len(report.Readings))
	for _, r := range report.Readings {
		parts = append(parts, fmt.Sprintf("%s %.0f of %.0f", r.Metric, r.Elapsed, r.Interval))
	}
	return "Service interval reached: " + strings.Join(parts, ", ")
}
