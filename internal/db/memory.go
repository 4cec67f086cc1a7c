package db

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ukydev/fleet-compliance/internal/models"
)

// MemoryStore is an in-process implementation of every collection interface.
// It applies the same uniqueness and compare-and-swap rules as the Mongo store.
type MemoryStore struct {
	mu          sync.RWMutex
	orders      map[string]models.WorkOrder
	templates   map[string]models.MaintenanceTemplate
	usage       map[string]models.UsageObservation
	inspections map[string]models.InspectionEvent
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:      make(map[string]models.WorkOrder),
		templates:   make(map[string]models.MaintenanceTemplate),
		usage:       make(map[string]models.UsageObservation),
		inspections: make(map[string]models.InspectionEvent),
	}
}

// InsertWorkOrder stores a new order.
func (s *MemoryStore) InsertWorkOrder(ctx context.Context, order models.WorkOrder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; ok {
		return fmt.Errorf("%w: work order %s exists", models.ErrDuplicateTrigger, order.ID)
	}
	key := OpenKey(order)
	for _, existing := range s.orders {
		if order.InspectionID != "" && existing.InspectionID == order.InspectionID {
			return fmt.Errorf("%w: inspection %s already has work order %s", models.ErrDuplicateTrigger, order.InspectionID, existing.ID)
		}
		if key != "" && OpenKey(existing) == key {
			return fmt.Errorf("%w: %s already open as %s", models.ErrDuplicateTrigger, key, existing.ID)
		}
	}
	s.orders[order.ID] = order
	return nil
}

// FindWorkOrderByID returns a copy of the stored order.
func (s *MemoryStore) FindWorkOrderByID(ctx context.Context, id string) (*models.WorkOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("work order %s: %w", id, models.ErrNotFound)
	}
	return &order, nil
}

// FindWorkOrders returns the orders matching filter, oldest first.
func (s *MemoryStore) FindWorkOrders(ctx context.Context, filter models.WorkOrderFilter) ([]models.WorkOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]models.WorkOrder, 0, len(s.orders))
	for _, o := range s.orders {
		if filter.Matches(&o) {
			out = append(out, o)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateWorkOrder replaces an order if its stored status is still expected.
func (s *MemoryStore) UpdateWorkOrder(ctx context.Context, order models.WorkOrder, expected models.WorkOrderStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.orders[order.ID]
	if !ok {
		return fmt.Errorf("work order %s: %w", order.ID, models.ErrNotFound)
	}
	if current.Status != expected {
		return fmt.Errorf("work order %s no longer %s: %w", order.ID, expected, models.ErrConcurrentModify)
	}
	s.orders[order.ID] = order
	return nil
}

// UpsertTemplate inserts or replaces a maintenance template.
func (s *MemoryStore) UpsertTemplate(ctx context.Context, tpl models.MaintenanceTemplate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.templates[tpl.ID] = tpl
	s.mu.Unlock()
	return nil
}

// FindTemplates returns templates sorted by ID.
func (s *MemoryStore) FindTemplates(ctx context.Context, equipmentID string) ([]models.MaintenanceTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]models.MaintenanceTemplate, 0, len(s.templates))
	for _, tpl := range s.templates {
		if equipmentID == "" || tpl.EquipmentID == equipmentID {
			out = append(out, tpl)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RecordUsage keeps obs unless a newer reading is already stored.
func (s *MemoryStore) RecordUsage(ctx context.Context, obs models.UsageObservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.usage[obs.EquipmentID]; ok && prev.CurrentDate.After(obs.CurrentDate) {
		return nil
	}
	s.usage[obs.EquipmentID] = obs
	return nil
}

// LatestUsage returns the latest reading for an equipment.
func (s *MemoryStore) LatestUsage(ctx context.Context, equipmentID string) (*models.UsageObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	obs, ok := s.usage[equipmentID]
	if !ok {
		return nil, fmt.Errorf("usage for %s: %w", equipmentID, models.ErrNotFound)
	}
	return &obs, nil
}

// InsertInspection records an inspection once.
func (s *MemoryStore) InsertInspection(ctx context.Context, ev models.InspectionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inspections[ev.ID]; ok {
		return fmt.Errorf("%w: inspection %s already recorded", models.ErrDuplicateTrigger, ev.ID)
	}
	s.inspections[ev.ID] = ev
	return nil
}

// FindInspections returns every recorded inspection ordered by date.
func (s *MemoryStore) FindInspections(ctx context.Context) ([]models.InspectionEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]models.InspectionEvent, 0, len(s.inspections))
	for _, ev := range s.inspections {
		out = append(out, ev)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].InspectionDate.Equal(out[j].InspectionDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].InspectionDate.Before(out[j].InspectionDate)
	})
	return out, nil
}
