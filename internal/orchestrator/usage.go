package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-compliance/internal/models"
	"github.com/ukydev/fleet-compliance/internal/trigger"
)

var errNoStore = errors.New("collection not configured")

// UpsertTemplate validates and stores a maintenance template.
func (s *Service) UpsertTemplate(ctx context.Context, tpl models.MaintenanceTemplate) error {
	if s.stores.Templates == nil {
		return fmt.Errorf("templates: %w", errNoStore)
	}
	if err := trigger.ValidateTemplate(tpl); err != nil {
		return err
	}
	now := s.now()
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = now
	}
	tpl.UpdatedAt = now
	return s.withRetry(ctx, "upsert_template", func() error {
		return s.stores.Templates.UpsertTemplate(ctx, tpl)
	})
}

// ListTemplates returns the stored templates, optionally for one equipment.
func (s *Service) ListTemplates(ctx context.Context, equipmentID string) ([]models.MaintenanceTemplate, error) {
	if s.stores.Templates == nil {
		return nil, fmt.Errorf("templates: %w", errNoStore)
	}
	var out []models.MaintenanceTemplate
	err := s.withRetry(ctx, "find_templates", func() error {
		var err error
		out, err = s.stores.Templates.FindTemplates(ctx, equipmentID)
		return err
	})
	return out, err
}

// ListInspections returns every recorded inspection.
func (s *Service) ListInspections(ctx context.Context) ([]models.InspectionEvent, error) {
	if s.stores.Inspections == nil {
		return nil, nil
	}
	var out []models.InspectionEvent
	err := s.withRetry(ctx, "find_inspections", func() error {
		var err error
		out, err = s.stores.Inspections.FindInspections(ctx)
		return err
	})
	return out, err
}

// RecordUsage stores a pushed usage reading and ticks every template of that
// equipment against the latest stored reading. It returns the orders created.
func (s *Service) RecordUsage(ctx context.Context, obs models.UsageObservation) ([]models.WorkOrder, error) {
	if s.stores.Usage == nil {
		return nil, fmt.Errorf("usage: %w", errNoStore)
	}
	if err := trigger.ValidateObservation(obs); err != nil {
		return nil, err
	}
	err := s.withRetry(ctx, "record_usage", func() error {
		return s.stores.Usage.RecordUsage(ctx, obs)
	})
	if err != nil {
		return nil, fmt.Errorf("record usage for %s: %w", obs.EquipmentID, err)
	}

	latest, err := s.latestUsage(ctx, obs.EquipmentID)
	if err != nil {
		return nil, err
	}
	templates, err := s.ListTemplates(ctx, obs.EquipmentID)
	if err != nil {
		return nil, err
	}
	return s.tickAll(ctx, templates, func(string) (models.UsageObservation, bool) { return *latest, true })
}

// SweepMaintenance ticks every stored template. Templates with no usage reading
// are evaluated on calendar days alone, as of now. Readings older than now are
// advanced to today so elapsed days keep counting between pushes.
func (s *Service) SweepMaintenance(ctx context.Context) ([]models.WorkOrder, error) {
	if s.stores.Usage == nil {
		return nil, fmt.Errorf("usage: %w", errNoStore)
	}
	templates, err := s.ListTemplates(ctx, "")
	if err != nil {
		return nil, err
	}

	today := s.now()
	cache := make(map[string]models.UsageObservation)
	lookup := func(equipmentID string) (models.UsageObservation, bool) {
		if obs, ok := cache[equipmentID]; ok {
			return obs, true
		}
		obs := models.UsageObservation{EquipmentID: equipmentID, CurrentDate: today}
		latest, err := s.latestUsage(ctx, equipmentID)
		switch {
		case err == nil:
			obs = *latest
			if obs.CurrentDate.Before(today) {
				obs.CurrentDate = today
			}
		case errors.Is(err, models.ErrNotFound):
		default:
			s.log.WithField("equipment_id", equipmentID).WithError(err).Error("Failed to load usage")
			return obs, false
		}
		cache[equipmentID] = obs
		return obs, true
	}
	return s.tickAll(ctx, templates, lookup)
}

func (s *Service) latestUsage(ctx context.Context, equipmentID string) (*models.UsageObservation, error) {
	var obs *models.UsageObservation
	err := s.withRetry(ctx, "latest_usage", func() error {
		var err error
		obs, err = s.stores.Usage.LatestUsage(ctx, equipmentID)
		return err
	})
	return obs, err
}

// tickAll runs OnMaintenanceTick for each template. A failing template is logged
// and skipped; the first such error is returned alongside the orders created.
func (s *Service) tickAll(ctx context.Context, templates []models.MaintenanceTemplate, usage func(string) (models.UsageObservation, bool)) ([]models.WorkOrder, error) {
	var (
		created  []models.WorkOrder
		firstErr error
	)
	for _, tpl := range templates {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		obs, ok := usage(tpl.EquipmentID)
		if !ok {
			continue
		}
		order, err := s.OnMaintenanceTick(ctx, tpl, obs)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"template_id":  tpl.ID,
				"equipment_id": tpl.EquipmentID,
			}).WithError(err).Error("Maintenance tick failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if order != nil {
			created = append(created, *order)
		}
	}
	return created, firstErr
}
