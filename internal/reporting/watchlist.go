package reporting

import (
	"sort"
	"time"

	"github.com/ukydev/fleet-compliance/internal/models"
	"github.com/ukydev/fleet-compliance/internal/trigger"
	"github.com/ukydev/fleet-compliance/internal/workorder"
)

// BuildWatchlist ranks equipment and drivers by compliance risk. Orders are
// limited to those created in w and inspections to those dated in w.
// Rows with nothing to report are left out.
func BuildWatchlist(orders []models.WorkOrder, inspections []models.InspectionEvent, asOf time.Time, w Window) models.Watchlist {
	equipment := make(map[string]*models.EquipmentRisk)
	equipmentRow := func(id string) *models.EquipmentRisk {
		row, ok := equipment[id]
		if !ok {
			row = &models.EquipmentRisk{EquipmentID: id}
			equipment[id] = row
		}
		return row
	}

	for i := range orders {
		o := &orders[i]
		if o.EquipmentID == "" || !w.Contains(o.CreatedAt) || !workorder.IsBacklog(o.Status) {
			continue
		}
		row := equipmentRow(o.EquipmentID)
		row.OpenOrders++
		if IsOverdue(o, asOf) {
			row.OverdueOrders++
		}
	}

	drivers := make(map[string]*models.DriverRisk)
	for _, ev := range inspections {
		if !w.Contains(ev.InspectionDate) {
			continue
		}
		oos := trigger.ShouldCreateWorkOrder(ev.OutOfService, ev.Violations)
		if oos && ev.VehicleID != "" {
			equipmentRow(ev.VehicleID).OutOfServiceInspections++
		}
		if ev.DriverID == "" {
			continue
		}
		row, ok := drivers[ev.DriverID]
		if !ok {
			row = &models.DriverRisk{DriverID: ev.DriverID}
			drivers[ev.DriverID] = row
		}
		row.Inspections++
		if oos {
			row.OutOfServiceInspections++
		}
		for _, v := range ev.Violations {
			if v.Type == models.ViolationDriver {
				row.DriverViolations++
			}
		}
	}

	list := models.Watchlist{
		AsOf:      asOf,
		Equipment: make([]models.EquipmentRisk, 0, len(equipment)),
		Drivers:   make([]models.DriverRisk, 0, len(drivers)),
	}
	for _, row := range equipment {
		list.Equipment = append(list.Equipment, *row)
	}
	for _, row := range drivers {
		if row.OutOfServiceInspections == 0 && row.DriverViolations == 0 {
			continue
		}
		list.Drivers = append(list.Drivers, *row)
	}

	sort.Slice(list.Equipment, func(i, j int) bool {
		a, b := list.Equipment[i], list.Equipment[j]
		if a.OutOfServiceInspections != b.OutOfServiceInspections {
			return a.OutOfServiceInspections > b.OutOfServiceInspections
		}
		if a.OverdueOrders != b.OverdueOrders {
			return a.OverdueOrders > b.OverdueOrders
		}
		if a.OpenOrders != b.OpenOrders {
			return a.OpenOrders > b.OpenOrders
		}
		return a.EquipmentID < b.EquipmentID
	})
	sort.Slice(list.Drivers, func(i, j int) bool {
		a, b := list.Drivers[i], list.Drivers[j]
		if a.OutOfServiceInspections != b.OutOfServiceInspections {
			return a.OutOfServiceInspections > b.OutOfServiceInspections
		}
		if a.DriverViolations != b.DriverViolations {
			return a.DriverViolations > b.DriverViolations
		}
		return a.DriverID < b.DriverID
	})
	return list
}
