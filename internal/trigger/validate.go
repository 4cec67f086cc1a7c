package trigger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ukydev/fleet-compliance/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(templateStructLevel, models.MaintenanceTemplate{})
	return v
}

// templateStructLevel rejects half-configured metric pairs and templates with no metric at all.
func templateStructLevel(sl validator.StructLevel) {
	tpl := sl.Current().Interface().(models.MaintenanceTemplate)

	configured := 0
	checkPair := func(hasInterval, hasBaseline bool, interval, baseline interface{}, field, baselineField string) {
		switch {
		case hasInterval && hasBaseline:
			configured++
		case hasInterval:
			sl.ReportError(baseline, baselineField, baselineField, "required_with", field)
		case hasBaseline:
			sl.ReportError(interval, field, field, "required_with", baselineField)
		}
	}
	checkPair(tpl.IntervalDays != nil, tpl.LastServiceDate != nil, tpl.IntervalDays, tpl.LastServiceDate, "IntervalDays", "LastServiceDate")
	checkPair(tpl.IntervalMiles != nil, tpl.LastServiceMiles != nil, tpl.IntervalMiles, tpl.LastServiceMiles, "IntervalMiles", "LastServiceMiles")
	checkPair(tpl.IntervalHours != nil, tpl.LastServiceHours != nil, tpl.IntervalHours, tpl.LastServiceHours, "IntervalHours", "LastServiceHours")

	if configured == 0 {
		sl.ReportError(tpl.IntervalDays, "IntervalDays", "IntervalDays", "one_metric", "")
	}
}

// ValidateTemplate checks a maintenance template received at the boundary.
func ValidateTemplate(tpl models.MaintenanceTemplate) error {
	return check(tpl, "maintenance template")
}

// ValidateObservation checks a usage observation received at the boundary.
func ValidateObservation(obs models.UsageObservation) error {
	return check(obs, "usage observation")
}

// ValidateInspection checks an inspection event received at the boundary.
func ValidateInspection(ev models.InspectionEvent) error {
	return check(ev, "inspection")
}

// ValidateCreateRequest checks a user-raised work order.
func ValidateCreateRequest(req models.CreateWorkOrderRequest) error {
	return check(req, "work order request")
}

func check(v interface{}, what string) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %s: %v", models.ErrInvalidArgument, what, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s: %s", models.ErrInvalidArgument, what, strings.Join(fields, ", "))
}
