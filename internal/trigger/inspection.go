package trigger

import (
	"github.com/ukydev/fleet-compliance/internal/models"
)

// ShouldCreateWorkOrder reports whether an inspection warrants a remediation work order:
// the inspection itself was out of service, or any single violation was.
// Severity beyond the out-of-service flag is not considered.
func ShouldCreateWorkOrder(outOfService bool, violations []models.Violation) bool {
	if outOfService {
		return true
	}
	for _, v := range violations {
		if v.OOS {
			return true
		}
	}
	return false
}
