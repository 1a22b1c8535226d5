package billing

import (
	"strings"

	"github.com/chainletter/ChainLetter/app/models"
)

// PlanTypeFromInterval maps a Stripe billing interval to the internal plan
// type. Anything that is not yearly is treated as monthly.
func PlanTypeFromInterval(interval string) string {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case "year":
		return models.PlanTypeYearly
	default:
		return models.PlanTypeMonthly
	}
}

func normalizeStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "" {
		return models.SubscriptionStatusActive
	}
	return s
}

// IsValidPlanType reports whether the given plan type is one the checkout
// endpoint accepts.
func IsValidPlanType(plan string) bool {
	switch plan {
	case models.PlanTypeMonthly, models.PlanTypeYearly:
		return true
	default:
		return false
	}
}
