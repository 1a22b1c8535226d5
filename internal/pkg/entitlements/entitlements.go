package entitlements

import (
	"time"

	"github.com/chainletter/ChainLetter/app/models"
)

// Entitlement is the resolved premium state for a user at a point in time.
// It is always derived from the subscription row, never stored.
type Entitlement struct {
	IsPremium         bool
	Status            string
	PlanType          string
	PeriodEnd         *time.Time
	CancelAtPeriodEnd bool
}

// None is the entitlement of a user without any subscription row.
func None() Entitlement {
	return Entitlement{}
}

// FromSubscription derives the entitlement from a subscription row.
// A user is premium iff the subscription status is active or trialing AND the
// current paid period has not ended. CancelAtPeriodEnd does not revoke access
// inside the paid period.
func FromSubscription(sub *models.Subscription, now time.Time) Entitlement {
	if sub == nil {
		return None()
	}

	ent := Entitlement{
		Status:            sub.Status,
		PlanType:          sub.PlanType,
		PeriodEnd:         sub.CurrentPeriodEnd,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}

	switch sub.Status {
	case models.SubscriptionStatusActive, models.SubscriptionStatusTrialing:
	default:
		return ent
	}
	if sub.CurrentPeriodEnd == nil || !sub.CurrentPeriodEnd.After(now) {
		return ent
	}

	ent.IsPremium = true
	return ent
}

// Access is the result of the per-article access decision.
type Access struct {
	FullAccess bool
}

// DecideAccess decides whether full article content may be rendered.
// Non-premium content is always fully accessible; premium content requires a
// currently-valid entitlement.
func DecideAccess(contentIsPremium bool, ent Entitlement) Access {
	return Access{FullAccess: !contentIsPremium || ent.IsPremium}
}
