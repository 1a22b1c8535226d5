package models

import "time"

const (
	SubscriptionStatusActive            = "active"
	SubscriptionStatusTrialing          = "trialing"
	SubscriptionStatusPastDue           = "past_due"
	SubscriptionStatusCanceled          = "canceled"
	SubscriptionStatusIncomplete        = "incomplete"
	SubscriptionStatusIncompleteExpired = "incomplete_expired"
	SubscriptionStatusUnpaid            = "unpaid"
)

const (
	PlanTypeMonthly = "monthly"
	PlanTypeYearly  = "yearly"
)

// Subscription mirrors a Stripe subscription and is the single source of
// truth for premium entitlement. Rows are upserted keyed on
// StripeSubscriptionID and never hard-deleted; history is retained across
// re-subscriptions.
type Subscription struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	UserID               uint       `gorm:"not null;index;index:idx_subscriptions_user_status,priority:1" json:"user_id"`
	StripeSubscriptionID string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_subscriptions_stripe_sub_id" json:"stripe_subscription_id"`
	StripeCustomerID     string     `gorm:"type:varchar(191);not null;index" json:"stripe_customer_id"`
	Status               string     `gorm:"type:varchar(32);not null;default:'active';index:idx_subscriptions_user_status,priority:2" json:"status"`
	PlanType             string     `gorm:"type:varchar(16);not null;default:'monthly'" json:"plan_type"`
	PriceID              string     `gorm:"type:varchar(191);not null;default:''" json:"price_id"`
	CurrentPeriodStart   *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CanceledAt           *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	RawPayloadJSON       string     `gorm:"type:longtext" json:"raw_payload_json"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the subscription can never become entitling
// again without a new checkout.
func (s *Subscription) IsTerminal() bool {
	switch s.Status {
	case SubscriptionStatusCanceled, SubscriptionStatusIncompleteExpired:
		return true
	default:
		return false
	}
}
