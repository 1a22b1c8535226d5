package billing

import (
	"strings"
	"time"
)

// CheckoutSession is a minimal representation of a Stripe checkout.session
// webhook payload. Only the fields the event router needs are decoded.
type CheckoutSession struct {
	ID            string            `json:"id"`
	Mode          string            `json:"mode"`
	Customer      string            `json:"customer"`
	Subscription  string            `json:"subscription"`
	CustomerEmail string            `json:"customer_email"`
	Metadata      map[string]string `json:"metadata"`
}

// Subscription is a minimal representation of a Stripe subscription object,
// shared between webhook payload decoding and the provider client.
type Subscription struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CanceledAt         int64  `json:"canceled_at"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Items              struct {
		Data []SubscriptionItem `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

// SubscriptionItem is a single priced line of a subscription.
type SubscriptionItem struct {
	CurrentPeriodStart int64 `json:"current_period_start"`
	CurrentPeriodEnd   int64 `json:"current_period_end"`
	Price              struct {
		ID        string `json:"id"`
		Recurring struct {
			Interval string `json:"interval"`
		} `json:"recurring"`
	} `json:"price"`
}

// FirstPriceID returns the price ID from the first subscription item.
func (s *Subscription) FirstPriceID() string {
	for _, item := range s.Items.Data {
		if priceID := strings.TrimSpace(item.Price.ID); priceID != "" {
			return priceID
		}
	}
	return ""
}

// BillingInterval returns the recurring interval ("month", "year") of the
// first priced item.
func (s *Subscription) BillingInterval() string {
	for _, item := range s.Items.Data {
		if iv := strings.TrimSpace(item.Price.Recurring.Interval); iv != "" {
			return iv
		}
	}
	return ""
}

// PeriodStart returns the current period start. Newer Stripe API versions
// moved the period bounds onto subscription items, so the item-level value is
// the fallback.
func (s *Subscription) PeriodStart() *time.Time {
	if s.CurrentPeriodStart > 0 {
		return unixTime(s.CurrentPeriodStart)
	}
	for _, item := range s.Items.Data {
		if item.CurrentPeriodStart > 0 {
			return unixTime(item.CurrentPeriodStart)
		}
	}
	return nil
}

// PeriodEnd returns the current period end, preferring the subscription-level
// field over item-level bounds.
func (s *Subscription) PeriodEnd() *time.Time {
	if s.CurrentPeriodEnd > 0 {
		return unixTime(s.CurrentPeriodEnd)
	}
	for _, item := range s.Items.Data {
		if item.CurrentPeriodEnd > 0 {
			return unixTime(item.CurrentPeriodEnd)
		}
	}
	return nil
}

// Invoice is a minimal representation of a Stripe invoice payload. The
// subscription reference moved location between API versions, hence the two
// shapes.
type Invoice struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	Parent       struct {
		SubscriptionDetails struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

// SubscriptionID returns the invoice's subscription reference, or "" for
// invoices that are not subscription-related.
func (i *Invoice) SubscriptionID() string {
	if id := strings.TrimSpace(i.Subscription); id != "" {
		return id
	}
	return strings.TrimSpace(i.Parent.SubscriptionDetails.Subscription)
}

// CheckoutInput carries everything needed to start a hosted checkout for an
// authenticated user. UserID and Plan travel in the session metadata and are
// the join key back to the local account when the completion webhook arrives.
type CheckoutInput struct {
	UserID  uint
	Email   string
	PriceID string
	Plan    string
}

func unixTime(ts int64) *time.Time {
	t := time.Unix(ts, 0).UTC()
	return &t
}
