package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chainletter/ChainLetter/internal/pkg/env"
	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v82"
	stripesession "github.com/stripe/stripe-go/v82/checkout/session"
	stripesub "github.com/stripe/stripe-go/v82/subscription"
)

// ProviderClient abstracts the billing provider calls the service makes, so
// webhook handlers and the checkout initiator are testable without network
// access.
type ProviderClient interface {
	FetchSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	CreateCheckoutSession(ctx context.Context, in CheckoutInput) (string, error)
}

// StripeClient is the production ProviderClient backed by stripe-go. The
// bindings are injectable func fields for tests.
type StripeClient struct {
	createCheckoutSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	getSubscription       func(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)

	successURL string
	cancelURL  string
}

// NewStripeClientFromEnv configures the global stripe-go API key and returns
// a client wired to the real Stripe bindings.
func NewStripeClientFromEnv() *StripeClient {
	stripe.Key = strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", ""))

	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}

	return &StripeClient{
		createCheckoutSession: stripesession.New,
		getSubscription:       stripesub.Get,
		successURL:            base + "/account?checkout=success",
		cancelURL:             base + "/pricing?checkout=canceled",
	}
}

// CreateCheckoutSession starts a hosted subscription checkout and returns the
// redirect URL. user_id and plan are embedded both in the session metadata
// and the resulting subscription's metadata, so every later webhook can be
// attributed back to the local account.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (string, error) {
	if in.UserID == 0 {
		return "", errors.New("user id is required")
	}
	if strings.TrimSpace(in.Email) == "" {
		return "", errors.New("email is required")
	}
	if strings.TrimSpace(in.PriceID) == "" {
		return "", errors.New("price id is required")
	}

	userID := strconv.FormatUint(uint64(in.UserID), 10)
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:    stripe.String(c.successURL),
		CancelURL:     stripe.String(c.cancelURL),
		CustomerEmail: stripe.String(in.Email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(in.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"user_id": userID,
				"plan":    in.Plan,
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", userID)
	params.AddMetadata("plan", in.Plan)
	params.SetIdempotencyKey(uuid.NewString())

	sess, err := c.createCheckoutSession(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	if sess.URL == "" {
		return "", errors.New("checkout session has no redirect url")
	}
	return sess.URL, nil
}

// FetchSubscription loads the full subscription object from Stripe and maps
// it into the lean local shape.
func (c *StripeClient) FetchSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	id := strings.TrimSpace(subscriptionID)
	if id == "" {
		return nil, errors.New("subscription id is required")
	}

	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	s, err := c.getSubscription(id, params)
	if err != nil {
		return nil, fmt.Errorf("fetch subscription %s: %w", id, err)
	}

	out := &Subscription{
		ID:                s.ID,
		Status:            string(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		CanceledAt:        s.CanceledAt,
		Metadata:          s.Metadata,
	}
	if s.Customer != nil {
		out.Customer = s.Customer.ID
	}
	if s.Items != nil {
		for _, item := range s.Items.Data {
			if item == nil {
				continue
			}
			mapped := SubscriptionItem{
				CurrentPeriodStart: item.CurrentPeriodStart,
				CurrentPeriodEnd:   item.CurrentPeriodEnd,
			}
			if item.Price != nil {
				mapped.Price.ID = item.Price.ID
				if item.Price.Recurring != nil {
					mapped.Price.Recurring.Interval = string(item.Price.Recurring.Interval)
				}
			}
			out.Items.Data = append(out.Items.Data, mapped)
		}
	}
	return out, nil
}
