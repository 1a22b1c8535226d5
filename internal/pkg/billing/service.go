package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/chainletter/ChainLetter/app/models"
	"github.com/chainletter/ChainLetter/internal/pkg/entitlements"
	stripe "github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"
)

// ErrMissingUserMetadata signals a checkout completion that cannot be
// attributed to a local user. This is a configuration bug (the checkout
// initiator always embeds user_id), so it is surfaced loudly instead of
// silently granting nobody an entitlement.
var ErrMissingUserMetadata = errors.New("checkout session metadata carries no user_id")

// Service routes verified billing events to idempotent state transitions
// against the subscription store, and backs the checkout initiator.
type Service struct {
	repo     Repository
	provider ProviderClient
}

// NewService creates a billing service from an injected repository and
// provider client.
func NewService(repo Repository, provider ProviderClient) *Service {
	return &Service{repo: repo, provider: provider}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, provider ProviderClient) *Service {
	return NewService(NewRepository(db), provider)
}

// ProcessEvent dispatches a verified event to exactly one handler based on
// its type. Every handler write is an upsert or targeted update keyed by the
// external subscription id, so redelivery converges to the same final state.
// Unknown event types are logged and ignored; they are not errors.
func (s *Service) ProcessEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.updated":
		return s.handleSubscriptionUpdated(ctx, event)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(ctx, event)
	case "invoice.payment_failed":
		return s.handlePaymentFailed(ctx, event)
	default:
		log.Printf("[Billing] ignoring webhook event type=%s id=%s", event.Type, event.ID)
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("decode checkout.session: %w", err)
	}

	// One-time payments also emit this event; only subscription checkouts
	// create entitlements.
	if sess.Mode != "" && sess.Mode != "subscription" {
		log.Printf("[Billing] checkout %s has mode=%s, skipping", sess.ID, sess.Mode)
		return nil
	}

	userID, err := userIDFromMetadata(sess.Metadata)
	if err != nil {
		return err
	}
	if strings.TrimSpace(sess.Subscription) == "" {
		return fmt.Errorf("checkout session %s carries no subscription id", sess.ID)
	}

	// The session payload is thin; the subscription object holds status,
	// period bounds and the priced items.
	sub, err := s.provider.FetchSubscription(ctx, sess.Subscription)
	if err != nil {
		return err
	}

	row := subscriptionRow(userID, sub, string(event.Data.Raw))
	if row.StripeCustomerID == "" {
		row.StripeCustomerID = strings.TrimSpace(sess.Customer)
	}
	if err := s.repo.UpsertByExternalID(row); err != nil {
		return fmt.Errorf("upsert subscription %s: %w", sub.ID, err)
	}
	return nil
}

func (s *Service) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	var sub Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}
	if strings.TrimSpace(sub.ID) == "" {
		return errors.New("subscription event carries no id")
	}

	existing, err := s.repo.GetByExternalID(sub.ID)
	if err != nil {
		return fmt.Errorf("lookup subscription %s: %w", sub.ID, err)
	}

	// Not every provider event echoes the metadata set at checkout time;
	// fall back to the stored row for attribution.
	userID, err := userIDFromMetadata(sub.Metadata)
	if err != nil {
		if existing == nil {
			// A subscription we never saw a checkout for, e.g. one that
			// belongs to another product on the same Stripe account.
			log.Printf("[Billing] subscription %s has no local row and no metadata, skipping", sub.ID)
			return nil
		}
		userID = existing.UserID
	}

	// Deliveries are not ordered; skip writes older than what is stored.
	if existing != nil && event.Created > 0 {
		eventTime := time.Unix(event.Created, 0)
		if existing.UpdatedAt.After(eventTime) {
			log.Printf("[Billing] subscription %s event %s is older than stored state, skipping", sub.ID, event.ID)
			return nil
		}
	}

	row := subscriptionRow(userID, &sub, string(event.Data.Raw))
	if err := s.repo.UpsertByExternalID(row); err != nil {
		return fmt.Errorf("upsert subscription %s: %w", sub.ID, err)
	}
	return nil
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	_ = ctx
	var sub Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}
	if strings.TrimSpace(sub.ID) == "" {
		return errors.New("subscription event carries no id")
	}

	terminatedAt := time.Now().UTC()
	if sub.CanceledAt > 0 {
		terminatedAt = time.Unix(sub.CanceledAt, 0).UTC()
	}
	if err := s.repo.MarkTerminated(sub.ID, terminatedAt); err != nil {
		return fmt.Errorf("terminate subscription %s: %w", sub.ID, err)
	}
	return nil
}

func (s *Service) handlePaymentFailed(ctx context.Context, event stripe.Event) error {
	_ = ctx
	var inv Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return fmt.Errorf("decode invoice: %w", err)
	}

	// Invoices without a subscription reference (one-off charges) are not
	// entitlement-relevant.
	subID := inv.SubscriptionID()
	if subID == "" {
		log.Printf("[Billing] invoice %s is not subscription-related, skipping", inv.ID)
		return nil
	}

	if err := s.repo.MarkPastDue(subID); err != nil {
		return fmt.Errorf("mark subscription %s past due: %w", subID, err)
	}
	return nil
}

// ResolveEntitlement derives the current premium state for a user; a missing
// row means "not premium", never an error.
func (s *Service) ResolveEntitlement(ctx context.Context, userID uint, now time.Time) (entitlements.Entitlement, error) {
	_ = ctx
	if userID == 0 {
		return entitlements.None(), nil
	}
	sub, err := s.repo.GetActiveEntitlement(userID)
	if err != nil {
		return entitlements.None(), err
	}
	return entitlements.FromSubscription(sub, now), nil
}

// ListUserSubscriptions returns the full subscription history for a user.
func (s *Service) ListUserSubscriptions(ctx context.Context, userID uint) ([]models.Subscription, error) {
	_ = ctx
	return s.repo.ListByUser(userID)
}

// CreateCheckout starts a hosted checkout for an authenticated user and
// returns the provider's redirect URL. Provider failures propagate.
func (s *Service) CreateCheckout(ctx context.Context, in CheckoutInput) (string, error) {
	if !IsValidPlanType(in.Plan) {
		return "", fmt.Errorf("invalid plan type %q", in.Plan)
	}
	return s.provider.CreateCheckoutSession(ctx, in)
}

// RecordWebhookEvent persists a webhook delivery idempotently, keyed on the
// provider event id. The bool result is false for duplicate deliveries.
func (s *Service) RecordWebhookEvent(ctx context.Context, eventID, eventType string, payload []byte) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	if strings.TrimSpace(eventID) == "" {
		return false, nil, errors.New("event id is required")
	}
	event := &models.BillingWebhookEvent{
		StripeEventID: strings.TrimSpace(eventID),
		EventType:     strings.TrimSpace(eventType),
		PayloadJSON:   string(payload),
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook event id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

func userIDFromMetadata(metadata map[string]string) (uint, error) {
	raw := strings.TrimSpace(metadata["user_id"])
	if raw == "" {
		return 0, ErrMissingUserMetadata
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("metadata user_id %q is not a valid user id", raw)
	}
	return uint(id), nil
}

func subscriptionRow(userID uint, sub *Subscription, rawPayload string) *models.Subscription {
	return &models.Subscription{
		UserID:               userID,
		StripeSubscriptionID: strings.TrimSpace(sub.ID),
		StripeCustomerID:     strings.TrimSpace(sub.Customer),
		Status:               normalizeStatus(sub.Status),
		PlanType:             PlanTypeFromInterval(sub.BillingInterval()),
		PriceID:              sub.FirstPriceID(),
		CurrentPeriodStart:   sub.PeriodStart(),
		CurrentPeriodEnd:     sub.PeriodEnd(),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		RawPayloadJSON:       rawPayload,
	}
}
