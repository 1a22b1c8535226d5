package billing

import (
	"errors"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// ErrSignatureInvalid is returned when a webhook delivery cannot be
// authenticated. Callers must answer HTTP 400 so the provider retries.
var ErrSignatureInvalid = errors.New("invalid webhook signature")

// VerifyStripeWebhookSignature authenticates a raw webhook body against the
// Stripe-Signature header using the shared endpoint secret, and parses the
// event envelope. Verification runs over the exact raw bytes; parsing a
// re-serialized body would not match the provider's signature.
func VerifyStripeWebhookSignature(payload []byte, signatureHeader, webhookSecret string) (stripe.Event, error) {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return stripe.Event{}, ErrSignatureInvalid
	}

	event, err := webhook.ConstructEventWithOptions(payload, sig, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, ErrSignatureInvalid
	}
	return event, nil
}
