package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func signedTestPayload(t *testing.T, payload []byte) *webhook.SignedPayload {
	t.Helper()
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
}

func TestVerifyStripeWebhookSignatureValid(t *testing.T) {
	payload := []byte(`{"id": "evt_test_1", "type": "customer.subscription.updated", "data": {"object": {"id": "sub_1"}}}`)
	signed := signedTestPayload(t, payload)

	event, err := VerifyStripeWebhookSignature(signed.Payload, signed.Header, testWebhookSecret)
	require.NoError(t, err)
	assert.Equal(t, "evt_test_1", event.ID)
	assert.Equal(t, "customer.subscription.updated", string(event.Type))
}

func TestVerifyStripeWebhookSignatureTampered(t *testing.T) {
	payload := []byte(`{"id": "evt_test_2", "type": "invoice.payment_failed"}`)
	signed := signedTestPayload(t, payload)

	tampered := []byte(`{"id": "evt_evil", "type": "invoice.payment_failed"}`)
	_, err := VerifyStripeWebhookSignature(tampered, signed.Header, testWebhookSecret)
	assert.Error(t, err)
}

func TestVerifyStripeWebhookSignatureWrongSecret(t *testing.T) {
	payload := []byte(`{"id": "evt_test_3", "type": "checkout.session.completed"}`)
	signed := signedTestPayload(t, payload)

	_, err := VerifyStripeWebhookSignature(signed.Payload, signed.Header, "whsec_other")
	assert.Error(t, err)
}

func TestVerifyStripeWebhookSignatureMissingHeader(t *testing.T) {
	_, err := VerifyStripeWebhookSignature([]byte(`{}`), "", testWebhookSecret)
	assert.Error(t, err)
}
