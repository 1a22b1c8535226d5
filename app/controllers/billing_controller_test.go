package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/chainletter/ChainLetter/app/models"
	"github.com/chainletter/ChainLetter/internal/pkg/billing"
	"github.com/chainletter/ChainLetter/internal/pkg/usercontext"
)

const testWebhookSecret = "whsec_controller_test"

// memoryRepository is a minimal in-memory billing.Repository for handler tests.
type memoryRepository struct {
	subs   map[string]*models.Subscription
	events map[string]*models.BillingWebhookEvent
	nextID uint
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		subs:   map[string]*models.Subscription{},
		events: map[string]*models.BillingWebhookEvent{},
	}
}

func (m *memoryRepository) GetActiveEntitlement(userID uint) (*models.Subscription, error) {
	for _, sub := range m.subs {
		if sub.UserID == userID && sub.Status == models.SubscriptionStatusActive {
			return sub, nil
		}
	}
	return nil, nil
}

func (m *memoryRepository) GetByExternalID(id string) (*models.Subscription, error) {
	return m.subs[id], nil
}

func (m *memoryRepository) ListByUser(userID uint) ([]models.Subscription, error) {
	return nil, nil
}

func (m *memoryRepository) UpsertByExternalID(sub *models.Subscription) error {
	m.nextID++
	sub.ID = m.nextID
	m.subs[sub.StripeSubscriptionID] = sub
	return nil
}

func (m *memoryRepository) MarkTerminated(id string, at time.Time) error { return nil }

func (m *memoryRepository) MarkPastDue(id string) error { return nil }

func (m *memoryRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	if stored, ok := m.events[event.StripeEventID]; ok {
		return false, stored, nil
	}
	m.nextID++
	event.ID = m.nextID
	m.events[event.StripeEventID] = event
	return true, event, nil
}

func (m *memoryRepository) MarkWebhookProcessed(id uint, processingError string) error {
	for _, ev := range m.events {
		if ev.ID == id {
			now := time.Now()
			ev.ProcessedAt = &now
			ev.ProcessingError = processingError
		}
	}
	return nil
}

type stubProvider struct {
	url string
}

func (s *stubProvider) FetchSubscription(ctx context.Context, id string) (*billing.Subscription, error) {
	return &billing.Subscription{ID: id, Status: "active"}, nil
}

func (s *stubProvider) CreateCheckoutSession(ctx context.Context, in billing.CheckoutInput) (string, error) {
	return s.url, nil
}

func setupBillingTestApp(t *testing.T, repo *memoryRepository, loggedInUser uint) *fiber.App {
	t.Helper()
	t.Setenv("STRIPE_WEBHOOK_SECRET", testWebhookSecret)

	InitializeBillingController(billing.NewService(repo, &stubProvider{url: "https://checkout.example/s"}))

	app := fiber.New()
	if loggedInUser != 0 {
		app.Use(func(c *fiber.Ctx) error {
			c.Locals("USER_CONTEXT", usercontext.UserContext{
				UserID:     loggedInUser,
				Username:   "tester",
				Email:      "tester@example.com",
				IsLoggedIn: true,
			})
			return c.Next()
		})
	}
	app.Post("/webhooks/stripe", HandleStripeWebhook)
	app.Post("/api/v1/billing/checkout", HandleCreateCheckoutSession)
	return app
}

func signedWebhookRequest(t *testing.T, payload []byte) *http.Request {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(signed.Payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeJSON(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	app := setupBillingTestApp(t, newMemoryRepository(), 0)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader([]byte(`{"id": "evt_1"}`)))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestWebhookAcksVerifiedEvent(t *testing.T) {
	repo := newMemoryRepository()
	app := setupBillingTestApp(t, repo, 0)

	payload := []byte(`{"id": "evt_ok", "type": "customer.subscription.updated", "created": 1750000000, "data": {"object": {"id": "sub_unknown", "status": "active"}}}`)
	resp, err := app.Test(signedWebhookRequest(t, payload))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeJSON(t, resp.Body)
	assert.Equal(t, true, body["received"])
	assert.Equal(t, "customer.subscription.updated", body["eventType"])

	// The delivery is recorded and marked processed even though the
	// subscription was unknown and skipped
	stored := repo.events["evt_ok"]
	require.NotNil(t, stored)
	assert.NotNil(t, stored.ProcessedAt)
	assert.Empty(t, stored.ProcessingError)
}

func TestWebhookDuplicateDeliveryShortCircuits(t *testing.T) {
	repo := newMemoryRepository()
	app := setupBillingTestApp(t, repo, 0)

	payload := []byte(`{"id": "evt_dup", "type": "customer.subscription.updated", "data": {"object": {"id": "sub_x"}}}`)

	resp, err := app.Test(signedWebhookRequest(t, payload))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(signedWebhookRequest(t, payload))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeJSON(t, resp.Body)
	assert.Equal(t, true, body["duplicate"])
	assert.Len(t, repo.events, 1)
}

func TestCheckoutRequiresSession(t *testing.T) {
	app := setupBillingTestApp(t, newMemoryRepository(), 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/checkout", bytes.NewReader([]byte(`{"priceId": "price_1", "plan": "monthly"}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCheckoutReturnsRedirectURL(t *testing.T) {
	app := setupBillingTestApp(t, newMemoryRepository(), 7)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/checkout", bytes.NewReader([]byte(`{"priceId": "price_1", "plan": "yearly"}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeJSON(t, resp.Body)
	assert.Equal(t, "https://checkout.example/s", body["url"])
}

func TestCheckoutValidatesBody(t *testing.T) {
	app := setupBillingTestApp(t, newMemoryRepository(), 7)

	tests := []struct {
		name string
		body string
	}{
		{"invalid plan", `{"priceId": "price_1", "plan": "weekly"}`},
		{"missing price", `{"plan": "monthly"}`},
		{"malformed json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/checkout", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		})
	}
}
