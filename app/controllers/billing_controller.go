package controllers

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/chainletter/ChainLetter/internal/pkg/billing"
	"github.com/chainletter/ChainLetter/internal/pkg/entitlements"
	"github.com/chainletter/ChainLetter/internal/pkg/env"
	"github.com/chainletter/ChainLetter/internal/pkg/s3archive"
	"github.com/chainletter/ChainLetter/internal/pkg/usercontext"
)

var (
	billingService  *billing.Service
	webhookArchiver *s3archive.Client
	webhookSecret   string

	checkoutValidator = validator.New()
)

// InitializeBillingController wires the billing service and optional webhook
// payload archiver. Must be called before billing routes are registered.
func InitializeBillingController(svc *billing.Service) {
	billingService = svc
	webhookSecret = env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	cfg, err := s3archive.LoadConfig()
	if err != nil {
		log.Warnf("webhook archive disabled: %v", err)
		return
	}
	if !cfg.IsEnabled() {
		return
	}
	client, err := s3archive.NewClient(cfg)
	if err != nil {
		log.Warnf("webhook archive disabled: %v", err)
		return
	}
	webhookArchiver = client
}

// CheckoutRequest is the JSON body for starting a subscription checkout.
type CheckoutRequest struct {
	PriceID string `json:"priceId" validate:"required"`
	Plan    string `json:"plan" validate:"required,oneof=monthly yearly"`
}

// HandleCreateCheckoutSession starts a hosted checkout for the signed-in user
// and returns the redirect URL.
func HandleCreateCheckoutSession(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "Sign in to subscribe",
		})
	}

	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_request",
			"message": "Malformed request body",
		})
	}
	if err := checkoutValidator.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_request",
			"message": err.Error(),
		})
	}

	url, err := billingService.CreateCheckout(c.Context(), billing.CheckoutInput{
		UserID:  userCtx.UserID,
		Email:   userCtx.Email,
		PriceID: req.PriceID,
		Plan:    req.Plan,
	})
	if err != nil {
		log.Errorf("create checkout user=%d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   "checkout_failed",
			"message": "Could not start checkout. Please try again.",
		})
	}

	return c.JSON(fiber.Map{"url": url})
}

// HandleStripeWebhook verifies, dedupes, archives and processes billing
// events. Only a signature failure produces a non-2xx response; handler
// errors are recorded and acknowledged so the provider does not retry
// events we have already accepted.
func HandleStripeWebhook(c *fiber.Ctx) error {
	payload := c.Body()

	event, err := billing.VerifyStripeWebhookSignature(payload, c.Get("Stripe-Signature"), webhookSecret)
	if err != nil {
		log.Warnf("webhook signature rejected: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid_signature",
		})
	}

	created, stored, err := billingService.RecordWebhookEvent(c.Context(), event.ID, string(event.Type), payload)
	if err != nil {
		log.Errorf("webhook record %s: %v", event.ID, err)
		return c.JSON(fiber.Map{"received": true})
	}
	if !created {
		// Replay of an event we already accepted
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	if webhookArchiver != nil {
		if err := webhookArchiver.ArchivePayload(c.Context(), event.ID, payload); err != nil {
			log.Warnf("webhook archive %s: %v", event.ID, err)
		}
	}

	processErr := billingService.ProcessEvent(c.Context(), event)
	if processErr != nil {
		log.Errorf("webhook process %s (%s): %v", event.ID, event.Type, processErr)
	}
	if err := billingService.MarkWebhookProcessed(c.Context(), stored.ID, processErr); err != nil {
		log.Errorf("webhook mark processed %s: %v", event.ID, err)
	}

	return c.JSON(fiber.Map{"received": true, "eventType": string(event.Type)})
}

// HandleAccount renders the account page with the user's subscription state.
func HandleAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	ent, err := billingService.ResolveEntitlement(c.Context(), userCtx.UserID, time.Now())
	if err != nil {
		log.Errorf("resolve entitlement user=%d: %v", userCtx.UserID, err)
		ent = entitlements.None()
	}

	subs, err := billingService.ListUserSubscriptions(c.Context(), userCtx.UserID)
	if err != nil {
		log.Errorf("list subscriptions user=%d: %v", userCtx.UserID, err)
	}

	return c.Render("account", viewData(c, fiber.Map{
		"Title":           "Your account",
		"Entitlement":     ent,
		"Subscriptions":   subs,
		"CheckoutOutcome": c.Query("checkout"),
	}))
}
