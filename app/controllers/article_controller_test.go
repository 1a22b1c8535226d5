package controllers

import (
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainletter/ChainLetter/app/models"
	"github.com/chainletter/ChainLetter/internal/pkg/billing"
	"github.com/chainletter/ChainLetter/internal/pkg/cms"
	"github.com/chainletter/ChainLetter/internal/pkg/middleware"
	"github.com/chainletter/ChainLetter/internal/pkg/usercontext"
)

// cmsStub serves article metadata and bodies while counting each fetch, so
// tests can assert the body is never requested on the paywall path.
type cmsStub struct {
	server    *httptest.Server
	isPremium bool
	metaCalls int
	bodyCalls int
}

func newCMSStub(isPremium bool) *cmsStub {
	s := &cmsStub{isPremium: isPremium}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/body") {
			s.bodyCalls++
			fmt.Fprint(w, `{"data": {"slug": "btc-outlook", "html": "<p>Full premium analysis.</p>"}}`)
			return
		}
		s.metaCalls++
		fmt.Fprintf(w, `{"data": {
			"id": "a1",
			"slug": "btc-outlook",
			"title": "Bitcoin Outlook",
			"excerpt": "Where the cycle goes next.",
			"author": "Jo Riva",
			"is_premium": %t,
			"published_at": "2026-08-01T09:00:00Z"
		}}`, s.isPremium)
	}))
	return s
}

func (s *cmsStub) client() *cms.Client {
	return &cms.Client{BaseURL: s.server.URL, HTTPClient: s.server.Client()}
}

// setupArticleTestApp mirrors the production route: the auth guard in front,
// then the show handler rendering real views.
func setupArticleTestApp(t *testing.T, stub *cmsStub, repo *memoryRepository, loggedInUser uint) *fiber.App {
	t.Helper()
	t.Setenv("STRIPE_WEBHOOK_SECRET", testWebhookSecret)

	InitializeArticleController(stub.client())
	InitializeBillingController(billing.NewService(repo, &stubProvider{url: "https://checkout.example/s"}))

	engine := html.New("../../views", ".html")
	engine.AddFunc("unescape", func(s string) template.HTML {
		return template.HTML(s)
	})

	app := fiber.New(fiber.Config{
		Views:       engine,
		ViewsLayout: "layouts/main",
	})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(usercontext.KeyFromProtected, loggedInUser != 0)
		if loggedInUser != 0 {
			c.Locals("USER_CONTEXT", usercontext.UserContext{
				UserID:     loggedInUser,
				Username:   "reader",
				Email:      "reader@example.com",
				IsLoggedIn: true,
			})
		}
		return c.Next()
	})
	app.Get("/articles/:slug", middleware.RequireAuth, HandleArticleShow)
	return app
}

func TestArticleShowPaywallNeverFetchesBody(t *testing.T) {
	stub := newCMSStub(true)
	defer stub.server.Close()

	app := setupArticleTestApp(t, stub, newMemoryRepository(), 7)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/articles/btc-outlook", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "This article is for members")
	assert.NotContains(t, string(page), "Full premium analysis")

	assert.Equal(t, 1, stub.metaCalls)
	assert.Equal(t, 0, stub.bodyCalls)
}

func TestArticleShowEntitledReaderGetsBody(t *testing.T) {
	stub := newCMSStub(true)
	defer stub.server.Close()

	repo := newMemoryRepository()
	periodEnd := time.Now().Add(24 * time.Hour)
	require.NoError(t, repo.UpsertByExternalID(&models.Subscription{
		UserID:               7,
		StripeSubscriptionID: "sub_entitled",
		Status:               models.SubscriptionStatusActive,
		PlanType:             models.PlanTypeMonthly,
		CurrentPeriodEnd:     &periodEnd,
	}))

	app := setupArticleTestApp(t, stub, repo, 7)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/articles/btc-outlook", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Full premium analysis")

	assert.Equal(t, 1, stub.metaCalls)
	assert.Equal(t, 1, stub.bodyCalls)
}

func TestArticleShowFreeArticleSkipsEntitlementGate(t *testing.T) {
	stub := newCMSStub(false)
	defer stub.server.Close()

	app := setupArticleTestApp(t, stub, newMemoryRepository(), 7)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/articles/btc-outlook", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Full premium analysis")
	assert.Equal(t, 1, stub.bodyCalls)
}

func TestArticleRouteGuardBlocksAnonymousBeforeCMS(t *testing.T) {
	stub := newCMSStub(true)
	defer stub.server.Close()

	app := setupArticleTestApp(t, stub, newMemoryRepository(), 0)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/articles/btc-outlook", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?callbackUrl=%2Farticles%2Fbtc-outlook", resp.Header.Get("Location"))
	assert.Equal(t, 0, stub.metaCalls)
	assert.Equal(t, 0, stub.bodyCalls)
}
