package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainletter/ChainLetter/internal/pkg/usercontext"
)

func newGuardedApp(loggedIn bool) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(usercontext.KeyFromProtected, loggedIn)
		return c.Next()
	})
	app.Get("/articles/:slug", RequireAuth, func(c *fiber.Ctx) error {
		return c.SendString("article " + c.Params("slug"))
	})
	return app
}

func TestRequireAuthRedirectsAnonymousWithCallbackURL(t *testing.T) {
	app := newGuardedApp(false)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/articles/btc-outlook", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?callbackUrl=%2Farticles%2Fbtc-outlook", resp.Header.Get("Location"))
}

func TestRequireAuthPassesLoggedInRequests(t *testing.T) {
	app := newGuardedApp(true)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/articles/btc-outlook", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Location"))
}

func TestRequireAPISessionAuthReturnsJSON401(t *testing.T) {
	app := fiber.New()
	app.Post("/api/v1/billing/checkout", RequireAPISessionAuth, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"url": "https://checkout.example"})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/billing/checkout", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}
