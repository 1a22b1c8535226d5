package controllers

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeCallbackURL(t *testing.T) {
	assert.Equal(t, "/", safeCallbackURL(""))
	assert.Equal(t, "/", safeCallbackURL("https://evil.example/phish"))
	assert.Equal(t, "/", safeCallbackURL("//evil.example"))
	assert.Equal(t, "/articles/btc-outlook", safeCallbackURL("/articles/btc-outlook"))
	assert.Equal(t, "/pricing?checkout=canceled", safeCallbackURL("/pricing?checkout=canceled"))
}

func TestGetClientIP(t *testing.T) {
	app := fiber.New()
	var got string
	app.Get("/ip", func(c *fiber.Ctx) error {
		got = GetClientIP(c)
		return c.SendString(got)
	})

	req := httptest.NewRequest("GET", "/ip", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	_, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", got)

	req = httptest.NewRequest("GET", "/ip", nil)
	req.Header.Set("CF-Connecting-IP", "198.51.100.2")
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	_, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.2", got)
}
