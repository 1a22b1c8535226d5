package router

import (
	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/chainletter/ChainLetter/app/controllers"
	"github.com/chainletter/ChainLetter/internal/pkg/middleware"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Articles: the listing is public; detail pages require a login and the
	// show handler then decides per request whether the full body may be served
	app.Get("/articles", loggedInMiddleware, controllers.HandleArticleIndex)
	app.Get("/articles/:slug", middleware.RequireAuth, controllers.HandleArticleShow)

	// Static pages
	app.Get("/pricing", loggedInMiddleware, controllers.HandlePricing)
	app.Get("/page/:slug", loggedInMiddleware, controllers.HandlePage)

	// Auth
	app.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)

	// Social OAuth
	app.Get("/auth/:provider", gothfiber.BeginAuthHandler)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)

	// Billing provider webhooks (no CSRF, signature-verified in controller)
	app.Post("/webhooks/stripe", controllers.HandleStripeWebhook)
}
