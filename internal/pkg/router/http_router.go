package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chainletter/ChainLetter/app/controllers"
	"github.com/chainletter/ChainLetter/internal/pkg/billing"
	"github.com/chainletter/ChainLetter/internal/pkg/cms"
	"github.com/chainletter/ChainLetter/internal/pkg/database"
	"github.com/chainletter/ChainLetter/internal/pkg/middleware"
	"github.com/chainletter/ChainLetter/internal/pkg/oauth"
	"github.com/chainletter/ChainLetter/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	// Wire controllers with their dependencies
	controllers.InitializeAuthController()
	controllers.InitializeArticleController(cms.NewClientFromEnv())
	controllers.InitializeBillingController(
		billing.NewServiceFromDB(database.GetDB(), billing.NewStripeClientFromEnv()),
	)

	h.registerPublicRoutes(app)
	h.registerCSRFProtectedRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func loggedInMiddleware(c *fiber.Ctx) error {
	// UserContextMiddleware already set all user context; guests pass through
	return c.Next()
}
