package controllers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/chainletter/ChainLetter/app/models"
	"github.com/chainletter/ChainLetter/app/repository"
	"github.com/chainletter/ChainLetter/internal/pkg/cache"
	"github.com/chainletter/ChainLetter/internal/pkg/ratelimit"
	"github.com/chainletter/ChainLetter/internal/pkg/session"
	"github.com/chainletter/ChainLetter/internal/pkg/usercontext"
)

var loginLimiter *ratelimit.Limiter

// InitializeAuthController wires the rate limiter for credential endpoints.
// Must be called after the cache client is available.
func InitializeAuthController() {
	loginLimiter = ratelimit.New(cache.GetClient(), "login", 10, 15*time.Minute)
}

func HandleAuthLogin(c *fiber.Ctx) error {
	csrfToken, _ := c.Locals("csrf").(string)

	if c.Method() == fiber.MethodPost {
		fm := fiber.Map{
			"type": "error",
		}

		email := strings.TrimSpace(strings.ToLower(c.FormValue("email")))

		if loginLimiter != nil {
			key := email + "|" + GetClientIP(c)
			if allowed, _ := loginLimiter.Allow(c.Context(), key); !allowed {
				fm["message"] = "Too many login attempts. Please try again later."
				return flash.WithError(c, fm).Redirect("/login")
			}
		}

		// notice: in production you should not inform the user
		// with detailed messages about login failures
		user, err := repository.GetGlobalFactory().GetUserRepository().GetByEmail(email)
		if err != nil {
			fm["message"] = "There is a problem with the login process"
			return flash.WithError(c, fm).Redirect("/login")
		}

		if !models.CheckPasswordHash(c.FormValue("password"), user.Password) {
			fm["message"] = "There is a problem with the login process"
			return flash.WithError(c, fm).Redirect("/login")
		}

		if err := createUserSession(c, user); err != nil {
			fm["message"] = fmt.Sprintf("something went wrong: %s", err)
			return flash.WithError(c, fm).Redirect("/login")
		}

		fm = fiber.Map{
			"type":    "success",
			"message": "Welcome back!",
		}

		return flash.WithSuccess(c, fm).Redirect(safeCallbackURL(c.FormValue("callbackUrl")))
	}

	return c.Render("auth/login", viewData(c, fiber.Map{
		"Title":       "Sign in",
		"CSRFToken":   csrfToken,
		"CallbackURL": safeCallbackURL(c.Query("callbackUrl")),
	}))
}

func HandleAuthRegister(c *fiber.Ctx) error {
	csrfToken, _ := c.Locals("csrf").(string)

	if c.Method() == fiber.MethodPost {
		user, err := models.CreateUser(c.FormValue("username"), c.FormValue("email"), c.FormValue("password"))
		if err != nil {
			fm := fiber.Map{
				"type":    "error",
				"message": fmt.Sprintf("something went wrong: %s", err),
			}
			return flash.WithError(c, fm).Redirect("/register")
		}

		if err := repository.GetGlobalFactory().GetUserRepository().Create(user); err != nil {
			fm := fiber.Map{
				"type":    "error",
				"message": fmt.Sprintf("something went wrong: %s", err),
			}
			return flash.WithError(c, fm).Redirect("/register")
		}

		fm := fiber.Map{
			"type":    "success",
			"message": "Your account has been created. You can sign in now.",
		}
		return flash.WithSuccess(c, fm).Redirect("/login")
	}

	return c.Render("auth/register", viewData(c, fiber.Map{
		"Title":     "Create account",
		"CSRFToken": csrfToken,
	}))
}

func HandleAuthLogout(c *fiber.Ctx) error {
	fm := fiber.Map{
		"type": "error",
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		fm["message"] = "logged out (no sess)"
		return flash.WithError(c, fm).Redirect("/login")
	}

	if err := sess.Destroy(); err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)
		return flash.WithError(c, fm).Redirect("/login")
	}

	fm = fiber.Map{
		"type":    "success",
		"message": "You have been signed out.",
	}

	c.Locals(usercontext.KeyFromProtected, false)

	return flash.WithSuccess(c, fm).Redirect("/login")
}

// createUserSession stores the authenticated user in the server-side session.
func createUserSession(c *fiber.Ctx, user *models.User) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}

	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyUserEmail, user.Email)
	sess.Set(usercontext.KeyIsAdmin, user.Role == "admin")

	if err := sess.Save(); err != nil {
		return err
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	now := time.Now()
	user.LastLoginAt = &now
	_ = repo.Update(user)

	return nil
}

// safeCallbackURL only allows site-local redirect targets.
func safeCallbackURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return "/"
	}
	return raw
}
