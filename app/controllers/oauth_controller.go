package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"
	"gorm.io/gorm"

	"github.com/chainletter/ChainLetter/app/models"
	"github.com/chainletter/ChainLetter/app/repository"
)

// HandleOAuthCallback completes the provider flow and logs the user in
func HandleOAuthCallback(c *fiber.Ctx) error {
	// Complete OAuth with provider and obtain unified user
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("OAuth failed: %v", err))
	}

	repos := repository.GetGlobalRepositories()

	// Try to find existing provider account
	pa, paErr := repos.ProviderAccount.GetByProviderUserID(u.Provider, u.UserID)

	var appUser *models.User
	switch {
	case errors.Is(paErr, gorm.ErrRecordNotFound):
		// Optional email match if provided
		if u.Email != "" {
			if existing, err := repos.User.GetByEmail(u.Email); err == nil {
				appUser = existing
			}
		}
		if appUser == nil {
			// Create new user; set a random placeholder password since the
			// model requires one (never usable for credential login)
			placeholder := fmt.Sprintf("oauth_%d", time.Now().UnixNano())
			hash, _ := models.HashPassword(placeholder)
			email := u.Email
			if email == "" {
				// Ensure unique, non-empty email to satisfy unique index semantics in MySQL
				email = fmt.Sprintf("%s_%s@%s.oauth.local", u.Provider, u.UserID, u.Provider)
			}
			appUser = &models.User{
				Name:     firstNonEmpty(u.Name, u.NickName, u.Email, "User"),
				Email:    email,
				Password: hash,
				Role:     models.ROLE_USER,
				Status:   models.STATUS_ACTIVE,
			}
			if err := repos.User.Create(appUser); err != nil {
				return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("create user failed: %v", err))
			}
		}
		var exp *time.Time
		if !u.ExpiresAt.IsZero() {
			t := u.ExpiresAt
			exp = &t
		}
		pa = &models.ProviderAccount{
			UserID:         appUser.ID,
			Provider:       u.Provider,
			ProviderUserID: u.UserID,
			AccessToken:    u.AccessToken,
			RefreshToken:   u.RefreshToken,
			ExpiresAt:      exp,
		}
		if err := repos.ProviderAccount.Create(pa); err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("link provider failed: %v", err))
		}
	case paErr == nil:
		// Load related user; token refresh is handled by the provider flow
		appUser, err = repos.User.GetByID(pa.UserID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("linked user not found")
		}
	default:
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("db error: %v", paErr))
	}

	if !appUser.IsActive() {
		return c.Status(fiber.StatusForbidden).SendString("account disabled")
	}

	if err := createUserSession(c, appUser); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("session save failed")
	}

	return c.Redirect("/", fiber.StatusSeeOther)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
