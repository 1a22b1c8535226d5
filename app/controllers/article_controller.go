package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/chainletter/ChainLetter/internal/pkg/cms"
	"github.com/chainletter/ChainLetter/internal/pkg/entitlements"
	"github.com/chainletter/ChainLetter/internal/pkg/usercontext"
)

var cmsClient *cms.Client

// InitializeArticleController wires the CMS client used by article pages.
func InitializeArticleController(client *cms.Client) {
	cmsClient = client
}

const articleListLimit = 30

// HandleArticleIndex renders the article listing from CMS metadata only.
func HandleArticleIndex(c *fiber.Ctx) error {
	articles, err := cmsClient.ListArticles(c.Context(), articleListLimit)
	if err != nil {
		log.Errorf("cms list articles: %v", err)
		return c.Status(fiber.StatusBadGateway).Render("error", viewData(c, fiber.Map{
			"Title":   "Articles unavailable",
			"Message": "Articles are temporarily unavailable. Please try again shortly.",
		}))
	}

	return c.Render("articles/index", viewData(c, fiber.Map{
		"Title":    "Articles",
		"Articles": articles,
	}))
}

// HandleArticleShow decides access before the body is fetched: metadata is
// loaded first, the entitlement is resolved fresh from the database, and the
// full body is requested from the CMS only when the decision allows it.
// Premium visitors without access get the paywall view with the excerpt.
func HandleArticleShow(c *fiber.Ctx) error {
	slug := c.Params("slug")

	meta, err := cmsClient.GetArticleMeta(c.Context(), slug)
	if err != nil {
		if errors.Is(err, cms.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).Render("error", viewData(c, fiber.Map{
				"Title":   "Not found",
				"Message": "This article does not exist.",
			}))
		}
		log.Errorf("cms article meta %s: %v", slug, err)
		return c.Status(fiber.StatusBadGateway).Render("error", viewData(c, fiber.Map{
			"Title":   "Article unavailable",
			"Message": "This article is temporarily unavailable. Please try again shortly.",
		}))
	}

	ent := entitlements.None()
	userCtx := usercontext.GetUserContext(c)
	if userCtx.IsLoggedIn {
		ent, err = billingService.ResolveEntitlement(c.Context(), userCtx.UserID, time.Now())
		if err != nil {
			// Fail closed: an unknown entitlement never unlocks premium content.
			log.Errorf("resolve entitlement user=%d: %v", userCtx.UserID, err)
			ent = entitlements.None()
		}
	}

	access := entitlements.DecideAccess(meta.IsPremium, ent)
	if !access.FullAccess {
		return c.Render("articles/paywall", viewData(c, fiber.Map{
			"Title":   meta.Title,
			"Article": meta,
		}))
	}

	body, err := cmsClient.GetArticleBody(c.Context(), slug)
	if err != nil {
		log.Errorf("cms article body %s: %v", slug, err)
		return c.Status(fiber.StatusBadGateway).Render("error", viewData(c, fiber.Map{
			"Title":   "Article unavailable",
			"Message": "This article is temporarily unavailable. Please try again shortly.",
		}))
	}

	return c.Render("articles/show", viewData(c, fiber.Map{
		"Title":   meta.Title,
		"Article": meta,
		"Body":    body.HTML,
	}))
}
