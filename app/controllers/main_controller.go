package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/chainletter/ChainLetter/app/repository"
	"github.com/chainletter/ChainLetter/internal/pkg/env"
)

const homeArticleLimit = 6

// HandleStart renders the landing page with the latest articles.
func HandleStart(c *fiber.Ctx) error {
	articles, err := cmsClient.ListArticles(c.Context(), homeArticleLimit)
	if err != nil {
		// The landing page still renders without the article strip
		log.Warnf("cms list articles for home: %v", err)
	}

	return c.Render("index", viewData(c, fiber.Map{
		"Title":    "",
		"Articles": articles,
		"IsDev":    env.IsDev(),
	}))
}

// HandlePricing renders the plans page with the configured price IDs.
func HandlePricing(c *fiber.Ctx) error {
	return c.Render("pricing", viewData(c, fiber.Map{
		"Title":          "Membership",
		"MonthlyPriceID": env.GetEnv("STRIPE_PRICE_MONTHLY", ""),
		"YearlyPriceID":  env.GetEnv("STRIPE_PRICE_YEARLY", ""),
		"CheckoutOutcome": c.Query("checkout"),
	}))
}

// HandlePage renders a database-backed static page (about, imprint, ...).
func HandlePage(c *fiber.Ctx) error {
	slug := c.Params("slug")

	page, err := repository.GetGlobalFactory().GetPageRepository().GetBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).Render("error", viewData(c, fiber.Map{
				"Title":   "Not found",
				"Message": "This page does not exist.",
			}))
		}
		log.Errorf("load page %s: %v", slug, err)
		return c.Status(fiber.StatusInternalServerError).Render("error", viewData(c, fiber.Map{
			"Title":   "Error",
			"Message": "Something went wrong.",
		}))
	}

	return c.Render("page", viewData(c, fiber.Map{
		"Title":   page.Title,
		"Page":    page,
		"Content": page.Content,
	}))
}
