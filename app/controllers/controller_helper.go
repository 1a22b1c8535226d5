package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/chainletter/ChainLetter/internal/pkg/usercontext"
)

// viewData merges per-request context (user, flash messages) into the data
// passed to a template. Every Render call goes through this so templates can
// always rely on IsLoggedIn/Username being present.
func viewData(c *fiber.Ctx, data fiber.Map) fiber.Map {
	if data == nil {
		data = fiber.Map{}
	}

	userCtx := usercontext.GetUserContext(c)
	data["IsLoggedIn"] = userCtx.IsLoggedIn
	data["Username"] = userCtx.Username
	data["IsAdmin"] = userCtx.IsAdmin

	fm := flash.Get(c)
	if msg, ok := fm["message"]; ok {
		data["FlashMessage"] = msg
		data["FlashType"] = fm["type"]
	}

	return data
}

// GetClientIP determines the actual client IP address considering proxies.
// The first hop in X-Forwarded-For wins; Cloudflare's header wins over that.
func GetClientIP(c *fiber.Ctx) string {
	if cfIP := c.Get("CF-Connecting-IP"); cfIP != "" {
		return cfIP
	}

	if xff := c.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	ipAddr := c.IP()
	// Unwrap IPv4-mapped-IPv6 addresses (::ffff:192.168.1.1)
	if strings.HasPrefix(ipAddr, "::ffff:") && strings.Contains(ipAddr, ".") {
		return strings.TrimPrefix(ipAddr, "::ffff:")
	}
	return ipAddr
}
