// handlers/affiliate_routes.go
package handlers

import (
	"time"

	"anime-loyalty-system/middleware"
	"anime-loyalty-system/models"
	"anime-loyalty-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupAffiliateRoutes wires the referral landing path, the affiliate
// dashboard, and the admin conversion workflow.
func SetupAffiliateRoutes(app *fiber.App, db *gorm.DB, auth *services.AuthService, affiliates *services.AffiliateService, cookieTTL time.Duration) {
	// Referral landing: record the click and hold the code client-side for
	// the attribution window. Invalid codes fall through silently.
	app.Get("/r/:code", func(c *fiber.Ctx) error {
		code := c.Params("code")

		affiliate, err := affiliates.ActiveByCode(code)
		if err == nil && affiliate != nil {
			affiliates.TrackClick(code, c.IP(), c.Get("User-Agent"), c.Get("Referer"))
			c.Cookie(&fiber.Cookie{
				Name:     services.ReferralCookieName,
				Value:    code,
				Expires:  time.Now().Add(cookieTTL),
				SameSite: "Lax",
			})
		}
		return c.Redirect("/", fiber.StatusFound)
	})

	secured := app.Group("/affiliate", middleware.RequireUser(auth))

	secured.Post("/", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		affiliate, err := affiliates.CreateAffiliate(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to enroll affiliate"})
		}
		return c.Status(fiber.StatusCreated).JSON(affiliate)
	})

	secured.Get("/", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		affiliate, err := affiliates.ByUserID(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load affiliate"})
		}
		if affiliate == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not enrolled as an affiliate"})
		}

		stats, err := affiliates.Stats(affiliate.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute stats"})
		}
		return c.JSON(fiber.Map{"affiliate": affiliate, "stats": stats})
	})

	secured.Get("/conversions", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		affiliate, err := affiliates.ByUserID(userID)
		if err != nil || affiliate == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not enrolled as an affiliate"})
		}

		conversions, err := affiliates.Conversions(affiliate.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load conversions"})
		}
		return c.JSON(conversions)
	})

	admin := app.Group("/admin", middleware.RequireUser(auth), middleware.RequireAdmin(db))

	admin.Patch("/conversions/:id", func(c *fiber.Ctx) error {
		var req struct {
			Status models.ConversionStatus `json:"status"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		conversion, err := affiliates.UpdateConversionStatus(c.Params("id"), req.Status)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(conversion)
	})
}
