// handlers/auth_routes.go
package handlers

import (
	"errors"
	"time"

	"anime-loyalty-system/middleware"
	"anime-loyalty-system/models"
	"anime-loyalty-system/services"

	"github.com/gofiber/fiber/v2"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SetupAuthRoutes wires account creation, login, and session restore.
// Affiliate signup attribution and analytics ride along best-effort.
func SetupAuthRoutes(app *fiber.App, auth *services.AuthService, affiliates *services.AffiliateService, analytics *services.AnalyticsService) {
	app.Post("/auth/register", func(c *fiber.Ctx) error {
		var req credentialsRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		user, err := auth.Register(req.Email, req.Password)
		if err != nil {
			if errors.Is(err, services.ErrEmailTaken) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		// Attribution and analytics never block a successful registration.
		if code := c.Cookies(services.ReferralCookieName); code != "" {
			if affiliates.TrackConversion(code, user.ID, models.ConversionSignup, nil) {
				clearReferralCookie(c)
			}
		}
		analytics.TrackEvent("registration", user.ID, map[string]any{"email": user.Email})

		token, err := auth.IssueToken(user)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create session"})
		}
		setSessionCookie(c, token, auth.TokenTTL)

		profile, err := auth.Profile(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load profile"})
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"token": token, "user": profile})
	})

	app.Post("/auth/login", func(c *fiber.Ctx) error {
		var req credentialsRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		user, err := auth.Login(req.Email, req.Password)
		if err != nil {
			if errors.Is(err, services.ErrInvalidCredentials) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Login failed"})
		}

		token, err := auth.IssueToken(user)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create session"})
		}
		setSessionCookie(c, token, auth.TokenTTL)

		profile, err := auth.Profile(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load profile"})
		}
		return c.JSON(fiber.Map{"token": token, "user": profile})
	})

	app.Get("/auth/session", middleware.RequireUser(auth), func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		profile, err := auth.Profile(userID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Session user not found"})
		}
		return c.JSON(profile)
	})

	app.Post("/auth/logout", middleware.RequireUser(auth), func(c *fiber.Ctx) error {
		c.Cookie(&fiber.Cookie{
			Name:     middleware.SessionCookieName,
			Value:    "",
			Expires:  time.Unix(0, 0),
			HTTPOnly: true,
		})
		return c.JSON(fiber.Map{"message": "Signed out"})
	})
}

func setSessionCookie(c *fiber.Ctx, token string, ttl time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

func clearReferralCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     services.ReferralCookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		SameSite: "Lax",
	})
}
