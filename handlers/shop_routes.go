// handlers/shop_routes.go
package handlers

import (
	"errors"

	"anime-loyalty-system/middleware"
	"anime-loyalty-system/models"
	"anime-loyalty-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupShopRoutes wires the public catalog, checkout, and the admin catalog
// management surface.
func SetupShopRoutes(app *fiber.App, db *gorm.DB, auth *services.AuthService, products *services.ProductService, checkout *services.CheckoutService, affiliates *services.AffiliateService) {
	app.Get("/products", products.ListProducts)
	app.Get("/products/:id", products.GetProduct)

	app.Post("/checkout", middleware.RequireUser(auth), func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var input services.CheckoutInput
		if err := c.BodyParser(&input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		result, err := checkout.Checkout(userID, input)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrInsufficientPoints):
				return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": err.Error()})
			case errors.Is(err, services.ErrOutOfStock):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
			default:
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
		}

		// Purchase attribution reads the referral cookie; the cookie clears
		// after any recorded conversion.
		if code := c.Cookies(services.ReferralCookieName); code != "" {
			total := result.Total
			if affiliates.TrackConversion(code, userID, models.ConversionPurchase, &total) {
				clearReferralCookie(c)
			}
		}

		return c.Status(fiber.StatusCreated).JSON(result)
	})

	admin := app.Group("/admin/products", middleware.RequireUser(auth), middleware.RequireAdmin(db))
	admin.Post("/", products.CreateProduct)
	admin.Put("/:id", products.UpdateProduct)
	admin.Delete("/:id", products.DeleteProduct)
	admin.Post("/:id/image", products.UploadProductImage)
}
