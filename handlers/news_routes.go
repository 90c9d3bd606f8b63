// handlers/news_routes.go
package handlers

import (
	"anime-loyalty-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupNewsRoutes serves the aggregated feed cache.
func SetupNewsRoutes(app *fiber.App, news *services.NewsService) {
	app.Get("/news", func(c *fiber.Ctx) error {
		items := news.News()
		if len(items) == 0 {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "News feed is not available yet"})
		}
		return c.JSON(fiber.Map{
			"items":      items,
			"fetched_at": news.FetchedAt(),
		})
	})

	app.Get("/facts", func(c *fiber.Ctx) error {
		facts := news.Facts()
		if len(facts) == 0 {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Facts are not available yet"})
		}
		return c.JSON(facts)
	})
}
