// handlers/loyalty_routes.go
package handlers

import (
	"anime-loyalty-system/middleware"
	"anime-loyalty-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupLoyaltyRoutes wires the points ledger and daily task endpoints.
func SetupLoyaltyRoutes(app *fiber.App, auth *services.AuthService, points *services.PointsService, tasks *services.DailyTaskService, analytics *services.AnalyticsService) {
	secured := app.Group("/loyalty", middleware.RequireUser(auth))

	// Game completions and other point-earning events land here.
	secured.Post("/points", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			Points   int    `json:"points"`
			GameType string `json:"game_type"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.Points == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "points must be non-zero"})
		}

		snapshot, err := points.GrantPoints(userID, req.Points, req.GameType)
		if err != nil {
			// Ledger write failures are user-blocking; the client offers retry.
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update points"})
		}

		if req.Points > 0 {
			analytics.TrackEvent("points_earned", userID, map[string]any{
				"points":    req.Points,
				"game_type": req.GameType,
			})
			if req.GameType != "" && req.GameType != services.DefaultCategory {
				analytics.TrackEvent("game_played", userID, map[string]any{"game_type": req.GameType})
			}
		}
		return c.JSON(snapshot)
	})

	secured.Get("/points", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		total, err := points.TotalPoints(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load points"})
		}
		return c.JSON(fiber.Map{"points": total, "tier": services.CalculateTier(total)})
	})

	secured.Get("/activities", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		page := c.QueryInt("page", 1)
		size := c.QueryInt("limit", services.DefaultActivityLimit)

		activities, total, err := points.ActivitiesPage(userID, page, size)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load activities"})
		}
		return c.JSON(fiber.Map{
			"activities":  activities,
			"page":        page,
			"total_items": total,
		})
	})

	secured.Get("/tasks", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		view, err := tasks.View(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load daily tasks"})
		}
		return c.JSON(view)
	})

	secured.Post("/tasks/:task/complete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		taskType := c.Params("task")

		view, completed, err := tasks.CompleteTask(userID, taskType)
		if err != nil {
			if _, known := services.DailyTaskRewards[taskType]; !known {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown daily task"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to complete task"})
		}
		return c.JSON(fiber.Map{"completed": completed, "daily_tasks": view})
	})
}
