package search

import (
	"github.com/Kyz7/desa/internal/response"
	"github.com/gofiber/fiber/v2"
)

// Handler serves GET /api/search?q=&limit=.
func Handler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := svc.Search(c.UserContext(), c.Query("q"), c.QueryInt("limit", defaultLimit))
		if err != nil {
			return response.FromError(c, err, "Search")
		}
		return response.Success(c, result, "")
	}
}
