package home

import (
	"github.com/Kyz7/desa/internal/middleware"
	"github.com/Kyz7/desa/internal/permission"
	"github.com/Kyz7/desa/internal/response"
	"github.com/gofiber/fiber/v2"
)

func LandingHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return response.Success(c, svc.Landing(c.UserContext()), "")
	}
}

// MountDashboard registers GET /api/admin/dashboard.
func MountDashboard(r fiber.Router, svc *Service) {
	r.Get("/dashboard", middleware.RequireCapability(permission.DashboardView), func(c *fiber.Ctx) error {
		out, err := svc.Dashboard(c.UserContext())
		if err != nil {
			return response.FromError(c, err, "Dashboard")
		}
		return response.Success(c, out, "")
	})
}
