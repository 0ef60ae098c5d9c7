package population

import (
	"github.com/Kyz7/desa/internal/middleware"
	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/permission"
	"github.com/Kyz7/desa/internal/resource"
	"github.com/Kyz7/desa/internal/response"
	"github.com/Kyz7/desa/internal/store"
	"github.com/gofiber/fiber/v2"
)

func present(st *models.PopulationStat) interface{} {
	return Row{PopulationStat: *st, Total: st.Total()}
}

func Mount(r fiber.Router, svc *Service) {
	resource.New[models.PopulationStat, CreateInput, UpdateInput]("Population statistic", svc, QuerySpec).
		WithView(present).
		Mount(r, middleware.RequireCapability(permission.ContentRead), middleware.RequireCapability(permission.PopulationManage))
}

func MountPublic(r fiber.Router, svc *Service) {
	h := resource.New[models.PopulationStat, CreateInput, UpdateInput]("Population statistic", svc, QuerySpec).WithView(present)
	r.Get("/summary", summary(svc))
	r.Get("/", h.List)
}

func summary(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		year := c.QueryInt("year", 0)
		if year < 0 {
			return response.FromError(c, store.Invalid("year", "year has an invalid value"), "Population summary")
		}
		out, err := svc.Summarize(c.UserContext(), year)
		if err != nil {
			return response.FromError(c, err, "Population summary")
		}
		return response.Success(c, out, "")
	}
}
