package user

import (
	"github.com/Kyz7/desa/internal/middleware"
	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/permission"
	"github.com/Kyz7/desa/internal/resource"
	"github.com/gofiber/fiber/v2"
)

// View is an admin user as returned by the API, with its effective capabilities.
type View struct {
	*models.AdminUser
	Capabilities []permission.Capability `json:"capabilities"`
}

func present(u *models.AdminUser) interface{} {
	return View{AdminUser: u, Capabilities: permission.Capabilities(permission.Role(u.Role))}
}

// Mount registers /api/admin/users. Reads need users.read, creation needs
// users.create and edits or deletion need users.manage.
func Mount(r fiber.Router, svc *Service) {
	h := resource.New[models.AdminUser, CreateInput, UpdateInput]("User", svc, QuerySpec).WithView(present)

	read := middleware.RequireCapability(permission.UsersRead)
	manage := middleware.RequireCapability(permission.UsersManage)

	r.Get("/", read, h.List)
	r.Get("/:id", read, h.Get)
	r.Post("/", middleware.RequireCapability(permission.UsersCreate), h.Create)
	r.Patch("/:id", manage, h.Update)
	r.Delete("/:id", manage, h.Delete)
}
