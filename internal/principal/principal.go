package principal

import (
	"context"

	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/permission"
	"github.com/gofiber/fiber/v2"
)

const localsKey = "principal"

type ctxKey struct{}

// Principal is the authenticated operator behind one request.
type Principal struct {
	ID     uint            `json:"id"`
	Email  string          `json:"email"`
	Name   string          `json:"name"`
	Role   permission.Role `json:"role"`
	Active bool            `json:"is_active"`
}

func FromUser(u *models.AdminUser) *Principal {
	return &Principal{
		ID:     u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Role:   permission.Role(u.Role),
		Active: u.IsActive,
	}
}

func (p *Principal) GetRole() permission.Role {
	if p == nil {
		return ""
	}
	return p.Role
}

func (p *Principal) GetActive() bool {
	return p != nil && p.Active
}

func (p *Principal) Can(c permission.Capability) bool {
	return p.GetActive() && permission.Can(p.Role, c)
}

func (p *Principal) Capabilities() []permission.Capability {
	if p == nil {
		return []permission.Capability{}
	}
	return permission.Capabilities(p.Role)
}

func NewContext(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal stored on ctx, or nil for anonymous.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxKey{}).(*Principal)
	return p
}

// Set binds p to the request: Fiber locals for handlers and the user
// context for services.
func Set(c *fiber.Ctx, p *Principal) {
	c.Locals(localsKey, p)
	c.SetUserContext(NewContext(c.UserContext(), p))
}

func From(c *fiber.Ctx) *Principal {
	p, _ := c.Locals(localsKey).(*Principal)
	return p
}
