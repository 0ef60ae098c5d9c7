package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/Kyz7/desa/internal/logger"
	"github.com/Kyz7/desa/internal/permission"
	"github.com/Kyz7/desa/internal/principal"
	"github.com/Kyz7/desa/internal/response"
	"github.com/Kyz7/desa/internal/store"
	"github.com/gofiber/fiber/v2"
)

// SessionResolver turns request credentials into a principal.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*principal.Principal, error)
	ResolveBearer(ctx context.Context, token string) (*principal.Principal, error)
}

// Authenticate resolves the session cookie, or a Bearer access token when no
// cookie is present, and binds the principal to the request. Anonymous
// requests pass through; the guards below decide what they may do.
func Authenticate(resolver SessionResolver, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		var (
			p   *principal.Principal
			err error
		)
		if token := c.Cookies(cookieName); token != "" {
			p, err = resolver.Resolve(ctx, token)
		} else if bearer := bearerToken(c.Get(fiber.HeaderAuthorization)); bearer != "" {
			p, err = resolver.ResolveBearer(ctx, bearer)
		}

		if err != nil {
			if errors.Is(err, store.ErrUnavailable) {
				logger.From(c).WithError(err).Error("session lookup failed")
				return response.ServiceUnavailable(c, "Session service unavailable, try again later")
			}
			return response.FromError(c, err, "Session")
		}

		if p != nil {
			principal.Set(c, p)
		}
		return c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAuth denies anonymous requests.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if principal.From(c) == nil {
			return response.Forbidden(c, "Authentication required")
		}
		return c.Next()
	}
}

// RequireCapability allows the request only when the principal holds every capability.
func RequireCapability(caps ...permission.Capability) fiber.Handler {
	return Guard(permission.Require(caps...))
}

func Guard(req permission.Requirement) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := principal.From(c)
		if p == nil {
			return response.Forbidden(c, "Authentication required")
		}
		if permission.Evaluate(p, req) != permission.Allowed {
			return response.Forbidden(c, "You don't have permission to perform this action")
		}
		return c.Next()
	}
}
