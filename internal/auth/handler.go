package auth

import (
	"errors"
	"time"

	"github.com/Kyz7/desa/internal/observability"
	"github.com/Kyz7/desa/internal/principal"
	"github.com/Kyz7/desa/internal/response"
	"github.com/gofiber/fiber/v2"
)

type CookieConfig struct {
	Name   string
	Secure bool
}

type Handler struct {
	svc     *Service
	cookie  CookieConfig
	metrics *observability.Metrics
}

func NewHandler(svc *Service, cookie CookieConfig, metrics *observability.Metrics) *Handler {
	return &Handler{svc: svc, cookie: cookie, metrics: metrics}
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var body LoginInput
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}

	sess, err := h.svc.Login(c.UserContext(), body, c.Get(fiber.HeaderUserAgent), c.IP())
	if err != nil {
		return h.loginFailed(c, "password", err)
	}
	h.metrics.LoginAttempt("password", "success")
	return h.loginSucceeded(c, sess)
}

func (h *Handler) loginFailed(c *fiber.Ctx, method string, err error) error {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		h.metrics.LoginAttempt(method, "invalid")
		return response.Unauthorized(c, "Invalid email or password")
	case errors.Is(err, ErrAccountInactive):
		h.metrics.LoginAttempt(method, "inactive")
		return response.Error(c, fiber.StatusForbidden, "ACCOUNT_INACTIVE", "Account is inactive", nil)
	}
	h.metrics.LoginAttempt(method, "error")
	return response.FromError(c, err, "User")
}

func (h *Handler) loginSucceeded(c *fiber.Ctx, sess *Session) error {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	data := fiber.Map{
		"user":       presentMe(sess.User),
		"expires_at": sess.ExpiresAt,
	}
	if sess.AccessToken != "" {
		data["access_token"] = sess.AccessToken
		data["token_type"] = "Bearer"
		data["expires_in"] = int(h.svc.sessions.Tokens().TTL().Seconds())
	}
	return response.Success(c, data, "Login successful")
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	if err := h.svc.Logout(c.UserContext(), c.Cookies(h.cookie.Name)); err != nil {
		return response.FromError(c, err, "Session")
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return response.Success(c, nil, "Logout successful")
}

func (h *Handler) Me(c *fiber.Ctx) error {
	me, err := h.svc.Me(c.UserContext(), principal.From(c))
	if err != nil {
		return response.FromError(c, err, "User")
	}
	return response.Success(c, me, "")
}

func (h *Handler) UpdateMe(c *fiber.Ctx) error {
	var body ProfileInput
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	me, err := h.svc.UpdateProfile(c.UserContext(), principal.From(c), body)
	if err != nil {
		return response.FromError(c, err, "User")
	}
	return response.Success(c, me, "Profile updated successfully")
}
