package server

import (
	"errors"
	"time"

	"github.com/Kyz7/desa/internal/config"
	"github.com/Kyz7/desa/internal/logger"
	"github.com/Kyz7/desa/internal/middleware"
	"github.com/Kyz7/desa/internal/observability"
	"github.com/Kyz7/desa/internal/response"
	"github.com/Kyz7/desa/internal/session"
	"github.com/Kyz7/desa/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// Deps is everything the HTTP layer needs from the process.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Log      *logrus.Logger
	Sessions *session.Manager
	Storage  storage.Store
	Metrics  *observability.Metrics

	// GoogleEndpoint and GoogleUserInfoURL override the Google OAuth
	// endpoints when set.
	GoogleEndpoint    *oauth2.Endpoint
	GoogleUserInfoURL string
}

func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:    64 * 1024 * 1024,
		ErrorHandler: errorHandler,
	})

	app.Use(requestid.New())
	app.Use(logger.Attach(d.Log))
	app.Use(middleware.RequestLogger())
	app.Use(d.Metrics.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     d.Config.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS, PATCH",
		AllowCredentials: d.Config.CORSOrigins != "*",
	}))

	if local, ok := d.Storage.(*storage.LocalStore); ok {
		app.Static(local.PublicPath(), local.Dir(), fiber.Static{
			Compress:  true,
			ByteRange: true,
			Browse:    false,
			MaxAge:    3600,
		})
	}

	setupRoutes(app, d)

	return app
}

// errorHandler renders errors that escaped the handlers (unknown routes,
// oversized bodies, panics recovered by fiber) in the standard envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case fiber.StatusNotFound:
			return response.Error(c, fe.Code, "NOT_FOUND", "Route not found", nil)
		case fiber.StatusRequestEntityTooLarge:
			return response.Error(c, fe.Code, "PAYLOAD_TOO_LARGE", "Request body too large", nil)
		case fiber.StatusMethodNotAllowed:
			return response.Error(c, fe.Code, "METHOD_NOT_ALLOWED", fe.Message, nil)
		}
		if fe.Code < fiber.StatusInternalServerError {
			return response.Error(c, fe.Code, "BAD_REQUEST", fe.Message, nil)
		}
	}
	logger.From(c).WithError(err).Error("unhandled error")
	return response.InternalError(c, "Internal server error")
}

// rateLimit allows max requests per window and IP. max <= 0 disables it.
func rateLimit(max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return response.Error(c, fiber.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Too many requests, try again later", nil)
		},
	})
}
