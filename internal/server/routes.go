package server

import (
	"time"

	"github.com/Kyz7/desa/internal/activity"
	"github.com/Kyz7/desa/internal/auth"
	"github.com/Kyz7/desa/internal/gallery"
	"github.com/Kyz7/desa/internal/home"
	"github.com/Kyz7/desa/internal/letter"
	"github.com/Kyz7/desa/internal/media"
	"github.com/Kyz7/desa/internal/message"
	"github.com/Kyz7/desa/internal/middleware"
	"github.com/Kyz7/desa/internal/news"
	"github.com/Kyz7/desa/internal/population"
	"github.com/Kyz7/desa/internal/profile"
	"github.com/Kyz7/desa/internal/role"
	"github.com/Kyz7/desa/internal/search"
	"github.com/Kyz7/desa/internal/setting"
	"github.com/Kyz7/desa/internal/slide"
	"github.com/Kyz7/desa/internal/storage"
	"github.com/Kyz7/desa/internal/structure"
	"github.com/Kyz7/desa/internal/user"
	"github.com/gofiber/fiber/v2"
)

const adminPrefix = "/api/admin"

func setupRoutes(app *fiber.App, d Deps) {
	cfg := d.Config

	uploader := storage.NewUploader(d.Storage, storage.Limits{
		MaxImageSize:    cfg.MaxImageSize,
		MaxDocumentSize: cfg.MaxDocumentSize,
	})

	newsSvc := news.NewService(d.DB)
	letterSvc := letter.NewService(d.DB, uploader, d.Log)
	gallerySvc := gallery.NewService(d.DB)
	structureSvc := structure.NewService(d.DB)
	populationSvc := population.NewService(d.DB)
	slideSvc := slide.NewService(d.DB)
	profileSvc := profile.NewService(d.DB)
	settingSvc := setting.NewService(d.DB)
	messageSvc := message.NewService(d.DB)
	activitySvc := activity.NewService(d.DB)
	userSvc := user.NewService(d.DB, d.Sessions, d.Log)
	authSvc := auth.NewService(d.DB, d.Sessions)
	homeSvc := home.NewService(home.Sources{
		Slides:     slideSvc,
		News:       newsSvc,
		Gallery:    gallerySvc,
		Settings:   settingSvc,
		Profile:    profileSvc,
		Population: populationSvc,
	}, d.DB, d.Log)

	newsHandler := news.NewHandler(newsSvc)
	letterHandler := letter.NewHandler(letterSvc, d.Metrics)
	galleryHandler := gallery.NewHandler(gallerySvc)
	profileHandler := profile.NewHandler(profileSvc)
	settingHandler := setting.NewHandler(settingSvc)
	authHandler := auth.NewHandler(authSvc, auth.CookieConfig{Name: cfg.SessionCookie, Secure: cfg.CookieSecure}, d.Metrics)
	googleHandler := auth.NewGoogleHandler(authHandler, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	if d.GoogleEndpoint != nil {
		googleHandler.WithEndpoints(*d.GoogleEndpoint, d.GoogleUserInfoURL)
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Village website API is running",
			"storage": uploader.Mode(),
		})
	})
	app.Get("/metrics", d.Metrics.Handler())

	api := app.Group("/api", middleware.Authenticate(d.Sessions, cfg.SessionCookie))

	// ==========================================
	// PUBLIC SITE
	// ==========================================
	api.Get("/home", home.LandingHandler(homeSvc))
	api.Get("/search", search.Handler(search.NewService(d.DB)))
	newsHandler.MountPublic(api.Group("/news"))
	letterHandler.MountPublic(api.Group("/letters"))
	galleryHandler.MountPublic(api.Group("/gallery"))
	slide.MountPublic(api.Group("/slides"), slideSvc)
	structure.MountPublic(api.Group("/structure"), structureSvc)
	population.MountPublic(api.Group("/population"), populationSvc)
	profileHandler.MountPublic(api.Group("/profile"))
	settingHandler.MountPublic(api.Group("/settings"))
	message.MountPublic(api.Group("/messages"), messageSvc, rateLimit(cfg.MessageRateLimit, time.Hour))

	// ==========================================
	// AUTH
	// ==========================================
	authGroup := api.Group("/auth")
	authGroup.Post("/login", rateLimit(cfg.LoginRateLimit, 15*time.Minute), authHandler.Login)
	authGroup.Post("/logout", authHandler.Logout)
	authGroup.Get("/me", middleware.RequireAuth(), authHandler.Me)
	authGroup.Patch("/me", middleware.RequireAuth(), authHandler.UpdateMe)
	authGroup.Get("/google/login", googleHandler.Login)
	authGroup.Get("/google/callback", googleHandler.Callback)

	// ==========================================
	// ADMIN BACK-OFFICE (every route checks a capability)
	// ==========================================
	admin := api.Group("/admin", middleware.RequireAuth(), activity.Recorder(activitySvc, adminPrefix))

	home.MountDashboard(admin, homeSvc)
	newsHandler.MountAdmin(admin.Group("/news"))
	letterHandler.MountAdmin(admin.Group("/letters"))
	galleryHandler.MountAdmin(admin.Group("/gallery"))
	structure.Mount(admin.Group("/structure"), structureSvc)
	population.Mount(admin.Group("/population"), populationSvc)
	slide.Mount(admin.Group("/slides"), slideSvc)
	profileHandler.MountAdmin(admin.Group("/profile"))
	settingHandler.MountAdmin(admin.Group("/settings"))
	message.Mount(admin.Group("/messages"), messageSvc)
	media.NewHandler(media.NewService(d.DB, uploader)).Mount(admin.Group("/media"))
	activity.Mount(admin.Group("/activity"), activitySvc)
	user.Mount(admin.Group("/users"), userSvc)
	role.Mount(admin.Group("/roles"), role.NewService(d.DB))
}
