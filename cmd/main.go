package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kyz7/desa/internal/config"
	"github.com/Kyz7/desa/internal/database"
	"github.com/Kyz7/desa/internal/logger"
	"github.com/Kyz7/desa/internal/observability"
	"github.com/Kyz7/desa/internal/server"
	"github.com/Kyz7/desa/internal/session"
	"github.com/Kyz7/desa/internal/storage"
	"github.com/Kyz7/desa/internal/user"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("configuration error")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.WithField("env", cfg.AppEnv).Info("configuration loaded")

	// ========== DATABASE SETUP ==========
	db, err := database.Connect(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("migration failed")
	}
	log.Info("database migrated")

	// ========== RUN SQL MIGRATIONS (FOR SEARCH INDEXES) ==========
	if n, err := database.RunMigrations(db, cfg.MigrationsDir, log); err != nil {
		log.WithError(err).Warn("SQL migrations failed, search may be slower")
	} else {
		log.WithField("applied", n).Info("SQL migrations completed")
	}

	// ========== STORAGE SETUP ==========
	var objects storage.Store
	switch cfg.StorageMode {
	case "s3":
		s3Store, err := storage.NewS3Store(cfg.S3Bucket, cfg.S3Region, cfg.CloudFrontURL)
		if err != nil {
			log.WithError(err).Fatal("S3 initialization failed")
		}
		objects = s3Store
		log.WithFields(logrus.Fields{"bucket": cfg.S3Bucket, "region": cfg.S3Region}).Info("using S3 storage")
	default:
		local, err := storage.NewLocalStore(cfg.UploadDir, cfg.UploadPublicPath)
		if err != nil {
			log.WithError(err).Fatal("local storage initialization failed")
		}
		objects = local
		log.WithField("dir", cfg.UploadDir).Info("using local storage")
	}

	// ========== SESSIONS ==========
	var store session.Store
	switch cfg.SessionBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.WithError(err).Fatal("redis unreachable")
		}
		store = session.NewRedisStore(client)
	default:
		store = session.NewDatabaseStore(db)
	}
	sessions := session.NewManager(store, db, session.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL), cfg.SessionTTL)
	log.WithField("backend", cfg.SessionBackend).Info("session store ready")

	// ========== SEED BOOTSTRAP ADMIN ==========
	users := user.NewService(db, sessions, log)
	if _, err := users.EnsureBootstrapAdmin(context.Background(), cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword, cfg.BootstrapAdminName); err != nil {
		log.WithError(err).Fatal("failed to create bootstrap super admin")
	}

	// ========== BACKGROUND JOBS ==========
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := sessions.Purge(ctx)
				if err != nil {
					log.WithError(err).Warn("failed to purge expired sessions")
					continue
				}
				if n > 0 {
					log.WithField("count", n).Info("cleaned up expired sessions")
				}
			}
		}
	}()

	// ========== START SERVER ==========
	app := server.New(server.Deps{
		Config:   cfg,
		DB:       db,
		Log:      log,
		Sessions: sessions,
		Storage:  objects,
		Metrics:  observability.NewMetrics(),
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
	}()

	log.WithFields(logrus.Fields{"addr": cfg.ServerAddr, "storage": objects.Mode()}).Info("server starting")
	if err := app.Listen(cfg.ServerAddr); err != nil {
		log.WithError(err).Fatal("failed to start server")
	}
}
