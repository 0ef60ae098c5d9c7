package home

import (
	"context"
	"errors"

	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/population"
	"github.com/Kyz7/desa/internal/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	latestNews      = 6
	featuredGallery = 8
	recentItems     = 5
)

type SlideSource interface {
	Active(ctx context.Context) ([]models.HeroSlide, error)
}

type NewsSource interface {
	Latest(ctx context.Context, limit int) ([]models.News, error)
}

type GallerySource interface {
	Featured(ctx context.Context, limit int) ([]models.GalleryItem, error)
}

type SettingSource interface {
	Map(ctx context.Context) (map[string]string, error)
}

type ProfileSource interface {
	Get(ctx context.Context) (*models.VillageProfile, error)
}

type PopulationSource interface {
	Summarize(ctx context.Context, year int) (*population.Summary, error)
}

// Sources feeds the public landing page.
type Sources struct {
	Slides     SlideSource
	News       NewsSource
	Gallery    GallerySource
	Settings   SettingSource
	Profile    ProfileSource
	Population PopulationSource
}

type Landing struct {
	Slides     []models.HeroSlide     `json:"slides"`
	News       []models.News          `json:"news"`
	Gallery    []models.GalleryItem   `json:"gallery"`
	Settings   map[string]string      `json:"settings"`
	Profile    *models.VillageProfile `json:"profile"`
	Population *population.Summary    `json:"population"`
}

type Dashboard struct {
	News struct {
		Total     int64 `json:"total"`
		Published int64 `json:"published"`
		Draft     int64 `json:"draft"`
	} `json:"news"`
	Letters struct {
		Total     int64 `json:"total"`
		Active    int64 `json:"active"`
		Downloads int64 `json:"downloads"`
	} `json:"letters"`
	Gallery          int64                   `json:"gallery"`
	Slides           int64                   `json:"slides"`
	Structure        int64                   `json:"structure"`
	UnreadMessages   int64                   `json:"unread_messages"`
	ActiveUsers      int64                   `json:"active_users"`
	RecentMessages   []models.ContactMessage `json:"recent_messages"`
	RecentActivities []models.ActivityLog    `json:"recent_activities"`
}

type Service struct {
	src Sources
	db  *gorm.DB
	log *logrus.Logger
}

func NewService(src Sources, db *gorm.DB, log *logrus.Logger) *Service {
	return &Service{src: src, db: db, log: log}
}

// Landing gathers everything the public front page shows. A failing part
// is logged and rendered empty so one broken table does not blank the site.
func (s *Service) Landing(ctx context.Context) *Landing {
	out := &Landing{
		Slides:   make([]models.HeroSlide, 0),
		News:     make([]models.News, 0),
		Gallery:  make([]models.GalleryItem, 0),
		Settings: map[string]string{},
	}

	var g errgroup.Group
	g.Go(func() error {
		if slides, err := s.src.Slides.Active(ctx); s.ok("slides", err) {
			out.Slides = slides
		}
		return nil
	})
	g.Go(func() error {
		if news, err := s.src.News.Latest(ctx, latestNews); s.ok("news", err) {
			out.News = news
		}
		return nil
	})
	g.Go(func() error {
		if items, err := s.src.Gallery.Featured(ctx, featuredGallery); s.ok("gallery", err) {
			out.Gallery = items
		}
		return nil
	})
	g.Go(func() error {
		if settings, err := s.src.Settings.Map(ctx); s.ok("settings", err) {
			out.Settings = settings
		}
		return nil
	})
	g.Go(func() error {
		p, err := s.src.Profile.Get(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if s.ok("profile", err) {
			out.Profile = p
		}
		return nil
	})
	g.Go(func() error {
		if sum, err := s.src.Population.Summarize(ctx, 0); s.ok("population", err) {
			out.Population = sum
		}
		return nil
	})
	_ = g.Wait()

	return out
}

func (s *Service) ok(part string, err error) bool {
	if err != nil {
		s.log.WithError(err).WithField("part", part).Warn("landing section unavailable")
		return false
	}
	return true
}

// Dashboard returns back-office counters. Any failing query fails the call.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	out := &Dashboard{}
	g, ctx := errgroup.WithContext(ctx)

	count := func(dst *int64, model interface{}, query string, args ...interface{}) {
		g.Go(func() error {
			q := s.db.WithContext(ctx).Model(model)
			if query != "" {
				q = q.Where(query, args...)
			}
			return q.Count(dst).Error
		})
	}

	count(&out.News.Total, &models.News{}, "")
	count(&out.News.Published, &models.News{}, "status = ?", models.NewsPublished)
	count(&out.News.Draft, &models.News{}, "status = ?", models.NewsDraft)
	count(&out.Letters.Total, &models.LetterTemplate{}, "")
	count(&out.Letters.Active, &models.LetterTemplate{}, "is_active = ?", true)
	count(&out.Letters.Downloads, &models.DownloadLog{}, "")
	count(&out.Gallery, &models.GalleryItem{}, "")
	count(&out.Slides, &models.HeroSlide{}, "is_active = ?", true)
	count(&out.Structure, &models.OrgMember{}, "is_active = ?", true)
	count(&out.UnreadMessages, &models.ContactMessage{}, "is_read = ?", false)
	count(&out.ActiveUsers, &models.AdminUser{}, "is_active = ?", true)

	g.Go(func() error {
		out.RecentMessages = make([]models.ContactMessage, 0)
		return s.db.WithContext(ctx).Order("created_at DESC").Limit(recentItems).Find(&out.RecentMessages).Error
	})
	g.Go(func() error {
		out.RecentActivities = make([]models.ActivityLog, 0)
		return s.db.WithContext(ctx).Preload("User").Order("created_at DESC").Limit(recentItems).Find(&out.RecentActivities).Error
	})

	if err := g.Wait(); err != nil {
		return nil, store.Translate(err)
	}
	return out, nil
}
