package home_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Kyz7/desa/internal/home"
	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/population"
	"github.com/Kyz7/desa/internal/store"
	"github.com/Kyz7/desa/internal/testutils"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBroken = errors.New("relation does not exist")

type stubSlides struct{ err error }

func (s stubSlides) Active(context.Context) ([]models.HeroSlide, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.HeroSlide{{ID: 1, Title: "Selamat Datang"}}, nil
}

type stubNews struct{ limit int }

func (s *stubNews) Latest(_ context.Context, limit int) ([]models.News, error) {
	s.limit = limit
	return []models.News{{ID: 7, Title: "Kabar"}}, nil
}

type stubGallery struct{}

func (stubGallery) Featured(context.Context, int) ([]models.GalleryItem, error) {
	return nil, errBroken
}

type stubSettings struct{}

func (stubSettings) Map(context.Context) (map[string]string, error) {
	return map[string]string{"site.name": "Desa Sukamaju"}, nil
}

type stubProfile struct{ err error }

func (s stubProfile) Get(context.Context) (*models.VillageProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.VillageProfile{VillageName: "Sukamaju"}, nil
}

type stubPopulation struct{}

func (stubPopulation) Summarize(_ context.Context, year int) (*population.Summary, error) {
	return &population.Summary{Year: 2024, Total: 1000}, nil
}

func TestLanding(t *testing.T) {
	t.Run("Success - a failing section is empty and logged", func(t *testing.T) {
		log, hook := logtest.NewNullLogger()
		news := &stubNews{}
		svc := home.NewService(home.Sources{
			Slides:     stubSlides{},
			News:       news,
			Gallery:    stubGallery{},
			Settings:   stubSettings{},
			Profile:    stubProfile{},
			Population: stubPopulation{},
		}, nil, log)

		out := svc.Landing(context.Background())
		assert.Len(t, out.Slides, 1)
		assert.Len(t, out.News, 1)
		assert.Equal(t, 6, news.limit)
		assert.NotNil(t, out.Gallery)
		assert.Empty(t, out.Gallery)
		assert.Equal(t, "Desa Sukamaju", out.Settings["site.name"])
		require.NotNil(t, out.Profile)
		assert.Equal(t, 1000, out.Population.Total)

		require.Len(t, hook.AllEntries(), 1)
		entry := hook.LastEntry()
		assert.Equal(t, logrus.WarnLevel, entry.Level)
		assert.Equal(t, "gallery", entry.Data["part"])
	})

	t.Run("Success - a missing profile is not an error", func(t *testing.T) {
		log, hook := logtest.NewNullLogger()
		svc := home.NewService(home.Sources{
			Slides:     stubSlides{err: errBroken},
			News:       &stubNews{},
			Gallery:    stubGallery{},
			Settings:   stubSettings{},
			Profile:    stubProfile{err: store.ErrNotFound},
			Population: stubPopulation{},
		}, nil, log)

		out := svc.Landing(context.Background())
		assert.Nil(t, out.Profile)
		assert.Empty(t, out.Slides)
		assert.Len(t, hook.AllEntries(), 2)
	})
}

func TestLandingRoute(t *testing.T) {
	ta := testutils.SetupTestApp(t)

	resp, err := testutils.MakeRequest(ta.App, http.MethodGet, "/api/home", nil, "")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code)

	var out struct {
		Slides     []interface{}      `json:"slides"`
		News       []interface{}      `json:"news"`
		Profile    interface{}        `json:"profile"`
		Population population.Summary `json:"population"`
	}
	testutils.Decode(t, resp, &out)
	assert.NotNil(t, out.Slides)
	assert.Empty(t, out.News)
	assert.Nil(t, out.Profile)
	assert.Zero(t, out.Population.Total)
}

func TestDashboard(t *testing.T) {
	ta := testutils.SetupTestApp(t)
	testutils.CreateTestUser(t, ta.DB, "admin@desa.id", "password123", "admin")
	off := testutils.CreateTestUser(t, ta.DB, "off@desa.id", "password123", "admin")
	require.NoError(t, ta.DB.Model(off).Update("is_active", false).Error)
	session := testutils.Login(t, ta.App, "admin@desa.id", "password123")

	require.NoError(t, ta.DB.Create(&[]models.News{
		{Title: "A", Slug: "a", Status: models.NewsPublished},
		{Title: "B", Slug: "b", Status: models.NewsDraft},
		{Title: "C", Slug: "c", Status: models.NewsDraft},
	}).Error)
	require.NoError(t, ta.DB.Create(&models.ContactMessage{Name: "W", Email: "w@mail.com", Subject: "S", Body: "B"}).Error)

	_, err := testutils.MakeRequest(ta.App, http.MethodPost, "/api/admin/slides", map[string]string{"title": "Hero", "image_url": "/a.png"}, session)
	require.NoError(t, err)

	t.Run("Success - counters and recent items", func(t *testing.T) {
		resp, err := testutils.MakeRequest(ta.App, http.MethodGet, "/api/admin/dashboard", nil, session)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var d home.Dashboard
		testutils.Decode(t, resp, &d)
		assert.Equal(t, int64(3), d.News.Total)
		assert.Equal(t, int64(1), d.News.Published)
		assert.Equal(t, int64(2), d.News.Draft)
		assert.Equal(t, int64(1), d.Slides)
		assert.Equal(t, int64(1), d.UnreadMessages)
		assert.Equal(t, int64(1), d.ActiveUsers)
		assert.Len(t, d.RecentMessages, 1)
		require.Len(t, d.RecentActivities, 1)
		assert.Equal(t, "slides", d.RecentActivities[0].Resource)
	})

	t.Run("Error - anonymous", func(t *testing.T) {
		resp, err := testutils.MakeRequest(ta.App, http.MethodGet, "/api/admin/dashboard", nil, "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}
