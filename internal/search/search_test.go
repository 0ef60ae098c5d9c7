package search_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/search"
	"github.com/Kyz7/desa/internal/store"
	"github.com/Kyz7/desa/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&[]models.News{
		{Title: "Pembangunan Jembatan", Slug: "pembangunan-jembatan", Status: models.NewsPublished, Excerpt: "Jembatan baru"},
		{Title: "Draf Jembatan", Slug: "draf-jembatan", Status: models.NewsDraft},
	}).Error)
	require.NoError(t, db.Create(&[]models.LetterTemplate{
		{Name: "Surat Izin Jembatan", Slug: "surat-izin-jembatan", Category: "umum", IsActive: true},
		{Name: "Surat Jembatan Lama", Slug: "surat-jembatan-lama", Category: "umum", IsActive: false},
	}).Error)
	require.NoError(t, db.Create(&models.GalleryItem{Title: "Foto JEMBATAN", ImageURL: "/a.png", IsActive: true}).Error)
}

func TestSearch(t *testing.T) {
	db := testutils.TestDB(t)
	seed(t, db)
	svc := search.NewService(db)
	ctx := context.Background()

	t.Run("Success - public content only, case-insensitive", func(t *testing.T) {
		res, err := svc.Search(ctx, "jembatan", 0)
		require.NoError(t, err)
		assert.Equal(t, 3, res.Total)
		require.Len(t, res.News, 1)
		assert.Equal(t, "pembangunan-jembatan", res.News[0].Slug)
		require.Len(t, res.Letters, 1)
		assert.Equal(t, "surat-izin-jembatan", res.Letters[0].Slug)
		require.Len(t, res.Gallery, 1)
	})

	t.Run("Success - no hits", func(t *testing.T) {
		res, err := svc.Search(ctx, "sawah", 0)
		require.NoError(t, err)
		assert.Zero(t, res.Total)
		assert.NotNil(t, res.News)
	})

	t.Run("Error - query too short", func(t *testing.T) {
		_, err := svc.Search(ctx, " j ", 0)
		var verr *store.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "q")
	})
}

func TestSearchRoute(t *testing.T) {
	ta := testutils.SetupTestApp(t)
	seed(t, ta.DB)

	t.Run("Success - grouped results", func(t *testing.T) {
		resp, err := testutils.MakeRequest(ta.App, http.MethodGet, "/api/search?q=jembatan&limit=1", nil, "")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.Code)
		var res search.Result
		testutils.Decode(t, resp, &res)
		assert.Equal(t, "jembatan", res.Query)
		assert.Len(t, res.News, 1)
	})

	t.Run("Error - single character", func(t *testing.T) {
		resp, err := testutils.MakeRequest(ta.App, http.MethodGet, "/api/search?q=a", nil, "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		testutils.AssertError(t, resp, "VALIDATION_ERROR")
	})
}
