package slide_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/slide"
	"github.com/Kyz7/desa/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestActive(t *testing.T) {
	svc := slide.NewService(testutils.TestDB(t))
	ctx := context.Background()

	_, err := svc.Create(ctx, slide.CreateInput{Title: "Kedua", ImageURL: "/b.png", SortOrder: 2})
	require.NoError(t, err)
	_, err = svc.Create(ctx, slide.CreateInput{Title: "Pertama", ImageURL: "/a.png", SortOrder: 1})
	require.NoError(t, err)
	_, err = svc.Create(ctx, slide.CreateInput{Title: "Nonaktif", ImageURL: "/c.png", IsActive: boolPtr(false)})
	require.NoError(t, err)

	slides, err := svc.Active(ctx)
	require.NoError(t, err)
	require.Len(t, slides, 2)
	assert.Equal(t, "Pertama", slides[0].Title)
	assert.Equal(t, "Kedua", slides[1].Title)
}

func TestSlideRoutes(t *testing.T) {
	ta := testutils.SetupTestApp(t)
	testutils.CreateTestUser(t, ta.DB, "admin@desa.id", "password123", "admin")
	session := testutils.Login(t, ta.App, "admin@desa.id", "password123")

	t.Run("Error - image is required", func(t *testing.T) {
		resp, err := testutils.MakeRequest(ta.App, http.MethodPost, "/api/admin/slides", map[string]interface{}{"title": "Tanpa Gambar"}, session)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("Success - create, hide and delete", func(t *testing.T) {
		resp, err := testutils.MakeRequest(ta.App, http.MethodPost, "/api/admin/slides", map[string]interface{}{
			"title": "<b>Selamat Datang</b>", "image_url": "/uploads/photos/hero.png",
		}, session)
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.Code)
		var created struct {
			ID    uint   `json:"id"`
			Title string `json:"title"`
		}
		testutils.Decode(t, resp, &created)
		assert.Equal(t, "Selamat Datang", created.Title)

		resp, err = testutils.MakeRequest(ta.App, http.MethodGet, "/api/slides", nil, "")
		require.NoError(t, err)
		var public []struct{ ID uint }
		testutils.Decode(t, resp, &public)
		assert.Len(t, public, 1)

		resp, err = testutils.MakeRequest(ta.App, http.MethodDelete, fmt.Sprintf("/api/admin/slides/%d", created.ID), nil, session)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Code)

		resp, err = testutils.MakeRequest(ta.App, http.MethodGet, "/api/slides", nil, "")
		require.NoError(t, err)
		testutils.Decode(t, resp, &public)
		assert.Empty(t, public)
	})
}

func TestSlideBlankFields(t *testing.T) {
	ta := testutils.SetupTestApp(t)
	testutils.CreateTestUser(t, ta.DB, "admin@desa.id", "password123", "admin")
	session := testutils.Login(t, ta.App, "admin@desa.id", "password123")

	existing, err := slide.NewService(ta.DB).Create(context.Background(), slide.CreateInput{Title: "Panen Raya", ImageURL: "/uploads/photos/panen.png"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		url    string
		body   map[string]interface{}
		field  string
	}{
		{"create with markup-only title", http.MethodPost, "/api/admin/slides", map[string]interface{}{"title": "<b></b>", "image_url": "/x.png"}, "title"},
		{"create with whitespace title", http.MethodPost, "/api/admin/slides", map[string]interface{}{"title": "   ", "image_url": "/x.png"}, "title"},
		{"create with whitespace image", http.MethodPost, "/api/admin/slides", map[string]interface{}{"title": "Judul", "image_url": "   "}, "image_url"},
		{"update with markup-only title", http.MethodPatch, fmt.Sprintf("/api/admin/slides/%d", existing.ID), map[string]interface{}{"title": "<i></i>"}, "title"},
		{"update with whitespace image", http.MethodPatch, fmt.Sprintf("/api/admin/slides/%d", existing.ID), map[string]interface{}{"image_url": "  "}, "image_url"},
	}

	for _, tt := range tests {
		t.Run("Error - "+tt.name, func(t *testing.T) {
			before := testutils.CountRows(t, ta.DB, &models.HeroSlide{})

			resp, err := testutils.MakeRequest(ta.App, tt.method, tt.url, tt.body, session)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
			detail := testutils.AssertError(t, resp, "VALIDATION_ERROR")
			assert.Contains(t, detail.Details, tt.field)

			assert.Equal(t, before, testutils.CountRows(t, ta.DB, &models.HeroSlide{}))
			var stored models.HeroSlide
			require.NoError(t, ta.DB.First(&stored, existing.ID).Error)
			assert.Equal(t, "Panen Raya", stored.Title)
			assert.Equal(t, "/uploads/photos/panen.png", stored.ImageURL)
		})
	}
}
