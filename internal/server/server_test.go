package server_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	ta := testutils.SetupTestApp(t)

	resp, err := testutils.MakeRequest(ta.App, http.MethodGet, "/health", nil, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.NotEmpty(t, resp.Header().Get("X-Request-ID"))

	var body map[string]string
	testutils.ParseResponse(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "local", body["storage"])
}

func TestUnknownRoute(t *testing.T) {
	ta := testutils.SetupTestApp(t)

	resp, err := testutils.MakeRequest(ta.App, http.MethodGet, "/api/does-not-exist", nil, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	testutils.AssertError(t, resp, "NOT_FOUND")
}

func TestMetricsEndpoint(t *testing.T) {
	ta := testutils.SetupTestApp(t)

	_, err := testutils.MakeRequest(ta.App, http.MethodGet, "/api/news", nil, "")
	require.NoError(t, err)

	resp, err := testutils.MakeRequest(ta.App, http.MethodGet, "/metrics", nil, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "desa_http_requests_total")
}

func TestAdminRoutesRequireSession(t *testing.T) {
	ta := testutils.SetupTestApp(t)
	owner := testutils.CreateTestUser(t, ta.DB, "admin@desa.id", "password123", "super_admin")
	article := models.News{Title: "Kerja Bakti", Slug: "kerja-bakti", Status: models.NewsDraft}
	require.NoError(t, ta.DB.Create(&article).Error)
	letter := models.LetterTemplate{Name: "Surat Domisili", Slug: "surat-domisili", Category: "umum", IsActive: true}
	require.NoError(t, ta.DB.Create(&letter).Error)

	newsPath := fmt.Sprintf("/api/admin/news/%d", article.ID)
	letterPath := fmt.Sprintf("/api/admin/letters/%d", letter.ID)
	userPath := fmt.Sprintf("/api/admin/users/%d", owner.ID)

	routes := []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodGet, "/api/admin/dashboard", nil},
		{http.MethodGet, "/api/admin/news", nil},
		{http.MethodPost, "/api/admin/news", map[string]string{"title": "Berita Palsu"}},
		{http.MethodPatch, newsPath, map[string]string{"title": "Diganti"}},
		{http.MethodDelete, newsPath, nil},
		{http.MethodPost, newsPath + "/publish", nil},
		{http.MethodGet, "/api/admin/letters", nil},
		{http.MethodGet, "/api/admin/letters/downloads", nil},
		{http.MethodPost, letterPath + "/file", nil},
		{http.MethodDelete, letterPath + "/file", nil},
		{http.MethodDelete, letterPath, nil},
		{http.MethodGet, "/api/admin/gallery", nil},
		{http.MethodPatch, "/api/admin/gallery/1/toggle-featured", nil},
		{http.MethodGet, "/api/admin/structure", nil},
		{http.MethodGet, "/api/admin/population", nil},
		{http.MethodGet, "/api/admin/slides", nil},
		{http.MethodGet, "/api/admin/profile", nil},
		{http.MethodPut, "/api/admin/profile", map[string]string{"village_name": "Desa Palsu"}},
		{http.MethodGet, "/api/admin/settings", nil},
		{http.MethodPut, "/api/admin/settings/site.name", map[string]string{"value": "Palsu"}},
		{http.MethodGet, "/api/admin/messages", nil},
		{http.MethodGet, "/api/admin/media", nil},
		{http.MethodPost, "/api/admin/media/upload", nil},
		{http.MethodDelete, "/api/admin/media", map[string]string{"url": "/uploads/photos/a.png"}},
		{http.MethodGet, "/api/admin/activity", nil},
		{http.MethodGet, "/api/admin/users", nil},
		{http.MethodPost, "/api/admin/users", map[string]string{
			"email": "intruder@desa.id", "password": "password123", "name": "Intruder", "role": "super_admin",
		}},
		{http.MethodPatch, userPath, map[string]string{"email": "intruder@desa.id", "password": "taken-over-1"}},
		{http.MethodDelete, userPath, nil},
		{http.MethodGet, "/api/admin/roles", nil},
	}

	tables := []interface{}{
		&models.AdminUser{}, &models.News{}, &models.LetterTemplate{}, &models.VillageProfile{},
		&models.SiteSetting{}, &models.MediaFile{}, &models.ActivityLog{},
	}
	before := make([]int64, len(tables))
	for i, m := range tables {
		before[i] = testutils.CountRows(t, ta.DB, m)
	}

	for _, rt := range routes {
		t.Run("Error - anonymous "+rt.method+" "+rt.path, func(t *testing.T) {
			resp, err := testutils.MakeRequest(ta.App, rt.method, rt.path, rt.body, "")
			require.NoError(t, err)
			assert.Equal(t, http.StatusForbidden, resp.Code)
			testutils.AssertError(t, resp, "FORBIDDEN")
		})
	}

	t.Run("Success - nothing was written", func(t *testing.T) {
		for i, m := range tables {
			assert.Equal(t, before[i], testutils.CountRows(t, ta.DB, m), "%T", m)
		}

		var storedNews models.News
		require.NoError(t, ta.DB.First(&storedNews, article.ID).Error)
		assert.Equal(t, "Kerja Bakti", storedNews.Title)
		assert.Equal(t, models.NewsDraft, storedNews.Status)

		var storedUser models.AdminUser
		require.NoError(t, ta.DB.First(&storedUser, owner.ID).Error)
		assert.Equal(t, "admin@desa.id", storedUser.Email)
		assert.Equal(t, owner.PasswordHash, storedUser.PasswordHash)
		assert.True(t, storedUser.IsActive)
	})
}

func TestPublicRoutesAreOpen(t *testing.T) {
	ta := testutils.SetupTestApp(t)

	for _, path := range []string{
		"/api/home", "/api/news", "/api/letters", "/api/gallery", "/api/slides",
		"/api/structure", "/api/population", "/api/population/summary", "/api/settings",
	} {
		t.Run("Success - "+path, func(t *testing.T) {
			resp, err := testutils.MakeRequest(ta.App, http.MethodGet, path, nil, "")
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
			testutils.AssertSuccess(t, resp)
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	ta := testutils.SetupTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/news", nil)
	req.Header.Set("Origin", "https://desa.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp, err := ta.App.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
