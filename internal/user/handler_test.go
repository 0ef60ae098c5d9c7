package user_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/Kyz7/desa/internal/logger"
	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/testutils"
	"github.com/Kyz7/desa/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const password = "password123"

func countActiveSuperAdmins(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.AdminUser{}).Where("role = ? AND is_active = ?", "super_admin", true).Count(&n).Error)
	return n
}

func reload(t *testing.T, db *gorm.DB, id uint) *models.AdminUser {
	t.Helper()
	var u models.AdminUser
	require.NoError(t, db.First(&u, id).Error)
	return &u
}

func TestCreateUser(t *testing.T) {
	ta := testutils.SetupTestApp(t)
	testutils.CreateTestUser(t, ta.DB, "root@desa.id", password, "super_admin")
	testutils.CreateTestUser(t, ta.DB, "staff@desa.id", password, "admin")
	rootSession := testutils.Login(t, ta.App, "root@desa.id", password)
	staffSession := testutils.Login(t, ta.App, "staff@desa.id", password)

	t.Run("Success - super admin creates an admin", func(t *testing.T) {
		resp, err := testutils.MakeRequest(ta.App, http.MethodPost, "/api/admin/users", map[string]interface{}{
			"name":     "Operator Desa",
			"email":    "Operator@Desa.id",
			"password": "password123",
			"role":     "admin",
		}, rootSession)
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

		var created struct {
			ID           uint     `json:"id"`
			Email        string   `json:"email"`
			IsActive     bool     `json:"is_active"`
			Capabilities []string `json:"capabilities"`
			PasswordHash string   `json:"password_hash"`
		}
		testutils.Decode(t, resp, &created)
		assert.NotZero(t, created.ID)
		assert.Equal(t, "operator@desa.id", created.Email)
		assert.True(t, created.IsActive)
		assert.Contains(t, created.Capabilities, "news.manage")
		assert.NotContains(t, created.Capabilities, "users.create")
		assert.Empty(t, created.PasswordHash)
	})

	t.Run("Error - admin lacks users.create", func(t *testing.T) {
		resp, err := testutils.MakeRequest(ta.App, http.MethodPost, "/api/admin/users", map[string]interface{}{
			"name": "Someone", "email": "someone@desa.id", "password": "password123", "role": "admin",
		}, staffSession)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.Code)
		testutils.AssertError(t, resp, "FORBIDDEN")
	})

	t.Run("Error - duplicate email", func(t *testing.T) {
		resp, err := testutils.MakeRequest(ta.App, http.MethodPost, "/api/admin/users", map[string]interface{}{
			"name": "Dup", "email": "staff@desa.id", "password": "password123", "role": "admin",
		}, rootSession)
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.Code)
		testutils.AssertError(t, resp, "CONFLICT")
	})

	t.Run("Error - blank name", func(t *testing.T) {
		var before int64
		ta.DB.Model(&models.AdminUser{}).Count(&before)

		resp, err := testutils.MakeRequest(ta.App, http.MethodPost, "/api/admin/users", map[string]interface{}{
			"name": "   ", "email": "blank@desa.id", "password": "password123", "role": "admin",
		}, rootSession)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		detail := testutils.AssertError(t, resp, "VALIDATION_ERROR")
		assert.Contains(t, detail.Details, "name")

		var after int64
		ta.DB.Model(&models.AdminUser{}).Count(&after)
		assert.Equal(t, before, after)
	})

	t.Run("Error - validation reports every field", func(t *testing.T) {
		resp, err := testutils.MakeRequest(ta.App, http.MethodPost, "/api/admin/users", map[string]interface{}{
			"name": "", "email": "not-an-email", "password": "short", "role": "admin",
		}, rootSession)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		detail := testutils.AssertError(t, resp, "VALIDATION_ERROR")
		assert.Equal(t, "name is required", detail.Details["name"])
		assert.Contains(t, detail.Details, "email")
		assert.Contains(t, detail.Details, "password")
	})

	t.Run("Error - unknown role", func(t *testing.T) {
		resp, err := testutils.MakeRequest(ta.App, http.MethodPost, "/api/admin/users", map[string]interface{}{
			"name": "X", "email": "x@desa.id", "password": "password123", "role": "editor",
		}, rootSession)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		detail := testutils.AssertError(t, resp, "VALIDATION_ERROR")
		assert.Contains(t, detail.Details, "role")
	})

	t.Run("Error - anonymous", func(t *testing.T) {
		resp, err := testutils.MakeRequest(ta.App, http.MethodPost, "/api/admin/users", map[string]interface{}{}, "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}

func TestListUsers(t *testing.T) {
	ta := testutils.SetupTestApp(t)
	testutils.CreateTestUser(t, ta.DB, "root@desa.id", password, "super_admin")
	testutils.CreateTestUser(t, ta.DB, "a@desa.id", password, "admin")
	testutils.CreateTestUser(t, ta.DB, "b@desa.id", password, "admin")
	session := testutils.Login(t, ta.App, "a@desa.id", password)

	t.Run("Success - filter by role", func(t *testing.T) {
		resp, err := testutils.MakeRequest(ta.App, http.MethodGet, "/api/admin/users?role=admin&limit=1", nil, session)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Code)

		var items []map[string]interface{}
		result := testutils.Decode(t, resp, &items)
		require.NotNil(t, result.Meta)
		assert.Equal(t, int64(2), result.Meta.Total)
		assert.Equal(t, int64(2), result.Meta.TotalPages)
		assert.Len(t, items, 1)
	})

	t.Run("Success - no match is an empty list", func(t *testing.T) {
		resp, err := testutils.MakeRequest(ta.App, http.MethodGet, "/api/admin/users?search=nobody", nil, session)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Code)

		var items []map[string]interface{}
		result := testutils.Decode(t, resp, &items)
		assert.Empty(t, items)
		require.NotNil(t, result.Meta)
		assert.Equal(t, int64(0), result.Meta.Total)
	})

	t.Run("Error - invalid filter value", func(t *testing.T) {
		resp, err := testutils.MakeRequest(ta.App, http.MethodGet, "/api/admin/users?is_active=maybe", nil, session)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})
}

func TestUpdateUser(t *testing.T) {
	ta := testutils.SetupTestApp(t)
	root := testutils.CreateTestUser(t, ta.DB, "root@desa.id", password, "super_admin")
	staff := testutils.CreateTestUser(t, ta.DB, "staff@desa.id", password, "admin")
	other := testutils.CreateTestUser(t, ta.DB, "other@desa.id", password, "admin")
	rootSession := testutils.Login(t, ta.App, "root@desa.id", password)
	staffSession := testutils.Login(t, ta.App, "staff@desa.id", password)

	t.Run("Error - admin cannot change roles", func(t *testing.T) {
		resp, err := testutils.MakeRequest(ta.App, http.MethodPatch, fmt.Sprintf("/api/admin/users/%d", other.ID),
			map[string]interface{}{"role": "super_admin"}, staffSession)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.Code)
		assert.Equal(t, "admin", reload(t, ta.DB, other.ID).Role)
	})

	t.Run("Error - demoting the last super admin", func(t *testing.T) {
		resp, err := testutils.MakeRequest(ta.App, http.MethodPatch, fmt.Sprintf("/api/admin/users/%d", root.ID),
			map[string]interface{}{"role": "admin"}, rootSession)
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.Code)
		detail := testutils.AssertError(t, resp, "LAST_SUPER_ADMIN")
		assert.Equal(t, "cannot remove the last super-admin", detail.Message)
		assert.Equal(t, "super_admin", reload(t, ta.DB, root.ID).Role)
		assert.Equal(t, int64(1), countActiveSuperAdmins(t, ta.DB))
	})

	t.Run("Error - admin cannot edit a super admin", func(t *testing.T) {
		before := reload(t, ta.DB, root.ID)

		tests := []struct {
			name string
			body map[string]interface{}
		}{
			{"credentials", map[string]interface{}{"password": "taken-over-1", "email": "attacker@desa.id"}},
			{"name", map[string]interface{}{"name": "Bukan Kades"}},
			{"deactivate", map[string]interface{}{"is_active": false}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				resp, err := testutils.MakeRequest(ta.App, http.MethodPatch, fmt.Sprintf("/api/admin/users/%d", root.ID), tt.body, staffSession)
				require.NoError(t, err)
				assert.Equal(t, http.StatusForbidden, resp.Code)
				testutils.AssertError(t, resp, "FORBIDDEN")
			})
		}

		after := reload(t, ta.DB, root.ID)
		assert.Equal(t, before.Email, after.Email)
		assert.Equal(t, before.Name, after.Name)
		assert.Equal(t, before.PasswordHash, after.PasswordHash)
		assert.True(t, after.IsActive)

		resp, err := testutils.MakeRequest(ta.App, http.MethodPost, "/api/auth/login",
			map[string]string{"email": "attacker@desa.id", "password": "taken-over-1"}, "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("Error - blank name", func(t *testing.T) {
		resp, err := testutils.MakeRequest(ta.App, http.MethodPatch, fmt.Sprintf("/api/admin/users/%d", other.ID),
			map[string]interface{}{"name": "   "}, rootSession)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		detail := testutils.AssertError(t, resp, "VALIDATION_ERROR")
		assert.Contains(t, detail.Details, "name")
		assert.NotEmpty(t, reload(t, ta.DB, other.ID).Name)
	})

	t.Run("Error - deactivating yourself", func(t *testing.T) {
		resp, err := testutils.MakeRequest(ta.App, http.MethodPatch, fmt.Sprintf("/api/admin/users/%d", staff.ID),
			map[string]interface{}{"is_active": false}, staffSession)
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.Code)
		testutils.AssertError(t, resp, "SELF_REMOVAL")
	})

	t.Run("Success - deactivation ends the target's sessions", func(t *testing.T) {
		otherSession := testutils.Login(t, ta.App, "other@desa.id", password)

		resp, err := testutils.MakeRequest(ta.App, http.MethodPatch, fmt.Sprintf("/api/admin/users/%d", other.ID),
			map[string]interface{}{"is_active": false}, staffSession)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.False(t, reload(t, ta.DB, other.ID).IsActive)

		resp, err = testutils.MakeRequest(ta.App, http.MethodGet, "/api/auth/me", nil, otherSession)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("Success - super admin promotes an admin", func(t *testing.T) {
		resp, err := testutils.MakeRequest(ta.App, http.MethodPatch, fmt.Sprintf("/api/admin/users/%d", staff.ID),
			map[string]interface{}{"role": "super_admin", "name": "Kepala Urusan"}, rootSession)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		u := reload(t, ta.DB, staff.ID)
		assert.Equal(t, "super_admin", u.Role)
		assert.Equal(t, "Kepala Urusan", u.Name)
		assert.Equal(t, int64(2), countActiveSuperAdmins(t, ta.DB))
	})

	t.Run("Error - missing user", func(t *testing.T) {
		resp, err := testutils.MakeRequest(ta.App, http.MethodPatch, "/api/admin/users/9999",
			map[string]interface{}{"name": "Ghost"}, rootSession)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.Code)
		testutils.AssertError(t, resp, "NOT_FOUND")
	})
}

func TestDeleteUser(t *testing.T) {
	t.Run("Error - admin deleting a super admin", func(t *testing.T) {
		ta := testutils.SetupTestApp(t)
		root := testutils.CreateTestUser(t, ta.DB, "root@desa.id", password, "super_admin")
		testutils.CreateTestUser(t, ta.DB, "staff@desa.id", password, "admin")
		session := testutils.Login(t, ta.App, "staff@desa.id", password)

		resp, err := testutils.MakeRequest(ta.App, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", root.ID), nil, session)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.Code)
		testutils.AssertError(t, resp, "FORBIDDEN")

		reload(t, ta.DB, root.ID)
		assert.Equal(t, int64(1), countActiveSuperAdmins(t, ta.DB))
	})

	t.Run("Success - deleting one of two super admins", func(t *testing.T) {
		ta := testutils.SetupTestApp(t)
		testutils.CreateTestUser(t, ta.DB, "a@desa.id", password, "super_admin")
		b := testutils.CreateTestUser(t, ta.DB, "b@desa.id", password, "super_admin")
		session := testutils.Login(t, ta.App, "a@desa.id", password)

		resp, err := testutils.MakeRequest(ta.App, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", b.ID), nil, session)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var data struct {
			ID uint `json:"id"`
		}
		testutils.Decode(t, resp, &data)
		assert.Equal(t, b.ID, data.ID)
		assert.Equal(t, int64(1), countActiveSuperAdmins(t, ta.DB))

		resp, err = testutils.MakeRequest(ta.App, http.MethodGet, fmt.Sprintf("/api/admin/users/%d", b.ID), nil, session)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.Code)

		resp, err = testutils.MakeRequest(ta.App, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", b.ID), nil, session)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("Error - deleting yourself", func(t *testing.T) {
		ta := testutils.SetupTestApp(t)
		testutils.CreateTestUser(t, ta.DB, "a@desa.id", password, "super_admin")
		b := testutils.CreateTestUser(t, ta.DB, "b@desa.id", password, "super_admin")
		session := testutils.Login(t, ta.App, "b@desa.id", password)

		resp, err := testutils.MakeRequest(ta.App, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", b.ID), nil, session)
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.Code)
		testutils.AssertError(t, resp, "SELF_REMOVAL")
	})

	t.Run("Success - deleting an admin keeps the super admin count", func(t *testing.T) {
		ta := testutils.SetupTestApp(t)
		testutils.CreateTestUser(t, ta.DB, "root@desa.id", password, "super_admin")
		staff := testutils.CreateTestUser(t, ta.DB, "staff@desa.id", password, "admin")
		session := testutils.Login(t, ta.App, "root@desa.id", password)

		resp, err := testutils.MakeRequest(ta.App, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", staff.ID), nil, session)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, int64(1), countActiveSuperAdmins(t, ta.DB))
	})
}

func TestServiceLastSuperAdmin(t *testing.T) {
	db := testutils.TestDB(t)
	svc := user.NewService(db, nil, logger.Discard())
	ctx := context.Background()
	root := testutils.CreateTestUser(t, db, "root@desa.id", password, "super_admin")

	t.Run("Error - delete without an actor", func(t *testing.T) {
		err := svc.Delete(ctx, root.ID)
		assert.True(t, user.IsLastSuperAdmin(err), "got %v", err)
	})

	t.Run("Error - deactivating without an actor", func(t *testing.T) {
		off := false
		_, err := svc.Update(ctx, root.ID, user.UpdateInput{IsActive: &off})
		assert.True(t, user.IsLastSuperAdmin(err), "got %v", err)
		assert.True(t, reload(t, db, root.ID).IsActive)
	})

	t.Run("Success - inactive super admins do not count", func(t *testing.T) {
		idle := testutils.CreateTestUser(t, db, "idle@desa.id", password, "super_admin")
		require.NoError(t, db.Model(idle).Update("is_active", false).Error)

		n, err := svc.CountActiveSuperAdmins(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		err = svc.Delete(ctx, root.ID)
		assert.True(t, user.IsLastSuperAdmin(err))

		// the inactive one can go
		assert.NoError(t, svc.Delete(ctx, idle.ID))
	})
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - creates the first super admin", func(t *testing.T) {
		db := testutils.TestDB(t)
		svc := user.NewService(db, nil, logger.Discard())

		created, err := svc.EnsureBootstrapAdmin(ctx, "kades@desa.id", "password123", "Kepala Desa")
		require.NoError(t, err)
		assert.True(t, created)

		created, err = svc.EnsureBootstrapAdmin(ctx, "kades@desa.id", "password123", "Kepala Desa")
		require.NoError(t, err)
		assert.False(t, created)

		n, err := svc.CountActiveSuperAdmins(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Success - nothing to do without credentials", func(t *testing.T) {
		db := testutils.TestDB(t)
		svc := user.NewService(db, nil, logger.Discard())

		created, err := svc.EnsureBootstrapAdmin(ctx, "", "", "")
		require.NoError(t, err)
		assert.False(t, created)
	})
}
