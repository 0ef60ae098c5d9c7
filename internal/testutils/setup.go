package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Kyz7/desa/internal/config"
	"github.com/Kyz7/desa/internal/database"
	"github.com/Kyz7/desa/internal/logger"
	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/observability"
	"github.com/Kyz7/desa/internal/server"
	"github.com/Kyz7/desa/internal/session"
	"github.com/Kyz7/desa/internal/storage"
	"github.com/Kyz7/desa/internal/user"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	SessionCookie = "desa_session"
	JWTSecret     = "test_secret_key_minimum_32_characters_long"
)

// TestApp is a fully wired application backed by in-memory SQLite and a
// temporary upload directory.
type TestApp struct {
	App      *fiber.App
	DB       *gorm.DB
	Config   *config.Config
	Sessions *session.Manager
	Storage  *storage.LocalStore
	Metrics  *observability.Metrics
}

func TestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "Failed to create test database")

	// every connection to :memory: is a different database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db), "Failed to migrate test database")
	return db
}

func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppEnv:           "test",
		SessionCookie:    SessionCookie,
		SessionTTL:       time.Hour,
		SessionBackend:   "database",
		JWTSecret:        JWTSecret,
		JWTTTL:           15 * time.Minute,
		StorageMode:      "local",
		UploadDir:        t.TempDir(),
		UploadPublicPath: "/uploads",
		MaxImageSize:     1 << 20,
		MaxDocumentSize:  2 << 20,
		CORSOrigins:      "*",
	}
}

// SetupTestApp builds the application. opts may adjust the dependencies
// before the app is constructed.
func SetupTestApp(t *testing.T, opts ...func(*server.Deps)) *TestApp {
	t.Helper()
	cfg := TestConfig(t)
	db := TestDB(t)

	local, err := storage.NewLocalStore(cfg.UploadDir, cfg.UploadPublicPath)
	require.NoError(t, err, "Failed to initialize storage")

	sessions := session.NewManager(session.NewDatabaseStore(db), db, session.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL), cfg.SessionTTL)
	deps := server.Deps{
		Config:   cfg,
		DB:       db,
		Log:      logger.Discard(),
		Sessions: sessions,
		Storage:  local,
		Metrics:  observability.NewMetrics(),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &TestApp{
		App:      server.New(deps),
		DB:       db,
		Config:   cfg,
		Sessions: sessions,
		Storage:  local,
		Metrics:  deps.Metrics,
	}
}

func CreateTestUser(t *testing.T, db *gorm.DB, email, password, role string) *models.AdminUser {
	t.Helper()
	hash, err := user.HashPassword(password)
	require.NoError(t, err)

	u := &models.AdminUser{
		Name:         "Test User",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		Provider:     "local",
	}
	require.NoError(t, db.Create(u).Error, "Failed to create test user")
	return u
}

// CountRows counts the live rows of model.
func CountRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

// Login signs in through the API and returns the session cookie value.
func Login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	resp, err := MakeRequest(app, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	for _, c := range resp.Result().Cookies() {
		if c.Name == SessionCookie {
			return c.Value
		}
	}
	t.Fatal("login did not set a session cookie")
	return ""
}

// SessionFor creates a session directly, skipping the login endpoint.
func SessionFor(t *testing.T, ta *TestApp, u *models.AdminUser) string {
	t.Helper()
	token, _, err := ta.Sessions.Issue(context.Background(), u.ID, "test", "127.0.0.1")
	require.NoError(t, err)
	return token
}

func do(app *fiber.App, req *http.Request, session string) (*httptest.ResponseRecorder, error) {
	if session != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: session})
	}

	rec := httptest.NewRecorder()
	resp, err := app.Test(req, -1)
	if err != nil {
		return rec, err
	}
	defer resp.Body.Close()

	rec.Code = resp.StatusCode
	for k, v := range resp.Header {
		for _, val := range v {
			rec.Header().Add(k, val)
		}
	}
	_, err = io.Copy(rec.Body, resp.Body)
	return rec, err
}

// MakeRequest sends a JSON request. session is the session cookie value.
func MakeRequest(app *fiber.App, method, url string, body interface{}, session string) (*httptest.ResponseRecorder, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, url, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	return do(app, req, session)
}

// MakeBearerRequest authenticates with an API access token instead of a cookie.
func MakeBearerRequest(app *fiber.App, method, url, token string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(method, url, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return do(app, req, "")
}

// MakeMultipartRequestWithFile uploads files keyed by form field. The map
// value holds the file name and content.
func MakeMultipartRequestWithFile(app *fiber.App, method, url string, fields map[string]string, files map[string]File, session string) (*httptest.ResponseRecorder, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, val := range fields {
		if err := writer.WriteField(key, val); err != nil {
			return nil, err
		}
	}
	for field, f := range files {
		part, err := writer.CreateFormFile(field, f.Name)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, err
		}
	}

	contentType := writer.FormDataContentType()
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", contentType)
	return do(app, req, session)
}

type File struct {
	Name    string
	Content []byte
}

// PNG is a valid 1x1 image.
var PNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

// PDF is the smallest document mimetype recognises as application/pdf.
var PDF = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

func ParseResponse(t *testing.T, resp *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if resp.Body.Len() == 0 {
		t.Log("Warning: Response body is empty")
		return
	}
	err := json.Unmarshal(resp.Body.Bytes(), v)
	if err != nil {
		t.Logf("Response body: %s", resp.Body.String())
		assert.NoError(t, err, "Failed to parse response")
	}
}

type StandardResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorDetail    `json:"error"`
	Meta    *Meta           `json:"meta"`
}

type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details"`
}

type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// Decode parses the envelope and, when data is non-nil, its data field.
func Decode(t *testing.T, resp *httptest.ResponseRecorder, data interface{}) StandardResponse {
	t.Helper()
	var result StandardResponse
	ParseResponse(t, resp, &result)
	if data != nil && len(result.Data) > 0 {
		require.NoError(t, json.Unmarshal(result.Data, data), string(result.Data))
	}
	return result
}

func AssertSuccess(t *testing.T, resp *httptest.ResponseRecorder) {
	t.Helper()
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.True(t, result.Success, "Expected success response: %s", resp.Body.String())
	assert.Nil(t, result.Error, "Expected no error")
}

func AssertError(t *testing.T, resp *httptest.ResponseRecorder, expectedCode string) *ErrorDetail {
	t.Helper()
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.False(t, result.Success, "Expected error response")
	if !assert.NotNil(t, result.Error, "Expected error object") {
		return &ErrorDetail{}
	}
	assert.Equal(t, expectedCode, result.Error.Code, "Error code mismatch")
	return result.Error
}
