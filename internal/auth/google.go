package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Kyz7/desa/internal/logger"
	"github.com/Kyz7/desa/internal/response"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	stateTTL          = 5 * time.Minute
)

type googleUser struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	VerifiedEmail bool   `json:"verified_email"`
}

// GoogleHandler signs in existing principals through Google. There is no
// self-registration: the Google email must belong to an active account.
type GoogleHandler struct {
	auth        *Handler
	oauth       *oauth2.Config
	userInfoURL string

	mu     sync.Mutex
	states map[string]time.Time
	now    func() time.Time
}

func NewGoogleHandler(auth *Handler, clientID, clientSecret, redirectURL string) *GoogleHandler {
	return &GoogleHandler{
		auth: auth,
		oauth: &oauth2.Config{
			RedirectURL:  redirectURL,
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
		states:      make(map[string]time.Time),
		now:         time.Now,
	}
}

// WithEndpoints points the handler at other OAuth endpoints.
func (g *GoogleHandler) WithEndpoints(endpoint oauth2.Endpoint, userInfoURL string) *GoogleHandler {
	g.oauth.Endpoint = endpoint
	g.userInfoURL = userInfoURL
	return g
}

func (g *GoogleHandler) Enabled() bool {
	return g.oauth.ClientID != "" && g.oauth.ClientSecret != ""
}

func (g *GoogleHandler) Login(c *fiber.Ctx) error {
	if !g.Enabled() {
		return response.Error(c, fiber.StatusNotFound, "GOOGLE_DISABLED", "Google sign-in is not configured", nil)
	}
	state, err := g.newState()
	if err != nil {
		return response.InternalError(c, "Failed to start Google sign-in")
	}
	return c.Redirect(g.oauth.AuthCodeURL(state), fiber.StatusTemporaryRedirect)
}

func (g *GoogleHandler) Callback(c *fiber.Ctx) error {
	if !g.Enabled() {
		return response.Error(c, fiber.StatusNotFound, "GOOGLE_DISABLED", "Google sign-in is not configured", nil)
	}
	if !g.consumeState(c.Query("state")) {
		return response.BadRequest(c, "Invalid state parameter", nil)
	}
	if msg := c.Query("error"); msg != "" {
		return response.Unauthorized(c, "Google sign-in was cancelled")
	}
	code := c.Query("code")
	if code == "" {
		return response.BadRequest(c, "Missing authorization code", nil)
	}

	ctx := c.UserContext()
	info, err := g.fetchUser(ctx, code)
	if err != nil {
		logger.From(c).WithError(err).Warn("google sign-in failed")
		return response.Unauthorized(c, "Google sign-in failed")
	}
	if info.Email == "" || !info.VerifiedEmail {
		return response.Unauthorized(c, "Google account email is not verified")
	}

	sess, err := g.auth.svc.LoginByEmail(ctx, info.Email, c.Get(fiber.HeaderUserAgent), c.IP())
	if err != nil {
		return g.auth.loginFailed(c, "google", err)
	}
	g.auth.metrics.LoginAttempt("google", "success")
	return g.auth.loginSucceeded(c, sess)
}

func (g *GoogleHandler) fetchUser(ctx context.Context, code string) (*googleUser, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange token: %w", err)
	}

	resp, err := g.oauth.Client(ctx, token).Get(g.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("get user info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get user info: status %d", resp.StatusCode)
	}

	var info googleUser
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &info, nil
}

func (g *GoogleHandler) newState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := base64.URLEncoding.EncodeToString(b)

	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	for k, exp := range g.states {
		if now.After(exp) {
			delete(g.states, k)
		}
	}
	g.states[state] = now.Add(stateTTL)
	return state, nil
}

// consumeState accepts a state once and only before it expires.
func (g *GoogleHandler) consumeState(state string) bool {
	if state == "" {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	expiry, ok := g.states[state]
	if !ok {
		return false
	}
	delete(g.states, state)
	return !g.now().After(expiry)
}
