package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/principal"
	"github.com/Kyz7/desa/internal/store"
	"gorm.io/gorm"
)

// Manager issues, revokes and resolves admin sessions.
type Manager struct {
	store  Store
	db     *gorm.DB
	tokens *TokenIssuer
	ttl    time.Duration
}

func NewManager(st Store, db *gorm.DB, tokens *TokenIssuer, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{store: st, db: db, tokens: tokens, ttl: ttl}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func (m *Manager) Tokens() *TokenIssuer {
	return m.tokens
}

// Issue creates a session for userID and returns the raw token for the cookie.
func (m *Manager) Issue(ctx context.Context, userID uint, userAgent, ip string) (string, time.Time, error) {
	token, err := newToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expires := time.Now().Add(m.ttl)
	rec := Record{UserID: userID, ExpiresAt: expires, UserAgent: truncate(userAgent, 255), IP: ip}
	if err := m.store.Create(ctx, HashToken(token), rec); err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return token, expires, nil
}

func (m *Manager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.Revoke(ctx, HashToken(token)); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (m *Manager) RevokeUser(ctx context.Context, userID uint) error {
	if err := m.store.RevokeUser(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (m *Manager) Purge(ctx context.Context) (int64, error) {
	return m.store.Purge(ctx)
}

// Resolve maps a session token to its principal. Missing, unknown and expired
// tokens and inactive or deleted principals all resolve to nil with no error.
// Store or datastore failures return store.ErrUnavailable.
func (m *Manager) Resolve(ctx context.Context, token string) (*principal.Principal, error) {
	if token == "" {
		return nil, nil
	}
	rec, err := m.store.Lookup(ctx, HashToken(token))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if rec == nil {
		return nil, nil
	}
	return m.load(ctx, rec.UserID)
}

// ResolveBearer does the same for a JWT access token. An invalid or expired
// token is anonymous.
func (m *Manager) ResolveBearer(ctx context.Context, raw string) (*principal.Principal, error) {
	if raw == "" || m.tokens == nil {
		return nil, nil
	}
	userID, err := m.tokens.Parse(raw)
	if err != nil {
		return nil, nil
	}
	return m.load(ctx, userID)
}

func (m *Manager) load(ctx context.Context, userID uint) (*principal.Principal, error) {
	var u models.AdminUser
	err := m.db.WithContext(ctx).First(&u, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if !u.IsActive {
		return nil, nil
	}
	return principal.FromUser(&u), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
