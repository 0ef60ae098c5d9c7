package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/permission"
	"github.com/Kyz7/desa/internal/principal"
	"github.com/Kyz7/desa/internal/session"
	"github.com/Kyz7/desa/internal/store"
	"github.com/Kyz7/desa/internal/user"
	"github.com/Kyz7/desa/internal/validation"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account is inactive")
)

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProfileInput struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email           *string `json:"email" validate:"omitempty,email,max=100"`
	Password        *string `json:"password" validate:"omitempty,min=8,max=72"`
	CurrentPassword string  `json:"current_password"`
}

// Session is the outcome of a successful sign-in.
type Session struct {
	Token       string
	ExpiresAt   time.Time
	AccessToken string
	User        *models.AdminUser
}

// Me is the caller's own account plus what it may do.
type Me struct {
	*models.AdminUser
	Capabilities []permission.Capability `json:"capabilities"`
}

type Service struct {
	db       *gorm.DB
	sessions *session.Manager
}

func NewService(db *gorm.DB, sessions *session.Manager) *Service {
	return &Service{db: db, sessions: sessions}
}

func (s *Service) Login(ctx context.Context, in LoginInput, userAgent, ip string) (*Session, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var u models.AdminUser
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(in.Email))).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// same bcrypt work as a wrong password
		user.CheckPassword("", in.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, store.Translate(err)
	}
	if !user.CheckPassword(u.PasswordHash, in.Password) {
		return nil, ErrInvalidCredentials
	}
	return s.start(ctx, &u, userAgent, ip)
}

// LoginByEmail signs in an existing principal that was verified by an
// external identity provider. Unknown emails are refused.
func (s *Service) LoginByEmail(ctx context.Context, email, userAgent, ip string) (*Session, error) {
	var u models.AdminUser
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, store.Translate(err)
	}
	return s.start(ctx, &u, userAgent, ip)
}

func (s *Service) start(ctx context.Context, u *models.AdminUser, userAgent, ip string) (*Session, error) {
	if !u.IsActive {
		return nil, ErrAccountInactive
	}

	token, expires, err := s.sessions.Issue(ctx, u.ID, userAgent, ip)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(u).Update("last_login_at", now).Error; err != nil {
		return nil, store.Translate(err)
	}
	u.LastLoginAt = &now

	out := &Session{Token: token, ExpiresAt: expires, User: u}
	if tokens := s.sessions.Tokens(); tokens != nil {
		access, err := tokens.Generate(u.ID, u.Role)
		if err != nil {
			return nil, err
		}
		out.AccessToken = access
	}
	return out, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

func (s *Service) Me(ctx context.Context, p *principal.Principal) (*Me, error) {
	var u models.AdminUser
	if err := s.db.WithContext(ctx).First(&u, p.ID).Error; err != nil {
		return nil, store.Translate(err)
	}
	return presentMe(&u), nil
}

// UpdateProfile lets a principal change its own name, email or password.
// Role and active flag are not reachable from here.
func (s *Service) UpdateProfile(ctx context.Context, p *principal.Principal, in ProfileInput) (*Me, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var u models.AdminUser
	if err := s.db.WithContext(ctx).First(&u, p.ID).Error; err != nil {
		return nil, store.Translate(err)
	}

	changes := store.Changes{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, store.Invalid("name", "name cannot be empty")
		}
		changes["name"] = name
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email != u.Email {
			var count int64
			if err := s.db.WithContext(ctx).Model(&models.AdminUser{}).
				Where("email = ? AND id <> ?", email, u.ID).Count(&count).Error; err != nil {
				return nil, store.Translate(err)
			}
			if count > 0 {
				return nil, store.Conflict("Email already taken")
			}
			changes["email"] = email
		}
	}
	if in.Password != nil {
		if u.PasswordHash != "" && !user.CheckPassword(u.PasswordHash, in.CurrentPassword) {
			return nil, store.Invalid("current_password", "current_password is incorrect")
		}
		hash, err := user.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		changes["password_hash"] = hash
	}

	if len(changes) > 0 {
		if err := s.db.WithContext(ctx).Model(&u).Updates(map[string]interface{}(changes)).Error; err != nil {
			return nil, store.Translate(err)
		}
	}
	return s.Me(ctx, p)
}

func presentMe(u *models.AdminUser) *Me {
	return &Me{AdminUser: u, Capabilities: permission.Capabilities(permission.Role(u.Role))}
}
