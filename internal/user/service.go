package user

import (
	"context"
	"errors"
	"strings"

	"github.com/Kyz7/desa/internal/models"
	"github.com/Kyz7/desa/internal/permission"
	"github.com/Kyz7/desa/internal/principal"
	"github.com/Kyz7/desa/internal/store"
	"github.com/Kyz7/desa/internal/validation"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrLastSuperAdmin = &store.InvariantError{Code: "LAST_SUPER_ADMIN", Reason: "cannot remove the last super-admin"}
	ErrSelfRemoval    = &store.InvariantError{Code: "SELF_REMOVAL", Reason: "you cannot delete or deactivate your own account"}
)

var QuerySpec = store.QuerySpec{
	Filters:       map[string]store.FilterKind{"role": store.FilterString, "is_active": store.FilterBool},
	Sortable:      []string{"name", "email", "role", "created_at", "last_login_at"},
	DefaultSort:   "name",
	SearchColumns: []string{"name", "email"},
}

// SessionRevoker ends every session of a principal.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID uint) error
}

type CreateInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required"`
	IsActive *bool  `json:"is_active"`
}

type UpdateInput struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email" validate:"omitempty,email,max=100"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

type Service struct {
	repo     *store.Repository[models.AdminUser]
	sessions SessionRevoker
	log      *logrus.Logger
}

func NewService(db *gorm.DB, sessions SessionRevoker, log *logrus.Logger) *Service {
	return &Service{
		repo:     store.NewRepository[models.AdminUser](db, QuerySpec),
		sessions: sessions,
		log:      log,
	}
}

func (s *Service) List(ctx context.Context, p store.ListParams) (store.Page[models.AdminUser], error) {
	return s.repo.List(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uint) (*models.AdminUser, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.AdminUser, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if !permission.IsKnown(permission.Role(in.Role)) {
		return nil, store.Invalid("role", "role must be one of: super_admin, admin")
	}

	email := normalizeEmail(in.Email)
	if err := s.ensureEmailFree(ctx, email, 0); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, store.Invalid("name", "name is required")
	}

	u := &models.AdminUser{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     in.IsActive == nil || *in.IsActive,
		Provider:     "local",
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Update applies a partial change. Changing the role needs users.assign_role,
// and nobody may edit a principal whose role outranks their own.
// Deactivating or demoting the last active super admin is refused.
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.AdminUser, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	actor := principal.FromContext(ctx)

	changes := store.Changes{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, store.Invalid("name", "name cannot be empty")
		}
		changes["name"] = name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if err := s.ensureEmailFree(ctx, email, id); err != nil {
			return nil, err
		}
		changes["email"] = email
	}
	if in.Password != nil {
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		changes["password_hash"] = hash
	}
	if in.Role != nil {
		if !permission.IsKnown(permission.Role(*in.Role)) {
			return nil, store.Invalid("role", "role must be one of: super_admin, admin")
		}
		changes["role"] = *in.Role
	}
	store.Set(changes, "is_active", in.IsActive)

	var revoke bool
	err := s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target models.AdminUser
		if err := tx.First(&target, id).Error; err != nil {
			return store.Translate(err)
		}
		if !outranksOrEquals(actor, &target) {
			return store.ErrForbidden
		}

		roleChange := in.Role != nil && *in.Role != target.Role
		if roleChange && (actor == nil || !actor.Can(permission.UsersAssignRole)) {
			return store.ErrForbidden
		}
		deactivating := in.IsActive != nil && !*in.IsActive && target.IsActive
		if deactivating && actor != nil && actor.ID == target.ID {
			return ErrSelfRemoval
		}

		demoting := roleChange && *in.Role != string(permission.Highest())
		if isActiveSuperAdmin(&target) && (deactivating || demoting) {
			if err := ensureAnotherSuperAdmin(tx, target.ID); err != nil {
				return err
			}
		}

		if len(changes) > 0 {
			if err := tx.Model(&target).Updates(map[string]interface{}(changes)).Error; err != nil {
				return store.Translate(err)
			}
		}
		revoke = deactivating || in.Password != nil
		return nil
	})
	if err != nil {
		return nil, store.Translate(err)
	}

	if revoke {
		s.revokeSessions(ctx, id)
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a principal for good. Removing oneself, a higher ranked
// principal or the last active super admin is refused and leaves the record untouched.
func (s *Service) Delete(ctx context.Context, id uint) error {
	if actor := principal.FromContext(ctx); actor != nil && actor.ID == id {
		return ErrSelfRemoval
	}

	err := s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target models.AdminUser
		if err := tx.First(&target, id).Error; err != nil {
			return store.Translate(err)
		}
		if !outranksOrEquals(principal.FromContext(ctx), &target) {
			return store.ErrForbidden
		}
		if isActiveSuperAdmin(&target) {
			if err := ensureAnotherSuperAdmin(tx, target.ID); err != nil {
				return err
			}
		}

		res := tx.Unscoped().Delete(&models.AdminUser{}, id)
		if res.Error != nil {
			return store.Translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return store.Translate(err)
	}

	s.revokeSessions(ctx, id)
	return nil
}

// CountActiveSuperAdmins decides whether the bootstrap admin is needed.
func (s *Service) CountActiveSuperAdmins(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx,
		store.Filter{Column: "role", Value: string(permission.Highest())},
		store.Filter{Column: "is_active", Value: true},
	)
}

func (s *Service) revokeSessions(ctx context.Context, id uint) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.RevokeUser(ctx, id); err != nil {
		s.log.WithError(err).WithField("user_id", id).Warn("failed to revoke sessions")
	}
}

func (s *Service) ensureEmailFree(ctx context.Context, email string, exceptID uint) error {
	q := s.repo.DB().WithContext(ctx).Model(&models.AdminUser{}).Where("email = ?", email)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return store.Translate(err)
	}
	if count > 0 {
		return store.Conflict("User with this email already exists")
	}
	return nil
}

// outranksOrEquals reports whether actor may manage target. A nil actor is an
// internal caller such as the bootstrap seed.
func outranksOrEquals(actor *principal.Principal, target *models.AdminUser) bool {
	if actor == nil {
		return true
	}
	return permission.Level(actor.Role) >= permission.Level(permission.Role(target.Role))
}

func isActiveSuperAdmin(u *models.AdminUser) bool {
	return u.IsActive && u.Role == string(permission.Highest())
}

// ensureAnotherSuperAdmin locks the active super admin rows (on Postgres) and
// fails unless at least one other than excludeID remains.
func ensureAnotherSuperAdmin(tx *gorm.DB, excludeID uint) error {
	q := tx.Model(&models.AdminUser{}).
		Where("role = ? AND is_active = ?", string(permission.Highest()), true)
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var ids []uint
	if err := q.Order("id").Pluck("id", &ids).Error; err != nil {
		return store.Translate(err)
	}
	for _, id := range ids {
		if id != excludeID {
			return nil
		}
	}
	return ErrLastSuperAdmin
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsLastSuperAdmin reports whether err is the last-super-admin refusal.
func IsLastSuperAdmin(err error) bool {
	var ierr *store.InvariantError
	return errors.As(err, &ierr) && ierr.Code == ErrLastSuperAdmin.Code
}
