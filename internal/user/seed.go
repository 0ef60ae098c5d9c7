package user

import (
	"context"
	"fmt"

	"github.com/Kyz7/desa/internal/permission"
	"github.com/sirupsen/logrus"
)

// EnsureBootstrapAdmin creates the first super admin when none is active and
// credentials were configured. It reports whether an account was created.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, email, password, name string) (bool, error) {
	count, err := s.CountActiveSuperAdmins(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if email == "" || password == "" {
		s.log.Warn("no active super admin and BOOTSTRAP_ADMIN_EMAIL/BOOTSTRAP_ADMIN_PASSWORD not set")
		return false, nil
	}

	u, err := s.Create(ctx, CreateInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     string(permission.RoleSuperAdmin),
	})
	if err != nil {
		return false, fmt.Errorf("bootstrap super admin: %w", err)
	}
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("bootstrap super admin created")
	return true, nil
}
