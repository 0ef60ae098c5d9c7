package session

import (
	"context"
	"errors"
	"time"

	"github.com/Kyz7/desa/internal/models"
	"gorm.io/gorm"
)

// DatabaseStore keeps sessions in the admin_sessions table.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db, now: time.Now}
}

func (s *DatabaseStore) Create(ctx context.Context, tokenHash string, rec Record) error {
	row := models.AdminSession{
		UserID:    rec.UserID,
		TokenHash: tokenHash,
		ExpiresAt: rec.ExpiresAt,
		UserAgent: rec.UserAgent,
		IP:        rec.IP,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *DatabaseStore) Lookup(ctx context.Context, tokenHash string) (*Record, error) {
	var row models.AdminSession
	err := s.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec := &Record{UserID: row.UserID, ExpiresAt: row.ExpiresAt, UserAgent: row.UserAgent, IP: row.IP}
	if rec.Expired(s.now()) {
		if err := s.db.WithContext(ctx).Delete(&row).Error; err != nil {
			return nil, err
		}
		return nil, nil
	}
	return rec, nil
}

func (s *DatabaseStore) Revoke(ctx context.Context, tokenHash string) error {
	return s.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Delete(&models.AdminSession{}).Error
}

func (s *DatabaseStore) RevokeUser(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.AdminSession{}).Error
}

func (s *DatabaseStore) Purge(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&models.AdminSession{})
	return res.RowsAffected, res.Error
}
