package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Kyz7/desa/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RunMigrations applies every *.sql file in dir that has not been recorded yet,
// in file name order. A missing directory is not an error.
func RunMigrations(db *gorm.DB, dir string, log *logrus.Logger) (int, error) {
	if err := db.AutoMigrate(&models.Migration{}); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return 0, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	sort.Strings(files)

	applied := 0
	for _, file := range files {
		filename := filepath.Base(file)

		var existing models.Migration
		err := db.Where("version = ?", filename).First(&existing).Error
		if err == nil {
			log.WithField("migration", filename).Debug("skipping migration, already applied")
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return applied, fmt.Errorf("failed to check migration %s: %w", filename, err)
		}

		sqlContent, err := os.ReadFile(file)
		if err != nil {
			return applied, fmt.Errorf("failed to read migration file %s: %w", filename, err)
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(string(sqlContent)).Error; err != nil {
				return fmt.Errorf("failed to execute migration %s: %w", filename, err)
			}
			return tx.Create(&models.Migration{Version: filename, AppliedAt: time.Now()}).Error
		})
		if err != nil {
			return applied, err
		}

		applied++
		log.WithField("migration", filename).Info("applied migration")
	}

	return applied, nil
}
