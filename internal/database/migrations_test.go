package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Kyz7/desa/internal/logger"
	"github.com/Kyz7/desa/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))

	for _, m := range models.All() {
		assert.True(t, db.Migrator().HasTable(m))
	}
}

func TestRunMigrations(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))
	log := logger.Discard()

	dir := t.TempDir()
	sql := "CREATE INDEX IF NOT EXISTS idx_news_title_lower ON news (LOWER(title));"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_news.sql"), []byte(sql), 0o644))

	t.Run("Success - applies pending files once", func(t *testing.T) {
		n, err := RunMigrations(db, dir, log)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = RunMigrations(db, dir, log)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		var count int64
		db.Model(&models.Migration{}).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Success - missing directory is empty", func(t *testing.T) {
		n, err := RunMigrations(db, filepath.Join(dir, "nope"), log)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("Error - broken file is not recorded", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "002_broken.sql"), []byte("CREATE NONSENSE;"), 0o644))

		_, err := RunMigrations(db, dir, log)
		assert.Error(t, err)

		var count int64
		db.Model(&models.Migration{}).Where("version = ?", "002_broken.sql").Count(&count)
		assert.Zero(t, count)
	})
}
