package store

import (
	"context"
	"fmt"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// UniqueSlug turns text into a URL slug that no row of model uses yet,
// soft-deleted rows included. excludeID lets an update keep its own slug.
func UniqueSlug(ctx context.Context, db *gorm.DB, model interface{}, text string, excludeID uint) (string, error) {
	base := slug.Make(text)
	if base == "" {
		return "", Invalid("slug", "cannot derive a slug from an empty title")
	}

	candidate := base
	for i := 2; ; i++ {
		var count int64
		q := db.WithContext(ctx).Unscoped().Model(model).Where("slug = ?", candidate)
		if excludeID != 0 {
			q = q.Where("id <> ?", excludeID)
		}
		if err := q.Count(&count).Error; err != nil {
			return "", Translate(err)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
