package models

// All lists every model managed by AutoMigrate, parents before children.
func All() []interface{} {
	return []interface{}{
		&AdminUser{},
		&AdminSession{},
		&ActivityLog{},
		&MediaFile{},
		&News{},
		&LetterTemplate{},
		&DownloadLog{},
		&GalleryItem{},
		&HeroSlide{},
		&ContactMessage{},
		&VillageProfile{},
		&OrgMember{},
		&PopulationStat{},
		&SiteSetting{},
	}
}
