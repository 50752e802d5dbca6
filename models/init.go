package models

import (
	"caballos/db"

	"gorm.io/gorm"
)

func Init() error {
	return Migrate(db.Instance)
}

// Migrate creates or updates all tables. Order matters for the foreign keys on sqlite.
func Migrate(tx *gorm.DB) error {
	return tx.AutoMigrate(
		&User{},
		&Grant{},
		&MediaFile{},
		&MediaAlbum{},
		&AlbumMedia{},
		&AdminAction{},
		&Thread{},
		&Reply{},
		&Horse{},
		&HorseVote{},
		&HorseComment{},
		&Ad{},
		&Report{},
		&SiteSetting{},
	)
}
