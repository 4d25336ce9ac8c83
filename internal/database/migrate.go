package database

import (
	"gorm.io/gorm"

	"github.com/voxlabs/interviewd/internal/repository/transcript"
)

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&transcript.Record{},
	)
}
