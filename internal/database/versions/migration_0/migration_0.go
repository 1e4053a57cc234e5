package migration_0

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Generation struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	RequestKey   string    `gorm:"size:64;uniqueIndex;not null"`
	Task         string    `gorm:"size:20;not null"`
	Style        string
	Model        string `gorm:"not null"`
	Output       string `gorm:"not null"`
	CreationTime time.Time
}

func Migration(db *gorm.DB) error {
	if err := db.AutoMigrate(&Generation{}); err != nil {
		return fmt.Errorf("error creating generations table: %w", err)
	}
	return nil
}

func Rollback(db *gorm.DB) error {
	if err := db.Migrator().DropTable(&Generation{}); err != nil {
		return fmt.Errorf("error dropping generations table: %w", err)
	}
	return nil
}
