package database

import (
	"time"

	"github.com/google/uuid"
)

// Generation is one cached model output. RequestKey identifies the request that
// produced it, see GenerationKey.
type Generation struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	RequestKey   string    `gorm:"size:64;uniqueIndex;not null"`
	Task         string    `gorm:"size:20;not null"`
	Style        string
	Model        string `gorm:"not null"`
	Output       string `gorm:"not null"`
	CreationTime time.Time
}
