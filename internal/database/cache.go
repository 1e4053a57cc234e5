package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"headline-sft/internal/core/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GenerationKey identifies a generation request. Two requests with the same
// key are expected to produce interchangeable outputs.
func GenerationKey(task types.Task, style, model string, pair types.PromptPair) string {
	h := sha256.New()
	for _, part := range []string{string(task), style, model, pair.System, pair.User} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// GenerationCache stores successful generations so an interrupted batch can be
// resumed without calling the endpoint again for finished rows.
type GenerationCache struct {
	db *gorm.DB
}

func NewGenerationCache(db *gorm.DB) *GenerationCache {
	return &GenerationCache{db: db}
}

func (c *GenerationCache) Lookup(ctx context.Context, task types.Task, style, model string, pair types.PromptPair) (string, bool, error) {
	var gen Generation
	err := c.db.WithContext(ctx).Where("request_key = ?", GenerationKey(task, style, model, pair)).First(&gen).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		slog.Error("error looking up cached generation", "task", task, "error", err)
		return "", false, fmt.Errorf("error looking up cached generation: %w", err)
	}
	return gen.Output, true, nil
}

func (c *GenerationCache) Store(ctx context.Context, task types.Task, style, model string, pair types.PromptPair, output string) error {
	gen := Generation{
		Id:           uuid.New(),
		RequestKey:   GenerationKey(task, style, model, pair),
		Task:         string(task),
		Style:        style,
		Model:        model,
		Output:       output,
		CreationTime: time.Now().UTC(),
	}

	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "request_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"output", "creation_time"}),
	}).Create(&gen).Error
	if err != nil {
		slog.Error("error storing generation", "task", task, "error", err)
		return fmt.Errorf("error storing generation: %w", err)
	}
	return nil
}

func (c *GenerationCache) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := c.db.WithContext(ctx).Model(&Generation{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("error counting generations: %w", err)
	}
	return n, nil
}
