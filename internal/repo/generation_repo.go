// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read access to generation history and
// asynchronous generation tasks. Both tables are written by the external
// generation pipeline.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/designai/studio-backend/internal/domain"
)

// ListHistory returns the newest history entries for userID.
func ListHistory(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.GenerationHistory, error) {
	var out []domain.GenerationHistory
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetTask fetches a task by id scoped to its owner. A task owned by someone
// else is reported as ErrNotFound.
func GetTask(ctx context.Context, db *gorm.DB, id, userID string) (*domain.GenerationTask, error) {
	var t domain.GenerationTask
	if err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}
