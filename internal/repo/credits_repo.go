// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for balances and
// the credit ledger.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/designai/studio-backend/internal/domain"
)

// GetCredits returns the balance row for userID, or ErrNotFound.
func GetCredits(ctx context.Context, db *gorm.DB, userID string) (*domain.UserCredits, error) {
	var uc domain.UserCredits
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&uc).Error; err != nil {
		return nil, err
	}
	return &uc, nil
}

// EnsureCredits inserts an empty balance row for userID unless one exists.
func EnsureCredits(ctx context.Context, db *gorm.DB, userID string) error {
	uc := &domain.UserCredits{UserID: userID, UpdatedAt: time.Now().UTC()}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(uc).Error
}

// GetCreditsForUpdate reads the balance row with a row lock held until the
// surrounding transaction ends. SQLite ignores the lock clause; its writers
// are serialized anyway.
func GetCreditsForUpdate(ctx context.Context, tx *gorm.DB, userID string) (*domain.UserCredits, error) {
	var uc domain.UserCredits
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&uc).Error
	if err != nil {
		return nil, err
	}
	return &uc, nil
}

// SaveCredits inserts or fully updates a balance row.
func SaveCredits(ctx context.Context, db *gorm.DB, uc *domain.UserCredits) error {
	uc.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(uc).Error
}

// ListCreditsAtLeast returns balance rows with balance >= floor, highest first.
func ListCreditsAtLeast(ctx context.Context, db *gorm.DB, floor int) ([]domain.UserCredits, error) {
	var out []domain.UserCredits
	err := db.WithContext(ctx).
		Where("balance >= ?", floor).
		Order("balance DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListTransactions returns the newest ledger entries for userID.
func ListTransactions(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.CreditTransaction, error) {
	var out []domain.CreditTransaction
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

// CreateTransaction appends a ledger entry.
func CreateTransaction(ctx context.Context, db *gorm.DB, userID string, amount, balanceAfter int, typ, desc string) (*domain.CreditTransaction, error) {
	tx := &domain.CreditTransaction{
		ID:           uuid.NewString(),
		UserID:       userID,
		Amount:       amount,
		BalanceAfter: &balanceAfter,
		Type:         typ,
		Description:  desc,
		CreatedAt:    time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(tx).Error; err != nil {
		return nil, err
	}
	return tx, nil
}
