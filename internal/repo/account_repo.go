// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for phone users
// and SMS verification codes.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. Missing rows surface as ErrNotFound.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/designai/studio-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// FindPhoneUserByPhone returns the phone user registered with phone.
func FindPhoneUserByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.PhoneUser, error) {
	var u domain.PhoneUser
	if err := db.WithContext(ctx).Where("phone = ?", phone).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindPhoneUserByUserID returns the phone user linked to a Supabase user id.
func FindPhoneUserByUserID(ctx context.Context, db *gorm.DB, userID string) (*domain.PhoneUser, error) {
	var u domain.PhoneUser
	if err := db.WithContext(ctx).Where("supabase_user_id = ?", userID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ListPhoneUsers returns up to limit phone users, newest first. A limit <= 0
// returns every row.
func ListPhoneUsers(ctx context.Context, db *gorm.DB, limit int) ([]domain.PhoneUser, error) {
	var out []domain.PhoneUser
	q := db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// LatestCode returns the most recently issued verification code for phone.
func LatestCode(ctx context.Context, db *gorm.DB, phone string) (*domain.VerificationCode, error) {
	var vc domain.VerificationCode
	err := db.WithContext(ctx).
		Where("phone = ?", phone).
		Order("created_at DESC").
		First(&vc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &vc, nil
}

// CreateCode stores a verification code for purpose, issued at now and valid
// for ttl.
func CreateCode(ctx context.Context, db *gorm.DB, phone, code, purpose string, now time.Time, ttl time.Duration) (*domain.VerificationCode, error) {
	vc := &domain.VerificationCode{
		ID:        uuid.NewString(),
		Phone:     phone,
		Code:      code,
		Purpose:   purpose,
		CreatedAt: now.UTC(),
		ExpiresAt: now.UTC().Add(ttl),
	}
	if err := db.WithContext(ctx).Create(vc).Error; err != nil {
		return nil, err
	}
	return vc, nil
}

// ConsumeCode marks the newest unused, unexpired code matching phone, code
// and purpose as verified. The update is conditional on the row still being
// unused, so a code is consumed at most once even under concurrent calls.
// It returns ErrNotFound when no usable code matches.
func ConsumeCode(ctx context.Context, db *gorm.DB, phone, code, purpose string, now time.Time) error {
	var vc domain.VerificationCode
	err := db.WithContext(ctx).
		Where("phone = ? AND code = ? AND purpose = ? AND verified = ? AND expires_at > ?", phone, code, purpose, false, now).
		Order("created_at DESC").
		First(&vc).Error
	if err != nil {
		return err
	}
	res := db.WithContext(ctx).
		Model(&domain.VerificationCode{}).
		Where("id = ? AND verified = ?", vc.ID, false).
		Update("verified", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreatePhoneUser links phone to a Supabase user. A phone that is already
// registered returns ErrDuplicate.
func CreatePhoneUser(ctx context.Context, db *gorm.DB, phone, passwordHash, supabaseUserID string) (*domain.PhoneUser, error) {
	now := time.Now().UTC()
	u := &domain.PhoneUser{
		ID:             uuid.NewString(),
		Phone:          phone,
		PasswordHash:   passwordHash,
		SupabaseUserID: supabaseUserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return u, nil
}

// UpdatePasswordHash replaces the password hash of the phone user.
func UpdatePasswordHash(ctx context.Context, db *gorm.DB, phone, passwordHash string) error {
	res := db.WithContext(ctx).
		Model(&domain.PhoneUser{}).
		Where("phone = ?", phone).
		Updates(map[string]any{"password_hash": passwordHash, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpiredCodes removes verification codes that expired before now.
func DeleteExpiredCodes(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.VerificationCode{})
	return res.RowsAffected, res.Error
}
