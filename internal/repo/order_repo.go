// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for payment orders.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/designai/studio-backend/internal/domain"
)

// CreateOrder inserts a pending order. The gateway trade id is the order id
// without hyphens (32 chars).
func CreateOrder(ctx context.Context, db *gorm.DB, userID, planID, planName string, amount float64) (*domain.Order, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	o := &domain.Order{
		ID:        id,
		UserID:    userID,
		PlanID:    planID,
		PlanName:  planName,
		Amount:    amount,
		Status:    domain.OrderPending,
		TradeID:   strings.ReplaceAll(id, "-", ""),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(o).Error; err != nil {
		return nil, err
	}
	return o, nil
}

// GetOrder fetches an order by id scoped to its owner.
func GetOrder(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Order, error) {
	var o domain.Order
	if err := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrderByTradeID fetches an order by the id the gateway knows it by.
func GetOrderByTradeID(ctx context.Context, db *gorm.DB, tradeID string) (*domain.Order, error) {
	var o domain.Order
	if err := db.WithContext(ctx).Where("trade_id = ?", tradeID).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// SetOrderPaymentURL records the gateway pay URL on an order.
func SetOrderPaymentURL(ctx context.Context, db *gorm.DB, id, url string) error {
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{"payment_url": url, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkOrderPaid moves a pending order to paid. It reports false when the
// order was not pending anymore, which makes repeated notifications no-ops.
func MarkOrderPaid(ctx context.Context, db *gorm.DB, id, providerTradeNo string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND status = ?", id, domain.OrderPending).
		Updates(map[string]any{
			"status":            domain.OrderPaid,
			"provider_trade_no": providerTradeNo,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
