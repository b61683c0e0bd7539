// Package services – credits, history and task reads
//
// This file implements the authenticated read paths. Every lookup is scoped
// to the caller's user id; rows belonging to other users are never visible.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/designai/studio-backend/internal/domain"
	"github.com/designai/studio-backend/internal/observability"
	"github.com/designai/studio-backend/internal/payment"
	"github.com/designai/studio-backend/internal/repo"
)

const (
	transactionsLimit = 50
	historyLimit      = 50
)

// CreditSummary is the caller's balance and newest ledger entries.
type CreditSummary struct {
	Balance      int
	Subscription *domain.UserCredits // nil when the user has no balance row
	Transactions []domain.CreditTransaction
}

// CreditService reads balances and the credit ledger.
type CreditService struct {
	DB *gorm.DB
}

// Summary returns the balance (0 when no row exists) and up to 50 of the
// newest transactions.
func (s *CreditService) Summary(ctx context.Context, userID string) (*CreditSummary, error) {
	out := &CreditSummary{Transactions: []domain.CreditTransaction{}}

	uc, err := repo.GetCredits(ctx, s.DB, userID)
	switch {
	case err == nil:
		out.Balance = uc.Balance
		out.Subscription = uc
	case errors.Is(err, repo.ErrNotFound):
	default:
		return nil, err
	}

	txs, err := repo.ListTransactions(ctx, s.DB, userID, transactionsLimit)
	if err != nil {
		return nil, err
	}
	if txs != nil {
		out.Transactions = txs
	}
	return out, nil
}

// AdminGrant adds amount credits to userID and records an admin_grant
// ledger entry. Used by the admin command line.
func (s *CreditService) AdminGrant(ctx context.Context, userID string, amount int, desc string) (*domain.UserCredits, error) {
	if strings.TrimSpace(userID) == "" || amount == 0 {
		return nil, errors.New("admin grant needs a user id and a non-zero amount")
	}
	if desc == "" {
		desc = "管理员充值"
	}
	var out *domain.UserCredits
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		uc, err := applyGrant(ctx, tx, userID, payment.Grant{Credits: amount}, domain.TxTypeAdmin, desc, time.Now().UTC())
		out = uc
		return err
	})
	if err != nil {
		return nil, err
	}
	observability.RecordCreditsGranted(amount)
	return out, nil
}

// HistoryService reads the generation history.
type HistoryService struct {
	DB *gorm.DB
}

// List returns up to 50 of the newest history entries.
func (s *HistoryService) List(ctx context.Context, userID string) ([]domain.GenerationHistory, error) {
	items, err := repo.ListHistory(ctx, s.DB, userID, historyLimit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.GenerationHistory{}
	}
	return items, nil
}

// Stats returns the entry count and newest timestamp, used for ETags.
func (s *HistoryService) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	return repo.HistoryStats(ctx, s.DB, userID)
}

// TaskService polls generation tasks owned by the external queue.
type TaskService struct {
	DB *gorm.DB
}

// Status returns the task if it exists and belongs to userID. Another
// user's task is reported as ErrTaskNotFound.
func (s *TaskService) Status(ctx context.Context, userID, taskID string) (*domain.GenerationTask, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, ErrTaskIDRequired
	}
	t, err := repo.GetTask(ctx, s.DB, taskID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}
