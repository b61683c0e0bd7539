package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/designai/studio-backend/internal/domain"
)

func TestCreditSummary_NoRowMeansZero(t *testing.T) {
	db := newTestDB(t)
	svc := &CreditService{DB: db}

	sum, err := svc.Summary(context.Background(), "fresh-user")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Balance != 0 || sum.Subscription != nil || sum.Transactions == nil || len(sum.Transactions) != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestCreditSummary_BalanceAndScopedTransactions(t *testing.T) {
	db := newTestDB(t)
	db.Create(&domain.UserCredits{UserID: "u1", Balance: 120})
	db.Create(&domain.CreditTransaction{ID: "t1", UserID: "u1", Amount: 100, CreatedAt: time.Now().UTC()})
	db.Create(&domain.CreditTransaction{ID: "t2", UserID: "u2", Amount: 5, CreatedAt: time.Now().UTC()})

	sum, err := (&CreditService{DB: db}).Summary(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Balance != 120 || len(sum.Transactions) != 1 || sum.Transactions[0].ID != "t1" {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestCreditSummary_DatastoreError(t *testing.T) {
	db := newTestDB(t)
	_ = db.Migrator().DropTable(&domain.CreditTransaction{})
	if _, err := (&CreditService{DB: db}).Summary(context.Background(), "u1"); err == nil {
		t.Fatal("expected error when the ledger table is missing")
	}
}

func TestAdminGrant_CreatesRowAndLedger(t *testing.T) {
	db := newTestDB(t)
	svc := &CreditService{DB: db}

	uc, err := svc.AdminGrant(context.Background(), "u1", 50, "")
	if err != nil || uc.Balance != 50 {
		t.Fatalf("first grant: %+v %v", uc, err)
	}
	uc, err = svc.AdminGrant(context.Background(), "u1", 25, "补偿")
	if err != nil || uc.Balance != 75 {
		t.Fatalf("second grant: %+v %v", uc, err)
	}

	var txs []domain.CreditTransaction
	db.Where("user_id = ?", "u1").Order("created_at ASC").Find(&txs)
	if len(txs) != 2 || txs[0].Type != domain.TxTypeAdmin || *txs[1].BalanceAfter != 75 || txs[1].Description != "补偿" {
		t.Fatalf("unexpected ledger: %+v", txs)
	}

	if _, err := svc.AdminGrant(context.Background(), "", 10, ""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestHistoryService_ListAndStats(t *testing.T) {
	db := newTestDB(t)
	svc := &HistoryService{DB: db}

	items, err := svc.List(context.Background(), "u1")
	if err != nil || items == nil || len(items) != 0 {
		t.Fatalf("empty list: %+v %v", items, err)
	}

	ts := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)
	db.Create(&domain.GenerationHistory{ID: "h1", UserID: "u1", Prompt: "cat", CreatedAt: ts})

	items, _ = svc.List(context.Background(), "u1")
	if len(items) != 1 || items[0].Prompt != "cat" {
		t.Fatalf("unexpected list: %+v", items)
	}
	count, newest, err := svc.Stats(context.Background(), "u1")
	if err != nil || count != 1 || newest == nil || !newest.Equal(ts) {
		t.Fatalf("stats: %d %v %v", count, newest, err)
	}
}

func TestTaskService_Status(t *testing.T) {
	db := newTestDB(t)
	msg := "content rejected"
	db.Create(&domain.GenerationTask{ID: "t1", UserID: "u1", Status: domain.TaskFailed, Error: &msg})
	svc := &TaskService{DB: db}

	task, err := svc.Status(context.Background(), "u1", " t1 ")
	if err != nil || task.Status != domain.TaskFailed || task.Error == nil || *task.Error != msg {
		t.Fatalf("owner lookup: %+v %v", task, err)
	}
	if _, err := svc.Status(context.Background(), "u1", ""); !errors.Is(err, ErrTaskIDRequired) {
		t.Fatalf("expected ErrTaskIDRequired, got %v", err)
	}
	if _, err := svc.Status(context.Background(), "u2", "t1"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("foreign task should be ErrTaskNotFound, got %v", err)
	}
	if _, err := svc.Status(context.Background(), "u1", "missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("missing task should be ErrTaskNotFound, got %v", err)
	}
}
