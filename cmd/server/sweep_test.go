package main

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/designai/studio-backend/internal/domain"
	"github.com/designai/studio-backend/internal/repo"
	"github.com/designai/studio-backend/internal/services"
)

func TestSweepOnce(t *testing.T) {
	db, err := repo.Open(repo.Options{Driver: repo.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "sweep.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := repo.CreateIdempotency(ctx, db, "u1", services.ScopePaymentCreate, "old", "o1", http.StatusOK, time.Millisecond); err != nil {
		t.Fatalf("seed key: %v", err)
	}
	if _, err := repo.CreateIdempotency(ctx, db, "u1", services.ScopePaymentCreate, "live", "o2", http.StatusOK, time.Hour); err != nil {
		t.Fatalf("seed key: %v", err)
	}
	if _, err := repo.CreateCode(ctx, db, "13800138000", "123456", domain.CodePurposeRegister, now.Add(-time.Hour), 5*time.Minute); err != nil {
		t.Fatalf("seed code: %v", err)
	}

	keys, codes := sweepOnce(ctx, db, now.Add(time.Second))
	if keys != 1 || codes != 1 {
		t.Fatalf("sweepOnce = %d keys, %d codes", keys, codes)
	}
	if _, err := repo.GetIdempotency(ctx, db, "u1", services.ScopePaymentCreate, "live", now); err != nil {
		t.Fatalf("live key swept: %v", err)
	}
}

func TestSweepIdempotency_StopsOnCancel(t *testing.T) {
	db, err := repo.Open(repo.Options{Driver: repo.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "sweep.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweepExpired(ctx, db, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
