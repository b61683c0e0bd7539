package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/designai/studio-backend/internal/repo"
)

// sweepExpired prunes expired idempotency keys and verification codes
// every interval until ctx is cancelled.
func sweepExpired(ctx context.Context, db *gorm.DB, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			sweepOnce(ctx, db, time.Now().UTC())
		}
	}
}

func sweepOnce(ctx context.Context, db *gorm.DB, now time.Time) (keys, codes int64) {
	keys, err := repo.DeleteExpiredIdempotency(ctx, db, now)
	if err != nil {
		log.Warn().Err(err).Msg("sweep idempotency keys")
	}
	codes, err = repo.DeleteExpiredCodes(ctx, db, now)
	if err != nil {
		log.Warn().Err(err).Msg("sweep verification codes")
	}
	if keys > 0 || codes > 0 {
		log.Debug().Int64("idempotency_keys", keys).Int64("codes", codes).Msg("sweep")
	}
	return keys, codes
}
