package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartTokenCleaner periodically removes login tokens unused for longer than
// retention, together with consumed or expired OAuth credentials.
func StartTokenCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cleanTokens(ctx, db, time.Now().Add(-retention), log)
			}
		}
	}()
}

func cleanTokens(ctx context.Context, db *sql.DB, cutoff time.Time, log *zap.Logger) {
	res, err := db.ExecContext(ctx, `DELETE FROM tokens WHERE last_used_at < $1`, cutoff)
	if err != nil {
		log.Error("failed to clean stale tokens", zap.Error(err))
		return
	}
	if rows, _ := res.RowsAffected(); rows > 0 {
		log.Info("cleaned stale tokens", zap.Int64("removed", rows))
	}

	res, err = db.ExecContext(ctx, `
		DELETE FROM oauth_credentials
		 WHERE consumed = true
		    OR created_at < $1
	`, cutoff)
	if err != nil {
		log.Error("failed to clean oauth credentials", zap.Error(err))
		return
	}
	if rows, _ := res.RowsAffected(); rows > 0 {
		log.Info("cleaned oauth credentials", zap.Int64("removed", rows))
	}
}
