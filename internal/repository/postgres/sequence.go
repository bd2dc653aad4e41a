package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// nextDailySeq allocates the next number in a per-day counter. Concurrent
// callers serialize on the counter row, so two creates on the same day can
// never derive the same code.
func nextDailySeq(ctx context.Context, db *sqlx.DB, scope string, day time.Time) (int, error) {
	query := `
		INSERT INTO code_sequences (scope, day, seq) VALUES ($1, $2, 1)
		ON CONFLICT (scope, day) DO UPDATE SET seq = code_sequences.seq + 1
		RETURNING seq
	`
	var seq int
	if err := db.GetContext(ctx, &seq, query, scope, day.Format("2006-01-02")); err != nil {
		return 0, fmt.Errorf("failed to advance %s sequence: %w", scope, err)
	}
	return seq, nil
}
