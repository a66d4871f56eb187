package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrReplayAlreadyApplied is returned when a replay id was already folded
// into a given sheet's scoreboard.
var ErrReplayAlreadyApplied = errors.New("replay already applied to this scoreboard")

// ReplaysRepository is the replay journal guarding against double-counting:
// applying the same replay to the same sheet twice would inflate every
// games/kills/deaths column.
type ReplaysRepository interface {
	// Record journals an application; ErrReplayAlreadyApplied on repeat.
	Record(ctx context.Context, tenant int64, sheetID, replayID string) error

	// Applied reports whether the replay is already journaled.
	Applied(ctx context.Context, tenant int64, sheetID, replayID string) (bool, error)
}

type replaysRepository struct {
	db *sql.DB
}

// NewReplaysRepository creates a replay journal repository.
func NewReplaysRepository(db *sql.DB) ReplaysRepository {
	return &replaysRepository{db: db}
}

func (r *replaysRepository) Record(ctx context.Context, tenant int64, sheetID, replayID string) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO replay_journal (tenant, sheet_id, replay_id) VALUES (?, ?, ?)
		ON CONFLICT(tenant, sheet_id, replay_id) DO NOTHING
	`, tenant, sheetID, replayID)
	if err != nil {
		return fmt.Errorf("record replay %s: %w", replayID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record replay %s: %w", replayID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrReplayAlreadyApplied, replayID)
	}
	return nil
}

func (r *replaysRepository) Applied(ctx context.Context, tenant int64, sheetID, replayID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM replay_journal WHERE tenant = ? AND sheet_id = ? AND replay_id = ?",
		tenant, sheetID, replayID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check replay %s: %w", replayID, err)
	}
	return true, nil
}
