package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// LedgerRepository is the invalid-sheets ledger: the out-of-band authorize
// endpoint marks a (tenant, sheet link) row when the user abandons the
// browser flow, and the credential broker polls for it. Rows are keyed per
// tenant so two servers authorizing the same sheet cannot collide.
type LedgerRepository interface {
	Mark(ctx context.Context, tenant int64, sheetLink string) error
	Check(ctx context.Context, tenant int64, sheetLink string) (bool, error)
	Clear(ctx context.Context, tenant int64, sheetLink string) error
}

type ledgerRepository struct {
	db *sql.DB
}

// NewLedgerRepository creates a ledger repository.
func NewLedgerRepository(db *sql.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Mark(ctx context.Context, tenant int64, sheetLink string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invalid_sheets (tenant, sheet_link) VALUES (?, ?)
		ON CONFLICT(tenant, sheet_link) DO UPDATE SET marked_at = CURRENT_TIMESTAMP
	`, tenant, sheetLink)
	if err != nil {
		return fmt.Errorf("mark invalid sheet: %w", err)
	}
	return nil
}

func (r *ledgerRepository) Check(ctx context.Context, tenant int64, sheetLink string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM invalid_sheets WHERE tenant = ? AND sheet_link = ?", tenant, sheetLink,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check invalid sheet: %w", err)
	}
	return true, nil
}

func (r *ledgerRepository) Clear(ctx context.Context, tenant int64, sheetLink string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM invalid_sheets WHERE tenant = ? AND sheet_link = ?", tenant, sheetLink)
	if err != nil {
		return fmt.Errorf("clear invalid sheet: %w", err)
	}
	return nil
}
