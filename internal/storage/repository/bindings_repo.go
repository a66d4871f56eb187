package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoDefault is returned when a tenant has no saved sheet binding.
var ErrNoDefault = errors.New("no default sheet set for this server")

// Binding is a tenant's saved scoreboard location.
type Binding struct {
	Tenant    int64
	SheetURL  string
	TabName   string
	UpdatedAt time.Time
}

// BindingsRepository is the default binding store: tenant -> (sheet, tab).
type BindingsRepository interface {
	// Set upserts the binding for a tenant. Concurrent calls for the same
	// tenant serialize on a transaction; no torn writes.
	Set(ctx context.Context, tenant int64, sheetURL, tabName string) error

	// Get returns the binding or ErrNoDefault.
	Get(ctx context.Context, tenant int64) (*Binding, error)

	// Exists reports whether a binding is saved.
	Exists(ctx context.Context, tenant int64) (bool, error)
}

type bindingsRepository struct {
	db *sql.DB
}

// NewBindingsRepository creates a bindings repository.
func NewBindingsRepository(db *sql.DB) BindingsRepository {
	return &bindingsRepository{db: db}
}

func (r *bindingsRepository) Set(ctx context.Context, tenant int64, sheetURL, tabName string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bindings (tenant, sheet_url, tab_name, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant) DO UPDATE SET
			sheet_url = excluded.sheet_url,
			tab_name = excluded.tab_name,
			updated_at = excluded.updated_at
	`, tenant, sheetURL, tabName, time.Now())
	if err != nil {
		return fmt.Errorf("set binding for tenant %d: %w", tenant, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit binding: %w", err)
	}
	return nil
}

func (r *bindingsRepository) Get(ctx context.Context, tenant int64) (*Binding, error) {
	b := &Binding{Tenant: tenant}
	err := r.db.QueryRowContext(ctx,
		"SELECT sheet_url, tab_name, updated_at FROM bindings WHERE tenant = ?", tenant,
	).Scan(&b.SheetURL, &b.TabName, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoDefault
		}
		return nil, fmt.Errorf("get binding for tenant %d: %w", tenant, err)
	}
	return b, nil
}

func (r *bindingsRepository) Exists(ctx context.Context, tenant int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM bindings WHERE tenant = ?", tenant,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check binding for tenant %d: %w", tenant, err)
	}
	return true, nil
}
