package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/glabrego/deck-cli/internal/route"
)

const selectedAccountKey = "selected_account"

// SaveColumns replaces the stored layout with one row of routes per column.
func (r *Repository) SaveColumns(ctx context.Context, columns [][]route.Route) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM columns`); err != nil {
		return fmt.Errorf("clear columns: %w", err)
	}
	for i, routes := range columns {
		encoded, err := route.MarshalRoutes(routes)
		if err != nil {
			return fmt.Errorf("encode column %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO columns (position, routes) VALUES (?, ?)`, i, string(encoded)); err != nil {
			return fmt.Errorf("save column %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *Repository) LoadColumns(ctx context.Context) ([][]route.Route, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT position, routes FROM columns ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var out [][]route.Route
	for rows.Next() {
		var position int
		var encoded string
		if err := rows.Scan(&position, &encoded); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		routes, err := route.UnmarshalRoutes([]byte(encoded))
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", position, err)
		}
		out = append(out, routes)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// SaveSelectedAccount stores the active account index; nil clears it.
func (r *Repository) SaveSelectedAccount(ctx context.Context, index *int) error {
	if index == nil {
		return r.DeleteSetting(ctx, selectedAccountKey)
	}
	return r.SaveSetting(ctx, selectedAccountKey, strconv.Itoa(*index))
}

func (r *Repository) LoadSelectedAccount(ctx context.Context) (*int, error) {
	value, ok, err := r.LoadSetting(ctx, selectedAccountKey)
	if err != nil || !ok {
		return nil, err
	}
	idx, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("parse selected account %q: %w", value, err)
	}
	return &idx, nil
}
