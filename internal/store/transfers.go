package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/shramba/internal/model"
)

// RecordMovement appends a stock movement to the audit log.
func RecordMovement(ctx context.Context, db Querier, m *model.StockMovement) error {
	var fromKind, fromID, toKind, toID sql.NullString
	if m.From != nil {
		fromKind, fromID = nullString(m.From.Kind), nullString(m.From.ID)
	}
	if m.To != nil {
		toKind, toID = nullString(m.To.Kind), nullString(m.To.ID)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO stock_movements
		 (food_name, quantity, from_kind, from_id, to_kind, to_id, reason, reference, moved_by, moved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.FoodName, m.Quantity.String(), fromKind, fromID, toKind, toID,
		m.Reason, nullString(m.Reference), nullString(m.MovedBy), utc(m.MovedAt),
	)
	if err != nil {
		return fmt.Errorf("recording movement: %w", err)
	}

	m.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting movement id: %w", err)
	}
	return nil
}

// ListMovements returns movements into or out of a scope, newest first.
// A non-positive limit returns all of them.
func ListMovements(ctx context.Context, db Querier, scope model.Scope, limit int) ([]model.StockMovement, error) {
	query := `SELECT id, food_name, quantity, from_kind, from_id, to_kind, to_id, reason, reference, moved_by, moved_at
		 FROM stock_movements
		 WHERE (from_kind = ? AND from_id = ?) OR (to_kind = ? AND to_id = ?)
		 ORDER BY id DESC`
	args := []any{scope.Kind, scope.ID, scope.Kind, scope.ID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}
	defer rows.Close()

	return scanMovements(rows)
}

func scanMovements(rows *sql.Rows) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	for rows.Next() {
		var m model.StockMovement
		var fromKind, fromID, toKind, toID, reference, movedBy sql.NullString
		if err := rows.Scan(&m.ID, &m.FoodName, &m.Quantity, &fromKind, &fromID, &toKind, &toID,
			&m.Reason, &reference, &movedBy, &m.MovedAt); err != nil {
			return nil, fmt.Errorf("scanning movement: %w", err)
		}
		if fromKind.Valid {
			m.From = &model.Scope{Kind: fromKind.String, ID: fromID.String}
		}
		if toKind.Valid {
			m.To = &model.Scope{Kind: toKind.String, ID: toID.String}
		}
		m.Reference = reference.String
		m.MovedBy = movedBy.String
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
