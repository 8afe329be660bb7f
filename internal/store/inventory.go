package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/shramba/internal/model"
	"github.com/shopspring/decimal"
)

// GetLedger returns a ledger with its lines, joined with the catalog for unit
// and expiration. It returns nil if the ledger was never created.
func GetLedger(ctx context.Context, db Querier, scope model.Scope) (*model.Ledger, error) {
	ledger := &model.Ledger{Scope: scope}
	err := db.QueryRowContext(ctx,
		`SELECT last_updated FROM ledgers WHERE scope_kind = ? AND scope_id = ?`,
		scope.Kind, scope.ID,
	).Scan(&ledger.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting ledger: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT sl.food_name, sl.quantity, f.unit, f.expiration_date
		 FROM stock_lines sl
		 LEFT JOIN food_items f ON f.name = sl.food_name
		 WHERE sl.scope_kind = ? AND sl.scope_id = ?
		 ORDER BY sl.food_name`,
		scope.Kind, scope.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing stock lines: %w", err)
	}
	defer rows.Close()

	ledger.Lines = []model.StockLine{}
	for rows.Next() {
		var line model.StockLine
		var unit sql.NullString
		if err := rows.Scan(&line.FoodName, &line.Quantity, &unit, &line.ExpirationDate); err != nil {
			return nil, fmt.Errorf("scanning stock line: %w", err)
		}
		line.Unit = unit.String
		ledger.Lines = append(ledger.Lines, line)
	}
	return ledger, rows.Err()
}

// GetQuantities returns the current quantity of every line in a ledger keyed
// by food name. A missing ledger yields an empty map.
func GetQuantities(ctx context.Context, db Querier, scope model.Scope) (map[string]decimal.Decimal, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT food_name, quantity FROM stock_lines WHERE scope_kind = ? AND scope_id = ?`,
		scope.Kind, scope.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("reading quantities: %w", err)
	}
	defer rows.Close()

	quantities := make(map[string]decimal.Decimal)
	for rows.Next() {
		var name string
		var qty decimal.Decimal
		if err := rows.Scan(&name, &qty); err != nil {
			return nil, fmt.Errorf("scanning quantity: %w", err)
		}
		quantities[name] = qty
	}
	return quantities, rows.Err()
}

// TouchLedger creates the ledger row if needed and sets its last update time.
func TouchLedger(ctx context.Context, db Querier, scope model.Scope, now time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO ledgers (scope_kind, scope_id, last_updated) VALUES (?, ?, ?)
		 ON CONFLICT (scope_kind, scope_id) DO UPDATE SET last_updated = excluded.last_updated`,
		scope.Kind, scope.ID, utc(now),
	)
	if err != nil {
		return fmt.Errorf("touching ledger: %w", err)
	}
	return nil
}

// SetQuantity writes the quantity of one line. A zero quantity deletes the
// line; negative quantities are rejected.
func SetQuantity(ctx context.Context, db Querier, scope model.Scope, foodName string, qty decimal.Decimal) error {
	if qty.IsNegative() {
		return fmt.Errorf("negative quantity %s for %q", qty, foodName)
	}

	var err error
	if qty.IsZero() {
		_, err = db.ExecContext(ctx,
			`DELETE FROM stock_lines WHERE scope_kind = ? AND scope_id = ? AND food_name = ?`,
			scope.Kind, scope.ID, foodName,
		)
	} else {
		_, err = db.ExecContext(ctx,
			`INSERT INTO stock_lines (scope_kind, scope_id, food_name, quantity) VALUES (?, ?, ?, ?)
			 ON CONFLICT (scope_kind, scope_id, food_name) DO UPDATE SET quantity = excluded.quantity`,
			scope.Kind, scope.ID, foodName, qty.String(),
		)
	}
	if err != nil {
		return fmt.Errorf("setting quantity of %q: %w", foodName, err)
	}
	return nil
}

// LedgerTotal is the number of lines and their summed quantity in one ledger.
type LedgerTotal struct {
	Scope model.Scope
	Lines int
	Total decimal.Decimal
}

// ListLedgerTotals returns line counts and totals for every ledger of a kind.
// An empty kind lists all ledgers.
func ListLedgerTotals(ctx context.Context, db Querier, kind string) ([]LedgerTotal, error) {
	query := `SELECT l.scope_kind, l.scope_id, sl.quantity
		 FROM ledgers l
		 LEFT JOIN stock_lines sl ON sl.scope_kind = l.scope_kind AND sl.scope_id = l.scope_id`
	var args []any
	if kind != "" {
		query += ` WHERE l.scope_kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY l.scope_kind, l.scope_id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing ledger totals: %w", err)
	}
	defer rows.Close()

	var totals []LedgerTotal
	for rows.Next() {
		var scope model.Scope
		var qty sql.NullString
		if err := rows.Scan(&scope.Kind, &scope.ID, &qty); err != nil {
			return nil, fmt.Errorf("scanning ledger total: %w", err)
		}
		if len(totals) == 0 || totals[len(totals)-1].Scope != scope {
			totals = append(totals, LedgerTotal{Scope: scope, Total: decimal.Zero})
		}
		if !qty.Valid {
			continue
		}
		d, err := decimal.NewFromString(qty.String)
		if err != nil {
			return nil, fmt.Errorf("parsing quantity %q: %w", qty.String, err)
		}
		last := &totals[len(totals)-1]
		last.Lines++
		last.Total = last.Total.Add(d)
	}
	return totals, rows.Err()
}
