package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/shramba/internal/model"
)

// CreateFoodItem adds a catalog entry.
func CreateFoodItem(ctx context.Context, db Querier, item *model.FoodItem) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO food_items (name, category, unit, description, expiration_date, added_on)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		item.Name, item.Category, item.Unit, nullString(item.Description),
		utc(item.ExpirationDate), utc(item.AddedOn),
	)
	if err != nil {
		return fmt.Errorf("creating food item: %w", err)
	}
	return nil
}

// GetFoodItem returns a catalog entry by name, or nil if there is none.
func GetFoodItem(ctx context.Context, db Querier, name string) (*model.FoodItem, error) {
	item := &model.FoodItem{}
	var description sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT name, category, unit, description, expiration_date, added_on
		 FROM food_items WHERE name = ?`, name,
	).Scan(&item.Name, &item.Category, &item.Unit, &description, &item.ExpirationDate, &item.AddedOn)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting food item: %w", err)
	}
	item.Description = description.String
	return item, nil
}

// ListFoodItems returns the catalog, optionally filtered by category.
func ListFoodItems(ctx context.Context, db Querier, category string) ([]model.FoodItem, error) {
	var rows *sql.Rows
	var err error

	if category != "" {
		rows, err = db.QueryContext(ctx,
			`SELECT name, category, unit, description, expiration_date, added_on
			 FROM food_items WHERE category = ? ORDER BY name`, category,
		)
	} else {
		rows, err = db.QueryContext(ctx,
			`SELECT name, category, unit, description, expiration_date, added_on
			 FROM food_items ORDER BY name`,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("listing food items: %w", err)
	}
	defer rows.Close()

	var items []model.FoodItem
	for rows.Next() {
		var item model.FoodItem
		var description sql.NullString
		if err := rows.Scan(&item.Name, &item.Category, &item.Unit, &description, &item.ExpirationDate, &item.AddedOn); err != nil {
			return nil, fmt.Errorf("scanning food item: %w", err)
		}
		item.Description = description.String
		items = append(items, item)
	}
	return items, rows.Err()
}
