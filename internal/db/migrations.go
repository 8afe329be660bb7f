package db

import (
	"database/sql"
	"fmt"
)

// migrations run in order after the base schema. PRAGMA user_version records
// how many have been applied; append only.
var migrations = []string{
	`CREATE INDEX IF NOT EXISTS idx_applications_job ON applications(job_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_movements_food ON stock_movements(food_name)`,
}

// Migrate applies the migrations not yet recorded in user_version.
func Migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	for i := version; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
		if _, err := db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, i+1)); err != nil {
			return fmt.Errorf("recording schema version %d: %w", i+1, err)
		}
	}
	return nil
}
