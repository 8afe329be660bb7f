package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. Quantities are stored as decimal text.
const schema = `
CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS food_items (
    name            TEXT PRIMARY KEY,
    category        TEXT NOT NULL,
    unit            TEXT NOT NULL CHECK (unit IN ('kg', 'grams', 'liters', 'ml', 'pcs', 'packs')),
    description     TEXT,
    expiration_date DATETIME NOT NULL,
    added_on        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    id              TEXT PRIMARY KEY,
    organization_id TEXT NOT NULL,
    name            TEXT NOT NULL,
    description     TEXT,
    location        TEXT,
    start_time      DATETIME NOT NULL,
    end_time        DATETIME NOT NULL,
    status          TEXT NOT NULL DEFAULT 'scheduled' CHECK (status IN ('scheduled', 'ongoing', 'completed', 'cancelled')),
    created_at      DATETIME NOT NULL,
    last_updated    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_organization ON events(organization_id);

CREATE TABLE IF NOT EXISTS ledgers (
    scope_kind   TEXT NOT NULL CHECK (scope_kind IN ('main', 'event')),
    scope_id     TEXT NOT NULL,
    last_updated DATETIME NOT NULL,
    PRIMARY KEY (scope_kind, scope_id)
);

CREATE TABLE IF NOT EXISTS stock_lines (
    scope_kind TEXT NOT NULL,
    scope_id   TEXT NOT NULL,
    food_name  TEXT NOT NULL,
    quantity   TEXT NOT NULL CHECK (CAST(quantity AS REAL) > 0),
    PRIMARY KEY (scope_kind, scope_id, food_name),
    FOREIGN KEY (scope_kind, scope_id) REFERENCES ledgers(scope_kind, scope_id)
);

CREATE TABLE IF NOT EXISTS stock_movements (
    id         INTEGER PRIMARY KEY,
    food_name  TEXT NOT NULL,
    quantity   TEXT NOT NULL,
    from_kind  TEXT,
    from_id    TEXT,
    to_kind    TEXT,
    to_id      TEXT,
    reason     TEXT NOT NULL,
    reference  TEXT,
    moved_by   TEXT,
    moved_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stock_movements_from ON stock_movements(from_kind, from_id);
CREATE INDEX IF NOT EXISTS idx_stock_movements_to ON stock_movements(to_kind, to_id);

CREATE TABLE IF NOT EXISTS appointments (
    id              TEXT PRIMARY KEY,
    requester_id    TEXT NOT NULL,
    organization_id TEXT NOT NULL,
    start_time      DATETIME NOT NULL,
    end_time        DATETIME NOT NULL,
    description     TEXT,
    status          TEXT NOT NULL DEFAULT 'scheduled' CHECK (status IN ('scheduled', 'rescheduled', 'picked', 'cancelled')),
    created_at      DATETIME NOT NULL,
    last_updated    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_appointments_organization ON appointments(organization_id, status);
CREATE INDEX IF NOT EXISTS idx_appointments_requester ON appointments(requester_id);

CREATE TABLE IF NOT EXISTS appointment_items (
    appointment_id TEXT NOT NULL REFERENCES appointments(id),
    position       INTEGER NOT NULL,
    food_name      TEXT NOT NULL,
    quantity       TEXT NOT NULL,
    PRIMARY KEY (appointment_id, position)
);

CREATE TABLE IF NOT EXISTS jobs (
    id              TEXT PRIMARY KEY,
    organization_id TEXT NOT NULL,
    event_id        TEXT REFERENCES events(id),
    title           TEXT NOT NULL,
    description     TEXT,
    location        TEXT,
    category        TEXT NOT NULL,
    posted_at       DATETIME NOT NULL,
    deadline        DATETIME NOT NULL,
    status          TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'unavailable'))
);

CREATE TABLE IF NOT EXISTS applications (
    id              TEXT PRIMARY KEY,
    volunteer_id    TEXT NOT NULL,
    organization_id TEXT,
    event_id        TEXT,
    job_id          TEXT NOT NULL REFERENCES jobs(id),
    category        TEXT NOT NULL,
    status          TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
    applied_at      DATETIME NOT NULL,
    CHECK ((organization_id IS NULL) != (event_id IS NULL))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_applications_volunteer_job
    ON applications(volunteer_id, job_id);

CREATE TABLE IF NOT EXISTS activity_records (
    id                TEXT PRIMARY KEY,
    application_id    TEXT NOT NULL REFERENCES applications(id),
    date_worked       DATETIME NOT NULL,
    organization_name TEXT NOT NULL,
    category          TEXT NOT NULL,
    start_time        DATETIME NOT NULL,
    end_time          DATETIME NOT NULL,
    recorded_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activity_records_application ON activity_records(application_id);
`

// EnsureSchema creates all tables and indexes if they don't already exist,
// then applies pending migrations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return Migrate(db)
}
