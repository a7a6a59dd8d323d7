package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/nonsonwune/applicant_registry/store"
)

// Tables lists the registry tables in creation order.
var Tables = []string{
	"region",
	"city",
	"institution",
	"parent",
	"benefit",
	"information_source",
	"applicant",
	"application_details",
	"additional_info",
	"applicant_benefit",
}

// Dimension references restrict deletion; detail and association rows go
// with their applicant.
const schema = `
CREATE TABLE IF NOT EXISTS region (
	id {{ID}},
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS city (
	id {{ID}},
	name TEXT NOT NULL,
	region_id {{REF}} NOT NULL REFERENCES region(id)
);
CREATE TABLE IF NOT EXISTS institution (
	id {{ID}},
	name TEXT NOT NULL,
	city_id {{REF}} REFERENCES city(id)
);
CREATE TABLE IF NOT EXISTS parent (
	id {{ID}},
	name TEXT NOT NULL,
	phone TEXT NOT NULL DEFAULT '',
	relation TEXT NOT NULL DEFAULT 'Родитель'
);
CREATE TABLE IF NOT EXISTS benefit (
	id {{ID}},
	name TEXT NOT NULL,
	bonus_points INTEGER NOT NULL DEFAULT 0 CHECK (bonus_points >= 0)
);
CREATE TABLE IF NOT EXISTS information_source (
	id {{ID}},
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS applicant (
	id {{ID}},
	last_name TEXT NOT NULL,
	first_name TEXT NOT NULL,
	patronymic TEXT,
	phone TEXT NOT NULL,
	vk TEXT,
	city_id {{REF}} REFERENCES city(id),
	institution_id {{REF}} REFERENCES institution(id),
	parent_id {{REF}} REFERENCES parent(id)
);
CREATE TABLE IF NOT EXISTS application_details (
	id {{ID}},
	applicant_id {{REF}} NOT NULL UNIQUE REFERENCES applicant(id) ON DELETE CASCADE,
	code TEXT NOT NULL,
	base_rating {{FLOAT}} NOT NULL DEFAULT 0 CHECK (base_rating >= 0),
	has_original BOOLEAN NOT NULL DEFAULT FALSE,
	submission_date TIMESTAMP,
	benefit_id {{REF}} REFERENCES benefit(id)
);
CREATE TABLE IF NOT EXISTS additional_info (
	id {{ID}},
	applicant_id {{REF}} NOT NULL UNIQUE REFERENCES applicant(id) ON DELETE CASCADE,
	department_visit TIMESTAMP,
	notes TEXT,
	source_id {{REF}} REFERENCES information_source(id),
	dormitory_needed BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE IF NOT EXISTS applicant_benefit (
	applicant_id {{REF}} NOT NULL REFERENCES applicant(id) ON DELETE CASCADE,
	benefit_id {{REF}} NOT NULL REFERENCES benefit(id),
	PRIMARY KEY (applicant_id, benefit_id)
);
`

// DDL returns the schema statements for a dialect.
func DDL(d store.Dialect) []string {
	var r *strings.Replacer
	if d == store.SQLite {
		r = strings.NewReplacer("{{ID}}", "INTEGER PRIMARY KEY AUTOINCREMENT", "{{REF}}", "INTEGER", "{{FLOAT}}", "REAL")
	} else {
		r = strings.NewReplacer("{{ID}}", "BIGSERIAL PRIMARY KEY", "{{REF}}", "BIGINT", "{{FLOAT}}", "DOUBLE PRECISION")
	}
	var out []string
	for _, stmt := range strings.Split(r.Replace(schema), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// InitSchema creates any missing table and then verifies that all required
// tables exist.
func InitSchema(ctx context.Context, db *sql.DB, d store.Dialect) error {
	for _, stmt := range DDL(d) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	query := `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = current_schema()
			AND table_name = $1
		)`
	if d == store.SQLite {
		query = `SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?)`
	}
	for _, table := range Tables {
		var exists bool
		if err := db.QueryRowContext(ctx, query, table).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("required table %s does not exist", table)
		}
	}
	return nil
}
