package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Dialect covers the differences between the supported SQL engines. Queries
// are written with $N placeholders and rebound per dialect.
type Dialect interface {
	Name() string
	DriverName() string
	Rebind(query string) string
	// Reseed sets the auto-increment counter of table so the next id is last+1.
	Reseed(ctx context.Context, tx *sql.Tx, table string, last int64) error
	IsDuplicateKey(err error) bool
	IsForeignKeyViolation(err error) bool
	// TransactionalSequences reports whether a rollback also undoes Reseed.
	TransactionalSequences() bool
}

// Postgres is the lib/pq dialect.
var Postgres Dialect = postgresDialect{}

// SQLite is the mattn/go-sqlite3 dialect.
var SQLite Dialect = sqliteDialect{}

// DialectFor returns the dialect registered under a driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite3", "sqlite":
		return SQLite, nil
	}
	return nil, fmt.Errorf("unsupported driver %q", driver)
}

type postgresDialect struct{}

func (postgresDialect) Name() string       { return "postgres" }
func (postgresDialect) DriverName() string { return "postgres" }

func (postgresDialect) Rebind(query string) string { return query }

// setval with is_called=false makes the next nextval return the given value,
// which is the only way to restart an empty table at 1.
func (postgresDialect) Reseed(ctx context.Context, tx *sql.Tx, table string, last int64) error {
	query := `SELECT setval(pg_get_serial_sequence($1, 'id'), $2, $3)`
	next, called := last, true
	if last == 0 {
		next, called = 1, false
	}
	if _, err := tx.ExecContext(ctx, query, table, next, called); err != nil {
		return fmt.Errorf("reseed %s: %w", table, err)
	}
	return nil
}

// Sequence changes survive a rollback in PostgreSQL.
func (postgresDialect) TransactionalSequences() bool { return false }

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

func (postgresDialect) IsDuplicateKey(err error) bool {
	return pqCode(err) == "23505"
}

func (postgresDialect) IsForeignKeyViolation(err error) bool {
	return pqCode(err) == "23503"
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string       { return "sqlite3" }
func (sqliteDialect) DriverName() string { return "sqlite3" }

var positional = regexp.MustCompile(`\$(\d+)`)

// Rebind turns $N placeholders into ?N, which SQLite binds by position.
// A $ not followed by a digit is left alone.
func (sqliteDialect) Rebind(query string) string {
	return positional.ReplaceAllString(query, "?$1")
}

// AUTOINCREMENT tables keep their counter in sqlite_sequence.
func (sqliteDialect) Reseed(ctx context.Context, tx *sql.Tx, table string, last int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = ?`, table); err != nil {
		return fmt.Errorf("reseed %s: %w", table, err)
	}
	if last == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO sqlite_sequence (name, seq) VALUES (?, ?)`, table, last); err != nil {
		return fmt.Errorf("reseed %s: %w", table, err)
	}
	return nil
}

func (sqliteDialect) TransactionalSequences() bool { return true }

func sqliteExtended(err error) sqlite3.ErrNoExtended {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode
	}
	return 0
}

func (sqliteDialect) IsDuplicateKey(err error) bool {
	code := sqliteExtended(err)
	return code == sqlite3.ErrConstraintPrimaryKey || code == sqlite3.ErrConstraintUnique
}

func (sqliteDialect) IsForeignKeyViolation(err error) bool {
	return sqliteExtended(err) == sqlite3.ErrConstraintForeignKey
}
