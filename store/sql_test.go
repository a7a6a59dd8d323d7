package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonsonwune/applicant_registry/migrations"
	"github.com/nonsonwune/applicant_registry/models"
	"github.com/nonsonwune/applicant_registry/store"
)

func openSQLite(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "registry.db")
	st, err := store.Open(ctx, store.SQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, migrations.InitSchema(ctx, st.DB(), store.SQLite))
	return st
}

func TestSQLStore_SQLiteContract(t *testing.T) {
	runContract(t, openSQLite)
}

func TestOpen_SQLiteEnforcesForeignKeys(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	tests := []struct {
		name string
		dsn  string
		want int
	}{
		{"plain file", "file:" + filepath.Join(dir, "plain.db"), 1},
		{"other options", "file:" + filepath.Join(dir, "cache.db") + "?cache=shared&_busy_timeout=5000", 1},
		{"explicit off", "file:" + filepath.Join(dir, "off.db") + "?_foreign_keys=off", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := store.Open(ctx, store.SQLite, tt.dsn)
			require.NoError(t, err)
			defer st.Close()

			var on int
			require.NoError(t, st.DB().QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&on))
			assert.Equal(t, tt.want, on)
		})
	}
}

func TestOpen_SQLitePlainDSNCascadesDelete(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, store.SQLite, "file:"+filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, migrations.InitSchema(ctx, st.DB(), store.SQLite))

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	f := insertFixture(t, ctx, tx)
	require.NoError(t, tx.Commit())

	tx, err = st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.DeleteByID(ctx, store.KindApplicant, f.applicant))
	require.NoError(t, tx.Commit())

	tx, err = st.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()
	for _, k := range []store.Kind{store.KindApplicationDetails, store.KindAdditionalInfo, store.KindApplicantBenefit} {
		n, err := tx.Count(ctx, k)
		require.NoError(t, err)
		assert.Zero(t, n, "kind %s", k)
	}
}

func TestDialect_Rebind(t *testing.T) {
	q := `SELECT id FROM city WHERE name = $1 AND region_id = $2`
	assert.Equal(t, q, store.Postgres.Rebind(q))
	assert.Equal(t, `SELECT id FROM city WHERE name = ?1 AND region_id = ?2`, store.SQLite.Rebind(q))

	lit := `SELECT id FROM benefit WHERE name = '$x' AND id = $10 AND note = 'cost $ 5'`
	assert.Equal(t, `SELECT id FROM benefit WHERE name = '$x' AND id = ?10 AND note = 'cost $ 5'`, store.SQLite.Rebind(lit))
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		driver string
		want   store.Dialect
	}{
		{driver: "postgres", want: store.Postgres},
		{driver: "PostgreSQL", want: store.Postgres},
		{driver: "sqlite3", want: store.SQLite},
		{driver: " sqlite ", want: store.SQLite},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := store.DialectFor(tt.driver)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}

	_, err := store.DialectFor("mysql")
	assert.Error(t, err)
}

func TestSQLStore_OpenUnavailable(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "missing", "registry.db") + "?mode=ro"
	_, err := store.Open(context.Background(), store.SQLite, dsn)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}
