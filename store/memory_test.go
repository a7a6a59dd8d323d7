package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonsonwune/applicant_registry/models"
	"github.com/nonsonwune/applicant_registry/store"
)

func TestMemoryStore_Contract(t *testing.T) {
	runContract(t, func(t *testing.T) store.Store {
		return store.NewMemoryStore()
	})
}

func TestMemoryStore_ExplicitIDLeavesCounter(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	explicit := models.Region{ID: 5, Name: "Донецкая народная республика"}
	require.NoError(t, tx.InsertRegion(ctx, &explicit))
	auto := models.Region{Name: "Луганская народная республика"}
	require.NoError(t, tx.InsertRegion(ctx, &auto))
	assert.Equal(t, int64(1), auto.ID)
}

func TestMemoryStore_DuplicateNaturalKeysAllowed(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	for i := 0; i < 2; i++ {
		b := models.Benefit{Name: "Сирота", BonusPoints: 10}
		require.NoError(t, tx.InsertBenefit(ctx, &b))
	}
	n, err := tx.Count(ctx, store.KindBenefit)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMemoryStore_OneTransactionAtATime(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	first, err := st.Begin(ctx)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = st.Begin(waitCtx)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)

	require.NoError(t, first.Rollback())
	second, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, second.Rollback())
}

func TestMemoryStore_CloneIsolation(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	r := models.Region{Name: "Херсонская область"}
	require.NoError(t, tx.InsertRegion(ctx, &r))
	require.NoError(t, tx.Commit())

	tx, err = st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.DeleteAll(ctx, store.KindRegion))
	_, err = tx.Snapshot(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	_, err = tx.Regions(ctx)
	assert.ErrorIs(t, err, store.ErrTxDone)

	tx, err = st.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()
	regions, err := tx.Regions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Region{{ID: 1, Name: "Херсонская область"}}, regions)
}

func TestMemoryStore_Closed(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.Close())
	_, err := st.Begin(context.Background())
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.ErrorIs(t, st.Ping(context.Background()), models.ErrStoreUnavailable)
}
