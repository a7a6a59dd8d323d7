package store_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonsonwune/applicant_registry/models"
	"github.com/nonsonwune/applicant_registry/store"
)

type fixture struct {
	region, city, institution, parent int64
	medal, orphan, source             int64
	applicant                         int64
}

func str(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }
func ref(id int64) sql.NullInt64  { return sql.NullInt64{Int64: id, Valid: true} }

// insertFixture writes one applicant with every reference populated.
func insertFixture(t *testing.T, ctx context.Context, tx store.Tx) fixture {
	t.Helper()
	var f fixture

	r := models.Region{Name: "Ростовская область"}
	require.NoError(t, tx.InsertRegion(ctx, &r))
	c := models.City{Name: "Таганрог", RegionID: r.ID}
	require.NoError(t, tx.InsertCity(ctx, &c))
	i := models.Institution{Name: "Школа №5", CityID: c.ID}
	require.NoError(t, tx.InsertInstitution(ctx, &i))
	p := models.Parent{Name: "Иванова Мария", Phone: "+79490000001", Relation: "Мать"}
	require.NoError(t, tx.InsertParent(ctx, &p))
	medal := models.Benefit{Name: "Золотая медаль", BonusPoints: 10}
	require.NoError(t, tx.InsertBenefit(ctx, &medal))
	orphan := models.Benefit{Name: "Сирота", BonusPoints: 10}
	require.NoError(t, tx.InsertBenefit(ctx, &orphan))
	s := models.InformationSource{Name: "Социальные сети"}
	require.NoError(t, tx.InsertInformationSource(ctx, &s))

	a := models.Applicant{
		LastName:      "Иванов",
		FirstName:     "Пётр",
		Patronymic:    str("Сергеевич"),
		Phone:         "+79490000002",
		CityID:        ref(c.ID),
		InstitutionID: ref(i.ID),
		ParentID:      ref(p.ID),
	}
	require.NoError(t, tx.InsertApplicant(ctx, &a))
	d := models.ApplicationDetails{
		ApplicantID:    a.ID,
		Code:           "09.02.07",
		BaseRating:     4.5,
		HasOriginal:    true,
		SubmissionDate: sql.NullTime{Time: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), Valid: true},
		BenefitID:      ref(medal.ID),
	}
	require.NoError(t, tx.InsertApplicationDetails(ctx, &d))
	info := models.AdditionalInfo{ApplicantID: a.ID, SourceID: ref(s.ID), DormitoryNeeded: true, Notes: str("общежитие")}
	require.NoError(t, tx.InsertAdditionalInfo(ctx, &info))
	require.NoError(t, tx.InsertBenefitLink(ctx, models.BenefitLink{ApplicantID: a.ID, BenefitID: medal.ID}))
	require.NoError(t, tx.InsertBenefitLink(ctx, models.BenefitLink{ApplicantID: a.ID, BenefitID: orphan.ID}))

	f.region, f.city, f.institution, f.parent = r.ID, c.ID, i.ID, p.ID
	f.medal, f.orphan, f.source = medal.ID, orphan.ID, s.ID
	f.applicant = a.ID
	return f
}

// runContract exercises the behaviour every Store implementation must share.
func runContract(t *testing.T, open func(t *testing.T) store.Store) {
	ctx := context.Background()

	t.Run("snapshot resolves references", func(t *testing.T) {
		st := open(t)
		tx, err := st.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback()
		f := insertFixture(t, ctx, tx)

		snap, err := tx.Snapshot(ctx)
		require.NoError(t, err)
		require.Len(t, snap, 1)
		a := snap[0]
		assert.Equal(t, f.applicant, a.ID)
		assert.Equal(t, "Иванов Пётр Сергеевич", a.FullName())
		require.NotNil(t, a.City)
		assert.Equal(t, "Таганрог", a.City.Name)
		require.NotNil(t, a.Region)
		assert.Equal(t, "Ростовская область", a.Region.Name)
		require.NotNil(t, a.Institution)
		assert.Equal(t, f.city, a.Institution.CityID)
		require.NotNil(t, a.Parent)
		assert.Equal(t, "Мать", a.Parent.Relation)
		require.NotNil(t, a.Benefit)
		assert.InDelta(t, 14.5, a.TotalRating(), 1e-9)
		require.NotNil(t, a.Source)
		assert.Equal(t, "Социальные сети", a.SourceName())
		assert.True(t, a.Details.HasOriginal)
		assert.Equal(t, "09.02.07", a.Details.Code)
		assert.True(t, a.Details.SubmissionDate.Valid)
		assert.True(t, a.Details.SubmissionDate.Time.Equal(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)))
		assert.True(t, a.Info.DormitoryNeeded)
		assert.Equal(t, []int64{f.medal, f.orphan}, a.BenefitIDs)
	})

	t.Run("commit persists and rollback discards", func(t *testing.T) {
		st := open(t)
		tx, err := st.Begin(ctx)
		require.NoError(t, err)
		insertFixture(t, ctx, tx)
		require.NoError(t, tx.Commit())
		assert.ErrorIs(t, tx.Rollback(), store.ErrTxDone)

		tx, err = st.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.DeleteByID(ctx, store.KindApplicant, 1))
		require.NoError(t, tx.Rollback())

		tx, err = st.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback()
		n, err := tx.Count(ctx, store.KindApplicant)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("reseed sets the next id", func(t *testing.T) {
		st := open(t)
		tx, err := st.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback()

		require.NoError(t, tx.Reseed(ctx, store.KindParent, 0))
		p := models.Parent{Name: "А", Phone: "1", Relation: models.DefaultRelation}
		require.NoError(t, tx.InsertParent(ctx, &p))
		assert.Equal(t, int64(1), p.ID)

		explicit := models.Parent{ID: 7, Name: "Б", Phone: "2", Relation: models.DefaultRelation}
		require.NoError(t, tx.InsertParent(ctx, &explicit))
		assert.Equal(t, int64(7), explicit.ID)

		require.NoError(t, tx.Reseed(ctx, store.KindParent, 7))
		next := models.Parent{Name: "В", Phone: "3", Relation: models.DefaultRelation}
		require.NoError(t, tx.InsertParent(ctx, &next))
		assert.Equal(t, int64(8), next.ID)

		maxID, err := tx.MaxID(ctx, store.KindParent)
		require.NoError(t, err)
		assert.Equal(t, int64(8), maxID)
	})

	t.Run("duplicate primary key", func(t *testing.T) {
		st := open(t)
		tx, err := st.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback()

		r := models.Region{ID: 3, Name: "Запорожская область"}
		require.NoError(t, tx.InsertRegion(ctx, &r))
		again := models.Region{ID: 3, Name: "Херсонская область"}
		assert.ErrorIs(t, tx.InsertRegion(ctx, &again), models.ErrDuplicateKey)
	})

	t.Run("missing reference on insert", func(t *testing.T) {
		st := open(t)
		tx, err := st.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback()

		c := models.City{Name: "Донецк", RegionID: 99}
		assert.ErrorIs(t, tx.InsertCity(ctx, &c), models.ErrReferentialAnomaly)
	})

	t.Run("delete all restricts referenced rows", func(t *testing.T) {
		st := open(t)
		tx, err := st.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback()
		insertFixture(t, ctx, tx)

		assert.ErrorIs(t, tx.DeleteAll(ctx, store.KindParent), models.ErrStillReferenced)
	})

	t.Run("wipe in dependency order", func(t *testing.T) {
		st := open(t)
		tx, err := st.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback()
		insertFixture(t, ctx, tx)

		for i := len(store.Kinds) - 1; i >= 0; i-- {
			require.NoError(t, tx.DeleteAll(ctx, store.Kinds[i]), "kind %s", store.Kinds[i])
		}
		for _, k := range store.Kinds {
			n, err := tx.Count(ctx, k)
			require.NoError(t, err)
			assert.Zero(t, n, "kind %s", k)
		}
	})

	t.Run("deleting an applicant cascades", func(t *testing.T) {
		st := open(t)
		tx, err := st.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback()
		f := insertFixture(t, ctx, tx)

		require.NoError(t, tx.DeleteByID(ctx, store.KindApplicant, f.applicant))
		for _, k := range []store.Kind{store.KindApplicant, store.KindApplicationDetails, store.KindAdditionalInfo, store.KindApplicantBenefit} {
			n, err := tx.Count(ctx, k)
			require.NoError(t, err)
			assert.Zero(t, n, "kind %s", k)
		}
		n, err := tx.Count(ctx, store.KindParent)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		err = tx.DeleteByID(ctx, store.KindApplicant, f.applicant)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("find id returns the lowest duplicate", func(t *testing.T) {
		st := open(t)
		tx, err := st.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback()

		for _, name := range []string{"Другое", "Сайт учебного заведения", "Другое"} {
			s := models.InformationSource{Name: name}
			require.NoError(t, tx.InsertInformationSource(ctx, &s))
		}
		id, found, err := tx.FindID(ctx, store.KindInformationSource, models.NaturalKey{Name: "Другое"})
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, int64(1), id)

		_, found, err = tx.FindID(ctx, store.KindInformationSource, models.NaturalKey{Name: "СМИ"})
		require.NoError(t, err)
		assert.False(t, found)

		_, _, err = tx.FindID(ctx, store.KindApplicant, models.NaturalKey{Name: "x"})
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("updates", func(t *testing.T) {
		st := open(t)
		tx, err := st.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback()
		f := insertFixture(t, ctx, tx)

		snap, err := tx.Snapshot(ctx)
		require.NoError(t, err)
		a := snap[0]
		a.FirstName = "Павел"
		a.Details.BaseRating = 60
		a.Details.HasOriginal = false
		a.Details.BenefitID = sql.NullInt64{}
		a.Info.DormitoryNeeded = false
		require.NoError(t, tx.UpdateApplicant(ctx, &a))
		require.NoError(t, tx.UpdateBenefitPoints(ctx, f.orphan, 4))
		require.NoError(t, tx.ReplaceBenefitLinks(ctx, f.applicant, []int64{f.orphan}))
		p := models.Parent{ID: f.parent, Name: "Иванов Сергей", Phone: "+79490000003", Relation: "Отец"}
		require.NoError(t, tx.UpdateParent(ctx, &p))

		snap, err = tx.Snapshot(ctx)
		require.NoError(t, err)
		got := snap[0]
		assert.Equal(t, "Павел", got.FirstName)
		assert.InDelta(t, 60.0, got.TotalRating(), 1e-9)
		assert.False(t, got.Details.HasOriginal)
		assert.Nil(t, got.Benefit)
		assert.False(t, got.Info.DormitoryNeeded)
		assert.Equal(t, []int64{f.orphan}, got.BenefitIDs)
		assert.Equal(t, "Отец", got.Parent.Relation)

		benefits, err := tx.Benefits(ctx)
		require.NoError(t, err)
		require.Len(t, benefits, 2)
		assert.Equal(t, 4, benefits[1].BonusPoints)

		missing := models.Applicant{ID: 42, LastName: "x", FirstName: "y", Phone: "z"}
		assert.True(t, errors.Is(tx.UpdateApplicant(ctx, &missing), models.ErrNotFound))
		assert.ErrorIs(t, tx.UpdateBenefitPoints(ctx, 42, 1), models.ErrNotFound)
	})

	t.Run("unknown kind", func(t *testing.T) {
		st := open(t)
		tx, err := st.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback()

		_, err = tx.Count(ctx, store.Kind("students"))
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
		assert.ErrorIs(t, tx.Reseed(ctx, store.KindApplicantBenefit, 0), models.ErrInvalidArgument)
	})
}
