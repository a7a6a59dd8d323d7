package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nonsonwune/applicant_registry/models"
)

// SQLStore implements Store over database/sql. It expects the schema created
// by migrations.InitSchema.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the database and verifies the connection.
// SQLite connections always enforce foreign keys so deletes cascade.
func Open(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	if dialect == SQLite {
		dsn = sqliteDSN(dsn)
	}
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %v", dialect.Name(), models.ErrStoreUnavailable, err)
	}
	if dialect == SQLite {
		// A single connection keeps an in-memory database alive and serializes writers.
		db.SetMaxOpenConns(1)
	}
	s := NewSQLStore(db, dialect)
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// sqliteDSN adds _foreign_keys=on unless the DSN already sets it.
func sqliteDSN(dsn string) string {
	_, query, _ := strings.Cut(dsn, "?")
	for _, opt := range strings.Split(query, "&") {
		name, _, _ := strings.Cut(opt, "=")
		if name == "_foreign_keys" || name == "_fk" {
			return dsn
		}
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

// NewSQLStore wraps an already opened handle.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// DB exposes the handle for schema management.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Dialect returns the engine dialect of the store.
func (s *SQLStore) Dialect() Dialect { return s.dialect }

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w: %v", s.dialect.Name(), models.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w: %v", models.ErrStoreUnavailable, err)
	}
	return &sqlTx{tx: tx, d: s.dialect}, nil
}

// SyncSequences moves every counter to the current maximum id of its table.
// It is a no-op for dialects whose counters roll back with the transaction.
func (s *SQLStore) SyncSequences(ctx context.Context) error {
	if s.dialect.TransactionalSequences() {
		return nil
	}
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, kind := range Kinds {
		if !kind.HasSequence() {
			continue
		}
		last, err := tx.MaxID(ctx, kind)
		if err != nil {
			return err
		}
		if err := tx.Reseed(ctx, kind, last); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type sqlTx struct {
	tx *sql.Tx
	d  Dialect
}

func (t *sqlTx) Commit() error   { return t.tx.Commit() }
func (t *sqlTx) Rollback() error { return t.tx.Rollback() }

// classify maps driver constraint errors onto the shared error taxonomy.
func (t *sqlTx) classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrTxDone):
		return err
	case t.d.IsDuplicateKey(err):
		return fmt.Errorf("%s: %w: %v", op, models.ErrDuplicateKey, err)
	case t.d.IsForeignKeyViolation(err) && isDelete(op):
		return fmt.Errorf("%s: %w: %v", op, models.ErrStillReferenced, err)
	case t.d.IsForeignKeyViolation(err):
		return fmt.Errorf("%s: %w: %v", op, models.ErrReferentialAnomaly, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isDelete(op string) bool {
	return len(op) >= 6 && op[:6] == "delete"
}

func (t *sqlTx) exec(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	res, err := t.tx.ExecContext(ctx, t.d.Rebind(query), args...)
	if err != nil {
		return nil, t.classify(op, err)
	}
	return res, nil
}

func (t *sqlTx) query(ctx context.Context, op, query string, args ...any) (*sql.Rows, error) {
	rows, err := t.tx.QueryContext(ctx, t.d.Rebind(query), args...)
	if err != nil {
		return nil, t.classify(op, err)
	}
	return rows, nil
}

// insert runs an INSERT ... RETURNING id, with or without an explicit id.
func (t *sqlTx) insert(ctx context.Context, kind Kind, id int64, cols string, placeholders string, args ...any) (int64, error) {
	var query string
	if id != 0 {
		query = fmt.Sprintf(`INSERT INTO %s (id, %s) VALUES ($%d, %s) RETURNING id`,
			kind, cols, len(args)+1, placeholders)
		args = append(args, id)
	} else {
		query = fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING id`, kind, cols, placeholders)
	}
	var newID int64
	if err := t.tx.QueryRowContext(ctx, t.d.Rebind(query), args...).Scan(&newID); err != nil {
		return 0, t.classify("insert "+string(kind), err)
	}
	return newID, nil
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

const snapshotQuery = `
SELECT a.id, a.last_name, a.first_name, a.patronymic, a.phone, a.vk,
       a.city_id, a.institution_id, a.parent_id,
       c.id, c.name, c.region_id, r.id, r.name,
       i.id, i.name, i.city_id,
       p.id, p.name, p.phone, p.relation,
       d.id, d.code, d.base_rating, d.has_original, d.submission_date, d.benefit_id,
       b.id, b.name, b.bonus_points,
       x.id, x.department_visit, x.notes, x.source_id, x.dormitory_needed,
       s.id, s.name
FROM applicant a
LEFT JOIN city c ON c.id = a.city_id
LEFT JOIN region r ON r.id = c.region_id
LEFT JOIN institution i ON i.id = a.institution_id
LEFT JOIN parent p ON p.id = a.parent_id
LEFT JOIN application_details d ON d.applicant_id = a.id
LEFT JOIN benefit b ON b.id = d.benefit_id
LEFT JOIN additional_info x ON x.applicant_id = a.id
LEFT JOIN information_source s ON s.id = x.source_id
ORDER BY a.id`

func (t *sqlTx) Snapshot(ctx context.Context) ([]models.Applicant, error) {
	links, err := t.BenefitLinks(ctx)
	if err != nil {
		return nil, err
	}
	byApplicant := map[int64][]int64{}
	for _, l := range links {
		byApplicant[l.ApplicantID] = append(byApplicant[l.ApplicantID], l.BenefitID)
	}

	rows, err := t.query(ctx, "snapshot", snapshotQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Applicant
	for rows.Next() {
		var (
			a                                 models.Applicant
			cityID, cityRegion, regionID      sql.NullInt64
			cityName, regionName              sql.NullString
			instID, instCity                  sql.NullInt64
			instName                          sql.NullString
			parentID                          sql.NullInt64
			parentName, parentPhone, relation sql.NullString
			detailsID                         sql.NullInt64
			code                              sql.NullString
			baseRating                        sql.NullFloat64
			hasOriginal                       sql.NullBool
			benefitID                         sql.NullInt64
			benefitName                       sql.NullString
			bonus                             sql.NullInt64
			infoID                            sql.NullInt64
			dormitory                         sql.NullBool
			sourceID                          sql.NullInt64
			sourceName                        sql.NullString
		)
		err := rows.Scan(
			&a.ID, &a.LastName, &a.FirstName, &a.Patronymic, &a.Phone, &a.VK,
			&a.CityID, &a.InstitutionID, &a.ParentID,
			&cityID, &cityName, &cityRegion, &regionID, &regionName,
			&instID, &instName, &instCity,
			&parentID, &parentName, &parentPhone, &relation,
			&detailsID, &code, &baseRating, &hasOriginal, &a.Details.SubmissionDate, &a.Details.BenefitID,
			&benefitID, &benefitName, &bonus,
			&infoID, &a.Info.DepartmentVisit, &a.Info.Notes, &a.Info.SourceID, &dormitory,
			&sourceID, &sourceName,
		)
		if err != nil {
			return nil, fmt.Errorf("snapshot: scan applicant: %w", err)
		}

		if detailsID.Valid {
			a.Details.ID = detailsID.Int64
			a.Details.ApplicantID = a.ID
			a.Details.Code = code.String
			a.Details.BaseRating = baseRating.Float64
			a.Details.HasOriginal = hasOriginal.Bool
		}
		if infoID.Valid {
			a.Info.ID = infoID.Int64
			a.Info.ApplicantID = a.ID
			a.Info.DormitoryNeeded = dormitory.Bool
		}
		if cityID.Valid {
			a.City = &models.City{ID: cityID.Int64, Name: cityName.String, RegionID: cityRegion.Int64}
		}
		if regionID.Valid {
			a.Region = &models.Region{ID: regionID.Int64, Name: regionName.String}
		}
		if instID.Valid {
			a.Institution = &models.Institution{ID: instID.Int64, Name: instName.String, CityID: instCity.Int64}
		}
		if parentID.Valid {
			a.Parent = &models.Parent{ID: parentID.Int64, Name: parentName.String, Phone: parentPhone.String, Relation: relation.String}
		}
		if benefitID.Valid {
			a.Benefit = &models.Benefit{ID: benefitID.Int64, Name: benefitName.String, BonusPoints: int(bonus.Int64)}
		}
		if sourceID.Valid {
			a.Source = &models.InformationSource{ID: sourceID.Int64, Name: sourceName.String}
		}
		a.BenefitIDs = byApplicant[a.ID]
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return out, nil
}

func (t *sqlTx) BenefitLinks(ctx context.Context) ([]models.BenefitLink, error) {
	rows, err := t.query(ctx, "list applicant_benefit",
		`SELECT applicant_id, benefit_id FROM applicant_benefit ORDER BY applicant_id, benefit_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.BenefitLink
	for rows.Next() {
		var l models.BenefitLink
		if err := rows.Scan(&l.ApplicantID, &l.BenefitID); err != nil {
			return nil, fmt.Errorf("scan applicant_benefit: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// list runs a SELECT ordered by id and scans each row with scan.
func list[T any](ctx context.Context, t *sqlTx, kind Kind, cols string, scan func(*sql.Rows, *T) error) ([]T, error) {
	rows, err := t.query(ctx, "list "+string(kind), fmt.Sprintf(`SELECT %s FROM %s ORDER BY id`, cols, kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		var v T
		if err := scan(rows, &v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (t *sqlTx) Regions(ctx context.Context) ([]models.Region, error) {
	return list(ctx, t, KindRegion, "id, name", func(r *sql.Rows, v *models.Region) error {
		return r.Scan(&v.ID, &v.Name)
	})
}

func (t *sqlTx) Cities(ctx context.Context) ([]models.City, error) {
	return list(ctx, t, KindCity, "id, name, region_id", func(r *sql.Rows, v *models.City) error {
		return r.Scan(&v.ID, &v.Name, &v.RegionID)
	})
}

func (t *sqlTx) Institutions(ctx context.Context) ([]models.Institution, error) {
	return list(ctx, t, KindInstitution, "id, name, city_id", func(r *sql.Rows, v *models.Institution) error {
		var city sql.NullInt64
		if err := r.Scan(&v.ID, &v.Name, &city); err != nil {
			return err
		}
		v.CityID = city.Int64
		return nil
	})
}

func (t *sqlTx) Parents(ctx context.Context) ([]models.Parent, error) {
	return list(ctx, t, KindParent, "id, name, phone, relation", func(r *sql.Rows, v *models.Parent) error {
		return r.Scan(&v.ID, &v.Name, &v.Phone, &v.Relation)
	})
}

func (t *sqlTx) Benefits(ctx context.Context) ([]models.Benefit, error) {
	return list(ctx, t, KindBenefit, "id, name, bonus_points", func(r *sql.Rows, v *models.Benefit) error {
		return r.Scan(&v.ID, &v.Name, &v.BonusPoints)
	})
}

func (t *sqlTx) InformationSources(ctx context.Context) ([]models.InformationSource, error) {
	return list(ctx, t, KindInformationSource, "id, name", func(r *sql.Rows, v *models.InformationSource) error {
		return r.Scan(&v.ID, &v.Name)
	})
}

func (t *sqlTx) Count(ctx context.Context, kind Kind) (int, error) {
	if err := checkKind(kind); err != nil {
		return 0, err
	}
	var n int
	err := t.tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, kind)).Scan(&n)
	if err != nil {
		return 0, t.classify("count "+string(kind), err)
	}
	return n, nil
}

func (t *sqlTx) MaxID(ctx context.Context, kind Kind) (int64, error) {
	if !kind.HasSequence() {
		return 0, fmt.Errorf("max id of %q: %w", kind, models.ErrInvalidArgument)
	}
	var id int64
	err := t.tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT COALESCE(MAX(id), 0) FROM %s`, kind)).Scan(&id)
	if err != nil {
		return 0, t.classify("max id "+string(kind), err)
	}
	return id, nil
}

func (t *sqlTx) FindID(ctx context.Context, kind Kind, key models.NaturalKey) (int64, bool, error) {
	var (
		where string
		args  []any
	)
	switch kind {
	case KindRegion, KindBenefit, KindInformationSource:
		where, args = `TRIM(name) = $1`, []any{key.Name}
	case KindCity:
		where, args = `TRIM(name) = $1 AND region_id = $2`, []any{key.Name, key.Scope}
	case KindInstitution:
		if key.Scope == 0 {
			where, args = `TRIM(name) = $1 AND city_id IS NULL`, []any{key.Name}
		} else {
			where, args = `TRIM(name) = $1 AND city_id = $2`, []any{key.Name, key.Scope}
		}
	case KindParent:
		where, args = `TRIM(name) = $1 AND TRIM(phone) = $2`, []any{key.Name, key.Phone}
	default:
		return 0, false, fmt.Errorf("find %q by natural key: %w", kind, models.ErrInvalidArgument)
	}
	query := fmt.Sprintf(`SELECT id FROM %s WHERE %s ORDER BY id LIMIT 1`, kind, where)
	var id int64
	err := t.tx.QueryRowContext(ctx, t.d.Rebind(query), args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, t.classify("find "+string(kind), err)
	}
	return id, true, nil
}

func (t *sqlTx) DeleteAll(ctx context.Context, kind Kind) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	_, err := t.exec(ctx, "delete all "+string(kind), fmt.Sprintf(`DELETE FROM %s`, kind))
	return err
}

func (t *sqlTx) DeleteByID(ctx context.Context, kind Kind, id int64) error {
	if !kind.HasSequence() {
		return fmt.Errorf("delete %q by id: %w", kind, models.ErrInvalidArgument)
	}
	res, err := t.exec(ctx, "delete "+string(kind), fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, kind), id)
	if err != nil {
		return err
	}
	return expectOne(res, kind, id)
}

func expectOne(res sql.Result, kind Kind, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, models.ErrNotFound)
	}
	return nil
}

func (t *sqlTx) Reseed(ctx context.Context, kind Kind, last int64) error {
	if !kind.HasSequence() {
		return fmt.Errorf("reseed %q: %w", kind, models.ErrInvalidArgument)
	}
	if last < 0 {
		return fmt.Errorf("reseed %s to %d: %w", kind, last, models.ErrInvalidArgument)
	}
	return t.d.Reseed(ctx, t.tx, string(kind), last)
}

func (t *sqlTx) InsertRegion(ctx context.Context, r *models.Region) error {
	id, err := t.insert(ctx, KindRegion, r.ID, "name", "$1", r.Name)
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

func (t *sqlTx) InsertCity(ctx context.Context, c *models.City) error {
	id, err := t.insert(ctx, KindCity, c.ID, "name, region_id", "$1, $2", c.Name, c.RegionID)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (t *sqlTx) InsertInstitution(ctx context.Context, i *models.Institution) error {
	id, err := t.insert(ctx, KindInstitution, i.ID, "name, city_id", "$1, $2", i.Name, nullID(i.CityID))
	if err != nil {
		return err
	}
	i.ID = id
	return nil
}

func (t *sqlTx) InsertParent(ctx context.Context, p *models.Parent) error {
	id, err := t.insert(ctx, KindParent, p.ID, "name, phone, relation", "$1, $2, $3", p.Name, p.Phone, p.Relation)
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (t *sqlTx) InsertBenefit(ctx context.Context, b *models.Benefit) error {
	id, err := t.insert(ctx, KindBenefit, b.ID, "name, bonus_points", "$1, $2", b.Name, b.BonusPoints)
	if err != nil {
		return err
	}
	b.ID = id
	return nil
}

func (t *sqlTx) InsertInformationSource(ctx context.Context, s *models.InformationSource) error {
	id, err := t.insert(ctx, KindInformationSource, s.ID, "name", "$1", s.Name)
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

func (t *sqlTx) InsertApplicant(ctx context.Context, a *models.Applicant) error {
	id, err := t.insert(ctx, KindApplicant, a.ID,
		"last_name, first_name, patronymic, phone, vk, city_id, institution_id, parent_id",
		"$1, $2, $3, $4, $5, $6, $7, $8",
		a.LastName, a.FirstName, a.Patronymic, a.Phone, a.VK, a.CityID, a.InstitutionID, a.ParentID)
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

func (t *sqlTx) InsertApplicationDetails(ctx context.Context, d *models.ApplicationDetails) error {
	id, err := t.insert(ctx, KindApplicationDetails, d.ID,
		"applicant_id, code, base_rating, has_original, submission_date, benefit_id",
		"$1, $2, $3, $4, $5, $6",
		d.ApplicantID, d.Code, d.BaseRating, d.HasOriginal, d.SubmissionDate, d.BenefitID)
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}

func (t *sqlTx) InsertAdditionalInfo(ctx context.Context, i *models.AdditionalInfo) error {
	id, err := t.insert(ctx, KindAdditionalInfo, i.ID,
		"applicant_id, department_visit, notes, source_id, dormitory_needed",
		"$1, $2, $3, $4, $5",
		i.ApplicantID, i.DepartmentVisit, i.Notes, i.SourceID, i.DormitoryNeeded)
	if err != nil {
		return err
	}
	i.ID = id
	return nil
}

func (t *sqlTx) InsertBenefitLink(ctx context.Context, l models.BenefitLink) error {
	_, err := t.exec(ctx, "insert applicant_benefit",
		`INSERT INTO applicant_benefit (applicant_id, benefit_id) VALUES ($1, $2)`, l.ApplicantID, l.BenefitID)
	return err
}

func (t *sqlTx) UpdateApplicant(ctx context.Context, a *models.Applicant) error {
	res, err := t.exec(ctx, "update applicant",
		`UPDATE applicant SET last_name = $1, first_name = $2, patronymic = $3, phone = $4, vk = $5,
		        city_id = $6, institution_id = $7, parent_id = $8
		 WHERE id = $9`,
		a.LastName, a.FirstName, a.Patronymic, a.Phone, a.VK, a.CityID, a.InstitutionID, a.ParentID, a.ID)
	if err != nil {
		return err
	}
	if err := expectOne(res, KindApplicant, a.ID); err != nil {
		return err
	}

	d := a.Details
	d.ApplicantID = a.ID
	res, err = t.exec(ctx, "update application_details",
		`UPDATE application_details SET code = $1, base_rating = $2, has_original = $3,
		        submission_date = $4, benefit_id = $5
		 WHERE applicant_id = $6`,
		d.Code, d.BaseRating, d.HasOriginal, d.SubmissionDate, d.BenefitID, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		d.ID = 0
		if err := t.InsertApplicationDetails(ctx, &d); err != nil {
			return err
		}
	}

	info := a.Info
	info.ApplicantID = a.ID
	res, err = t.exec(ctx, "update additional_info",
		`UPDATE additional_info SET department_visit = $1, notes = $2, source_id = $3, dormitory_needed = $4
		 WHERE applicant_id = $5`,
		info.DepartmentVisit, info.Notes, info.SourceID, info.DormitoryNeeded, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		info.ID = 0
		if err := t.InsertAdditionalInfo(ctx, &info); err != nil {
			return err
		}
	}
	return nil
}

func (t *sqlTx) UpdateParent(ctx context.Context, p *models.Parent) error {
	res, err := t.exec(ctx, "update parent",
		`UPDATE parent SET name = $1, phone = $2, relation = $3 WHERE id = $4`,
		p.Name, p.Phone, p.Relation, p.ID)
	if err != nil {
		return err
	}
	return expectOne(res, KindParent, p.ID)
}

func (t *sqlTx) UpdateBenefitPoints(ctx context.Context, benefitID int64, points int) error {
	res, err := t.exec(ctx, "update benefit",
		`UPDATE benefit SET bonus_points = $1 WHERE id = $2`, points, benefitID)
	if err != nil {
		return err
	}
	return expectOne(res, KindBenefit, benefitID)
}

func (t *sqlTx) ReplaceBenefitLinks(ctx context.Context, applicantID int64, benefitIDs []int64) error {
	if _, err := t.exec(ctx, "delete applicant_benefit",
		`DELETE FROM applicant_benefit WHERE applicant_id = $1`, applicantID); err != nil {
		return err
	}
	for _, id := range benefitIDs {
		if err := t.InsertBenefitLink(ctx, models.BenefitLink{ApplicantID: applicantID, BenefitID: id}); err != nil {
			return err
		}
	}
	return nil
}
