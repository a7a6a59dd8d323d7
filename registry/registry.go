// Package registry holds the in-memory applicant list and serializes every
// operation that reads or rewrites it. Deletions trigger a compaction and the
// list is only replaced after the store committed.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nonsonwune/applicant_registry/compactor"
	"github.com/nonsonwune/applicant_registry/models"
	"github.com/nonsonwune/applicant_registry/ranking"
	"github.com/nonsonwune/applicant_registry/store"
)

// ApplicantInput is the data entered for one applicant. Empty strings and
// zero times mean the field was left blank.
type ApplicantInput struct {
	LastName   string
	FirstName  string
	Patronymic string
	Phone      string
	VK         string

	Region      string
	City        string
	Institution string

	ParentName     string
	ParentPhone    string
	ParentRelation string

	Code           string
	BaseRating     float64
	HasOriginal    bool
	SubmissionDate time.Time
	Benefit        string
	// BenefitPoints is used only when Benefit names a benefit missing from
	// the catalog.
	BenefitPoints int

	DepartmentVisit time.Time
	Notes           string
	Source          string
	DormitoryNeeded bool
}

// Ranked pairs an applicant with its classification.
type Ranked struct {
	Applicant models.Applicant
	Result    ranking.ClassificationResult
}

// Registry is the applicant list loaded from a store.
type Registry struct {
	mu         sync.Mutex
	store      store.Store
	compactor  *compactor.Compactor
	logger     *slog.Logger
	applicants []models.Applicant
}

// New returns an empty registry. Call Reload to fill it.
func New(st store.Store, c *compactor.Compactor, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = compactor.New(compactor.Options{}, logger, nil)
	}
	return &Registry{store: st, compactor: c, logger: logger}
}

// Reload replaces the list with a fresh snapshot of the store.
func (r *Registry) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reload(ctx)
}

func (r *Registry) reload(ctx context.Context) error {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	applicants, err := tx.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("load applicants: %w", err)
	}
	r.applicants = applicants
	r.logger.Debug("registry reloaded", "applicants", len(applicants))
	return nil
}

// Applicants returns a copy of the list ordered by id.
func (r *Registry) Applicants() []models.Applicant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Applicant(nil), r.applicants...)
}

// Len is the number of loaded applicants.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.applicants)
}

// Get returns the loaded applicant with the given id.
func (r *Registry) Get(id int64) (models.Applicant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.find(id)
	if !ok {
		return models.Applicant{}, fmt.Errorf("applicant %d: %w", id, models.ErrNotFound)
	}
	return *a, nil
}

func (r *Registry) find(id int64) (*models.Applicant, bool) {
	for i := range r.applicants {
		if r.applicants[i].ID == id {
			return &r.applicants[i], true
		}
	}
	return nil, false
}

// Search returns applicants whose name or phone contains query, ignoring case.
func (r *Registry) Search(query string) []models.Applicant {
	q := strings.ToLower(strings.TrimSpace(query))
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Applicant
	for _, a := range r.applicants {
		if q == "" || strings.Contains(strings.ToLower(a.FullName()), q) || strings.Contains(a.Phone, q) {
			out = append(out, a)
		}
	}
	return out
}

// Add writes a new applicant and reloads the list. It returns the id the
// store assigned.
func (r *Registry) Add(ctx context.Context, in ApplicantInput) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := in.applicant()
	if err := a.Validate(); err != nil {
		return 0, err
	}

	tx, err := r.store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if err := resolveReferences(ctx, tx, in, &a); err != nil {
		return 0, err
	}
	if in.ParentName != "" {
		p := in.parent()
		if err := tx.InsertParent(ctx, &p); err != nil {
			return 0, fmt.Errorf("insert parent: %w", err)
		}
		a.ParentID = nullID(p.ID)
	}
	if err := tx.InsertApplicant(ctx, &a); err != nil {
		return 0, fmt.Errorf("insert applicant: %w", err)
	}
	a.Details.ApplicantID, a.Info.ApplicantID = a.ID, a.ID
	if err := tx.InsertApplicationDetails(ctx, &a.Details); err != nil {
		return 0, fmt.Errorf("insert application details: %w", err)
	}
	if err := tx.InsertAdditionalInfo(ctx, &a.Info); err != nil {
		return 0, fmt.Errorf("insert additional info: %w", err)
	}
	if a.Details.BenefitID.Valid {
		link := models.BenefitLink{ApplicantID: a.ID, BenefitID: a.Details.BenefitID.Int64}
		if err := tx.InsertBenefitLink(ctx, link); err != nil {
			return 0, fmt.Errorf("insert benefit link: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	r.logger.Info("applicant added", "id", a.ID, "name", a.FullName())
	return a.ID, r.reload(ctx)
}

// Update rewrites the applicant with the given id. An existing parent row is
// updated in place.
func (r *Registry) Update(ctx context.Context, id int64, in ApplicantInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.find(id)
	if !ok {
		return fmt.Errorf("applicant %d: %w", id, models.ErrNotFound)
	}
	a := in.applicant()
	a.ID = id
	if err := a.Validate(); err != nil {
		return err
	}

	tx, err := r.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := resolveReferences(ctx, tx, in, &a); err != nil {
		return err
	}
	if in.ParentName != "" {
		p := in.parent()
		if current.ParentID.Valid {
			p.ID = current.ParentID.Int64
			err = tx.UpdateParent(ctx, &p)
		} else {
			err = tx.InsertParent(ctx, &p)
		}
		if err != nil {
			return fmt.Errorf("write parent: %w", err)
		}
		a.ParentID = nullID(p.ID)
	}
	a.Details.ApplicantID, a.Info.ApplicantID = id, id
	if err := tx.UpdateApplicant(ctx, &a); err != nil {
		return fmt.Errorf("update applicant %d: %w", id, err)
	}
	var links []int64
	if a.Details.BenefitID.Valid {
		links = []int64{a.Details.BenefitID.Int64}
	}
	if err := tx.ReplaceBenefitLinks(ctx, id, links); err != nil {
		return fmt.Errorf("replace benefit links: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	r.logger.Info("applicant updated", "id", id, "name", a.FullName())
	return r.reload(ctx)
}

// Delete removes one applicant, compacts the registry and reloads the list.
// When the compaction fails the deletion stays committed, the list is left
// as it was and the compaction error is returned.
func (r *Registry) Delete(ctx context.Context, id int64) (*compactor.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	if err := tx.DeleteByID(ctx, store.KindApplicant, id); err != nil {
		return nil, fmt.Errorf("delete applicant %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	r.logger.Info("applicant deleted", "id", id)

	return r.compact(ctx)
}

// Compact runs a compaction on demand and reloads the list.
func (r *Registry) Compact(ctx context.Context) (*compactor.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.compact(ctx)
}

func (r *Registry) compact(ctx context.Context) (*compactor.Report, error) {
	report, err := r.compactor.Compact(ctx, r.store)
	if err != nil {
		return nil, err
	}
	if err := r.reload(ctx); err != nil {
		return report, err
	}
	return report, nil
}

// Classify ranks a sorted copy of the list.
func (r *Registry) Classify(passingScore float64, budgetPlaces int) ([]Ranked, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sorted := append([]models.Applicant(nil), r.applicants...)
	ranking.SortForRanking(sorted)
	results, err := ranking.Classify(sorted, passingScore, budgetPlaces)
	if err != nil {
		return nil, err
	}
	out := make([]Ranked, len(results))
	for i, res := range results {
		out[i] = Ranked{Applicant: sorted[i], Result: res}
	}
	return out, nil
}

// SetBenefitPoints changes the bonus points of a catalog benefit. Every
// applicant holding it sees the new total after the reload.
func (r *Registry) SetBenefitPoints(ctx context.Context, name string, points int) error {
	if points < 0 {
		return fmt.Errorf("bonus points %d are negative: %w", points, models.ErrInvalidArgument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	id, ok, err := tx.FindID(ctx, store.KindBenefit, models.NaturalKey{Name: strings.TrimSpace(name)})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("benefit %q: %w", name, models.ErrNotFound)
	}
	if err := tx.UpdateBenefitPoints(ctx, id, points); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	r.logger.Info("benefit points changed", "benefit", name, "points", points)
	return r.reload(ctx)
}

// Benefits returns the benefit catalog.
func (r *Registry) Benefits(ctx context.Context) ([]models.Benefit, error) {
	var out []models.Benefit
	err := r.read(ctx, func(tx store.Tx) (err error) {
		out, err = tx.Benefits(ctx)
		return err
	})
	return out, err
}

// InformationSources returns the information source catalog.
func (r *Registry) InformationSources(ctx context.Context) ([]models.InformationSource, error) {
	var out []models.InformationSource
	err := r.read(ctx, func(tx store.Tx) (err error) {
		out, err = tx.InformationSources(ctx)
		return err
	})
	return out, err
}

func (r *Registry) read(ctx context.Context, fn func(store.Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, err := r.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return fn(tx)
}

func (in ApplicantInput) applicant() models.Applicant {
	return models.Applicant{
		LastName:   strings.TrimSpace(in.LastName),
		FirstName:  strings.TrimSpace(in.FirstName),
		Patronymic: nullString(in.Patronymic),
		Phone:      strings.TrimSpace(in.Phone),
		VK:         nullString(in.VK),
		Details: models.ApplicationDetails{
			Code:           strings.TrimSpace(in.Code),
			BaseRating:     in.BaseRating,
			HasOriginal:    in.HasOriginal,
			SubmissionDate: nullTime(in.SubmissionDate),
		},
		Info: models.AdditionalInfo{
			DepartmentVisit: nullTime(in.DepartmentVisit),
			Notes:           nullString(in.Notes),
			DormitoryNeeded: in.DormitoryNeeded,
		},
	}
}

func (in ApplicantInput) parent() models.Parent {
	relation := strings.TrimSpace(in.ParentRelation)
	if relation == "" {
		relation = models.DefaultRelation
	}
	return models.Parent{
		Name:     strings.TrimSpace(in.ParentName),
		Phone:    strings.TrimSpace(in.ParentPhone),
		Relation: relation,
	}
}

// resolveReferences looks up or creates the city, institution, benefit and
// source named by in and stores their ids in a.
func resolveReferences(ctx context.Context, tx store.Tx, in ApplicantInput, a *models.Applicant) error {
	var cityID int64
	if city := strings.TrimSpace(in.City); city != "" {
		region := strings.TrimSpace(in.Region)
		if region == "" {
			return fmt.Errorf("city %q has no region: %w", city, models.ErrInvalidArgument)
		}
		regionID, err := getOrCreate(ctx, tx, store.KindRegion, models.NaturalKey{Name: region}, func() (int64, error) {
			row := models.Region{Name: region}
			err := tx.InsertRegion(ctx, &row)
			return row.ID, err
		})
		if err != nil {
			return err
		}
		cityID, err = getOrCreate(ctx, tx, store.KindCity, models.NaturalKey{Name: city, Scope: regionID}, func() (int64, error) {
			row := models.City{Name: city, RegionID: regionID}
			err := tx.InsertCity(ctx, &row)
			return row.ID, err
		})
		if err != nil {
			return err
		}
		a.CityID = nullID(cityID)
	}

	if name := strings.TrimSpace(in.Institution); name != "" {
		id, err := getOrCreate(ctx, tx, store.KindInstitution, models.NaturalKey{Name: name, Scope: cityID}, func() (int64, error) {
			row := models.Institution{Name: name, CityID: cityID}
			err := tx.InsertInstitution(ctx, &row)
			return row.ID, err
		})
		if err != nil {
			return err
		}
		a.InstitutionID = nullID(id)
	}

	if name := strings.TrimSpace(in.Benefit); name != "" {
		if in.BenefitPoints < 0 {
			return fmt.Errorf("bonus points %d are negative: %w", in.BenefitPoints, models.ErrInvalidArgument)
		}
		id, err := getOrCreate(ctx, tx, store.KindBenefit, models.NaturalKey{Name: name}, func() (int64, error) {
			row := models.Benefit{Name: name, BonusPoints: in.BenefitPoints}
			err := tx.InsertBenefit(ctx, &row)
			return row.ID, err
		})
		if err != nil {
			return err
		}
		a.Details.BenefitID = nullID(id)
	}

	if name := strings.TrimSpace(in.Source); name != "" {
		id, err := getOrCreate(ctx, tx, store.KindInformationSource, models.NaturalKey{Name: name}, func() (int64, error) {
			row := models.InformationSource{Name: name}
			err := tx.InsertInformationSource(ctx, &row)
			return row.ID, err
		})
		if err != nil {
			return err
		}
		a.Info.SourceID = nullID(id)
	}
	return nil
}

func getOrCreate(ctx context.Context, tx store.Tx, kind store.Kind, key models.NaturalKey, create func() (int64, error)) (int64, error) {
	id, ok, err := tx.FindID(ctx, kind, key)
	if err != nil {
		return 0, fmt.Errorf("find %s %q: %w", kind, key.Name, err)
	}
	if ok {
		return id, nil
	}
	id, err = create()
	if err != nil {
		return 0, fmt.Errorf("create %s %q: %w", kind, key.Name, err)
	}
	return id, nil
}

func nullID(id int64) sql.NullInt64 { return sql.NullInt64{Int64: id, Valid: true} }

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
