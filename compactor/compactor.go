// Package compactor renumbers the applicant registry so that applicant ids are
// dense and consecutive and reference rows are deduplicated, inside a single
// store transaction.
//
// A run snapshots every applicant with its references, wipes the applicant,
// detail, association, institution and parent tables, and rebuilds them in
// snapshot order. The catalog tables (benefit, information source) are either
// preserved with duplicates collapsed onto the lowest id, or rebuilt from the
// values still referenced. Regions and cities are never touched.
package compactor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nonsonwune/applicant_registry/models"
	"github.com/nonsonwune/applicant_registry/store"
)

// Step names reported in models.CompactionError.
const (
	StepSnapshot           = "snapshot"
	StepAssociations       = "associations"
	StepValidate           = "validate"
	StepWipe               = "wipe"
	StepReseed             = "reseed"
	StepDimensions         = "dimensions"
	StepApplicants         = "applicants"
	StepDetails            = "details"
	StepAssociationsInsert = "associations-insert"
	StepReseedFinal        = "reseed-final"
	StepCommit             = "commit"
)

// Options selects the catalog policy.
type Options struct {
	// RebuildCatalog wipes benefits and information sources and recreates
	// only the referenced ones with dense ids. When false they are preserved.
	RebuildCatalog bool
}

// Report summarizes a committed run. Counts are rows present after the run.
type Report struct {
	RunID              string
	Applicants         int
	Institutions       int
	Parents            int
	Benefits           int
	InformationSources int
	BenefitLinks       int
	DuplicatesMerged   int
	Duration           time.Duration
}

// Compactor runs compactions against a store.
type Compactor struct {
	opts    Options
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
	runID   func() string
}

// New returns a compactor. A nil logger uses slog.Default and nil metrics
// records nothing.
func New(opts Options, logger *slog.Logger, metrics *Metrics) *Compactor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compactor{
		opts:    opts,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
		runID:   uuid.NewString,
	}
}

// Options returns the catalog policy of the compactor.
func (c *Compactor) Options() Options { return c.opts }

// Compact rebuilds the registry. On failure the transaction is rolled back and
// the error is a *models.CompactionError naming the failing step. A store that
// cannot open a transaction yields models.ErrStoreUnavailable and nothing runs.
func (c *Compactor) Compact(ctx context.Context, st store.Store) (*Report, error) {
	runID := c.runID()
	log := c.logger.With("run_id", runID)
	start := c.now()

	tx, err := st.Begin(ctx)
	if err != nil {
		log.Error("compaction not started", "error", err)
		return nil, fmt.Errorf("compaction %s: %w", runID, err)
	}
	defer tx.Rollback()

	r := newRun(tx, c.opts, log)
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StepSnapshot, r.snapshot},
		{StepAssociations, r.associations},
		{StepValidate, r.validate},
		{StepWipe, r.wipe},
		{StepReseed, r.reseed},
		{StepDimensions, r.dimensions},
		{StepApplicants, r.reinsertApplicants},
		{StepDetails, r.reinsertDetails},
		{StepAssociationsInsert, r.reinsertAssociations},
		{StepReseedFinal, r.reseedFinal},
		{StepCommit, func(context.Context) error { return tx.Commit() }},
	}
	for _, s := range steps {
		log.Debug("compaction step", "step", s.name)
		if err := s.fn(ctx); err != nil {
			return nil, c.fail(ctx, st, tx, log, runID, s.name, start, err)
		}
	}

	report := r.report(runID, c.now().Sub(start))
	c.metrics.observeSuccess(report)
	log.Info("compaction committed",
		"applicants", report.Applicants,
		"institutions", report.Institutions,
		"parents", report.Parents,
		"benefits", report.Benefits,
		"information_sources", report.InformationSources,
		"benefit_links", report.BenefitLinks,
		"duplicates_merged", report.DuplicatesMerged,
		"duration", report.Duration,
	)
	return report, nil
}

func (c *Compactor) fail(ctx context.Context, st store.Store, tx store.Tx, log *slog.Logger,
	runID, step string, start time.Time, cause error) error {
	if err := tx.Rollback(); err != nil && !errors.Is(err, store.ErrTxDone) {
		log.Error("compaction rollback failed", "step", step, "error", err)
	}
	if syncer, ok := st.(store.SequenceSyncer); ok {
		if err := syncer.SyncSequences(ctx); err != nil {
			log.Error("sequence resync after rollback failed", "error", err)
		}
	}
	c.metrics.observeFailure(step, c.now().Sub(start).Seconds())
	log.Error("compaction rolled back", "step", step, "error", cause)
	return &models.CompactionError{RunID: runID, Step: step, Err: cause}
}

// run carries the state of one compaction between steps.
type run struct {
	tx  store.Tx
	opt Options
	log *slog.Logger

	applicants []models.Applicant
	links      []models.BenefitLink

	benefits map[int64]models.Benefit
	sources  map[int64]models.InformationSource

	// Preserve policy: old catalog id to surviving id, and rows to drop.
	benefitRemap      map[int64]int64
	sourceRemap       map[int64]int64
	redundantBenefits []int64
	redundantSources  []int64
	keptBenefits      int
	keptSources       int

	institutions   *Dedup[models.Institution]
	parents        *Dedup[models.Parent]
	benefitDedup   *Dedup[models.Benefit]
	sourceDedup    *Dedup[models.InformationSource]
	newApplicantID map[int64]int64

	detailsWritten int
	infoWritten    int
	linksWritten   int
}

func newRun(tx store.Tx, opt Options, log *slog.Logger) *run {
	return &run{
		tx:  tx,
		opt: opt,
		log: log,
		institutions: NewDedup(models.KeyOfInstitution, func(id int64, i models.Institution) models.Institution {
			return models.Institution{ID: id, Name: i.Name, CityID: i.CityID}
		}),
		parents: NewDedup(models.KeyOfParent, func(id int64, p models.Parent) models.Parent {
			return models.Parent{ID: id, Name: p.Name, Phone: p.Phone, Relation: p.Relation}
		}),
		benefitDedup: NewDedup(models.KeyOfBenefit, func(id int64, b models.Benefit) models.Benefit {
			return models.Benefit{ID: id, Name: b.Name, BonusPoints: b.BonusPoints}
		}),
		sourceDedup: NewDedup(models.KeyOfInformationSource, func(id int64, s models.InformationSource) models.InformationSource {
			return models.InformationSource{ID: id, Name: s.Name}
		}),
		newApplicantID: make(map[int64]int64),
	}
}

func (r *run) snapshot(ctx context.Context) error {
	applicants, err := r.tx.Snapshot(ctx)
	if err != nil {
		return err
	}
	r.applicants = applicants
	r.log.Debug("snapshot read", "applicants", len(applicants))
	return nil
}

func (r *run) associations(ctx context.Context) error {
	links, err := r.tx.BenefitLinks(ctx)
	if err != nil {
		return err
	}
	r.links = links
	return nil
}

// validate rejects snapshots with broken references and plans the catalog.
func (r *run) validate(ctx context.Context) error {
	benefits, err := r.tx.Benefits(ctx)
	if err != nil {
		return err
	}
	sources, err := r.tx.InformationSources(ctx)
	if err != nil {
		return err
	}
	cities, err := r.tx.Cities(ctx)
	if err != nil {
		return err
	}
	cityIDs := make(map[int64]bool, len(cities))
	for _, c := range cities {
		cityIDs[c.ID] = true
	}
	r.benefits = make(map[int64]models.Benefit, len(benefits))
	for _, b := range benefits {
		r.benefits[b.ID] = b
	}
	r.sources = make(map[int64]models.InformationSource, len(sources))
	for _, s := range sources {
		r.sources[s.ID] = s
	}

	present := make(map[int64]bool, len(r.applicants))
	for i := range r.applicants {
		a := &r.applicants[i]
		present[a.ID] = true
		if err := checkResolved(a, cityIDs); err != nil {
			return err
		}
	}
	for _, l := range r.links {
		if !present[l.ApplicantID] {
			return &models.AnomalyError{Kind: string(store.KindApplicant), ApplicantID: l.ApplicantID, RefID: l.ApplicantID}
		}
		if _, ok := r.benefits[l.BenefitID]; !ok {
			return &models.AnomalyError{Kind: string(store.KindBenefit), ApplicantID: l.ApplicantID, RefID: l.BenefitID}
		}
	}

	if !r.opt.RebuildCatalog {
		r.benefitRemap, r.redundantBenefits = collapse(benefits, func(b models.Benefit) (int64, models.NaturalKey) {
			return b.ID, models.KeyOfBenefit(b)
		})
		r.sourceRemap, r.redundantSources = collapse(sources, func(s models.InformationSource) (int64, models.NaturalKey) {
			return s.ID, models.KeyOfInformationSource(s)
		})
		r.keptBenefits = len(benefits) - len(r.redundantBenefits)
		r.keptSources = len(sources) - len(r.redundantSources)
	}
	return nil
}

func checkResolved(a *models.Applicant, cityIDs map[int64]bool) error {
	anomaly := func(kind store.Kind, ref int64) error {
		return &models.AnomalyError{Kind: string(kind), ApplicantID: a.ID, RefID: ref}
	}
	switch {
	case a.CityID.Valid && a.City == nil:
		return anomaly(store.KindCity, a.CityID.Int64)
	case a.City != nil && a.Region == nil:
		return anomaly(store.KindRegion, a.City.RegionID)
	case a.InstitutionID.Valid && a.Institution == nil:
		return anomaly(store.KindInstitution, a.InstitutionID.Int64)
	case a.Institution != nil && a.Institution.CityID != 0 && !cityIDs[a.Institution.CityID]:
		return anomaly(store.KindCity, a.Institution.CityID)
	case a.ParentID.Valid && a.Parent == nil:
		return anomaly(store.KindParent, a.ParentID.Int64)
	case a.Details.BenefitID.Valid && a.Benefit == nil:
		return anomaly(store.KindBenefit, a.Details.BenefitID.Int64)
	case a.Info.SourceID.Valid && a.Source == nil:
		return anomaly(store.KindInformationSource, a.Info.SourceID.Int64)
	}
	return nil
}

// collapse maps every row onto the lowest id sharing its natural key. rows
// must be ordered by id.
func collapse[T any](rows []T, idKey func(T) (int64, models.NaturalKey)) (map[int64]int64, []int64) {
	first := make(map[models.NaturalKey]int64, len(rows))
	remap := make(map[int64]int64, len(rows))
	var redundant []int64
	for _, row := range rows {
		id, key := idKey(row)
		if keep, ok := first[key]; ok {
			remap[id] = keep
			redundant = append(redundant, id)
			continue
		}
		first[key] = id
		remap[id] = id
	}
	return remap, redundant
}

func (r *run) wipedKinds() []store.Kind {
	kinds := []store.Kind{
		store.KindApplicantBenefit,
		store.KindAdditionalInfo,
		store.KindApplicationDetails,
		store.KindApplicant,
		store.KindParent,
		store.KindInstitution,
	}
	if r.opt.RebuildCatalog {
		kinds = append(kinds, store.KindInformationSource, store.KindBenefit)
	}
	return kinds
}

func (r *run) wipe(ctx context.Context) error {
	for _, kind := range r.wipedKinds() {
		if err := r.tx.DeleteAll(ctx, kind); err != nil {
			return err
		}
	}
	for _, id := range r.redundantBenefits {
		if err := r.tx.DeleteByID(ctx, store.KindBenefit, id); err != nil {
			return err
		}
	}
	for _, id := range r.redundantSources {
		if err := r.tx.DeleteByID(ctx, store.KindInformationSource, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) reseed(ctx context.Context) error {
	for _, kind := range r.wipedKinds() {
		if !kind.HasSequence() {
			continue
		}
		if err := r.tx.Reseed(ctx, kind, 0); err != nil {
			return err
		}
	}
	return nil
}

// dimensions assigns new ids in snapshot order and writes the rebuilt rows.
func (r *run) dimensions(ctx context.Context) error {
	for i := range r.applicants {
		a := &r.applicants[i]
		if a.Institution != nil {
			r.institutions.Resolve(a.Institution.ID, *a.Institution)
		}
		if a.Parent != nil {
			r.parents.Resolve(a.Parent.ID, *a.Parent)
		}
		if !r.opt.RebuildCatalog {
			continue
		}
		if a.Benefit != nil {
			r.benefitDedup.Resolve(a.Benefit.ID, *a.Benefit)
		}
		for _, id := range a.BenefitIDs {
			r.benefitDedup.Resolve(id, r.benefits[id])
		}
		if a.Source != nil {
			r.sourceDedup.Resolve(a.Source.ID, *a.Source)
		}
	}

	for _, inst := range r.institutions.Rows() {
		inst := inst
		if err := r.tx.InsertInstitution(ctx, &inst); err != nil {
			return err
		}
	}
	for _, p := range r.parents.Rows() {
		p := p
		if err := r.tx.InsertParent(ctx, &p); err != nil {
			return err
		}
	}
	for _, b := range r.benefitDedup.Rows() {
		b := b
		if err := r.tx.InsertBenefit(ctx, &b); err != nil {
			return err
		}
	}
	for _, s := range r.sourceDedup.Rows() {
		s := s
		if err := r.tx.InsertInformationSource(ctx, &s); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) benefitID(old int64) (int64, error) {
	if r.opt.RebuildCatalog {
		if id, ok := r.benefitDedup.Lookup(old); ok {
			return id, nil
		}
	} else if id, ok := r.benefitRemap[old]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("benefit %d has no rebuilt row: %w", old, models.ErrReferentialAnomaly)
}

func (r *run) sourceID(old int64) (int64, error) {
	if r.opt.RebuildCatalog {
		if id, ok := r.sourceDedup.Lookup(old); ok {
			return id, nil
		}
	} else if id, ok := r.sourceRemap[old]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("information source %d has no rebuilt row: %w", old, models.ErrReferentialAnomaly)
}

func (r *run) reinsertApplicants(ctx context.Context) error {
	for i := range r.applicants {
		a := &r.applicants[i]
		row := models.Applicant{
			ID:         int64(i + 1),
			LastName:   a.LastName,
			FirstName:  a.FirstName,
			Patronymic: a.Patronymic,
			Phone:      a.Phone,
			VK:         a.VK,
			CityID:     a.CityID,
		}
		if a.Institution != nil {
			id, _ := r.institutions.Lookup(a.Institution.ID)
			row.InstitutionID.Int64, row.InstitutionID.Valid = id, true
		}
		if a.Parent != nil {
			id, _ := r.parents.Lookup(a.Parent.ID)
			row.ParentID.Int64, row.ParentID.Valid = id, true
		}
		if err := r.tx.InsertApplicant(ctx, &row); err != nil {
			return err
		}
		r.newApplicantID[a.ID] = row.ID
	}
	return nil
}

func (r *run) reinsertDetails(ctx context.Context) error {
	for i := range r.applicants {
		a := &r.applicants[i]
		newID := r.newApplicantID[a.ID]
		if a.Details.ID != 0 {
			d := a.Details
			r.detailsWritten++
			d.ID = int64(r.detailsWritten)
			d.ApplicantID = newID
			if d.BenefitID.Valid {
				id, err := r.benefitID(d.BenefitID.Int64)
				if err != nil {
					return err
				}
				d.BenefitID.Int64 = id
			}
			if err := r.tx.InsertApplicationDetails(ctx, &d); err != nil {
				return err
			}
		}
		if a.Info.ID != 0 {
			info := a.Info
			r.infoWritten++
			info.ID = int64(r.infoWritten)
			info.ApplicantID = newID
			if info.SourceID.Valid {
				id, err := r.sourceID(info.SourceID.Int64)
				if err != nil {
					return err
				}
				info.SourceID.Int64 = id
			}
			if err := r.tx.InsertAdditionalInfo(ctx, &info); err != nil {
				return err
			}
		}
	}
	return nil
}

// reinsertAssociations writes each translated pair once, ordered by the new
// applicant id and then the benefit id.
func (r *run) reinsertAssociations(ctx context.Context) error {
	seen := make(map[models.BenefitLink]bool, len(r.links))
	pairs := make([]models.BenefitLink, 0, len(r.links))
	for _, l := range r.links {
		benefit, err := r.benefitID(l.BenefitID)
		if err != nil {
			return err
		}
		pair := models.BenefitLink{ApplicantID: r.newApplicantID[l.ApplicantID], BenefitID: benefit}
		if seen[pair] {
			continue
		}
		seen[pair] = true
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].ApplicantID != pairs[j].ApplicantID {
			return pairs[i].ApplicantID < pairs[j].ApplicantID
		}
		return pairs[i].BenefitID < pairs[j].BenefitID
	})
	for _, pair := range pairs {
		if err := r.tx.InsertBenefitLink(ctx, pair); err != nil {
			return err
		}
	}
	r.linksWritten = len(pairs)
	return nil
}

func (r *run) reseedFinal(ctx context.Context) error {
	final := map[store.Kind]int64{
		store.KindApplicant:          int64(len(r.applicants)),
		store.KindApplicationDetails: int64(r.detailsWritten),
		store.KindAdditionalInfo:     int64(r.infoWritten),
		store.KindInstitution:        int64(r.institutions.Len()),
		store.KindParent:             int64(r.parents.Len()),
	}
	if r.opt.RebuildCatalog {
		final[store.KindBenefit] = int64(r.benefitDedup.Len())
		final[store.KindInformationSource] = int64(r.sourceDedup.Len())
	} else {
		for _, kind := range []store.Kind{store.KindBenefit, store.KindInformationSource} {
			last, err := r.tx.MaxID(ctx, kind)
			if err != nil {
				return err
			}
			final[kind] = last
		}
	}
	for _, kind := range store.Kinds {
		last, ok := final[kind]
		if !ok {
			continue
		}
		if err := r.tx.Reseed(ctx, kind, last); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) report(runID string, d time.Duration) *Report {
	rep := &Report{
		RunID:        runID,
		Applicants:   len(r.applicants),
		Institutions: r.institutions.Len(),
		Parents:      r.parents.Len(),
		BenefitLinks: r.linksWritten,
		Duration:     d,
	}
	rep.DuplicatesMerged = r.institutions.Merged() + r.parents.Merged()
	if r.opt.RebuildCatalog {
		rep.Benefits = r.benefitDedup.Len()
		rep.InformationSources = r.sourceDedup.Len()
		rep.DuplicatesMerged += r.benefitDedup.Merged() + r.sourceDedup.Merged()
	} else {
		rep.Benefits = r.keptBenefits
		rep.InformationSources = r.keptSources
		rep.DuplicatesMerged += len(r.redundantBenefits) + len(r.redundantSources)
	}
	return rep
}
