package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nonsonwune/applicant_registry/models"
)

type memoryState struct {
	regions      map[int64]models.Region
	cities       map[int64]models.City
	institutions map[int64]models.Institution
	parents      map[int64]models.Parent
	benefits     map[int64]models.Benefit
	sources      map[int64]models.InformationSource
	applicants   map[int64]models.Applicant
	details      map[int64]models.ApplicationDetails
	infos        map[int64]models.AdditionalInfo
	links        map[models.BenefitLink]struct{}
	seq          map[Kind]int64
}

func newMemoryState() memoryState {
	return memoryState{
		regions:      map[int64]models.Region{},
		cities:       map[int64]models.City{},
		institutions: map[int64]models.Institution{},
		parents:      map[int64]models.Parent{},
		benefits:     map[int64]models.Benefit{},
		sources:      map[int64]models.InformationSource{},
		applicants:   map[int64]models.Applicant{},
		details:      map[int64]models.ApplicationDetails{},
		infos:        map[int64]models.AdditionalInfo{},
		links:        map[models.BenefitLink]struct{}{},
		seq:          map[Kind]int64{},
	}
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Stored rows never carry resolved pointers or slices, so a shallow copy of
// each map is a full copy of the state.
func (s memoryState) clone() memoryState {
	return memoryState{
		regions:      cloneMap(s.regions),
		cities:       cloneMap(s.cities),
		institutions: cloneMap(s.institutions),
		parents:      cloneMap(s.parents),
		benefits:     cloneMap(s.benefits),
		sources:      cloneMap(s.sources),
		applicants:   cloneMap(s.applicants),
		details:      cloneMap(s.details),
		infos:        cloneMap(s.infos),
		links:        cloneMap(s.links),
		seq:          cloneMap(s.seq),
	}
}

// MemoryStore keeps the registry tables in process memory. A transaction works
// on a clone of the committed state and swaps it in on Commit; Rollback simply
// drops the clone. Only one transaction is open at a time and Begin waits for
// the previous one to finish.
type MemoryStore struct {
	mu     sync.RWMutex
	state  memoryState
	slot   chan struct{}
	closed bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState(), slot: make(chan struct{}, 1)}
}

// Begin implements Store.
func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("begin: %w: %v", models.ErrStoreUnavailable, ctx.Err())
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		<-s.slot
		return nil, fmt.Errorf("begin: store closed: %w", models.ErrStoreUnavailable)
	}
	return &memoryTx{store: s, state: s.state.clone()}, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("ping: store closed: %w", models.ErrStoreUnavailable)
	}
	return nil
}

// Close implements Store. Later calls to Begin fail with ErrStoreUnavailable.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type memoryTx struct {
	store *MemoryStore
	state memoryState
	done  bool
}

func (tx *memoryTx) finish() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	<-tx.store.slot
	return nil
}

func (tx *memoryTx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	tx.store.mu.Lock()
	tx.store.state = tx.state
	tx.store.mu.Unlock()
	return tx.finish()
}

func (tx *memoryTx) Rollback() error {
	return tx.finish()
}

func (tx *memoryTx) active() error {
	if tx.done {
		return ErrTxDone
	}
	return nil
}

func sortedKeys[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedValues[V any](m map[int64]V) []V {
	out := make([]V, 0, len(m))
	for _, id := range sortedKeys(m) {
		out = append(out, m[id])
	}
	return out
}

func (tx *memoryTx) Snapshot(context.Context) ([]models.Applicant, error) {
	if err := tx.active(); err != nil {
		return nil, err
	}
	st := &tx.state
	byApplicant := map[int64][]int64{}
	for _, l := range tx.sortedLinks() {
		byApplicant[l.ApplicantID] = append(byApplicant[l.ApplicantID], l.BenefitID)
	}
	detailsOf := map[int64]models.ApplicationDetails{}
	for _, d := range st.details {
		detailsOf[d.ApplicantID] = d
	}
	infoOf := map[int64]models.AdditionalInfo{}
	for _, i := range st.infos {
		infoOf[i.ApplicantID] = i
	}

	out := make([]models.Applicant, 0, len(st.applicants))
	for _, id := range sortedKeys(st.applicants) {
		a := st.applicants[id]
		a.Details = detailsOf[id]
		a.Info = infoOf[id]
		a.BenefitIDs = byApplicant[id]
		if a.CityID.Valid {
			if c, ok := st.cities[a.CityID.Int64]; ok {
				city := c
				a.City = &city
				if r, ok := st.regions[c.RegionID]; ok {
					region := r
					a.Region = &region
				}
			}
		}
		if a.InstitutionID.Valid {
			if i, ok := st.institutions[a.InstitutionID.Int64]; ok {
				inst := i
				a.Institution = &inst
			}
		}
		if a.ParentID.Valid {
			if p, ok := st.parents[a.ParentID.Int64]; ok {
				parent := p
				a.Parent = &parent
			}
		}
		if a.Details.BenefitID.Valid {
			if b, ok := st.benefits[a.Details.BenefitID.Int64]; ok {
				benefit := b
				a.Benefit = &benefit
			}
		}
		if a.Info.SourceID.Valid {
			if s, ok := st.sources[a.Info.SourceID.Int64]; ok {
				source := s
				a.Source = &source
			}
		}
		out = append(out, a)
	}
	return out, nil
}

func (tx *memoryTx) sortedLinks() []models.BenefitLink {
	out := make([]models.BenefitLink, 0, len(tx.state.links))
	for l := range tx.state.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ApplicantID != out[j].ApplicantID {
			return out[i].ApplicantID < out[j].ApplicantID
		}
		return out[i].BenefitID < out[j].BenefitID
	})
	return out
}

func (tx *memoryTx) BenefitLinks(context.Context) ([]models.BenefitLink, error) {
	if err := tx.active(); err != nil {
		return nil, err
	}
	return tx.sortedLinks(), nil
}

func (tx *memoryTx) Regions(context.Context) ([]models.Region, error) {
	if err := tx.active(); err != nil {
		return nil, err
	}
	return sortedValues(tx.state.regions), nil
}

func (tx *memoryTx) Cities(context.Context) ([]models.City, error) {
	if err := tx.active(); err != nil {
		return nil, err
	}
	return sortedValues(tx.state.cities), nil
}

func (tx *memoryTx) Institutions(context.Context) ([]models.Institution, error) {
	if err := tx.active(); err != nil {
		return nil, err
	}
	return sortedValues(tx.state.institutions), nil
}

func (tx *memoryTx) Parents(context.Context) ([]models.Parent, error) {
	if err := tx.active(); err != nil {
		return nil, err
	}
	return sortedValues(tx.state.parents), nil
}

func (tx *memoryTx) Benefits(context.Context) ([]models.Benefit, error) {
	if err := tx.active(); err != nil {
		return nil, err
	}
	return sortedValues(tx.state.benefits), nil
}

func (tx *memoryTx) InformationSources(context.Context) ([]models.InformationSource, error) {
	if err := tx.active(); err != nil {
		return nil, err
	}
	return sortedValues(tx.state.sources), nil
}

// ids returns the id set of a sequenced table.
func (tx *memoryTx) ids(kind Kind) []int64 {
	st := &tx.state
	switch kind {
	case KindRegion:
		return sortedKeys(st.regions)
	case KindCity:
		return sortedKeys(st.cities)
	case KindInstitution:
		return sortedKeys(st.institutions)
	case KindParent:
		return sortedKeys(st.parents)
	case KindBenefit:
		return sortedKeys(st.benefits)
	case KindInformationSource:
		return sortedKeys(st.sources)
	case KindApplicant:
		return sortedKeys(st.applicants)
	case KindApplicationDetails:
		return sortedKeys(st.details)
	case KindAdditionalInfo:
		return sortedKeys(st.infos)
	}
	return nil
}

func (tx *memoryTx) Count(_ context.Context, kind Kind) (int, error) {
	if err := tx.active(); err != nil {
		return 0, err
	}
	if err := checkKind(kind); err != nil {
		return 0, err
	}
	if kind == KindApplicantBenefit {
		return len(tx.state.links), nil
	}
	return len(tx.ids(kind)), nil
}

func (tx *memoryTx) MaxID(_ context.Context, kind Kind) (int64, error) {
	if err := tx.active(); err != nil {
		return 0, err
	}
	if !kind.HasSequence() {
		return 0, fmt.Errorf("max id of %q: %w", kind, models.ErrInvalidArgument)
	}
	ids := tx.ids(kind)
	if len(ids) == 0 {
		return 0, nil
	}
	return ids[len(ids)-1], nil
}

func (tx *memoryTx) FindID(_ context.Context, kind Kind, key models.NaturalKey) (int64, bool, error) {
	if err := tx.active(); err != nil {
		return 0, false, err
	}
	if !kind.Dimension() {
		return 0, false, fmt.Errorf("find %q by natural key: %w", kind, models.ErrInvalidArgument)
	}
	st := &tx.state
	match := func(id int64) bool {
		switch kind {
		case KindRegion:
			return models.KeyOfRegion(st.regions[id]) == key
		case KindCity:
			return models.KeyOfCity(st.cities[id]) == key
		case KindInstitution:
			return models.KeyOfInstitution(st.institutions[id]) == key
		case KindParent:
			return models.KeyOfParent(st.parents[id]) == key
		case KindBenefit:
			return models.KeyOfBenefit(st.benefits[id]) == key
		default:
			return models.KeyOfInformationSource(st.sources[id]) == key
		}
	}
	for _, id := range tx.ids(kind) {
		if match(id) {
			return id, true, nil
		}
	}
	return 0, false, nil
}

// referenced reports whether any stored row points at id of kind.
func (tx *memoryTx) referenced(kind Kind, id int64) bool {
	st := &tx.state
	switch kind {
	case KindRegion:
		for _, c := range st.cities {
			if c.RegionID == id {
				return true
			}
		}
	case KindCity:
		for _, i := range st.institutions {
			if i.CityID == id {
				return true
			}
		}
		for _, a := range st.applicants {
			if a.CityID.Valid && a.CityID.Int64 == id {
				return true
			}
		}
	case KindInstitution:
		for _, a := range st.applicants {
			if a.InstitutionID.Valid && a.InstitutionID.Int64 == id {
				return true
			}
		}
	case KindParent:
		for _, a := range st.applicants {
			if a.ParentID.Valid && a.ParentID.Int64 == id {
				return true
			}
		}
	case KindBenefit:
		for _, d := range st.details {
			if d.BenefitID.Valid && d.BenefitID.Int64 == id {
				return true
			}
		}
		for l := range st.links {
			if l.BenefitID == id {
				return true
			}
		}
	case KindInformationSource:
		for _, i := range st.infos {
			if i.SourceID.Valid && i.SourceID.Int64 == id {
				return true
			}
		}
	case KindApplicant:
		for _, d := range st.details {
			if d.ApplicantID == id {
				return true
			}
		}
		for _, i := range st.infos {
			if i.ApplicantID == id {
				return true
			}
		}
		for l := range st.links {
			if l.ApplicantID == id {
				return true
			}
		}
	}
	return false
}

func (tx *memoryTx) DeleteAll(_ context.Context, kind Kind) error {
	if err := tx.active(); err != nil {
		return err
	}
	if err := checkKind(kind); err != nil {
		return err
	}
	if kind != KindApplicantBenefit {
		for _, id := range tx.ids(kind) {
			if tx.referenced(kind, id) {
				return fmt.Errorf("delete all %s: row %d: %w", kind, id, models.ErrStillReferenced)
			}
		}
	}
	st := &tx.state
	switch kind {
	case KindRegion:
		st.regions = map[int64]models.Region{}
	case KindCity:
		st.cities = map[int64]models.City{}
	case KindInstitution:
		st.institutions = map[int64]models.Institution{}
	case KindParent:
		st.parents = map[int64]models.Parent{}
	case KindBenefit:
		st.benefits = map[int64]models.Benefit{}
	case KindInformationSource:
		st.sources = map[int64]models.InformationSource{}
	case KindApplicant:
		st.applicants = map[int64]models.Applicant{}
	case KindApplicationDetails:
		st.details = map[int64]models.ApplicationDetails{}
	case KindAdditionalInfo:
		st.infos = map[int64]models.AdditionalInfo{}
	case KindApplicantBenefit:
		st.links = map[models.BenefitLink]struct{}{}
	}
	return nil
}

func (tx *memoryTx) DeleteByID(_ context.Context, kind Kind, id int64) error {
	if err := tx.active(); err != nil {
		return err
	}
	if !kind.HasSequence() {
		return fmt.Errorf("delete %q by id: %w", kind, models.ErrInvalidArgument)
	}
	st := &tx.state
	if kind == KindApplicant {
		if _, ok := st.applicants[id]; !ok {
			return fmt.Errorf("applicant %d: %w", id, models.ErrNotFound)
		}
		for did, d := range st.details {
			if d.ApplicantID == id {
				delete(st.details, did)
			}
		}
		for iid, i := range st.infos {
			if i.ApplicantID == id {
				delete(st.infos, iid)
			}
		}
		for l := range st.links {
			if l.ApplicantID == id {
				delete(st.links, l)
			}
		}
		delete(st.applicants, id)
		return nil
	}

	found := false
	for _, existing := range tx.ids(kind) {
		if existing == id {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%s %d: %w", kind, id, models.ErrNotFound)
	}
	if tx.referenced(kind, id) {
		return fmt.Errorf("delete %s %d: %w", kind, id, models.ErrStillReferenced)
	}
	switch kind {
	case KindRegion:
		delete(st.regions, id)
	case KindCity:
		delete(st.cities, id)
	case KindInstitution:
		delete(st.institutions, id)
	case KindParent:
		delete(st.parents, id)
	case KindBenefit:
		delete(st.benefits, id)
	case KindInformationSource:
		delete(st.sources, id)
	case KindApplicationDetails:
		delete(st.details, id)
	case KindAdditionalInfo:
		delete(st.infos, id)
	}
	return nil
}

func (tx *memoryTx) Reseed(_ context.Context, kind Kind, last int64) error {
	if err := tx.active(); err != nil {
		return err
	}
	if !kind.HasSequence() {
		return fmt.Errorf("reseed %q: %w", kind, models.ErrInvalidArgument)
	}
	if last < 0 {
		return fmt.Errorf("reseed %s to %d: %w", kind, last, models.ErrInvalidArgument)
	}
	tx.state.seq[kind] = last
	return nil
}

// assign resolves the id of a row about to be inserted. A zero id takes the
// next counter value; an explicit id leaves the counter untouched.
func assign[V any](tx *memoryTx, kind Kind, rows map[int64]V, id int64) (int64, error) {
	explicit := id != 0
	if !explicit {
		id = tx.state.seq[kind] + 1
	}
	if id < 0 {
		return 0, fmt.Errorf("insert %s with id %d: %w", kind, id, models.ErrInvalidArgument)
	}
	if _, taken := rows[id]; taken {
		return 0, fmt.Errorf("insert %s id %d: %w", kind, id, models.ErrDuplicateKey)
	}
	if !explicit {
		tx.state.seq[kind] = id
	}
	return id, nil
}

func missing(kind Kind, id int64) error {
	return fmt.Errorf("%s %d does not exist: %w", kind, id, models.ErrReferentialAnomaly)
}

func (tx *memoryTx) InsertRegion(_ context.Context, r *models.Region) error {
	if err := tx.active(); err != nil {
		return err
	}
	id, err := assign(tx, KindRegion, tx.state.regions, r.ID)
	if err != nil {
		return err
	}
	r.ID = id
	tx.state.regions[id] = models.Region{ID: id, Name: r.Name}
	return nil
}

func (tx *memoryTx) InsertCity(_ context.Context, c *models.City) error {
	if err := tx.active(); err != nil {
		return err
	}
	if _, ok := tx.state.regions[c.RegionID]; !ok {
		return missing(KindRegion, c.RegionID)
	}
	id, err := assign(tx, KindCity, tx.state.cities, c.ID)
	if err != nil {
		return err
	}
	c.ID = id
	tx.state.cities[id] = models.City{ID: id, Name: c.Name, RegionID: c.RegionID}
	return nil
}

func (tx *memoryTx) InsertInstitution(_ context.Context, i *models.Institution) error {
	if err := tx.active(); err != nil {
		return err
	}
	if i.CityID != 0 {
		if _, ok := tx.state.cities[i.CityID]; !ok {
			return missing(KindCity, i.CityID)
		}
	}
	id, err := assign(tx, KindInstitution, tx.state.institutions, i.ID)
	if err != nil {
		return err
	}
	i.ID = id
	tx.state.institutions[id] = models.Institution{ID: id, Name: i.Name, CityID: i.CityID}
	return nil
}

func (tx *memoryTx) InsertParent(_ context.Context, p *models.Parent) error {
	if err := tx.active(); err != nil {
		return err
	}
	id, err := assign(tx, KindParent, tx.state.parents, p.ID)
	if err != nil {
		return err
	}
	p.ID = id
	tx.state.parents[id] = *p
	return nil
}

func (tx *memoryTx) InsertBenefit(_ context.Context, b *models.Benefit) error {
	if err := tx.active(); err != nil {
		return err
	}
	id, err := assign(tx, KindBenefit, tx.state.benefits, b.ID)
	if err != nil {
		return err
	}
	b.ID = id
	tx.state.benefits[id] = *b
	return nil
}

func (tx *memoryTx) InsertInformationSource(_ context.Context, s *models.InformationSource) error {
	if err := tx.active(); err != nil {
		return err
	}
	id, err := assign(tx, KindInformationSource, tx.state.sources, s.ID)
	if err != nil {
		return err
	}
	s.ID = id
	tx.state.sources[id] = *s
	return nil
}

func (tx *memoryTx) checkApplicantRefs(a *models.Applicant) error {
	st := &tx.state
	if a.CityID.Valid {
		if _, ok := st.cities[a.CityID.Int64]; !ok {
			return missing(KindCity, a.CityID.Int64)
		}
	}
	if a.InstitutionID.Valid {
		if _, ok := st.institutions[a.InstitutionID.Int64]; !ok {
			return missing(KindInstitution, a.InstitutionID.Int64)
		}
	}
	if a.ParentID.Valid {
		if _, ok := st.parents[a.ParentID.Int64]; !ok {
			return missing(KindParent, a.ParentID.Int64)
		}
	}
	return nil
}

// applicantRow strips everything the applicant table does not hold.
func applicantRow(a *models.Applicant) models.Applicant {
	return models.Applicant{
		ID:            a.ID,
		LastName:      a.LastName,
		FirstName:     a.FirstName,
		Patronymic:    a.Patronymic,
		Phone:         a.Phone,
		VK:            a.VK,
		CityID:        a.CityID,
		InstitutionID: a.InstitutionID,
		ParentID:      a.ParentID,
	}
}

func (tx *memoryTx) InsertApplicant(_ context.Context, a *models.Applicant) error {
	if err := tx.active(); err != nil {
		return err
	}
	if err := tx.checkApplicantRefs(a); err != nil {
		return err
	}
	id, err := assign(tx, KindApplicant, tx.state.applicants, a.ID)
	if err != nil {
		return err
	}
	a.ID = id
	tx.state.applicants[id] = applicantRow(a)
	return nil
}

func (tx *memoryTx) checkDetails(d *models.ApplicationDetails, self int64) error {
	st := &tx.state
	if _, ok := st.applicants[d.ApplicantID]; !ok {
		return missing(KindApplicant, d.ApplicantID)
	}
	if d.BenefitID.Valid {
		if _, ok := st.benefits[d.BenefitID.Int64]; !ok {
			return missing(KindBenefit, d.BenefitID.Int64)
		}
	}
	for id, existing := range st.details {
		if id != self && existing.ApplicantID == d.ApplicantID {
			return fmt.Errorf("application details for applicant %d: %w", d.ApplicantID, models.ErrDuplicateKey)
		}
	}
	return nil
}

func (tx *memoryTx) InsertApplicationDetails(_ context.Context, d *models.ApplicationDetails) error {
	if err := tx.active(); err != nil {
		return err
	}
	if err := tx.checkDetails(d, 0); err != nil {
		return err
	}
	id, err := assign(tx, KindApplicationDetails, tx.state.details, d.ID)
	if err != nil {
		return err
	}
	d.ID = id
	tx.state.details[id] = *d
	return nil
}

func (tx *memoryTx) checkInfo(i *models.AdditionalInfo, self int64) error {
	st := &tx.state
	if _, ok := st.applicants[i.ApplicantID]; !ok {
		return missing(KindApplicant, i.ApplicantID)
	}
	if i.SourceID.Valid {
		if _, ok := st.sources[i.SourceID.Int64]; !ok {
			return missing(KindInformationSource, i.SourceID.Int64)
		}
	}
	for id, existing := range st.infos {
		if id != self && existing.ApplicantID == i.ApplicantID {
			return fmt.Errorf("additional info for applicant %d: %w", i.ApplicantID, models.ErrDuplicateKey)
		}
	}
	return nil
}

func (tx *memoryTx) InsertAdditionalInfo(_ context.Context, i *models.AdditionalInfo) error {
	if err := tx.active(); err != nil {
		return err
	}
	if err := tx.checkInfo(i, 0); err != nil {
		return err
	}
	id, err := assign(tx, KindAdditionalInfo, tx.state.infos, i.ID)
	if err != nil {
		return err
	}
	i.ID = id
	tx.state.infos[id] = *i
	return nil
}

func (tx *memoryTx) InsertBenefitLink(_ context.Context, l models.BenefitLink) error {
	if err := tx.active(); err != nil {
		return err
	}
	if _, ok := tx.state.applicants[l.ApplicantID]; !ok {
		return missing(KindApplicant, l.ApplicantID)
	}
	if _, ok := tx.state.benefits[l.BenefitID]; !ok {
		return missing(KindBenefit, l.BenefitID)
	}
	if _, dup := tx.state.links[l]; dup {
		return fmt.Errorf("benefit link %d/%d: %w", l.ApplicantID, l.BenefitID, models.ErrDuplicateKey)
	}
	tx.state.links[l] = struct{}{}
	return nil
}

func (tx *memoryTx) UpdateApplicant(_ context.Context, a *models.Applicant) error {
	if err := tx.active(); err != nil {
		return err
	}
	st := &tx.state
	if _, ok := st.applicants[a.ID]; !ok {
		return fmt.Errorf("applicant %d: %w", a.ID, models.ErrNotFound)
	}
	if err := tx.checkApplicantRefs(a); err != nil {
		return err
	}

	d := a.Details
	d.ApplicantID = a.ID
	d.ID = 0
	for id, existing := range st.details {
		if existing.ApplicantID == a.ID {
			d.ID = id
		}
	}
	if err := tx.checkDetails(&d, d.ID); err != nil {
		return err
	}
	info := a.Info
	info.ApplicantID = a.ID
	info.ID = 0
	for id, existing := range st.infos {
		if existing.ApplicantID == a.ID {
			info.ID = id
		}
	}
	if err := tx.checkInfo(&info, info.ID); err != nil {
		return err
	}

	if d.ID == 0 {
		id, err := assign(tx, KindApplicationDetails, st.details, 0)
		if err != nil {
			return err
		}
		d.ID = id
	}
	if info.ID == 0 {
		id, err := assign(tx, KindAdditionalInfo, st.infos, 0)
		if err != nil {
			return err
		}
		info.ID = id
	}
	st.applicants[a.ID] = applicantRow(a)
	st.details[d.ID] = d
	st.infos[info.ID] = info
	a.Details = d
	a.Info = info
	return nil
}

func (tx *memoryTx) UpdateParent(_ context.Context, p *models.Parent) error {
	if err := tx.active(); err != nil {
		return err
	}
	if _, ok := tx.state.parents[p.ID]; !ok {
		return fmt.Errorf("parent %d: %w", p.ID, models.ErrNotFound)
	}
	tx.state.parents[p.ID] = *p
	return nil
}

func (tx *memoryTx) UpdateBenefitPoints(_ context.Context, benefitID int64, points int) error {
	if err := tx.active(); err != nil {
		return err
	}
	b, ok := tx.state.benefits[benefitID]
	if !ok {
		return fmt.Errorf("benefit %d: %w", benefitID, models.ErrNotFound)
	}
	b.BonusPoints = points
	tx.state.benefits[benefitID] = b
	return nil
}

func (tx *memoryTx) ReplaceBenefitLinks(_ context.Context, applicantID int64, benefitIDs []int64) error {
	if err := tx.active(); err != nil {
		return err
	}
	st := &tx.state
	if _, ok := st.applicants[applicantID]; !ok {
		return fmt.Errorf("applicant %d: %w", applicantID, models.ErrNotFound)
	}
	for _, id := range benefitIDs {
		if _, ok := st.benefits[id]; !ok {
			return missing(KindBenefit, id)
		}
	}
	for l := range st.links {
		if l.ApplicantID == applicantID {
			delete(st.links, l)
		}
	}
	for _, id := range benefitIDs {
		st.links[models.BenefitLink{ApplicantID: applicantID, BenefitID: id}] = struct{}{}
	}
	return nil
}
