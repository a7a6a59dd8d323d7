// Package store defines the record-store boundary used by the registry and the
// compactor, with an in-memory implementation and a database/sql implementation
// for PostgreSQL and SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nonsonwune/applicant_registry/models"
)

// Kind names one table of the registry schema.
type Kind string

const (
	KindRegion             Kind = "region"
	KindCity               Kind = "city"
	KindInstitution        Kind = "institution"
	KindParent             Kind = "parent"
	KindBenefit            Kind = "benefit"
	KindInformationSource  Kind = "information_source"
	KindApplicant          Kind = "applicant"
	KindApplicationDetails Kind = "application_details"
	KindAdditionalInfo     Kind = "additional_info"
	KindApplicantBenefit   Kind = "applicant_benefit"
)

// Kinds lists every table with referenced tables before the tables that
// reference them. Wipes run in reverse order.
var Kinds = []Kind{
	KindRegion,
	KindCity,
	KindInstitution,
	KindParent,
	KindBenefit,
	KindInformationSource,
	KindApplicant,
	KindApplicationDetails,
	KindAdditionalInfo,
	KindApplicantBenefit,
}

// ErrTxDone is returned by Commit or Rollback on a finished transaction.
var ErrTxDone = sql.ErrTxDone

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// HasSequence reports whether the table has an auto-increment id.
func (k Kind) HasSequence() bool {
	return k.Valid() && k != KindApplicantBenefit
}

// Dimension reports whether the table is a reference table looked up by natural key.
func (k Kind) Dimension() bool {
	switch k {
	case KindRegion, KindCity, KindInstitution, KindParent, KindBenefit, KindInformationSource:
		return true
	}
	return false
}

func checkKind(k Kind) error {
	if !k.Valid() {
		return fmt.Errorf("unknown kind %q: %w", k, models.ErrInvalidArgument)
	}
	return nil
}

// Store opens transactions against the registry schema.
type Store interface {
	// Begin starts a transaction. Only one transaction is expected to be open
	// at a time; implementations may block until the previous one finishes.
	Begin(ctx context.Context) (Tx, error)
	Ping(ctx context.Context) error
	Close() error
}

// Tx is a unit of work. Every read and write of a compaction run happens inside
// one Tx.
type Tx interface {
	Reader
	Writer
	Commit() error
	Rollback() error
}

// Reader is the read side of a transaction.
type Reader interface {
	// Snapshot returns every applicant with its detail rows and resolved
	// references, ordered by id ascending. A foreign key that does not resolve
	// leaves the matching pointer nil while the id stays set.
	Snapshot(ctx context.Context) ([]models.Applicant, error)
	// BenefitLinks returns the association rows ordered by applicant, then benefit.
	BenefitLinks(ctx context.Context) ([]models.BenefitLink, error)

	Regions(ctx context.Context) ([]models.Region, error)
	Cities(ctx context.Context) ([]models.City, error)
	Institutions(ctx context.Context) ([]models.Institution, error)
	Parents(ctx context.Context) ([]models.Parent, error)
	Benefits(ctx context.Context) ([]models.Benefit, error)
	InformationSources(ctx context.Context) ([]models.InformationSource, error)

	Count(ctx context.Context, kind Kind) (int, error)
	MaxID(ctx context.Context, kind Kind) (int64, error)
	// FindID returns the lowest id of a dimension row with the given natural key.
	FindID(ctx context.Context, kind Kind, key models.NaturalKey) (int64, bool, error)
}

// Writer is the write side of a transaction. Insert methods assign the next
// auto-increment id when ID is zero and otherwise write the given id without
// advancing the counter; the assigned id is stored back into the row.
type Writer interface {
	DeleteAll(ctx context.Context, kind Kind) error
	// DeleteByID removes one row. Deleting an applicant cascades to its detail
	// and association rows.
	DeleteByID(ctx context.Context, kind Kind, id int64) error
	// Reseed sets the counter so the next auto-increment id is last+1.
	Reseed(ctx context.Context, kind Kind, last int64) error

	InsertRegion(ctx context.Context, r *models.Region) error
	InsertCity(ctx context.Context, c *models.City) error
	InsertInstitution(ctx context.Context, i *models.Institution) error
	InsertParent(ctx context.Context, p *models.Parent) error
	InsertBenefit(ctx context.Context, b *models.Benefit) error
	InsertInformationSource(ctx context.Context, s *models.InformationSource) error
	// InsertApplicant writes the applicant row only; detail rows are inserted separately.
	InsertApplicant(ctx context.Context, a *models.Applicant) error
	InsertApplicationDetails(ctx context.Context, d *models.ApplicationDetails) error
	InsertAdditionalInfo(ctx context.Context, i *models.AdditionalInfo) error
	InsertBenefitLink(ctx context.Context, l models.BenefitLink) error

	// UpdateApplicant rewrites the applicant row and both detail rows keyed by a.ID.
	UpdateApplicant(ctx context.Context, a *models.Applicant) error
	UpdateParent(ctx context.Context, p *models.Parent) error
	UpdateBenefitPoints(ctx context.Context, benefitID int64, points int) error
	ReplaceBenefitLinks(ctx context.Context, applicantID int64, benefitIDs []int64) error
}

// SequenceSyncer is implemented by stores whose counters are not restored by a
// rollback. Callers run SyncSequences after a failed transaction that reseeded.
type SequenceSyncer interface {
	SyncSequences(ctx context.Context) error
}
