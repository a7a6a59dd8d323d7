package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the ranking engine, the record store and the
// compactor.
var (
	// ErrInvalidArgument rejects a call before any computation or store access.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStoreUnavailable means there is no live connection to the record store.
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrCompactionFailed marks a compaction that was rolled back.
	ErrCompactionFailed = errors.New("compaction failed")
	// ErrReferentialAnomaly marks a row whose reference no longer resolves.
	ErrReferentialAnomaly = errors.New("referential anomaly")
	// ErrNotFound is returned when a row addressed by id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey is returned when an insert collides with an existing primary key.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrStillReferenced is returned when rows are deleted while other rows point at them.
	ErrStillReferenced = errors.New("rows still referenced")
)

// CompactionError reports the step at which a compaction run was aborted.
// The transaction has been rolled back by the time it is returned.
type CompactionError struct {
	RunID string
	Step  string
	Err   error
}

func (e *CompactionError) Error() string {
	return fmt.Sprintf("compaction %s failed at %s: %v", e.RunID, e.Step, e.Err)
}

func (e *CompactionError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrCompactionFailed) true for every CompactionError.
func (e *CompactionError) Is(target error) bool {
	return target == ErrCompactionFailed
}

// AnomalyError describes one broken reference found in a snapshot.
type AnomalyError struct {
	Kind        string
	ApplicantID int64
	RefID       int64
}

func (e *AnomalyError) Error() string {
	return fmt.Sprintf("applicant %d references missing %s %d", e.ApplicantID, e.Kind, e.RefID)
}

// Is makes errors.Is(err, ErrReferentialAnomaly) true for every AnomalyError.
func (e *AnomalyError) Is(target error) bool {
	return target == ErrReferentialAnomaly
}
