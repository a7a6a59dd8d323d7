package compactor

import (
	"github.com/nonsonwune/applicant_registry/models"
)

// Dedup assigns dense ids to rows in first-seen order of their natural key.
// Rows sharing a key get the id of the first one.
type Dedup[T any] struct {
	key   func(T) models.NaturalKey
	build func(id int64, row T) T

	ids    map[models.NaturalKey]int64
	byOld  map[int64]int64
	rows   []T
	merged int
}

// NewDedup returns an empty map. key extracts the natural key of a row and
// build returns the row to write under its new id.
func NewDedup[T any](key func(T) models.NaturalKey, build func(id int64, row T) T) *Dedup[T] {
	return &Dedup[T]{
		key:   key,
		build: build,
		ids:   make(map[models.NaturalKey]int64),
		byOld: make(map[int64]int64),
	}
}

// Resolve returns the new id for the row known under oldID. The first row
// seen with a key is kept; later distinct old ids with the same key count as
// merged duplicates.
func (d *Dedup[T]) Resolve(oldID int64, row T) int64 {
	if id, ok := d.byOld[oldID]; ok {
		return id
	}
	k := d.key(row)
	id, ok := d.ids[k]
	if ok {
		d.merged++
	} else {
		id = int64(len(d.rows) + 1)
		d.ids[k] = id
		d.rows = append(d.rows, d.build(id, row))
	}
	d.byOld[oldID] = id
	return id
}

// Lookup returns the new id assigned to oldID.
func (d *Dedup[T]) Lookup(oldID int64) (int64, bool) {
	id, ok := d.byOld[oldID]
	return id, ok
}

// Rows returns the distinct rows in id order.
func (d *Dedup[T]) Rows() []T { return d.rows }

// Len is the number of distinct rows.
func (d *Dedup[T]) Len() int { return len(d.rows) }

// Merged is the number of old ids folded onto an existing key.
func (d *Dedup[T]) Merged() int { return d.merged }
