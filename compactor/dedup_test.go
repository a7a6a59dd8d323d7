package compactor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nonsonwune/applicant_registry/models"
)

func institutionDedup() *Dedup[models.Institution] {
	return NewDedup(models.KeyOfInstitution, func(id int64, i models.Institution) models.Institution {
		return models.Institution{ID: id, Name: i.Name, CityID: i.CityID}
	})
}

func TestDedup_FirstSeenOrder(t *testing.T) {
	d := institutionDedup()

	assert.Equal(t, int64(1), d.Resolve(40, models.Institution{ID: 40, Name: "Гимназия", CityID: 2}))
	assert.Equal(t, int64(2), d.Resolve(7, models.Institution{ID: 7, Name: "Школа №5", CityID: 2}))
	assert.Equal(t, int64(1), d.Resolve(12, models.Institution{ID: 12, Name: "Гимназия ", CityID: 2}))
	assert.Equal(t, int64(3), d.Resolve(13, models.Institution{ID: 13, Name: "Гимназия", CityID: 3}))

	assert.Equal(t, []models.Institution{
		{ID: 1, Name: "Гимназия", CityID: 2},
		{ID: 2, Name: "Школа №5", CityID: 2},
		{ID: 3, Name: "Гимназия", CityID: 3},
	}, d.Rows())
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, 1, d.Merged())
}

func TestDedup_RepeatedOldID(t *testing.T) {
	d := institutionDedup()
	row := models.Institution{ID: 9, Name: "Лицей"}

	d.Resolve(9, row)
	d.Resolve(9, row)

	assert.Equal(t, 1, d.Len())
	assert.Zero(t, d.Merged())

	id, ok := d.Lookup(9)
	assert.True(t, ok)
	assert.Equal(t, int64(1), id)

	_, ok = d.Lookup(10)
	assert.False(t, ok)
}
