package export

import (
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arboretum/internal/models"
	geomodels "arboretum/models"
)

func tree(id int64, label, name, easting, northing string) models.TreeRecord {
	opt := func(s string) sql.NullString {
		if s == "" {
			return sql.NullString{}
		}
		return models.Text(s)
	}
	return models.TreeRecord{
		ID:        id,
		Label:     opt(label),
		Name:      name,
		Easting:   opt(easting),
		Northing:  opt(northing),
		DetailURL: "https://arboretum.example/arbre/" + strings.ToLower(name) + "/",
	}
}

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder("https://arboretum.example")
	require.NoError(t, err)
	return b
}

func TestBuild_MixedRecords(t *testing.T) {
	b := newTestBuilder(t)
	records := []models.TreeRecord{
		tree(1, "12", "Chene", "1752431.27", "3148259.84"),
		tree(2, "13", "Hetre", "", "3148259.84"),
		tree(3, "", "Erable", "1752431.27", ""),
	}

	valid, result, err := b.Build(records)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ValidCount)
	assert.Equal(t, 2, result.ErrorCount)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, `- "Hetre" : missing easting coordinate`, result.Errors[0])
	assert.Equal(t, `- "Erable" : missing tree number, missing northing coordinate`, result.Errors[1])

	require.Len(t, valid, 1)
	assert.Equal(t, int64(1), valid[0].ID)
	assert.Equal(t, "12", valid[0].Label)
	assert.Equal(t, "/arbre/chene/", valid[0].URL)
	assert.InDelta(t, 43.532428, valid[0].Lat, 1e-6)
	assert.InDelta(t, 3.648682, valid[0].Lng, 1e-6)
}

func TestBuild_PartitionIsTotal(t *testing.T) {
	b := newTestBuilder(t)
	var records []models.TreeRecord
	for i := 0; i < 30; i++ {
		r := tree(int64(i), "n", "T", "1700000", "3200000")
		switch i % 4 {
		case 1:
			r.Label = sql.NullString{}
		case 2:
			r.Northing = models.Text("")
		case 3:
			r.Easting = sql.NullString{}
			r.Label = models.Text(" ")
		}
		records = append(records, r)
	}

	valid, result, err := b.Build(records)
	require.NoError(t, err)
	assert.Equal(t, len(records), len(valid)+result.ErrorCount)
	assert.Equal(t, len(valid), result.ValidCount)
}

func TestBuild_PreservesCollectionOrder(t *testing.T) {
	b := newTestBuilder(t)
	records := []models.TreeRecord{
		tree(30, "3", "C", "1700000", "3200000"),
		tree(10, "1", "A", "1700001", "3200000"),
		tree(20, "2", "B", "1700002", "3200000"),
	}

	valid, _, err := b.Build(records)
	require.NoError(t, err)
	ids := []int64{valid[0].ID, valid[1].ID, valid[2].ID}
	assert.Equal(t, []int64{30, 10, 20}, ids)
}

func TestBuild_ZeroCoordinateIsEligible(t *testing.T) {
	b := newTestBuilder(t)
	valid, result, err := b.Build([]models.TreeRecord{tree(1, "1", "Origin", "0", "0")})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ErrorCount)
	assert.Len(t, valid, 1)
}

func TestBuild_MalformedCoordinateAborts(t *testing.T) {
	b := newTestBuilder(t)
	records := []models.TreeRecord{
		tree(1, "1", "Ok", "1700000", "3200000"),
		tree(2, "2", "Broken", "17OOOOO", "3200000"),
	}

	valid, _, err := b.Build(records)
	require.Error(t, err)
	assert.Nil(t, valid)
	assert.True(t, errors.Is(err, ErrProjection))

	var perr *ProjectionError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, int64(2), perr.RecordID)
	assert.Equal(t, "easting", perr.Field)
}

func TestBuild_NonFiniteInputAborts(t *testing.T) {
	b := newTestBuilder(t)
	_, _, err := b.Build([]models.TreeRecord{tree(1, "1", "Nan", "NaN", "3200000")})
	assert.ErrorIs(t, err, ErrProjection)
}

func TestBuild_EmptyCollection(t *testing.T) {
	b := newTestBuilder(t)
	valid, result, err := b.Build(nil)
	require.NoError(t, err)
	assert.Empty(t, valid)
	assert.Equal(t, models.ExportResult{Errors: []string{}}, result)

	data, err := Encode(valid)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestEncode_Format(t *testing.T) {
	b := newTestBuilder(t)
	b.project = func(easting, northing float64) geomodels.GeoPoint {
		return geomodels.GeoPoint{Lat: 43.5, Lng: 1.25}
	}
	r := tree(12, "12", "Chêne pédonculé", "1", "2")
	r.DetailURL = "https://arboretum.example/arbre/chene-pedoncule/?a=1&b=2"

	valid, _, err := b.Build([]models.TreeRecord{r})
	require.NoError(t, err)

	data, err := Encode(valid)
	require.NoError(t, err)

	expected := `[
    {
        "id": 12,
        "numero": "12",
        "nom": "Chêne pédonculé",
        "lat": 43.5,
        "lng": 1.25,
        "url": "/arbre/chene-pedoncule/?a=1&b=2"
    }
]`
	assert.Equal(t, expected, string(data))
}

func TestEncode_Deterministic(t *testing.T) {
	b := newTestBuilder(t)
	records := []models.TreeRecord{
		tree(1, "1", "Séquoia", "1752431.27", "3148259.84"),
		tree(2, "2", "Ginkgo", "1700000", "3200000"),
	}

	first, _, err := b.Build(records)
	require.NoError(t, err)
	second, _, err := b.Build(records)
	require.NoError(t, err)

	a, err := Encode(first)
	require.NoError(t, err)
	c, err := Encode(second)
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestNewBuilder_ProjectsCC44(t *testing.T) {
	b, err := NewBuilder("")
	require.NoError(t, err)

	var point geomodels.GeoPoint = b.project(1700000, 3200000)
	assert.InDelta(t, 44.0, point.Lat, 1e-9)
	assert.InDelta(t, 3.0, point.Lng, 1e-9)

	valid, _, err := b.Build([]models.TreeRecord{tree(1, "1", "Origine", "1700000", "3200000")})
	require.NoError(t, err)
	require.Len(t, valid, 1)
	assert.InDelta(t, 44.0, valid[0].Lat, 1e-9)
	assert.InDelta(t, 3.0, valid[0].Lng, 1e-9)
}

func TestBuild_LabelKeptAsStored(t *testing.T) {
	b := newTestBuilder(t)
	valid, result, err := b.Build([]models.TreeRecord{
		tree(1, " 17 ", "Platane", "1752431.27", "3148259.84"),
		tree(2, "A-04", "Cèdre", "1752431.27", "3148259.84"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ErrorCount)
	require.Len(t, valid, 2)
	assert.Equal(t, " 17 ", valid[0].Label)
	assert.Equal(t, "A-04", valid[1].Label)
}
