package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var importedAt = time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

func TestNormalizeHeader(t *testing.T) {
	tests := map[string]string{
		"Sale Price":     "saleprice",
		"sale_price":     "saleprice",
		" SALEPRICE ":    "saleprice",
		"Price/SF":       "pricesf",
		"Zip-Code":       "zipcode",
		"Größe":          "grösse",
		"Cap Rate (%)":   "caprate",
		"":               "",
		"Building Size ": "buildingsize",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeHeader(in), in)
	}
}

func TestNewMapper_NoRecognizedColumns(t *testing.T) {
	_, err := NewMapper([]string{"foo", "bar"}, Defaults{})
	require.Error(t, err)
}

func TestMapper_Record(t *testing.T) {
	m, err := NewMapper([]string{"Comp ID", "Address", "City", "Lat", "Long", "Sale Price", "Sale Date", "Property Type", "Notes"},
		Defaults{AccountID: "acct-1", UserID: "u1", CreatedAt: importedAt})
	require.NoError(t, err)

	rec, ok, err := m.Record([]string{"c-9", " 1 Main St ", "Austin", "30.2672", "-97.7431", "$1,200,000", "03/15/2024", "Office", "corner lot"})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "c-9", rec.ID)
	assert.Equal(t, "1 Main St", rec.Address)
	assert.Equal(t, "Austin", rec.City)
	assert.Equal(t, "30.2672", rec.Latitude)
	assert.Equal(t, "-97.7431", rec.Longitude)
	assert.Equal(t, "$1,200,000", rec.SalePrice, "raw text is preserved")
	assert.Equal(t, "Office", rec.PropertyType)
	require.NotNil(t, rec.SoldDate)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *rec.SoldDate)
	assert.Equal(t, "acct-1", rec.AccountID)
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, importedAt, rec.CreatedAt)
}

func TestMapper_RowOverridesDefaults(t *testing.T) {
	m, err := NewMapper([]string{"account_id", "user_id", "created_at", "address"}, Defaults{AccountID: "acct-1", UserID: "u1", CreatedAt: importedAt})
	require.NoError(t, err)

	rec, ok, err := m.Record([]string{"acct-2", "u7", "2023-05-01T10:00:00Z", "9 Pine"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "acct-2", rec.AccountID)
	assert.Equal(t, "u7", rec.UserID)
	assert.Equal(t, time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC), rec.CreatedAt)
}

func TestMapper_DerivedIDIsStable(t *testing.T) {
	m, err := NewMapper([]string{"address", "city", "latitude", "longitude"}, Defaults{AccountID: "acct-1", CreatedAt: importedAt})
	require.NoError(t, err)

	a, _, err := m.Record([]string{"1 Main", "Austin", "30.1", "-97.7"})
	require.NoError(t, err)
	b, _, err := m.Record([]string{"1 Main", "Austin", "30.1", "-97.7"})
	require.NoError(t, err)
	c, _, err := m.Record([]string{"2 Main", "Austin", "30.1", "-97.7"})
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestMapper_BlankAndShortRows(t *testing.T) {
	m, err := NewMapper([]string{"address", "city", "state"}, Defaults{CreatedAt: importedAt})
	require.NoError(t, err)

	_, ok, err := m.Record([]string{"", "  ", ""})
	require.NoError(t, err)
	assert.False(t, ok)

	rec, ok, err := m.Record([]string{"5 Elm"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "5 Elm", rec.Address)
	assert.Empty(t, rec.State)

	rec, ok, err = m.Record([]string{"5 Elm", "Waco", "TX", "extra"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "TX", rec.State)
}

func TestMapper_BadDate(t *testing.T) {
	m, err := NewMapper([]string{"address", "sold_date"}, Defaults{CreatedAt: importedAt})
	require.NoError(t, err)

	_, ok, err := m.Record([]string{"1 Main", "sometime in May"})
	require.Error(t, err)
	assert.False(t, ok)
}
