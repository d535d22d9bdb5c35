package sanitize

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Coordinate(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"34.05", 34.05, true},
		{"-118.25", -118.25, true},
		{"+12", 12, true},
		{"0", 0, true},
		{"-0.5", -0.5, true},
		{"abc", 0, false},
		{"", 0, false},
		{" 34.05", 0, false},
		{"34.", 0, false},
		{".5", 0, false},
		{"1e5", 0, false},
		{"34,05", 0, false},
		{"--1", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := Parse(tt.raw, Coordinate)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParse_PositiveKinds(t *testing.T) {
	for _, kind := range []Kind{Currency, Size, Percent} {
		t.Run(kind.String(), func(t *testing.T) {
			v, ok := Parse("1250000", kind)
			require.True(t, ok)
			assert.Equal(t, 1250000.0, v)

			v, ok = Parse("0.07", kind)
			require.True(t, ok)
			assert.InDelta(t, 0.07, v, 1e-12)

			_, ok = Parse("0", kind)
			assert.False(t, ok, "zero is not a meaningful value")

			_, ok = Parse("0.00", kind)
			assert.False(t, ok)

			_, ok = Parse("-5", kind)
			assert.False(t, ok, "negative values are rejected")

			_, ok = Parse("$1,200", kind)
			assert.False(t, ok)
		})
	}
}

func TestParse_DigitRunsAreBounded(t *testing.T) {
	longest := strings.Repeat("9", MaxDigits)
	v, ok := Parse(longest, Size)
	require.True(t, ok)
	assert.False(t, math.IsInf(v, 0))

	tiny := "0." + strings.Repeat("0", MaxDigits-1) + "1"
	v, ok = Parse(tiny, Coordinate)
	require.True(t, ok)
	assert.Greater(t, v, 0.0)

	_, ok = Parse("1"+strings.Repeat("0", 400), Currency)
	assert.False(t, ok, "overflowing magnitude is unusable")

	_, ok = Parse("1"+strings.Repeat("0", MaxDigits), Coordinate)
	assert.False(t, ok)

	_, ok = Parse("0."+strings.Repeat("0", 400)+"1", Coordinate)
	assert.False(t, ok, "underflowing fraction is unusable")
}

func TestPtr(t *testing.T) {
	assert.Nil(t, Ptr("n/a", Currency))
	p := Ptr("42.5", Size)
	require.NotNil(t, p)
	assert.Equal(t, 42.5, *p)
}

func TestParseValue(t *testing.T) {
	v, ok := ParseValue("12.5", Size)
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)

	v, ok = ParseValue([]byte("-3"), Coordinate)
	assert.True(t, ok)
	assert.Equal(t, -3.0, v)

	v, ok = ParseValue(int64(7), Currency)
	assert.True(t, ok)
	assert.Equal(t, 7.0, v)

	_, ok = ParseValue(float64(-1), Currency)
	assert.False(t, ok)

	_, ok = ParseValue(nil, Coordinate)
	assert.False(t, ok)
}

func TestPostgresExpr(t *testing.T) {
	coord := PostgresExpr("p.latitude", Coordinate)
	assert.Equal(t, `(CASE WHEN p.latitude ~ '^[-+]?[0-9]{1,255}(\.[0-9]{1,255})?$' THEN p.latitude::double precision END)`, coord)

	price := PostgresExpr("p.sale_price", Currency)
	assert.Contains(t, price, "CASE WHEN p.sale_price::double precision > 0")
	assert.Contains(t, price, Pattern)

	// The PostgreSQL regex must reject the same digit runs Parse rejects, or
	// the double precision cast raises instead of yielding NULL.
	assert.Contains(t, coord, "{1,255}")
	assert.NotContains(t, coord, "[0-9]+")
}

func TestSQLiteExpr(t *testing.T) {
	assert.Equal(t, "num_sanitize(p.latitude, 0)", SQLiteExpr("p.latitude", Coordinate))
	assert.Equal(t, "num_sanitize(p.cap_rate, 3)", SQLiteExpr("p.cap_rate", Percent))
}
