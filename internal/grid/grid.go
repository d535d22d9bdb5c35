// Package grid maps zoom levels to binning granularity and snaps coordinates
// onto the resulting grid.
package grid

import "math"

// SQLiteFunc is the SQL function SQLite stores register for Floor:
// grid_floor(value, granularity).
const SQLiteFunc = "grid_floor"

type band struct {
	maxZoom     int
	granularity float64
}

// Ascending by maxZoom. Zooms above the last band use finest.
var bands = []band{
	{maxZoom: 8, granularity: 2},
	{maxZoom: 10, granularity: 10},
	{maxZoom: 12, granularity: 40},
	{maxZoom: 14, granularity: 100},
}

const finest = 400

// Granularity returns the number of grid cells per degree at zoom. Cells are
// 1/Granularity degrees wide, so a larger value clusters less.
func Granularity(zoom int) float64 {
	for _, b := range bands {
		if zoom <= b.maxZoom {
			return b.granularity
		}
	}
	return finest
}

// Floor snaps v to the lower edge of its grid cell.
func Floor(v, granularity float64) float64 {
	return math.Floor(v*granularity) / granularity
}

// PostgresExpr renders Floor over expr using the placeholder for the
// granularity argument.
func PostgresExpr(expr, granularityArg string) string {
	return "floor(" + expr + " * " + granularityArg + ") / " + granularityArg
}

// SQLiteExpr renders Floor over expr as a call to SQLiteFunc.
func SQLiteExpr(expr, granularityArg string) string {
	return SQLiteFunc + "(" + expr + ", " + granularityArg + ")"
}
