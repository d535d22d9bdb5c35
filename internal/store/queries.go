package store

import (
	"strconv"
	"strings"

	"github.com/sells-group/compmap/internal/grid"
	"github.com/sells-group/compmap/internal/model"
	"github.com/sells-group/compmap/internal/predicate"
	"github.com/sells-group/compmap/internal/sanitize"
)

const propertiesTable = "properties"

// UnknownType labels records without a property type in the histogram.
const UnknownType = "Unknown"

var selectColumns = strings.Join(model.PropertyColumns, ", ")

// query is a rendered statement and its bind arguments.
type query struct {
	sql  string
	args []any
}

// where compiles p and returns the WHERE body plus a binder continuing the
// placeholder sequence for trailing arguments.
func where(d predicate.Dialect, p predicate.Predicate) (string, *binder) {
	sql, args := p.Compile(d, 1)
	return sql, &binder{d: d, args: args}
}

type binder struct {
	d    predicate.Dialect
	args []any
}

func (b *binder) bind(v any) string {
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}

func num(d predicate.Dialect, col string, kind sanitize.Kind) string {
	return d.Num(col, kind)
}

func binExpr(d predicate.Dialect, expr string, granularity float64) string {
	g := strconv.FormatFloat(granularity, 'f', -1, 64)
	if d == predicate.SQLite {
		return grid.SQLiteExpr(expr, g)
	}
	return grid.PostgresExpr(expr, g)
}

// typesAgg collects the distinct non-blank property types of a group.
// PostgreSQL yields text[]; SQLite yields a JSON array.
func typesAgg(d predicate.Dialect) string {
	if d == predicate.SQLite {
		return "json_group_array(DISTINCT property_type) FILTER (WHERE property_type <> '')"
	}
	return "array_agg(DISTINCT property_type) FILTER (WHERE property_type <> '')"
}

// clusterBinsQuery groups matching records into grid cells. Window totals are
// computed before LIMIT so callers can report what the cap cut off.
func clusterBinsQuery(d predicate.Dialect, p predicate.Predicate, granularity float64, limit int) query {
	cond, b := where(d, p)
	lat := num(d, "latitude", sanitize.Coordinate)
	lng := num(d, "longitude", sanitize.Coordinate)

	sql := `SELECT lat_bin, lng_bin, COUNT(*) AS n,
	AVG(price), AVG(size), AVG(ppu),
	MIN(lat), MAX(lat), MIN(lng), MAX(lng),
	` + typesAgg(d) + `,
	COUNT(*) OVER (),
	CAST(SUM(COUNT(*)) OVER () AS BIGINT)
FROM (
	SELECT ` + lat + ` AS lat, ` + lng + ` AS lng,
		` + binExpr(d, lat, granularity) + ` AS lat_bin,
		` + binExpr(d, lng, granularity) + ` AS lng_bin,
		` + num(d, "sale_price", sanitize.Currency) + ` AS price,
		` + num(d, "building_size", sanitize.Size) + ` AS size,
		` + num(d, "price_per_unit", sanitize.Currency) + ` AS ppu,
		property_type
	FROM ` + propertiesTable + `
	WHERE ` + cond + `
) c
GROUP BY lat_bin, lng_bin
ORDER BY n DESC, lat_bin, lng_bin
LIMIT ` + b.bind(limit)
	return query{sql: sql, args: b.args}
}

// listPinsQuery returns the newest matching records with the uncapped total
// appended as the last column.
func listPinsQuery(d predicate.Dialect, p predicate.Predicate, limit int) query {
	cond, b := where(d, p)
	sql := "SELECT " + selectColumns + ", COUNT(*) OVER () FROM " + propertiesTable +
		" WHERE " + cond +
		" ORDER BY created_at DESC, id ASC LIMIT " + b.bind(limit)
	return query{sql: sql, args: b.args}
}

func countQuery(d predicate.Dialect, p predicate.Predicate) query {
	cond, b := where(d, p)
	return query{sql: "SELECT COUNT(*) FROM " + propertiesTable + " WHERE " + cond, args: b.args}
}

// orderBy renders the listing order. Unknown fields fall back to creation time.
func orderBy(d predicate.Dialect, sort model.SortSpec) string {
	var expr string
	switch sort.Field {
	case model.SortSoldDate:
		expr = "sold_date"
	case model.SortSalePrice:
		expr = num(d, "sale_price", sanitize.Currency)
	case model.SortBuildingSize:
		expr = num(d, "building_size", sanitize.Size)
	case model.SortCity:
		expr = "city"
	default:
		expr = "created_at"
	}
	dir := "DESC"
	if sort.Asc {
		dir = "ASC"
	}
	return expr + " " + dir + " NULLS LAST, id ASC"
}

func listPropertiesQuery(d predicate.Dialect, p predicate.Predicate, sort model.SortSpec, limit, offset int) query {
	cond, b := where(d, p)
	sql := "SELECT " + selectColumns + " FROM " + propertiesTable +
		" WHERE " + cond +
		" ORDER BY " + orderBy(d, sort) +
		" LIMIT " + b.bind(limit) + " OFFSET " + b.bind(offset)
	return query{sql: sql, args: b.args}
}

func statsSummaryQuery(d predicate.Dialect, p predicate.Predicate) query {
	cond, b := where(d, p)
	sql := `SELECT COUNT(*), AVG(price), MIN(price), MAX(price), AVG(size), MIN(size), MAX(size)
FROM (
	SELECT ` + num(d, "sale_price", sanitize.Currency) + ` AS price,
		` + num(d, "building_size", sanitize.Size) + ` AS size
	FROM ` + propertiesTable + `
	WHERE ` + cond + `
) c`
	return query{sql: sql, args: b.args}
}

func typeHistogramQuery(d predicate.Dialect, p predicate.Predicate) query {
	cond, b := where(d, p)
	sql := `SELECT CASE WHEN TRIM(property_type) = '' THEN '` + UnknownType + `' ELSE property_type END AS ptype, COUNT(*) AS n
FROM ` + propertiesTable + `
WHERE ` + cond + `
GROUP BY ptype
ORDER BY n DESC, ptype`
	return query{sql: sql, args: b.args}
}

// topCitiesQuery ranks non-blank cities by record count.
func topCitiesQuery(d predicate.Dialect, p predicate.Predicate, limit int) query {
	cond, b := where(d, p)
	sql := `SELECT city, COUNT(*) AS n, AVG(` + num(d, "sale_price", sanitize.Currency) + `)
FROM ` + propertiesTable + `
WHERE ` + cond + ` AND TRIM(city) <> ''
GROUP BY city
ORDER BY n DESC, city
LIMIT ` + b.bind(limit)
	return query{sql: sql, args: b.args}
}

func recentSalesQuery(d predicate.Dialect, p predicate.Predicate, limit int) query {
	cond, b := where(d, p)
	sql := "SELECT " + selectColumns + " FROM " + propertiesTable +
		" WHERE " + cond +
		" ORDER BY sold_date DESC NULLS LAST, created_at DESC, id ASC LIMIT " + b.bind(limit)
	return query{sql: sql, args: b.args}
}
