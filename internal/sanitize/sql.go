package sanitize

import (
	"fmt"
	"strconv"
	"strings"
)

// SQLiteFunc is the name of the SQL function SQLite stores register to apply
// Parse inside queries: num_sanitize(value, kind) returns REAL or NULL.
const SQLiteFunc = "num_sanitize"

// PostgresExpr renders the rule for kind over column as a PostgreSQL
// expression yielding double precision or NULL. The nested CASE keeps the
// cast from being evaluated on values that fail the pattern.
func PostgresExpr(column string, kind Kind) string {
	quoted := "'" + strings.ReplaceAll(Pattern, "'", "''") + "'"
	cast := column + "::double precision"
	if !kind.positive() {
		return fmt.Sprintf("(CASE WHEN %s ~ %s THEN %s END)", column, quoted, cast)
	}
	return fmt.Sprintf("(CASE WHEN %s ~ %s THEN CASE WHEN %s > 0 THEN %s END END)", column, quoted, cast, cast)
}

// SQLiteExpr renders the rule for kind over column as a call to SQLiteFunc.
func SQLiteExpr(column string, kind Kind) string {
	return fmt.Sprintf("%s(%s, %d)", SQLiteFunc, column, int(kind))
}

// ParseValue applies Parse to a value handed over by a SQL driver. NULL and
// unsupported types are unusable.
func ParseValue(v any, kind Kind) (float64, bool) {
	switch x := v.(type) {
	case string:
		return Parse(x, kind)
	case []byte:
		return Parse(string(x), kind)
	case int64:
		return Parse(strconv.FormatInt(x, 10), kind)
	case float64:
		return Parse(strconv.FormatFloat(x, 'f', -1, 64), kind)
	default:
		return 0, false
	}
}
