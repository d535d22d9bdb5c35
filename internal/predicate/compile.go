package predicate

import (
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/compmap/internal/sanitize"
)

// Dialect selects the SQL flavor a predicate compiles to.
type Dialect int

// Supported dialects.
const (
	Postgres Dialect = iota
	SQLite
)

// SQLiteTimeLayout is the fixed-width UTC layout timestamps are stored in by
// SQLite stores, so text comparison orders them chronologically.
const SQLiteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteLowerFunc is the Unicode-aware lowercase function SQLite stores
// register. The built-in LOWER only folds ASCII.
const SQLiteLowerFunc = "unicode_lower"

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// Num renders the sanitized numeric value of column.
func (d Dialect) Num(column string, kind sanitize.Kind) string {
	if d == SQLite {
		return sanitize.SQLiteExpr(column, kind)
	}
	return sanitize.PostgresExpr(column, kind)
}

// Lower renders column folded to lowercase the way strings.ToLower folds it.
func (d Dialect) Lower(column string) string {
	if d == SQLite {
		return SQLiteLowerFunc + "(" + column + ")"
	}
	return "LOWER(" + column + ")"
}

// Placeholder renders the n-th (1-based) bind parameter.
func (d Dialect) Placeholder(n int) string {
	if d == SQLite {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

// TimeArg converts a timestamp into the bind value the dialect compares
// against stored timestamps.
func (d Dialect) TimeArg(t time.Time) any {
	if d == SQLite {
		return t.UTC().Format(SQLiteTimeLayout)
	}
	return t.UTC()
}

// Compile renders the predicate as a SQL boolean expression. Bind parameters
// are numbered from start (PostgreSQL); the returned args are in placeholder
// order. An empty predicate compiles to a tautology.
func (p Predicate) Compile(d Dialect, start int) (string, []any) {
	b := &builder{d: d, next: start}
	parts := make([]string, 0, len(p.Clauses))
	for _, c := range p.Clauses {
		parts = append(parts, "("+b.clause(c)+")")
	}
	if len(parts) == 0 {
		return "1 = 1", nil
	}
	return strings.Join(parts, " AND "), b.args
}

type builder struct {
	d    Dialect
	next int
	args []any
}

func (b *builder) bind(v any) string {
	ph := b.d.Placeholder(b.next)
	b.next++
	b.args = append(b.args, v)
	return ph
}

func (b *builder) clause(c Clause) string {
	col := string(c.Column)
	switch c.Op {
	case OpRange:
		expr := b.d.Num(col, c.Kind)
		return b.bounded(expr, floatArg(c.Min), floatArg(c.Max))
	case OpTimeRange:
		var from, to any
		if c.From != nil {
			from = b.d.TimeArg(*c.From)
		}
		if c.To != nil {
			to = b.d.TimeArg(*c.To)
		}
		return b.bounded(col, from, to)
	case OpEq:
		return col + " = " + b.bind(c.Value)
	case OpIn:
		if b.d == Postgres {
			return col + " = ANY(" + b.bind(c.Values) + ")"
		}
		phs := make([]string, len(c.Values))
		for i, v := range c.Values {
			phs[i] = b.bind(v)
		}
		return col + " IN (" + strings.Join(phs, ", ") + ")"
	case OpSearch:
		pattern := "%" + escapeLike(strings.ToLower(c.Value)) + "%"
		ors := make([]string, len(c.Columns))
		var ph string
		for i, sc := range c.Columns {
			// PostgreSQL can reuse one numbered parameter; SQLite needs one per use.
			if ph == "" || b.d == SQLite {
				ph = b.bind(pattern)
			}
			ors[i] = b.d.Lower(string(sc)) + " LIKE " + ph + ` ESCAPE '\'`
		}
		return strings.Join(ors, " OR ")
	default:
		return "1 = 1"
	}
}

// bounded renders an inclusive range over expr. A nil end is open.
func (b *builder) bounded(expr string, lo, hi any) string {
	switch {
	case lo != nil && hi != nil:
		return expr + " BETWEEN " + b.bind(lo) + " AND " + b.bind(hi)
	case lo != nil:
		return expr + " >= " + b.bind(lo)
	case hi != nil:
		return expr + " <= " + b.bind(hi)
	default:
		return expr + " IS NOT NULL"
	}
}

func floatArg(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
