package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"modernc.org/sqlite"

	"github.com/sells-group/compmap/internal/grid"
	"github.com/sells-group/compmap/internal/model"
	"github.com/sells-group/compmap/internal/predicate"
	"github.com/sells-group/compmap/internal/sanitize"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

const lite = predicate.SQLite

var registerOnce sync.Once
var registerErr error

// registerFunctions installs the sanitizer, lowercase and grid functions the SQLite
// queries call. Registration is process-wide and must precede Open.
func registerFunctions() error {
	registerOnce.Do(func() {
		registerErr = sqlite.RegisterDeterministicScalarFunction(sanitize.SQLiteFunc, 2,
			func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
				kind, ok := args[1].(int64)
				if !ok {
					return nil, eris.Errorf("%s: kind must be an integer", sanitize.SQLiteFunc)
				}
				v, ok := sanitize.ParseValue(args[0], sanitize.Kind(kind))
				if !ok {
					return nil, nil
				}
				return v, nil
			})
		if registerErr != nil {
			return
		}
		registerErr = sqlite.RegisterDeterministicScalarFunction(predicate.SQLiteLowerFunc, 1,
			func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
				switch x := args[0].(type) {
				case string:
					return strings.ToLower(x), nil
				case []byte:
					return strings.ToLower(string(x)), nil
				default:
					return x, nil
				}
			})
		if registerErr != nil {
			return
		}
		registerErr = sqlite.RegisterDeterministicScalarFunction(grid.SQLiteFunc, 2,
			func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
				v, ok := toFloat(args[0])
				if !ok {
					return nil, nil
				}
				g, ok := toFloat(args[1])
				if !ok || g <= 0 {
					return nil, eris.Errorf("%s: granularity must be positive", grid.SQLiteFunc)
				}
				return grid.Floor(v, g), nil
			})
	})
	return registerErr
}

func toFloat(v driver.Value) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

// sqlitePragmas are applied to every pooled connection through the DSN.
const sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

// NewSQLite opens a SQLite database at the given path in WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if err := registerFunctions(); err != nil {
		return nil, eris.Wrap(err, "sqlite: register functions")
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", dsn+sep+sqlitePragmas)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	if err := db.Ping(); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "sqlite: open")
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS properties (
	id             TEXT PRIMARY KEY,
	account_id     TEXT NOT NULL DEFAULT '',
	user_id        TEXT NOT NULL DEFAULT '',
	type           TEXT NOT NULL DEFAULT '',
	comp_status    TEXT NOT NULL DEFAULT '',
	comp_type      TEXT NOT NULL DEFAULT '',
	lease_type     TEXT NOT NULL DEFAULT '',
	property_type  TEXT NOT NULL DEFAULT '',
	property_class TEXT NOT NULL DEFAULT '',
	address        TEXT NOT NULL DEFAULT '',
	city           TEXT NOT NULL DEFAULT '',
	state          TEXT NOT NULL DEFAULT '',
	zip_code       TEXT NOT NULL DEFAULT '',
	latitude       TEXT NOT NULL DEFAULT '',
	longitude      TEXT NOT NULL DEFAULT '',
	sale_price     TEXT NOT NULL DEFAULT '',
	lease_rate     TEXT NOT NULL DEFAULT '',
	building_size  TEXT NOT NULL DEFAULT '',
	land_size      TEXT NOT NULL DEFAULT '',
	land_size_unit TEXT NOT NULL DEFAULT '',
	price_per_unit TEXT NOT NULL DEFAULT '',
	cap_rate       TEXT NOT NULL DEFAULT '',
	condition      TEXT NOT NULL DEFAULT '',
	image_url      TEXT NOT NULL DEFAULT '',
	sold_date      TEXT,
	created_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_properties_account_id ON properties(account_id);
CREATE INDEX IF NOT EXISTS idx_properties_user_id ON properties(user_id);
CREATE INDEX IF NOT EXISTS idx_properties_created_at ON properties(created_at DESC, id);
CREATE INDEX IF NOT EXISTS idx_properties_city ON properties(city);
`

// Ping checks the database handle.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

// Migrate creates the properties table and its indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ClusterBins returns up to limit grid cells ordered by member count.
func (s *SQLiteStore) ClusterBins(ctx context.Context, p predicate.Predicate, granularity float64, limit int) (*model.BinSet, error) {
	q := clusterBinsQuery(lite, p, granularity, limit)
	rows, err := s.db.QueryContext(ctx, q.sql, q.args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: cluster bins")
	}
	defer rows.Close() //nolint:errcheck

	set := &model.BinSet{}
	for rows.Next() {
		bin, totalBins, totalRecords, err := scanBin(rows, lite)
		if err != nil {
			return nil, err
		}
		set.Bins = append(set.Bins, bin)
		set.TotalBins, set.TotalRecords = totalBins, totalRecords
	}
	return set, eris.Wrap(rows.Err(), "sqlite: cluster bins rows")
}

// ListPins returns up to limit matching records, newest first.
func (s *SQLiteStore) ListPins(ctx context.Context, p predicate.Predicate, limit int) (*model.PinSet, error) {
	q := listPinsQuery(lite, p, limit)
	rows, err := s.db.QueryContext(ctx, q.sql, q.args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list pins")
	}
	defer rows.Close() //nolint:errcheck

	set := &model.PinSet{}
	for rows.Next() {
		rec, err := scanProperty(rows, lite, &set.Total)
		if err != nil {
			return nil, err
		}
		set.Records = append(set.Records, rec)
	}
	return set, eris.Wrap(rows.Err(), "sqlite: list pins rows")
}

// CountProperties counts matching records.
func (s *SQLiteStore) CountProperties(ctx context.Context, p predicate.Predicate) (int, error) {
	q := countQuery(lite, p)
	var n int
	if err := s.db.QueryRowContext(ctx, q.sql, q.args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count properties")
	}
	return n, nil
}

// ListProperties returns one page of matching records.
func (s *SQLiteStore) ListProperties(ctx context.Context, p predicate.Predicate, sort model.SortSpec, limit, offset int) ([]model.PropertyRecord, error) {
	recs, err := s.queryProperties(ctx, listPropertiesQuery(lite, p, sort, limit, offset))
	return recs, eris.Wrap(err, "sqlite: list properties")
}

// StatsSummary aggregates count, sale price and building size.
func (s *SQLiteStore) StatsSummary(ctx context.Context, p predicate.Predicate) (*model.StatsSummary, error) {
	q := statsSummaryQuery(lite, p)
	sum, err := scanSummary(s.db.QueryRowContext(ctx, q.sql, q.args...))
	return sum, eris.Wrap(err, "sqlite: stats summary")
}

// TypeHistogram counts records per property type.
func (s *SQLiteStore) TypeHistogram(ctx context.Context, p predicate.Predicate) ([]model.TypeCount, error) {
	q := typeHistogramQuery(lite, p)
	rows, err := s.db.QueryContext(ctx, q.sql, q.args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: type histogram")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.TypeCount
	for rows.Next() {
		var tc model.TypeCount
		if err := rows.Scan(&tc.PropertyType, &tc.Count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan type count")
		}
		out = append(out, tc)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: type histogram rows")
}

// TopCities ranks cities by record count.
func (s *SQLiteStore) TopCities(ctx context.Context, p predicate.Predicate, limit int) ([]model.CityStat, error) {
	q := topCitiesQuery(lite, p, limit)
	rows, err := s.db.QueryContext(ctx, q.sql, q.args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: top cities")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.CityStat
	for rows.Next() {
		var cs model.CityStat
		if err := rows.Scan(&cs.City, &cs.Count, &cs.AvgPrice); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan city")
		}
		out = append(out, cs)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: top cities rows")
}

// RecentSales returns the most recently sold matching records.
func (s *SQLiteStore) RecentSales(ctx context.Context, p predicate.Predicate, limit int) ([]model.PropertyRecord, error) {
	recs, err := s.queryProperties(ctx, recentSalesQuery(lite, p, limit))
	return recs, eris.Wrap(err, "sqlite: recent sales")
}

// UpsertProperties inserts or replaces records by id in one transaction.
func (s *SQLiteStore) UpsertProperties(ctx context.Context, recs []model.PropertyRecord) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertSQL())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for i := range recs {
		res, err := stmt.ExecContext(ctx, sqliteValues(&recs[i])...)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert property %s", recs[i].ID)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert")
	}
	return n, nil
}

func sqliteUpsertSQL() string {
	cols := model.PropertyColumns
	phs := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	sets := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		sets = append(sets, c+" = excluded."+c)
	}
	return "INSERT INTO " + propertiesTable + " (" + selectColumns + ") VALUES (" + phs +
		") ON CONFLICT(id) DO UPDATE SET " + strings.Join(sets, ", ")
}

// sqliteValues is PropertyRecord.Values with timestamps in the text layout
// the queries compare against.
func sqliteValues(rec *model.PropertyRecord) []any {
	vals := rec.Values()
	n := len(vals)
	if rec.SoldDate != nil {
		vals[n-2] = lite.TimeArg(*rec.SoldDate)
	}
	vals[n-1] = lite.TimeArg(rec.CreatedAt)
	return vals
}

func (s *SQLiteStore) queryProperties(ctx context.Context, q query) ([]model.PropertyRecord, error) {
	rows, err := s.db.QueryContext(ctx, q.sql, q.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []model.PropertyRecord
	for rows.Next() {
		rec, err := scanProperty(rows, lite)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
