package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/compmap/internal/db"
	"github.com/sells-group/compmap/internal/model"
	"github.com/sells-group/compmap/internal/predicate"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const pg = predicate.Postgres

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, e.g. a pgxmock pool in tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
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
	sold_date      TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_properties_account_id ON properties(account_id);
CREATE INDEX IF NOT EXISTS idx_properties_user_id ON properties(user_id);
CREATE INDEX IF NOT EXISTS idx_properties_created_at ON properties(created_at DESC, id);
CREATE INDEX IF NOT EXISTS idx_properties_sold_date ON properties(sold_date DESC NULLS LAST);
CREATE INDEX IF NOT EXISTS idx_properties_city ON properties(city);
CREATE INDEX IF NOT EXISTS idx_properties_property_type ON properties(property_type);
`

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

// Migrate creates the properties table and its indexes.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// ClusterBins returns up to limit grid cells ordered by member count.
func (s *PostgresStore) ClusterBins(ctx context.Context, p predicate.Predicate, granularity float64, limit int) (*model.BinSet, error) {
	q := clusterBinsQuery(pg, p, granularity, limit)
	rows, err := s.pool.Query(ctx, q.sql, q.args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: cluster bins")
	}
	defer rows.Close()

	set := &model.BinSet{}
	for rows.Next() {
		bin, totalBins, totalRecords, err := scanBin(rows, pg)
		if err != nil {
			return nil, err
		}
		set.Bins = append(set.Bins, bin)
		set.TotalBins, set.TotalRecords = totalBins, totalRecords
	}
	return set, eris.Wrap(rows.Err(), "postgres: cluster bins rows")
}

// ListPins returns up to limit matching records, newest first.
func (s *PostgresStore) ListPins(ctx context.Context, p predicate.Predicate, limit int) (*model.PinSet, error) {
	q := listPinsQuery(pg, p, limit)
	rows, err := s.pool.Query(ctx, q.sql, q.args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list pins")
	}
	defer rows.Close()

	set := &model.PinSet{}
	for rows.Next() {
		rec, err := scanProperty(rows, pg, &set.Total)
		if err != nil {
			return nil, err
		}
		set.Records = append(set.Records, rec)
	}
	return set, eris.Wrap(rows.Err(), "postgres: list pins rows")
}

// CountProperties counts matching records.
func (s *PostgresStore) CountProperties(ctx context.Context, p predicate.Predicate) (int, error) {
	q := countQuery(pg, p)
	var n int
	if err := s.pool.QueryRow(ctx, q.sql, q.args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count properties")
	}
	return n, nil
}

// ListProperties returns one page of matching records.
func (s *PostgresStore) ListProperties(ctx context.Context, p predicate.Predicate, sort model.SortSpec, limit, offset int) ([]model.PropertyRecord, error) {
	q := listPropertiesQuery(pg, p, sort, limit, offset)
	recs, err := s.queryProperties(ctx, q)
	return recs, eris.Wrap(err, "postgres: list properties")
}

// StatsSummary aggregates count, sale price and building size.
func (s *PostgresStore) StatsSummary(ctx context.Context, p predicate.Predicate) (*model.StatsSummary, error) {
	q := statsSummaryQuery(pg, p)
	sum, err := scanSummary(s.pool.QueryRow(ctx, q.sql, q.args...))
	return sum, eris.Wrap(err, "postgres: stats summary")
}

// TypeHistogram counts records per property type. Percentages are left to
// the caller.
func (s *PostgresStore) TypeHistogram(ctx context.Context, p predicate.Predicate) ([]model.TypeCount, error) {
	q := typeHistogramQuery(pg, p)
	rows, err := s.pool.Query(ctx, q.sql, q.args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: type histogram")
	}
	defer rows.Close()

	var out []model.TypeCount
	for rows.Next() {
		var tc model.TypeCount
		if err := rows.Scan(&tc.PropertyType, &tc.Count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan type count")
		}
		out = append(out, tc)
	}
	return out, eris.Wrap(rows.Err(), "postgres: type histogram rows")
}

// TopCities ranks cities by record count.
func (s *PostgresStore) TopCities(ctx context.Context, p predicate.Predicate, limit int) ([]model.CityStat, error) {
	q := topCitiesQuery(pg, p, limit)
	rows, err := s.pool.Query(ctx, q.sql, q.args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: top cities")
	}
	defer rows.Close()

	var out []model.CityStat
	for rows.Next() {
		var cs model.CityStat
		if err := rows.Scan(&cs.City, &cs.Count, &cs.AvgPrice); err != nil {
			return nil, eris.Wrap(err, "postgres: scan city")
		}
		out = append(out, cs)
	}
	return out, eris.Wrap(rows.Err(), "postgres: top cities rows")
}

// RecentSales returns the most recently sold matching records.
func (s *PostgresStore) RecentSales(ctx context.Context, p predicate.Predicate, limit int) ([]model.PropertyRecord, error) {
	recs, err := s.queryProperties(ctx, recentSalesQuery(pg, p, limit))
	return recs, eris.Wrap(err, "postgres: recent sales")
}

// UpsertProperties inserts or replaces records by id.
func (s *PostgresStore) UpsertProperties(ctx context.Context, recs []model.PropertyRecord) (int64, error) {
	rows := make([][]any, len(recs))
	for i := range recs {
		rows[i] = recs[i].Values()
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertSpec{
		Table:   propertiesTable,
		Columns: model.PropertyColumns,
		Keys:    []string{"id"},
	}, rows)
	return n, eris.Wrap(err, "postgres: upsert properties")
}

func (s *PostgresStore) queryProperties(ctx context.Context, q query) ([]model.PropertyRecord, error) {
	rows, err := s.pool.Query(ctx, q.sql, q.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PropertyRecord
	for rows.Next() {
		rec, err := scanProperty(rows, pg)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
