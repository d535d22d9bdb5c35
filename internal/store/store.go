// Package store persists property records and answers the map engine's
// aggregate queries. PostgreSQL and SQLite share the query builders in
// queries.go; both compile the same predicate.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compmap/internal/model"
	"github.com/sells-group/compmap/internal/predicate"
)

// Store defines the property query surface.
type Store interface {
	// Map aggregates
	ClusterBins(ctx context.Context, p predicate.Predicate, granularity float64, limit int) (*model.BinSet, error)
	ListPins(ctx context.Context, p predicate.Predicate, limit int) (*model.PinSet, error)

	// Listing
	CountProperties(ctx context.Context, p predicate.Predicate) (int, error)
	ListProperties(ctx context.Context, p predicate.Predicate, sort model.SortSpec, limit, offset int) ([]model.PropertyRecord, error)

	// Statistics
	StatsSummary(ctx context.Context, p predicate.Predicate) (*model.StatsSummary, error)
	TypeHistogram(ctx context.Context, p predicate.Predicate) ([]model.TypeCount, error)
	TopCities(ctx context.Context, p predicate.Predicate, limit int) ([]model.CityStat, error)
	RecentSales(ctx context.Context, p predicate.Predicate, limit int) ([]model.PropertyRecord, error)

	// Writes
	UpsertProperties(ctx context.Context, recs []model.PropertyRecord) (int64, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and tunes the backing database.
type Config struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// Drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the configured driver. The schema is not migrated.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return NewSQLite(cfg.DatabaseURL)
	case DriverPostgres:
		return NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
}
