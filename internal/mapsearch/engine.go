// Package mapsearch answers map viewport requests: clusters or individual
// pins depending on zoom, paginated drill-down listings, and view statistics.
// Every entry point resolves the same predicate before touching the store.
package mapsearch

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compmap/internal/model"
	"github.com/sells-group/compmap/internal/predicate"
)

// ErrInvalidRequest marks caller contract violations. It is returned before
// the store is queried.
var ErrInvalidRequest = eris.New("mapsearch: invalid request")

// Store is the query surface the engine needs.
type Store interface {
	ClusterBins(ctx context.Context, p predicate.Predicate, granularity float64, limit int) (*model.BinSet, error)
	ListPins(ctx context.Context, p predicate.Predicate, limit int) (*model.PinSet, error)
	CountProperties(ctx context.Context, p predicate.Predicate) (int, error)
	ListProperties(ctx context.Context, p predicate.Predicate, sort model.SortSpec, limit, offset int) ([]model.PropertyRecord, error)
	StatsSummary(ctx context.Context, p predicate.Predicate) (*model.StatsSummary, error)
	TypeHistogram(ctx context.Context, p predicate.Predicate) ([]model.TypeCount, error)
	TopCities(ctx context.Context, p predicate.Predicate, limit int) ([]model.CityStat, error)
	RecentSales(ctx context.Context, p predicate.Predicate, limit int) ([]model.PropertyRecord, error)
}

// Observer receives the outcome of every engine operation.
type Observer interface {
	ObserveOperation(op string, elapsed time.Duration, err error)
}

// Options tunes caps and thresholds. Zero fields take the defaults.
type Options struct {
	ClusterCutoff   int     `yaml:"cluster_cutoff" mapstructure:"cluster_cutoff"`
	MaxClusters     int     `yaml:"max_clusters" mapstructure:"max_clusters"`
	MaxProperties   int     `yaml:"max_properties" mapstructure:"max_properties"`
	PinEpsilon      float64 `yaml:"pin_epsilon" mapstructure:"pin_epsilon"`
	TopCities       int     `yaml:"top_cities" mapstructure:"top_cities"`
	RecentLimit     int     `yaml:"recent_limit" mapstructure:"recent_limit"`
	DefaultPageSize int     `yaml:"default_page_size" mapstructure:"default_page_size"`
	MaxPageSize     int     `yaml:"max_page_size" mapstructure:"max_page_size"`
}

// DefaultOptions returns the production caps.
func DefaultOptions() Options {
	return Options{
		ClusterCutoff:   15,
		MaxClusters:     500,
		MaxProperties:   500,
		PinEpsilon:      0.0001,
		TopCities:       10,
		RecentLimit:     10,
		DefaultPageSize: 20,
		MaxPageSize:     100,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ClusterCutoff <= 0 {
		o.ClusterCutoff = d.ClusterCutoff
	}
	if o.MaxClusters <= 0 {
		o.MaxClusters = d.MaxClusters
	}
	if o.MaxProperties <= 0 {
		o.MaxProperties = d.MaxProperties
	}
	if o.PinEpsilon <= 0 {
		o.PinEpsilon = d.PinEpsilon
	}
	if o.TopCities <= 0 {
		o.TopCities = d.TopCities
	}
	if o.RecentLimit <= 0 {
		o.RecentLimit = d.RecentLimit
	}
	if o.DefaultPageSize <= 0 {
		o.DefaultPageSize = d.DefaultPageSize
	}
	if o.MaxPageSize <= 0 {
		o.MaxPageSize = d.MaxPageSize
	}
	return o
}

// Engine is stateless between calls and safe for concurrent use.
type Engine struct {
	store    Store
	opts     Options
	observer Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver reports operation timings and failures to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// New creates an Engine over store.
func New(store Store, opts Options, options ...Option) *Engine {
	e := &Engine{store: store, opts: opts.withDefaults()}
	for _, o := range options {
		o(e)
	}
	return e
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

func (e *Engine) resolve(bounds model.Bounds, scope model.AccessScope, filters model.FilterSet) (predicate.Predicate, error) {
	p, err := predicate.Resolve(bounds, scope, filters)
	if err != nil {
		return predicate.Predicate{}, invalid(err)
	}
	return p, nil
}

// storeFailed logs a store error with enough context to diagnose and wraps it
// for the caller.
func storeFailed(op string, p predicate.Predicate, err error) error {
	zap.L().Error("mapsearch: store query failed",
		zap.String("operation", op),
		zap.String("predicate", p.String()),
		zap.Error(err),
	)
	return eris.Wrapf(err, "mapsearch: %s", op)
}

func (e *Engine) observe(op string, start time.Time, err error) {
	if e.observer != nil {
		e.observer.ObserveOperation(op, time.Since(start), err)
	}
}

// invalid tags err as a caller contract violation.
func invalid(err error) error {
	return eris.Wrap(ErrInvalidRequest, err.Error())
}
