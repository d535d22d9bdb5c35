package mapsearch

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/compmap/internal/model"
)

// StatsQuery selects the records a ViewStatistics summarizes.
type StatsQuery struct {
	Bounds  model.Bounds      `json:"bounds" yaml:"bounds"`
	Filters model.FilterSet   `json:"filters" yaml:"filters"`
	Scope   model.AccessScope `json:"-" yaml:"-"`
}

// GetViewStatistics computes the summary, type histogram, top cities and
// most recent sales for the view. The aggregates are independent and run
// concurrently; the first failure cancels the rest and fails the call.
func (e *Engine) GetViewStatistics(ctx context.Context, q StatsQuery) (res *model.ViewStatistics, err error) {
	start := time.Now()
	defer func() { e.observe("get_view_statistics", start, err) }()

	p, err := e.resolve(q.Bounds, q.Scope, q.Filters)
	if err != nil {
		return nil, err
	}

	var (
		summary *model.StatsSummary
		types   []model.TypeCount
		cities  []model.CityStat
		recent  []model.PropertyRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if summary, err = e.store.StatsSummary(gctx, p); err != nil {
			return storeFailed("stats summary", p, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if types, err = e.store.TypeHistogram(gctx, p); err != nil {
			return storeFailed("type histogram", p, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if cities, err = e.store.TopCities(gctx, p, e.opts.TopCities); err != nil {
			return storeFailed("top cities", p, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if recent, err = e.store.RecentSales(gctx, p, e.opts.RecentLimit); err != nil {
			return storeFailed("recent sales", p, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res = &model.ViewStatistics{
		PropertyTypes: []model.TypeCount{},
		TopCities:     []model.CityStat{},
		Recent:        []model.PropertyRecord{},
	}
	if summary != nil {
		res.StatsSummary = *summary
	}
	// The aggregates do not share a snapshot, so percentages are taken over
	// the histogram's own rows; they then sum to 100 even when writes land
	// between the queries.
	histTotal := 0
	for _, t := range types {
		histTotal += t.Count
	}
	for _, t := range types {
		t.Percentage = percentage(t.Count, histTotal)
		res.PropertyTypes = append(res.PropertyTypes, t)
	}
	if len(cities) > e.opts.TopCities {
		cities = cities[:e.opts.TopCities]
	}
	res.TopCities = append(res.TopCities, cities...)
	if len(recent) > e.opts.RecentLimit {
		recent = recent[:e.opts.RecentLimit]
	}
	res.Recent = append(res.Recent, recent...)
	return res, nil
}

// percentage is 100*count/total rounded to two decimals, and 0 for an empty
// total.
func percentage(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(count)*10000/float64(total)) / 100
}
