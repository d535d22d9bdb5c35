package ingest

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/compmap/internal/model"
	"github.com/sells-group/compmap/internal/sanitize"
)

// Upserter persists records idempotently by id.
type Upserter interface {
	UpsertProperties(ctx context.Context, recs []model.PropertyRecord) (int64, error)
}

// LoadOptions tunes batching.
type LoadOptions struct {
	BatchSize   int
	Concurrency int
	Defaults    Defaults
}

// Result summarizes one load.
type Result struct {
	Rows    int `json:"rows" yaml:"rows"`
	Loaded  int `json:"loaded" yaml:"loaded"`
	Skipped int `json:"skipped" yaml:"skipped"`
	// Unplaceable records were stored but their coordinates do not sanitize,
	// so they will never appear on the map.
	Unplaceable int `json:"unplaceable" yaml:"unplaceable"`
}

// Load maps every row of src and upserts the records in batches. Rows that
// cannot be mapped are skipped and logged; a store failure aborts the load.
func Load(ctx context.Context, st Upserter, src *Source, opts LoadOptions) (Result, error) {
	if opts.BatchSize < 1 {
		opts.BatchSize = 1000
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Defaults.CreatedAt.IsZero() {
		opts.Defaults.CreatedAt = time.Now().UTC()
	}
	// An early return leaves rows unread; the producer must not block on them.
	defer src.Stop()

	mapper, err := NewMapper(src.Header, opts.Defaults)
	if err != nil {
		return Result{}, err
	}

	var (
		res    Result
		loaded atomic.Int64
		batch  = make([]model.PropertyRecord, 0, opts.BatchSize)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		recs := batch
		batch = make([]model.PropertyRecord, 0, opts.BatchSize)
		g.Go(func() error {
			n, err := st.UpsertProperties(gctx, recs)
			if err != nil {
				return eris.Wrapf(err, "ingest: upsert batch of %d", len(recs))
			}
			loaded.Add(n)
			return nil
		})
	}

rows:
	for {
		select {
		case row, ok := <-src.Rows:
			if !ok {
				break rows
			}
			res.Rows++
			rec, ok, err := mapper.Record(row)
			if err != nil {
				res.Skipped++
				zap.L().Warn("ingest: skipping row", zap.Int("row", res.Rows), zap.Error(err))
				continue
			}
			if !ok {
				res.Skipped++
				continue
			}
			if !placeable(&rec) {
				res.Unplaceable++
			}
			batch = append(batch, rec)
			if len(batch) >= opts.BatchSize {
				flush()
			}
		case <-gctx.Done():
			break rows
		}
	}
	flush()

	if err := g.Wait(); err != nil {
		res.Loaded = int(loaded.Load())
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, eris.Wrap(err, "ingest: cancelled")
	}
	for err := range src.Errs {
		if err != nil {
			res.Loaded = int(loaded.Load())
			return res, err
		}
	}
	res.Loaded = int(loaded.Load())

	zap.L().Info("ingest: load complete",
		zap.Int("rows", res.Rows),
		zap.Int("loaded", res.Loaded),
		zap.Int("skipped", res.Skipped),
		zap.Int("unplaceable", res.Unplaceable),
	)
	return res, nil
}

func placeable(rec *model.PropertyRecord) bool {
	_, okLat := sanitize.Parse(rec.Latitude, sanitize.Coordinate)
	_, okLng := sanitize.Parse(rec.Longitude, sanitize.Coordinate)
	return okLat && okLng
}
