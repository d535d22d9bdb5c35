package mapsearch

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compmap/internal/model"
)

// DetailQuery drills into one viewport. Page is 1-based.
type DetailQuery struct {
	Bounds   model.Bounds      `json:"bounds" yaml:"bounds"`
	Filters  model.FilterSet   `json:"filters" yaml:"filters"`
	Scope    model.AccessScope `json:"-" yaml:"-"`
	Page     int               `json:"page" yaml:"page"`
	PageSize int               `json:"pageSize" yaml:"page_size"`
}

// DetailResult is one page of matching records.
type DetailResult struct {
	Records    []model.PropertyRecord `json:"records" yaml:"records"`
	TotalCount int                    `json:"totalCount" yaml:"total_count"`
	Page       int                    `json:"page" yaml:"page"`
	PageSize   int                    `json:"pageSize" yaml:"page_size"`
	TotalPages int                    `json:"totalPages" yaml:"total_pages"`
	Filters    model.FilterSet        `json:"filters" yaml:"filters"`
}

// GetClusterDetails returns one page of the records matching the viewport.
// A page past the end is empty but still reports the total.
func (e *Engine) GetClusterDetails(ctx context.Context, q DetailQuery) (res *DetailResult, err error) {
	start := time.Now()
	defer func() { e.observe("get_cluster_details", start, err) }()

	if q.Page < 1 {
		return nil, invalid(eris.Errorf("page must be at least 1, got %d", q.Page))
	}
	if q.PageSize < 1 {
		return nil, invalid(eris.Errorf("page size must be at least 1, got %d", q.PageSize))
	}
	pageSize := min(q.PageSize, e.opts.MaxPageSize)

	p, err := e.resolve(q.Bounds, q.Scope, q.Filters)
	if err != nil {
		return nil, err
	}

	total, err := e.store.CountProperties(ctx, p)
	if err != nil {
		return nil, storeFailed("count properties", p, err)
	}

	res = &DetailResult{
		Records:    []model.PropertyRecord{},
		TotalCount: total,
		Page:       q.Page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
		Filters:    q.Filters,
	}

	// Compare pages before multiplying so huge page numbers cannot overflow.
	if q.Page > res.TotalPages {
		return res, nil
	}
	offset := (q.Page - 1) * pageSize

	var sort model.SortSpec
	if q.Filters.Sort != nil {
		sort = *q.Filters.Sort
	}
	recs, err := e.store.ListProperties(ctx, p, sort, pageSize, offset)
	if err != nil {
		return nil, storeFailed("list properties", p, err)
	}
	if recs != nil {
		res.Records = recs
	}
	return res, nil
}
