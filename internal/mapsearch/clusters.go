package mapsearch

import (
	"context"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/compmap/internal/grid"
	"github.com/sells-group/compmap/internal/model"
	"github.com/sells-group/compmap/internal/sanitize"
)

// Mode tells which branch produced a ClustersResult.
type Mode string

// Result modes.
const (
	ModeClusters   Mode = "clusters"
	ModeProperties Mode = "properties"
)

// clusterNamespace seeds deterministic cluster ids.
var clusterNamespace = uuid.MustParse("5b0b8f64-2f6c-4d0e-9a59-0f1b7c3e2a41")

// ViewportQuery is one map request.
type ViewportQuery struct {
	Bounds  model.Bounds      `json:"bounds" yaml:"bounds"`
	Zoom    int               `json:"zoom" yaml:"zoom"`
	Filters model.FilterSet   `json:"filters" yaml:"filters"`
	Scope   model.AccessScope `json:"-" yaml:"-"`
}

// ClustersResult echoes the viewport back with the clusters for it.
type ClustersResult struct {
	Clusters []model.Cluster `json:"clusters" yaml:"clusters"`
	// TotalCount is the number of placeable records in the view, before caps.
	TotalCount int `json:"totalCount" yaml:"total_count"`
	// BinCount is the number of non-empty cells (or pins) before caps.
	BinCount    int          `json:"binCount" yaml:"bin_count"`
	Truncated   bool         `json:"truncated" yaml:"truncated"`
	Mode        Mode         `json:"mode" yaml:"mode"`
	Granularity float64      `json:"granularity,omitempty" yaml:"granularity,omitempty"`
	Bounds      model.Bounds `json:"bounds" yaml:"bounds"`
	Zoom        int          `json:"zoom" yaml:"zoom"`
	Center      model.LatLng `json:"center" yaml:"center"`
}

// GetClusters returns grid clusters below the cluster cutoff zoom and
// singleton clusters for individual records at or above it.
func (e *Engine) GetClusters(ctx context.Context, q ViewportQuery) (res *ClustersResult, err error) {
	start := time.Now()
	defer func() { e.observe("get_clusters", start, err) }()

	if q.Zoom < 0 {
		return nil, invalid(eris.Errorf("zoom must be non-negative, got %d", q.Zoom))
	}
	p, err := e.resolve(q.Bounds, q.Scope, q.Filters)
	if err != nil {
		return nil, err
	}

	res = &ClustersResult{
		Clusters: []model.Cluster{},
		Bounds:   q.Bounds,
		Zoom:     q.Zoom,
		Center:   q.Bounds.Center(),
	}

	if q.Zoom >= e.opts.ClusterCutoff {
		pins, err := e.store.ListPins(ctx, p, e.opts.MaxProperties)
		if err != nil {
			return nil, storeFailed("list pins", p, err)
		}
		res.Mode = ModeProperties
		for i := range pins.Records {
			// Pins are re-checked in process so a store rendering that drifts
			// from the predicate cannot leak rows outside the view or scope.
			if !p.Match(&pins.Records[i]) {
				zap.L().Warn("mapsearch: pin outside predicate dropped",
					zap.String("id", pins.Records[i].ID),
					zap.String("predicate", p.String()),
				)
				continue
			}
			if c, ok := e.singleton(pins.Records[i], q.Zoom); ok {
				res.Clusters = append(res.Clusters, c)
			}
		}
		res.TotalCount = pins.Total
		res.BinCount = pins.Total
		res.Truncated = pins.Total > len(pins.Records)
		return res, nil
	}

	g := grid.Granularity(q.Zoom)
	set, err := e.store.ClusterBins(ctx, p, g, e.opts.MaxClusters)
	if err != nil {
		return nil, storeFailed("cluster bins", p, err)
	}
	bins := slices.Clone(set.Bins)
	sort.SliceStable(bins, func(i, j int) bool {
		a, b := bins[i], bins[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.LatBin != b.LatBin {
			return a.LatBin < b.LatBin
		}
		return a.LngBin < b.LngBin
	})
	for _, b := range bins {
		if b.Count <= 0 {
			continue
		}
		res.Clusters = append(res.Clusters, binCluster(b, g, q.Zoom))
	}
	res.Mode = ModeClusters
	res.Granularity = g
	res.TotalCount = set.TotalRecords
	res.BinCount = set.TotalBins
	res.Truncated = set.TotalBins > len(set.Bins)
	return res, nil
}

// binCluster wraps a grid cell. Bounds are the tight box around the member
// points rather than the nominal cell.
func binCluster(b model.Bin, granularity float64, zoom int) model.Cluster {
	box := geom.NewBounds(geom.XY).Set(b.MinLng, b.MinLat, b.MaxLng, b.MaxLat)
	bounds := boundsOf(box)
	return model.Cluster{
		ID:              binID(granularity, b.LatBin, b.LngBin),
		Bounds:          bounds,
		Center:          bounds.Center(),
		Count:           b.Count,
		AvgPrice:        b.AvgPrice,
		AvgSize:         b.AvgSize,
		AvgPricePerUnit: b.AvgPricePerUnit,
		PropertyTypes:   distinctTypes(b.PropertyTypes),
		Zoom:            zoom,
	}
}

// singleton wraps one record as a cluster of one with a small box around its
// point. Records whose coordinates do not sanitize cannot be placed.
func (e *Engine) singleton(rec model.PropertyRecord, zoom int) (model.Cluster, bool) {
	lat, ok := sanitize.Parse(rec.Latitude, sanitize.Coordinate)
	if !ok {
		return model.Cluster{}, false
	}
	lng, ok := sanitize.Parse(rec.Longitude, sanitize.Coordinate)
	if !ok {
		return model.Cluster{}, false
	}

	eps := e.opts.PinEpsilon
	box := geom.NewBounds(geom.XY).Set(lng-eps, lat-eps, lng+eps, lat+eps)

	price := sanitize.Ptr(rec.SalePrice, sanitize.Currency)
	if price == nil {
		price = sanitize.Ptr(rec.LeaseRate, sanitize.Currency)
	}
	var types []string
	if t := strings.TrimSpace(rec.PropertyType); t != "" {
		types = []string{t}
	}
	return model.Cluster{
		ID:              rec.ID,
		Bounds:          boundsOf(box),
		Center:          model.LatLng{Lat: lat, Lng: lng},
		Count:           1,
		AvgPrice:        price,
		AvgSize:         sanitize.Ptr(rec.BuildingSize, sanitize.Size),
		AvgPricePerUnit: sanitize.Ptr(rec.PricePerUnit, sanitize.Currency),
		PropertyTypes:   distinctTypes(types),
		Zoom:            zoom,
		Property:        &rec,
	}, true
}

func boundsOf(b *geom.Bounds) model.Bounds {
	return model.Bounds{North: b.Max(1), South: b.Min(1), East: b.Max(0), West: b.Min(0)}
}

func binID(granularity, latBin, lngBin float64) string {
	key := strconv.FormatFloat(granularity, 'g', -1, 64) + "/" +
		strconv.FormatFloat(latBin, 'g', -1, 64) + "/" +
		strconv.FormatFloat(lngBin, 'g', -1, 64)
	return uuid.NewSHA1(clusterNamespace, []byte(key)).String()
}

// distinctTypes returns the sorted, de-duplicated non-blank labels. The
// result is never nil.
func distinctTypes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return slices.Compact(out)
}
