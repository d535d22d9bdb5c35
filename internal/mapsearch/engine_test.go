package mapsearch

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compmap/internal/mapsearch/mocks"
	"github.com/sells-group/compmap/internal/model"
	"github.com/sells-group/compmap/internal/predicate"
)

var (
	laBounds   = model.Bounds{North: 34.1, South: 34.0, East: -118.2, West: -118.3}
	superadmin = model.AccessScope{Role: model.RoleSuperAdmin}
)

func f64(v float64) *float64 { return &v }

type recordedOp struct {
	op  string
	err error
}

type fakeObserver struct {
	ops []recordedOp
}

func (f *fakeObserver) ObserveOperation(op string, _ time.Duration, err error) {
	f.ops = append(f.ops, recordedOp{op: op, err: err})
}

func TestOptions_Defaults(t *testing.T) {
	e := New(nil, Options{MaxClusters: 50})
	opts := e.Options()
	assert.Equal(t, 50, opts.MaxClusters)
	assert.Equal(t, 15, opts.ClusterCutoff)
	assert.Equal(t, 500, opts.MaxProperties)
	assert.Equal(t, 0.0001, opts.PinEpsilon)
	assert.Equal(t, 20, opts.DefaultPageSize)
	assert.Equal(t, 100, opts.MaxPageSize)
}

func TestGetClusters_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		q    ViewportQuery
	}{
		{"negative zoom", ViewportQuery{Bounds: laBounds, Zoom: -1, Scope: superadmin}},
		{"inverted latitude", ViewportQuery{Bounds: model.Bounds{North: 34.0, South: 34.1, East: -118.2, West: -118.3}, Zoom: 10, Scope: superadmin}},
		{"inverted longitude", ViewportQuery{Bounds: model.Bounds{North: 34.1, South: 34.0, East: -118.3, West: -118.2}, Zoom: 10, Scope: superadmin}},
		{"admin without account", ViewportQuery{Bounds: laBounds, Zoom: 10, Scope: model.AccessScope{Role: model.RoleAdmin}}},
		{"missing role", ViewportQuery{Bounds: laBounds, Zoom: 10}},
		{"inverted range", ViewportQuery{Bounds: laBounds, Zoom: 10, Scope: superadmin,
			Filters: model.FilterSet{CapRate: &model.Range{Min: f64(9), Max: f64(1)}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := mocks.NewMockStore(t)
			_, err := New(st, Options{}).GetClusters(context.Background(), tt.q)
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrInvalidRequest))
			st.AssertNotCalled(t, "ClusterBins", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestGetClusters_Bins(t *testing.T) {
	st := mocks.NewMockStore(t)
	price := 400000.0
	st.On("ClusterBins", mock.Anything, mock.AnythingOfType("predicate.Predicate"), 10.0, 500).Return(&model.BinSet{
		Bins: []model.Bin{
			{LatBin: 34.0, LngBin: -118.2, Count: 1, MinLat: 34.05, MaxLat: 34.05, MinLng: -118.2, MaxLng: -118.2},
			{LatBin: 34.0, LngBin: -118.3, Count: 3, AvgPrice: &price,
				MinLat: 34.01, MaxLat: 34.09, MinLng: -118.29, MaxLng: -118.21,
				PropertyTypes: []string{"Retail", "Office", "Retail", ""}},
		},
		TotalBins:    2,
		TotalRecords: 4,
	}, nil)

	obs := &fakeObserver{}
	res, err := New(st, Options{}, WithObserver(obs)).GetClusters(context.Background(), ViewportQuery{Bounds: laBounds, Zoom: 10, Scope: superadmin})
	require.NoError(t, err)

	assert.Equal(t, ModeClusters, res.Mode)
	assert.Equal(t, 10.0, res.Granularity)
	assert.Equal(t, 4, res.TotalCount)
	assert.Equal(t, 2, res.BinCount)
	assert.False(t, res.Truncated)
	assert.Equal(t, laBounds, res.Bounds)
	assert.Equal(t, 10, res.Zoom)
	assert.InDelta(t, 34.05, res.Center.Lat, 1e-9)

	require.Len(t, res.Clusters, 2)
	big := res.Clusters[0]
	assert.Equal(t, 3, big.Count, "largest cluster first")
	assert.Equal(t, model.Bounds{North: 34.09, South: 34.01, East: -118.21, West: -118.29}, big.Bounds)
	assert.InDelta(t, 34.05, big.Center.Lat, 1e-9)
	assert.InDelta(t, -118.25, big.Center.Lng, 1e-9)
	assert.Equal(t, []string{"Office", "Retail"}, big.PropertyTypes)
	assert.Equal(t, &price, big.AvgPrice)
	assert.Equal(t, 10, big.Zoom)
	assert.Nil(t, big.Property)
	assert.NotEqual(t, big.ID, res.Clusters[1].ID)
	assert.Equal(t, []string{}, res.Clusters[1].PropertyTypes)

	require.Len(t, obs.ops, 1)
	assert.Equal(t, "get_clusters", obs.ops[0].op)
	assert.NoError(t, obs.ops[0].err)
}

func TestGetClusters_IDsAreDeterministic(t *testing.T) {
	a := binID(10, 34.0, -118.3)
	assert.Equal(t, a, binID(10, 34.0, -118.3))
	assert.NotEqual(t, a, binID(40, 34.0, -118.3))
	assert.NotEqual(t, a, binID(10, 34.1, -118.3))
}

func TestGetClusters_Truncated(t *testing.T) {
	st := mocks.NewMockStore(t)
	st.On("ClusterBins", mock.Anything, mock.Anything, 2.0, 1).Return(&model.BinSet{
		Bins:         []model.Bin{{Count: 5, MinLat: 1, MaxLat: 2, MinLng: 1, MaxLng: 2}},
		TotalBins:    3,
		TotalRecords: 9,
	}, nil)

	res, err := New(st, Options{MaxClusters: 1}).GetClusters(context.Background(), ViewportQuery{Bounds: laBounds, Zoom: 3, Scope: superadmin})
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, 9, res.TotalCount)
	assert.Equal(t, 3, res.BinCount)
	assert.Len(t, res.Clusters, 1)
}

func TestGetClusters_Pins(t *testing.T) {
	st := mocks.NewMockStore(t)
	st.On("ListPins", mock.Anything, mock.Anything, 500).Return(&model.PinSet{
		Records: []model.PropertyRecord{
			{ID: "sale", Latitude: "34.05", Longitude: "-118.25", SalePrice: "900000", LeaseRate: "30", BuildingSize: "1200", PropertyType: "Office"},
			{ID: "lease", Latitude: "34.06", Longitude: "-118.24", SalePrice: "n/a", LeaseRate: "32.5"},
			{ID: "neither", Latitude: "34.07", Longitude: "-118.23", SalePrice: "0", LeaseRate: ""},
		},
		Total: 700,
	}, nil)

	res, err := New(st, Options{}).GetClusters(context.Background(), ViewportQuery{Bounds: laBounds, Zoom: 16, Scope: superadmin})
	require.NoError(t, err)
	assert.Equal(t, ModeProperties, res.Mode)
	assert.Equal(t, 700, res.TotalCount)
	assert.True(t, res.Truncated)
	require.Len(t, res.Clusters, 3)

	sale := res.Clusters[0]
	assert.Equal(t, "sale", sale.ID)
	assert.Equal(t, 1, sale.Count)
	assert.InDelta(t, 34.0501, sale.Bounds.North, 1e-9)
	assert.InDelta(t, 34.0499, sale.Bounds.South, 1e-9)
	assert.InDelta(t, -118.2499, sale.Bounds.East, 1e-9)
	assert.InDelta(t, -118.2501, sale.Bounds.West, 1e-9)
	assert.Equal(t, model.LatLng{Lat: 34.05, Lng: -118.25}, sale.Center)
	assert.Equal(t, 900000.0, *sale.AvgPrice, "sale price wins over lease rate")
	assert.Equal(t, 1200.0, *sale.AvgSize)
	assert.Equal(t, []string{"Office"}, sale.PropertyTypes)
	require.NotNil(t, sale.Property)
	assert.Equal(t, "sale", sale.Property.ID)

	assert.Equal(t, 32.5, *res.Clusters[1].AvgPrice, "falls back to lease rate")
	assert.Nil(t, res.Clusters[2].AvgPrice)
	assert.Equal(t, []string{}, res.Clusters[2].PropertyTypes)
}

func TestGetClusters_PinsRecheckedAgainstPredicate(t *testing.T) {
	st := mocks.NewMockStore(t)
	st.On("ListPins", mock.Anything, mock.Anything, 500).Return(&model.PinSet{
		Records: []model.PropertyRecord{
			{ID: "inside", AccountID: "acct-1", Latitude: "34.05", Longitude: "-118.25"},
			{ID: "north-of-view", AccountID: "acct-1", Latitude: "40.71", Longitude: "-118.25"},
			{ID: "other-account", AccountID: "acct-2", Latitude: "34.05", Longitude: "-118.25"},
		},
		Total: 3,
	}, nil)

	res, err := New(st, Options{}).GetClusters(context.Background(), ViewportQuery{
		Bounds: laBounds, Zoom: 16, Scope: model.AccessScope{Role: model.RoleAdmin, AccountID: "acct-1"},
	})
	require.NoError(t, err)
	require.Len(t, res.Clusters, 1)
	assert.Equal(t, "inside", res.Clusters[0].ID)
}

func TestGetClusters_StoreFailure(t *testing.T) {
	st := mocks.NewMockStore(t)
	st.On("ClusterBins", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	obs := &fakeObserver{}
	res, err := New(st, Options{}, WithObserver(obs)).GetClusters(context.Background(), ViewportQuery{Bounds: laBounds, Zoom: 5, Scope: superadmin})
	require.Error(t, err)
	assert.Nil(t, res, "no partial response")
	assert.False(t, eris.Is(err, ErrInvalidRequest))
	assert.Contains(t, err.Error(), "cluster bins")
	require.Len(t, obs.ops, 1)
	assert.Error(t, obs.ops[0].err)
}

func TestGetClusters_ScopeReachesStore(t *testing.T) {
	st := mocks.NewMockStore(t)
	st.On("ClusterBins", mock.Anything, mock.MatchedBy(func(p predicate.Predicate) bool {
		for _, c := range p.Clauses {
			if c.Column == predicate.ColAccountID && c.Value == "acct-7" {
				return true
			}
		}
		return false
	}), mock.Anything, mock.Anything).Return(&model.BinSet{}, nil)

	res, err := New(st, Options{}).GetClusters(context.Background(), ViewportQuery{
		Bounds: laBounds, Zoom: 4, Scope: model.AccessScope{Role: model.RoleAdmin, AccountID: "acct-7"},
	})
	require.NoError(t, err)
	assert.NotNil(t, res.Clusters)
	assert.Empty(t, res.Clusters)
}

func TestGetClusterDetails(t *testing.T) {
	st := mocks.NewMockStore(t)
	st.On("CountProperties", mock.Anything, mock.Anything).Return(45, nil)
	st.On("ListProperties", mock.Anything, mock.Anything, model.SortSpec{Field: model.SortCity, Asc: true}, 20, 40).
		Return([]model.PropertyRecord{{ID: "p41"}, {ID: "p42"}}, nil)

	filters := model.FilterSet{Sort: &model.SortSpec{Field: model.SortCity, Asc: true}}
	res, err := New(st, Options{}).GetClusterDetails(context.Background(), DetailQuery{
		Bounds: laBounds, Filters: filters, Scope: superadmin, Page: 3, PageSize: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 45, res.TotalCount)
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, 3, res.Page)
	assert.Equal(t, 20, res.PageSize)
	assert.Len(t, res.Records, 2)
	assert.Equal(t, filters, res.Filters)
}

func TestGetClusterDetails_PastEnd(t *testing.T) {
	st := mocks.NewMockStore(t)
	st.On("CountProperties", mock.Anything, mock.Anything).Return(10, nil)

	res, err := New(st, Options{}).GetClusterDetails(context.Background(), DetailQuery{
		Bounds: laBounds, Scope: superadmin, Page: 5, PageSize: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, []model.PropertyRecord{}, res.Records)
	assert.Equal(t, 10, res.TotalCount)
	assert.Equal(t, 1, res.TotalPages)
	st.AssertNotCalled(t, "ListProperties", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetClusterDetails_HugePageIsPastEnd(t *testing.T) {
	st := mocks.NewMockStore(t)
	st.On("CountProperties", mock.Anything, mock.Anything).Return(3, nil)

	res, err := New(st, Options{}).GetClusterDetails(context.Background(), DetailQuery{
		Bounds: laBounds, Scope: superadmin, Page: math.MaxInt, PageSize: 20,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, 3, res.TotalCount)
	assert.Equal(t, 1, res.TotalPages)
	assert.Equal(t, math.MaxInt, res.Page)
	st.AssertNotCalled(t, "ListProperties", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetClusterDetails_ClampsPageSize(t *testing.T) {
	st := mocks.NewMockStore(t)
	st.On("CountProperties", mock.Anything, mock.Anything).Return(250, nil)
	st.On("ListProperties", mock.Anything, mock.Anything, model.SortSpec{}, 100, 0).Return([]model.PropertyRecord(nil), nil)

	res, err := New(st, Options{}).GetClusterDetails(context.Background(), DetailQuery{
		Bounds: laBounds, Scope: superadmin, Page: 1, PageSize: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, res.PageSize)
	assert.Equal(t, 3, res.TotalPages)
	assert.NotNil(t, res.Records)
}

func TestGetClusterDetails_Invalid(t *testing.T) {
	st := mocks.NewMockStore(t)
	e := New(st, Options{})

	for _, q := range []DetailQuery{
		{Bounds: laBounds, Scope: superadmin, Page: 0, PageSize: 20},
		{Bounds: laBounds, Scope: superadmin, Page: 1, PageSize: 0},
		{Bounds: laBounds, Scope: superadmin, Page: -2, PageSize: 20},
		{Bounds: model.Bounds{}, Scope: superadmin, Page: 1, PageSize: 20},
	} {
		_, err := e.GetClusterDetails(context.Background(), q)
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrInvalidRequest))
	}
}

func TestGetClusterDetails_StoreFailure(t *testing.T) {
	st := mocks.NewMockStore(t)
	st.On("CountProperties", mock.Anything, mock.Anything).Return(0, errors.New("timeout"))

	_, err := New(st, Options{}).GetClusterDetails(context.Background(), DetailQuery{Bounds: laBounds, Scope: superadmin, Page: 1, PageSize: 20})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count properties")
}

func TestGetViewStatistics(t *testing.T) {
	st := mocks.NewMockStore(t)
	avg := 500000.0
	st.On("StatsSummary", mock.Anything, mock.Anything).Return(&model.StatsSummary{
		TotalCount: 3,
		SalePrice:  model.NumericSummary{Avg: &avg, Min: &avg, Max: &avg},
	}, nil)
	st.On("TypeHistogram", mock.Anything, mock.Anything).Return([]model.TypeCount{
		{PropertyType: "Office", Count: 2}, {PropertyType: "Unknown", Count: 1},
	}, nil)
	st.On("TopCities", mock.Anything, mock.Anything, 10).Return([]model.CityStat{{City: "Los Angeles", Count: 3, AvgPrice: &avg}}, nil)
	st.On("RecentSales", mock.Anything, mock.Anything, 10).Return([]model.PropertyRecord{{ID: "r1"}}, nil)

	res, err := New(st, Options{}).GetViewStatistics(context.Background(), StatsQuery{Bounds: laBounds, Scope: superadmin})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCount)
	assert.Equal(t, &avg, res.SalePrice.Avg)
	require.Len(t, res.PropertyTypes, 2)
	assert.Equal(t, 66.67, res.PropertyTypes[0].Percentage)
	assert.Equal(t, 33.33, res.PropertyTypes[1].Percentage)
	assert.Len(t, res.TopCities, 1)
	assert.Len(t, res.Recent, 1)
}

func TestGetViewStatistics_PercentagesFollowHistogram(t *testing.T) {
	st := mocks.NewMockStore(t)
	// The summary saw two more rows than the histogram, as after a
	// concurrent insert.
	st.On("StatsSummary", mock.Anything, mock.Anything).Return(&model.StatsSummary{TotalCount: 5}, nil)
	st.On("TypeHistogram", mock.Anything, mock.Anything).Return([]model.TypeCount{
		{PropertyType: "Office", Count: 2}, {PropertyType: "Retail", Count: 1},
	}, nil)
	st.On("TopCities", mock.Anything, mock.Anything, mock.Anything).Return([]model.CityStat(nil), nil)
	st.On("RecentSales", mock.Anything, mock.Anything, mock.Anything).Return([]model.PropertyRecord(nil), nil)

	res, err := New(st, Options{}).GetViewStatistics(context.Background(), StatsQuery{Bounds: laBounds, Scope: superadmin})
	require.NoError(t, err)
	assert.Equal(t, 5, res.TotalCount)
	sum := 0.0
	for _, tc := range res.PropertyTypes {
		sum += tc.Percentage
	}
	assert.InDelta(t, 100, sum, 0.01)
	assert.Equal(t, 66.67, res.PropertyTypes[0].Percentage)
}

func TestGetViewStatistics_Empty(t *testing.T) {
	st := mocks.NewMockStore(t)
	st.On("StatsSummary", mock.Anything, mock.Anything).Return(&model.StatsSummary{}, nil)
	st.On("TypeHistogram", mock.Anything, mock.Anything).Return([]model.TypeCount(nil), nil)
	st.On("TopCities", mock.Anything, mock.Anything, mock.Anything).Return([]model.CityStat(nil), nil)
	st.On("RecentSales", mock.Anything, mock.Anything, mock.Anything).Return([]model.PropertyRecord(nil), nil)

	res, err := New(st, Options{}).GetViewStatistics(context.Background(), StatsQuery{Bounds: laBounds, Scope: superadmin})
	require.NoError(t, err)
	assert.Zero(t, res.TotalCount)
	assert.NotNil(t, res.PropertyTypes)
	assert.NotNil(t, res.TopCities)
	assert.NotNil(t, res.Recent)
}

func TestGetViewStatistics_OneAggregateFails(t *testing.T) {
	st := mocks.NewMockStore(t)
	st.On("StatsSummary", mock.Anything, mock.Anything).Return(&model.StatsSummary{TotalCount: 1}, nil).Maybe()
	st.On("TypeHistogram", mock.Anything, mock.Anything).Return(nil, errors.New("deadlock detected"))
	st.On("TopCities", mock.Anything, mock.Anything, mock.Anything).Return([]model.CityStat(nil), nil).Maybe()
	st.On("RecentSales", mock.Anything, mock.Anything, mock.Anything).Return([]model.PropertyRecord(nil), nil).Maybe()

	res, err := New(st, Options{}).GetViewStatistics(context.Background(), StatsQuery{Bounds: laBounds, Scope: superadmin})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "type histogram")
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0.0, percentage(0, 0))
	assert.Equal(t, 0.0, percentage(5, 0))
	assert.Equal(t, 100.0, percentage(4, 4))
	assert.Equal(t, 12.5, percentage(1, 8))
}
