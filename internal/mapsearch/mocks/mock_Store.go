// Package mocks provides test doubles for the mapsearch store.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	model "github.com/sells-group/compmap/internal/model"
	predicate "github.com/sells-group/compmap/internal/predicate"
)

// MockStore is a mock type for the mapsearch.Store interface.
type MockStore struct {
	mock.Mock
}

// ClusterBins provides a mock function with given fields: ctx, p, granularity, limit
func (_m *MockStore) ClusterBins(ctx context.Context, p predicate.Predicate, granularity float64, limit int) (*model.BinSet, error) {
	ret := _m.Called(ctx, p, granularity, limit)

	if len(ret) == 0 {
		panic("no return value specified for ClusterBins")
	}

	var r0 *model.BinSet
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, predicate.Predicate, float64, int) (*model.BinSet, error)); ok {
		return rf(ctx, p, granularity, limit)
	}
	if rf, ok := ret.Get(0).(func(context.Context, predicate.Predicate, float64, int) *model.BinSet); ok {
		r0 = rf(ctx, p, granularity, limit)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.BinSet)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, predicate.Predicate, float64, int) error); ok {
		r1 = rf(ctx, p, granularity, limit)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListPins provides a mock function with given fields: ctx, p, limit
func (_m *MockStore) ListPins(ctx context.Context, p predicate.Predicate, limit int) (*model.PinSet, error) {
	ret := _m.Called(ctx, p, limit)

	if len(ret) == 0 {
		panic("no return value specified for ListPins")
	}

	var r0 *model.PinSet
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, predicate.Predicate, int) (*model.PinSet, error)); ok {
		return rf(ctx, p, limit)
	}
	if rf, ok := ret.Get(0).(func(context.Context, predicate.Predicate, int) *model.PinSet); ok {
		r0 = rf(ctx, p, limit)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.PinSet)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, predicate.Predicate, int) error); ok {
		r1 = rf(ctx, p, limit)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// CountProperties provides a mock function with given fields: ctx, p
func (_m *MockStore) CountProperties(ctx context.Context, p predicate.Predicate) (int, error) {
	ret := _m.Called(ctx, p)

	if len(ret) == 0 {
		panic("no return value specified for CountProperties")
	}

	var r0 int
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, predicate.Predicate) (int, error)); ok {
		return rf(ctx, p)
	}
	if rf, ok := ret.Get(0).(func(context.Context, predicate.Predicate) int); ok {
		r0 = rf(ctx, p)
	} else {
		r0 = ret.Get(0).(int)
	}

	if rf, ok := ret.Get(1).(func(context.Context, predicate.Predicate) error); ok {
		r1 = rf(ctx, p)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListProperties provides a mock function with given fields: ctx, p, sort, limit, offset
func (_m *MockStore) ListProperties(ctx context.Context, p predicate.Predicate, sort model.SortSpec, limit int, offset int) ([]model.PropertyRecord, error) {
	ret := _m.Called(ctx, p, sort, limit, offset)

	if len(ret) == 0 {
		panic("no return value specified for ListProperties")
	}

	var r0 []model.PropertyRecord
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, predicate.Predicate, model.SortSpec, int, int) ([]model.PropertyRecord, error)); ok {
		return rf(ctx, p, sort, limit, offset)
	}
	if rf, ok := ret.Get(0).(func(context.Context, predicate.Predicate, model.SortSpec, int, int) []model.PropertyRecord); ok {
		r0 = rf(ctx, p, sort, limit, offset)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.PropertyRecord)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, predicate.Predicate, model.SortSpec, int, int) error); ok {
		r1 = rf(ctx, p, sort, limit, offset)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// StatsSummary provides a mock function with given fields: ctx, p
func (_m *MockStore) StatsSummary(ctx context.Context, p predicate.Predicate) (*model.StatsSummary, error) {
	ret := _m.Called(ctx, p)

	if len(ret) == 0 {
		panic("no return value specified for StatsSummary")
	}

	var r0 *model.StatsSummary
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, predicate.Predicate) (*model.StatsSummary, error)); ok {
		return rf(ctx, p)
	}
	if rf, ok := ret.Get(0).(func(context.Context, predicate.Predicate) *model.StatsSummary); ok {
		r0 = rf(ctx, p)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.StatsSummary)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, predicate.Predicate) error); ok {
		r1 = rf(ctx, p)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// TypeHistogram provides a mock function with given fields: ctx, p
func (_m *MockStore) TypeHistogram(ctx context.Context, p predicate.Predicate) ([]model.TypeCount, error) {
	ret := _m.Called(ctx, p)

	if len(ret) == 0 {
		panic("no return value specified for TypeHistogram")
	}

	var r0 []model.TypeCount
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, predicate.Predicate) ([]model.TypeCount, error)); ok {
		return rf(ctx, p)
	}
	if rf, ok := ret.Get(0).(func(context.Context, predicate.Predicate) []model.TypeCount); ok {
		r0 = rf(ctx, p)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.TypeCount)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, predicate.Predicate) error); ok {
		r1 = rf(ctx, p)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// TopCities provides a mock function with given fields: ctx, p, limit
func (_m *MockStore) TopCities(ctx context.Context, p predicate.Predicate, limit int) ([]model.CityStat, error) {
	ret := _m.Called(ctx, p, limit)

	if len(ret) == 0 {
		panic("no return value specified for TopCities")
	}

	var r0 []model.CityStat
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, predicate.Predicate, int) ([]model.CityStat, error)); ok {
		return rf(ctx, p, limit)
	}
	if rf, ok := ret.Get(0).(func(context.Context, predicate.Predicate, int) []model.CityStat); ok {
		r0 = rf(ctx, p, limit)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.CityStat)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, predicate.Predicate, int) error); ok {
		r1 = rf(ctx, p, limit)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// RecentSales provides a mock function with given fields: ctx, p, limit
func (_m *MockStore) RecentSales(ctx context.Context, p predicate.Predicate, limit int) ([]model.PropertyRecord, error) {
	ret := _m.Called(ctx, p, limit)

	if len(ret) == 0 {
		panic("no return value specified for RecentSales")
	}

	var r0 []model.PropertyRecord
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, predicate.Predicate, int) ([]model.PropertyRecord, error)); ok {
		return rf(ctx, p, limit)
	}
	if rf, ok := ret.Get(0).(func(context.Context, predicate.Predicate, int) []model.PropertyRecord); ok {
		r0 = rf(ctx, p, limit)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.PropertyRecord)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, predicate.Predicate, int) error); ok {
		r1 = rf(ctx, p, limit)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockStore creates a new instance of MockStore.
func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStore {
	mock := &MockStore{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
