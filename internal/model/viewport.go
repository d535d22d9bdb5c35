package model

import (
	"math"
	"time"

	"github.com/rotisserie/eris"
)

// Bounds is a geographic viewport in degrees. North must exceed South and
// East must exceed West; viewports crossing the antimeridian are not supported.
type Bounds struct {
	North float64 `json:"north" yaml:"north"`
	South float64 `json:"south" yaml:"south"`
	East  float64 `json:"east" yaml:"east"`
	West  float64 `json:"west" yaml:"west"`
}

// Validate checks ordering, range and finiteness of the bounds.
func (b Bounds) Validate() error {
	for _, v := range []float64{b.North, b.South, b.East, b.West} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return eris.New("bounds: coordinates must be finite")
		}
	}
	if b.North > 90 || b.South < -90 {
		return eris.Errorf("bounds: latitude out of range [%g, %g]", b.South, b.North)
	}
	if b.East > 180 || b.West < -180 {
		return eris.Errorf("bounds: longitude out of range [%g, %g]", b.West, b.East)
	}
	if b.North <= b.South {
		return eris.Errorf("bounds: north (%g) must be greater than south (%g)", b.North, b.South)
	}
	if b.East <= b.West {
		return eris.Errorf("bounds: east (%g) must be greater than west (%g)", b.East, b.West)
	}
	return nil
}

// Center returns the midpoint of the bounds.
func (b Bounds) Center() LatLng {
	return LatLng{Lat: (b.North + b.South) / 2, Lng: (b.East + b.West) / 2}
}

// LatLng is a single geographic point.
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Range is an inclusive numeric range. Either end may be open.
type Range struct {
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// IsZero reports whether the range carries no constraint.
func (r *Range) IsZero() bool {
	return r == nil || (r.Min == nil && r.Max == nil)
}

// DateRange is an inclusive time range. Either end may be open.
type DateRange struct {
	From *time.Time `json:"from,omitempty" yaml:"from,omitempty"`
	To   *time.Time `json:"to,omitempty" yaml:"to,omitempty"`
}

// IsZero reports whether the range carries no constraint.
func (r *DateRange) IsZero() bool {
	return r == nil || (r.From == nil && r.To == nil)
}

// SortField names a column the detail listing may be ordered by.
type SortField string

// Sortable fields.
const (
	SortCreatedAt    SortField = "createdAt"
	SortSoldDate     SortField = "soldDate"
	SortSalePrice    SortField = "salePrice"
	SortBuildingSize SortField = "buildingSize"
	SortCity         SortField = "city"
)

// Valid reports whether f is a known sort field.
func (f SortField) Valid() bool {
	switch f {
	case SortCreatedAt, SortSoldDate, SortSalePrice, SortBuildingSize, SortCity:
		return true
	default:
		return false
	}
}

// SortSpec orders the detail listing. The zero value sorts by creation time, newest first.
type SortSpec struct {
	Field SortField `json:"field,omitempty" yaml:"field,omitempty"`
	Asc   bool      `json:"asc,omitempty" yaml:"asc,omitempty"`
}

// FilterSet holds the user-supplied filters. Every field is optional and an
// absent field never constrains the result.
type FilterSet struct {
	Type          string     `json:"type,omitempty" yaml:"type,omitempty"`
	State         string     `json:"state,omitempty" yaml:"state,omitempty"`
	PropertyTypes []string   `json:"propertyType,omitempty" yaml:"property_type,omitempty"`
	Cities        []string   `json:"city,omitempty" yaml:"city,omitempty"`
	Search        string     `json:"search,omitempty" yaml:"search,omitempty"`
	SoldDate      *DateRange `json:"soldDate,omitempty" yaml:"sold_date,omitempty"`
	BuildingSize  *Range     `json:"buildingSize,omitempty" yaml:"building_size,omitempty"`
	LandSize      *Range     `json:"landSize,omitempty" yaml:"land_size,omitempty"`
	CapRate       *Range     `json:"capRate,omitempty" yaml:"cap_rate,omitempty"`
	PricePerUnit  *Range     `json:"pricePerUnit,omitempty" yaml:"price_per_unit,omitempty"`
	LeaseType     string     `json:"leaseType,omitempty" yaml:"lease_type,omitempty"`
	CompStatus    string     `json:"compStatus,omitempty" yaml:"comp_status,omitempty"`
	CompType      string     `json:"compType,omitempty" yaml:"comp_type,omitempty"`
	Sort          *SortSpec  `json:"sort,omitempty" yaml:"sort,omitempty"`
}

// Validate rejects inverted ranges and unknown sort fields.
func (f FilterSet) Validate() error {
	ranges := map[string]*Range{
		"buildingSize": f.BuildingSize,
		"landSize":     f.LandSize,
		"capRate":      f.CapRate,
		"pricePerUnit": f.PricePerUnit,
	}
	for name, r := range ranges {
		if r.IsZero() {
			continue
		}
		for _, v := range []*float64{r.Min, r.Max} {
			if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
				return eris.Errorf("filters: %s bounds must be finite", name)
			}
		}
		if r.Min == nil || r.Max == nil {
			continue
		}
		if *r.Min > *r.Max {
			return eris.Errorf("filters: %s min (%g) exceeds max (%g)", name, *r.Min, *r.Max)
		}
	}
	if !f.SoldDate.IsZero() && f.SoldDate.From != nil && f.SoldDate.To != nil && f.SoldDate.From.After(*f.SoldDate.To) {
		return eris.New("filters: soldDate from is after to")
	}
	if f.Sort != nil && f.Sort.Field != "" && !f.Sort.Field.Valid() {
		return eris.Errorf("filters: unknown sort field %q", f.Sort.Field)
	}
	return nil
}
