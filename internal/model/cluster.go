package model

// Bin is one grid cell aggregated by the store. Averages are nil when no
// member of the bin had a usable value for that field.
type Bin struct {
	LatBin          float64
	LngBin          float64
	Count           int
	AvgPrice        *float64
	AvgSize         *float64
	AvgPricePerUnit *float64
	MinLat          float64
	MaxLat          float64
	MinLng          float64
	MaxLng          float64
	PropertyTypes   []string
}

// BinSet is the capped list of bins plus totals computed before the cap.
type BinSet struct {
	Bins []Bin
	// TotalBins is the number of non-empty bins in the view.
	TotalBins int
	// TotalRecords is the number of records across all bins.
	TotalRecords int
}

// PinSet is the capped list of individual records plus the uncapped total.
type PinSet struct {
	Records []PropertyRecord
	Total   int
}

// Cluster is either a spatial aggregate or a single record wrapped in the same
// shape. It is computed per request and never persisted.
type Cluster struct {
	ID              string          `json:"id" yaml:"id"`
	Bounds          Bounds          `json:"bounds" yaml:"bounds"`
	Center          LatLng          `json:"center" yaml:"center"`
	Count           int             `json:"count" yaml:"count"`
	AvgPrice        *float64        `json:"avgPrice,omitempty" yaml:"avg_price,omitempty"`
	AvgSize         *float64        `json:"avgSize,omitempty" yaml:"avg_size,omitempty"`
	AvgPricePerUnit *float64        `json:"avgPricePerUnit,omitempty" yaml:"avg_price_per_unit,omitempty"`
	PropertyTypes   []string        `json:"propertyTypes" yaml:"property_types"`
	Zoom            int             `json:"zoom" yaml:"zoom"`
	Property        *PropertyRecord `json:"property,omitempty" yaml:"property,omitempty"`
}
