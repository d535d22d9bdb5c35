package model

// NumericSummary holds avg/min/max of one sanitized field. All three are nil
// when no matching record had a usable value.
type NumericSummary struct {
	Avg *float64 `json:"avg" yaml:"avg"`
	Min *float64 `json:"min" yaml:"min"`
	Max *float64 `json:"max" yaml:"max"`
}

// StatsSummary is the scalar part of the view statistics.
type StatsSummary struct {
	TotalCount   int            `json:"totalCount" yaml:"total_count"`
	SalePrice    NumericSummary `json:"salePrice" yaml:"sale_price"`
	BuildingSize NumericSummary `json:"buildingSize" yaml:"building_size"`
}

// TypeCount is one row of the property-type histogram.
type TypeCount struct {
	PropertyType string  `json:"propertyType" yaml:"property_type"`
	Count        int     `json:"count" yaml:"count"`
	Percentage   float64 `json:"percentage" yaml:"percentage"`
}

// CityStat is one row of the top-cities ranking.
type CityStat struct {
	City     string   `json:"city" yaml:"city"`
	Count    int      `json:"count" yaml:"count"`
	AvgPrice *float64 `json:"avgPrice" yaml:"avg_price"`
}

// ViewStatistics summarizes every record matching a view's predicate.
type ViewStatistics struct {
	StatsSummary  `yaml:",inline"`
	PropertyTypes []TypeCount      `json:"propertyTypes" yaml:"property_types"`
	TopCities     []CityStat       `json:"topCities" yaml:"top_cities"`
	Recent        []PropertyRecord `json:"recent" yaml:"recent"`
}
