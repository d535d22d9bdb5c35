package model

import "time"

// PropertyRecord is a persisted appraisal comp. Coordinates and every numeric
// business field are stored as free text and must be sanitized before use.
type PropertyRecord struct {
	ID            string     `json:"id" yaml:"id"`
	AccountID     string     `json:"accountId,omitempty" yaml:"account_id,omitempty"`
	UserID        string     `json:"userId,omitempty" yaml:"user_id,omitempty"`
	Type          string     `json:"type,omitempty" yaml:"type,omitempty"`
	CompStatus    string     `json:"compStatus,omitempty" yaml:"comp_status,omitempty"`
	CompType      string     `json:"compType,omitempty" yaml:"comp_type,omitempty"`
	LeaseType     string     `json:"leaseType,omitempty" yaml:"lease_type,omitempty"`
	PropertyType  string     `json:"propertyType,omitempty" yaml:"property_type,omitempty"`
	PropertyClass string     `json:"propertyClass,omitempty" yaml:"property_class,omitempty"`
	Address       string     `json:"address,omitempty" yaml:"address,omitempty"`
	City          string     `json:"city,omitempty" yaml:"city,omitempty"`
	State         string     `json:"state,omitempty" yaml:"state,omitempty"`
	ZipCode       string     `json:"zipCode,omitempty" yaml:"zip_code,omitempty"`
	Latitude      string     `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude     string     `json:"longitude,omitempty" yaml:"longitude,omitempty"`
	SalePrice     string     `json:"salePrice,omitempty" yaml:"sale_price,omitempty"`
	LeaseRate     string     `json:"leaseRate,omitempty" yaml:"lease_rate,omitempty"`
	BuildingSize  string     `json:"buildingSize,omitempty" yaml:"building_size,omitempty"`
	LandSize      string     `json:"landSize,omitempty" yaml:"land_size,omitempty"`
	LandSizeUnit  string     `json:"landSizeUnit,omitempty" yaml:"land_size_unit,omitempty"`
	PricePerUnit  string     `json:"pricePerUnit,omitempty" yaml:"price_per_unit,omitempty"`
	CapRate       string     `json:"capRate,omitempty" yaml:"cap_rate,omitempty"`
	Condition     string     `json:"condition,omitempty" yaml:"condition,omitempty"`
	ImageURL      string     `json:"imageUrl,omitempty" yaml:"image_url,omitempty"`
	SoldDate      *time.Time `json:"soldDate,omitempty" yaml:"sold_date,omitempty"`
	CreatedAt     time.Time  `json:"createdAt" yaml:"created_at"`
}

// PropertyColumns lists the persisted columns of the properties table in the
// order used for inserts and scans.
var PropertyColumns = []string{
	"id", "account_id", "user_id", "type", "comp_status", "comp_type", "lease_type",
	"property_type", "property_class", "address", "city", "state", "zip_code",
	"latitude", "longitude", "sale_price", "lease_rate", "building_size", "land_size",
	"land_size_unit", "price_per_unit", "cap_rate", "condition", "image_url",
	"sold_date", "created_at",
}

// Values returns the record's column values in PropertyColumns order.
func (p *PropertyRecord) Values() []any {
	var sold any
	if p.SoldDate != nil {
		sold = p.SoldDate.UTC()
	}
	return []any{
		p.ID, p.AccountID, p.UserID, p.Type, p.CompStatus, p.CompType, p.LeaseType,
		p.PropertyType, p.PropertyClass, p.Address, p.City, p.State, p.ZipCode,
		p.Latitude, p.Longitude, p.SalePrice, p.LeaseRate, p.BuildingSize, p.LandSize,
		p.LandSizeUnit, p.PricePerUnit, p.CapRate, p.Condition, p.ImageURL,
		sold, p.CreatedAt.UTC(),
	}
}
