package predicate

import (
	"slices"
	"strings"

	"github.com/sells-group/compmap/internal/model"
	"github.com/sells-group/compmap/internal/sanitize"
)

// Match reports whether rec satisfies every clause. It is the in-process
// rendering of the same clause list Compile turns into SQL; the engine uses it
// to re-check individual pins returned by the store.
func (p Predicate) Match(rec *model.PropertyRecord) bool {
	for _, c := range p.Clauses {
		if !c.match(rec) {
			return false
		}
	}
	return true
}

func (c Clause) match(rec *model.PropertyRecord) bool {
	switch c.Op {
	case OpRange:
		v, ok := sanitize.Parse(textValue(rec, c.Column), c.Kind)
		if !ok {
			return false
		}
		if c.Min != nil && v < *c.Min {
			return false
		}
		if c.Max != nil && v > *c.Max {
			return false
		}
		return true
	case OpTimeRange:
		if rec.SoldDate == nil {
			return false
		}
		t := rec.SoldDate.UTC()
		if c.From != nil && t.Before(*c.From) {
			return false
		}
		if c.To != nil && t.After(*c.To) {
			return false
		}
		return true
	case OpEq:
		return textValue(rec, c.Column) == c.Value
	case OpIn:
		return slices.Contains(c.Values, textValue(rec, c.Column))
	case OpSearch:
		term := strings.ToLower(c.Value)
		for _, col := range c.Columns {
			if strings.Contains(strings.ToLower(textValue(rec, col)), term) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func textValue(rec *model.PropertyRecord, col Column) string {
	switch col {
	case ColLatitude:
		return rec.Latitude
	case ColLongitude:
		return rec.Longitude
	case ColAccountID:
		return rec.AccountID
	case ColUserID:
		return rec.UserID
	case ColType:
		return rec.Type
	case ColState:
		return rec.State
	case ColCity:
		return rec.City
	case ColPropertyType:
		return rec.PropertyType
	case ColAddress:
		return rec.Address
	case ColZipCode:
		return rec.ZipCode
	case ColLeaseType:
		return rec.LeaseType
	case ColCompStatus:
		return rec.CompStatus
	case ColCompType:
		return rec.CompType
	case ColBuildingSize:
		return rec.BuildingSize
	case ColLandSize:
		return rec.LandSize
	case ColCapRate:
		return rec.CapRate
	case ColPricePerUnit:
		return rec.PricePerUnit
	default:
		return ""
	}
}
