// Package predicate resolves a caller's scope, viewport and filters into one
// ordered list of clauses. Every query form the storage layer needs is compiled
// from that list, and Match evaluates the same list in process.
package predicate

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compmap/internal/model"
	"github.com/sells-group/compmap/internal/sanitize"
)

// Op is the clause type.
type Op int

// Clause types.
const (
	// OpRange bounds a sanitized numeric column. Rows whose value does not
	// sanitize never match.
	OpRange Op = iota
	// OpEq is text equality.
	OpEq
	// OpIn is text set membership.
	OpIn
	// OpSearch is a case-insensitive substring match across several columns.
	OpSearch
	// OpTimeRange bounds a nullable timestamp column. NULL never matches.
	OpTimeRange
)

// Column names a properties column a clause may reference.
type Column string

// Columns referenced by clauses.
const (
	ColLatitude     Column = "latitude"
	ColLongitude    Column = "longitude"
	ColAccountID    Column = "account_id"
	ColUserID       Column = "user_id"
	ColType         Column = "type"
	ColState        Column = "state"
	ColCity         Column = "city"
	ColPropertyType Column = "property_type"
	ColAddress      Column = "address"
	ColZipCode      Column = "zip_code"
	ColLeaseType    Column = "lease_type"
	ColCompStatus   Column = "comp_status"
	ColCompType     Column = "comp_type"
	ColSoldDate     Column = "sold_date"
	ColBuildingSize Column = "building_size"
	ColLandSize     Column = "land_size"
	ColCapRate      Column = "cap_rate"
	ColPricePerUnit Column = "price_per_unit"
)

// Clause is one conjunct of a Predicate. Which fields are meaningful depends
// on Op.
type Clause struct {
	Op      Op
	Column  Column
	Columns []Column
	Kind    sanitize.Kind
	Min     *float64
	Max     *float64
	From    *time.Time
	To      *time.Time
	Value   string
	Values  []string
}

// Predicate is the logical AND of its clauses.
type Predicate struct {
	Clauses []Clause
}

// Resolve validates the inputs and builds the predicate in a fixed order:
// geographic, scope, exact match, set membership, search, then the remaining
// optional filters. Absent filters add nothing.
func Resolve(bounds model.Bounds, scope model.AccessScope, filters model.FilterSet) (Predicate, error) {
	if err := bounds.Validate(); err != nil {
		return Predicate{}, eris.Wrap(err, "predicate: resolve")
	}
	if err := filters.Validate(); err != nil {
		return Predicate{}, eris.Wrap(err, "predicate: resolve")
	}
	sc, err := ScopeClause(scope)
	if err != nil {
		return Predicate{}, eris.Wrap(err, "predicate: resolve")
	}

	var p Predicate
	p.add(Clause{Op: OpRange, Column: ColLatitude, Kind: sanitize.Coordinate, Min: ptr(bounds.South), Max: ptr(bounds.North)})
	p.add(Clause{Op: OpRange, Column: ColLongitude, Kind: sanitize.Coordinate, Min: ptr(bounds.West), Max: ptr(bounds.East)})
	if sc != nil {
		p.add(*sc)
	}

	p.eq(ColType, filters.Type)
	p.eq(ColState, filters.State)
	p.in(ColCity, filters.Cities)
	p.in(ColPropertyType, filters.PropertyTypes)

	if term := strings.TrimSpace(filters.Search); term != "" {
		p.add(Clause{Op: OpSearch, Columns: []Column{ColAddress, ColCity, ColZipCode}, Value: term})
	}

	p.eq(ColLeaseType, filters.LeaseType)
	p.eq(ColCompStatus, filters.CompStatus)
	p.eq(ColCompType, filters.CompType)
	if !filters.SoldDate.IsZero() {
		p.add(Clause{Op: OpTimeRange, Column: ColSoldDate, From: utc(filters.SoldDate.From), To: utc(filters.SoldDate.To)})
	}
	p.rng(ColBuildingSize, sanitize.Size, filters.BuildingSize)
	p.rng(ColLandSize, sanitize.Size, filters.LandSize)
	p.rng(ColCapRate, sanitize.Percent, filters.CapRate)
	p.rng(ColPricePerUnit, sanitize.Currency, filters.PricePerUnit)
	return p, nil
}

// ScopeClause returns the clause the scope's role injects, or nil for roles
// that see every row. Invalid scopes are rejected.
func ScopeClause(scope model.AccessScope) (*Clause, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	switch scope.Role {
	case model.RoleAdmin:
		return &Clause{Op: OpEq, Column: ColAccountID, Value: strings.TrimSpace(scope.AccountID)}, nil
	case model.RoleUser:
		return &Clause{Op: OpEq, Column: ColUserID, Value: strings.TrimSpace(scope.UserID)}, nil
	default:
		return nil, nil
	}
}

func (p *Predicate) add(c Clause) {
	p.Clauses = append(p.Clauses, c)
}

func (p *Predicate) eq(col Column, v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	p.add(Clause{Op: OpEq, Column: col, Value: v})
}

func (p *Predicate) in(col Column, vs []string) {
	var vals []string
	for _, v := range vs {
		v = strings.TrimSpace(v)
		if v != "" && !slices.Contains(vals, v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return
	}
	p.add(Clause{Op: OpIn, Column: col, Values: vals})
}

func (p *Predicate) rng(col Column, kind sanitize.Kind, r *model.Range) {
	if r.IsZero() {
		return
	}
	p.add(Clause{Op: OpRange, Column: col, Kind: kind, Min: r.Min, Max: r.Max})
}

// String summarizes the predicate for logs. Values of search terms and ids
// are included; filter lists are reduced to their size.
func (p Predicate) String() string {
	parts := make([]string, 0, len(p.Clauses))
	for _, c := range p.Clauses {
		switch c.Op {
		case OpRange:
			parts = append(parts, fmt.Sprintf("%s[%s:%s]", c.Column, fmtFloat(c.Min), fmtFloat(c.Max)))
		case OpEq:
			parts = append(parts, fmt.Sprintf("%s=%q", c.Column, c.Value))
		case OpIn:
			parts = append(parts, fmt.Sprintf("%s in(%d)", c.Column, len(c.Values)))
		case OpSearch:
			parts = append(parts, fmt.Sprintf("search=%q", c.Value))
		case OpTimeRange:
			parts = append(parts, fmt.Sprintf("%s[%s:%s]", c.Column, fmtTime(c.From), fmtTime(c.To)))
		}
	}
	return strings.Join(parts, " ")
}

func fmtFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%g", *v)
}

func fmtTime(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format(time.RFC3339)
}

func ptr(v float64) *float64 { return &v }

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
