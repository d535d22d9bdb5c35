package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compmap/internal/mapsearch"
	"github.com/sells-group/compmap/internal/model"
)

// Scope headers set by the identity proxy in front of the API.
const (
	HeaderRole      = "X-Role"
	HeaderAccountID = "X-Account-ID"
	HeaderUserID    = "X-User-ID"
)

// paramError is a malformed query parameter. It maps to 400.
type paramError struct {
	name string
	msg  string
}

func (e *paramError) Error() string {
	return "parameter " + e.name + ": " + e.msg
}

type params struct {
	q   url.Values
	err error
}

func (p *params) fail(name, msg string) {
	if p.err == nil {
		p.err = &paramError{name: name, msg: msg}
	}
}

func (p *params) str(name string) string {
	return strings.TrimSpace(p.q.Get(name))
}

// list accepts repeated keys and comma separated values.
func (p *params) list(name string) []string {
	var out []string
	for _, raw := range p.q[name] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func (p *params) float(name string, required bool) (float64, bool) {
	raw := p.str(name)
	if raw == "" {
		if required {
			p.fail(name, "is required")
		}
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(name, "must be a number")
		return 0, false
	}
	return v, true
}

func (p *params) integer(name string, def int) int {
	raw := p.str(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(name, "must be an integer")
		return def
	}
	return v
}

func (p *params) optFloat(name string) *float64 {
	if v, ok := p.float(name, false); ok {
		return &v
	}
	return nil
}

func (p *params) rng(prefix string) *model.Range {
	r := &model.Range{Min: p.optFloat(prefix + "Min"), Max: p.optFloat(prefix + "Max")}
	if r.IsZero() {
		return nil
	}
	return r
}

// dateLayouts are tried in order for soldFrom and soldTo.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func (p *params) date(name string) *time.Time {
	raw := p.str(name)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	p.fail(name, "must be RFC 3339 or YYYY-MM-DD")
	return nil
}

func (p *params) bounds() model.Bounds {
	var b model.Bounds
	b.North, _ = p.float("north", true)
	b.South, _ = p.float("south", true)
	b.East, _ = p.float("east", true)
	b.West, _ = p.float("west", true)
	return b
}

func (p *params) filters() model.FilterSet {
	f := model.FilterSet{
		Type:          p.str("type"),
		State:         p.str("state"),
		PropertyTypes: p.list("propertyType"),
		Cities:        p.list("city"),
		Search:        p.str("search"),
		BuildingSize:  p.rng("buildingSize"),
		LandSize:      p.rng("landSize"),
		CapRate:       p.rng("capRate"),
		PricePerUnit:  p.rng("pricePerUnit"),
		LeaseType:     p.str("leaseType"),
		CompStatus:    p.str("compStatus"),
		CompType:      p.str("compType"),
	}
	if from, to := p.date("soldFrom"), p.date("soldTo"); from != nil || to != nil {
		f.SoldDate = &model.DateRange{From: from, To: to}
	}
	if field := p.str("sort"); field != "" {
		s := &model.SortSpec{Field: model.SortField(field)}
		switch strings.ToLower(p.str("order")) {
		case "", "desc":
		case "asc":
			s.Asc = true
		default:
			p.fail("order", "must be asc or desc")
		}
		f.Sort = s
	}
	return f
}

func scopeFrom(r *http.Request) model.AccessScope {
	return model.AccessScope{
		Role:      model.ParseRole(r.Header.Get(HeaderRole)),
		AccountID: strings.TrimSpace(r.Header.Get(HeaderAccountID)),
		UserID:    strings.TrimSpace(r.Header.Get(HeaderUserID)),
	}
}

func parseViewport(r *http.Request) (mapsearch.ViewportQuery, error) {
	p := &params{q: r.URL.Query()}
	q := mapsearch.ViewportQuery{
		Bounds:  p.bounds(),
		Zoom:    p.integer("zoom", -1),
		Filters: p.filters(),
		Scope:   scopeFrom(r),
	}
	if p.err == nil && p.str("zoom") == "" {
		p.fail("zoom", "is required")
	}
	return q, wrapParam(p.err)
}

func parseDetails(r *http.Request, defaultPageSize int) (mapsearch.DetailQuery, error) {
	p := &params{q: r.URL.Query()}
	q := mapsearch.DetailQuery{
		Bounds:   p.bounds(),
		Filters:  p.filters(),
		Scope:    scopeFrom(r),
		Page:     p.integer("page", 1),
		PageSize: p.integer("pageSize", defaultPageSize),
	}
	return q, wrapParam(p.err)
}

func parseStats(r *http.Request) (mapsearch.StatsQuery, error) {
	p := &params{q: r.URL.Query()}
	q := mapsearch.StatsQuery{
		Bounds:  p.bounds(),
		Filters: p.filters(),
		Scope:   scopeFrom(r),
	}
	return q, wrapParam(p.err)
}

func wrapParam(err error) error {
	if err == nil {
		return nil
	}
	return eris.Wrap(err, "api: parse query")
}
