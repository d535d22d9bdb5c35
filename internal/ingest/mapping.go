// Package ingest loads property records from CSV, XLSX and shapefile exports
// into the store. Values are kept as the raw text found in the source;
// sanitization happens when records are queried.
package ingest

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"

	"github.com/sells-group/compmap/internal/model"
)

// recordNamespace seeds ids for rows that do not carry one, so re-importing
// the same export updates rather than duplicates.
var recordNamespace = uuid.MustParse("a3e1c9d2-7f44-4b7e-8d0a-5c2f6b1e9a37")

type setter func(rec *model.PropertyRecord, v string)

// columnAliases maps normalized header names to record fields.
var columnAliases = map[string]setter{
	"id":             func(r *model.PropertyRecord, v string) { r.ID = v },
	"compid":         func(r *model.PropertyRecord, v string) { r.ID = v },
	"accountid":      func(r *model.PropertyRecord, v string) { r.AccountID = v },
	"userid":         func(r *model.PropertyRecord, v string) { r.UserID = v },
	"type":           func(r *model.PropertyRecord, v string) { r.Type = v },
	"comptype":       func(r *model.PropertyRecord, v string) { r.CompType = v },
	"compstatus":     func(r *model.PropertyRecord, v string) { r.CompStatus = v },
	"status":         func(r *model.PropertyRecord, v string) { r.CompStatus = v },
	"leasetype":      func(r *model.PropertyRecord, v string) { r.LeaseType = v },
	"propertytype":   func(r *model.PropertyRecord, v string) { r.PropertyType = v },
	"proptype":       func(r *model.PropertyRecord, v string) { r.PropertyType = v },
	"propertyclass":  func(r *model.PropertyRecord, v string) { r.PropertyClass = v },
	"class":          func(r *model.PropertyRecord, v string) { r.PropertyClass = v },
	"address":        func(r *model.PropertyRecord, v string) { r.Address = v },
	"streetaddress":  func(r *model.PropertyRecord, v string) { r.Address = v },
	"city":           func(r *model.PropertyRecord, v string) { r.City = v },
	"state":          func(r *model.PropertyRecord, v string) { r.State = v },
	"zip":            func(r *model.PropertyRecord, v string) { r.ZipCode = v },
	"zipcode":        func(r *model.PropertyRecord, v string) { r.ZipCode = v },
	"postalcode":     func(r *model.PropertyRecord, v string) { r.ZipCode = v },
	"lat":            func(r *model.PropertyRecord, v string) { r.Latitude = v },
	"latitude":       func(r *model.PropertyRecord, v string) { r.Latitude = v },
	"lng":            func(r *model.PropertyRecord, v string) { r.Longitude = v },
	"lon":            func(r *model.PropertyRecord, v string) { r.Longitude = v },
	"long":           func(r *model.PropertyRecord, v string) { r.Longitude = v },
	"longitude":      func(r *model.PropertyRecord, v string) { r.Longitude = v },
	"saleprice":      func(r *model.PropertyRecord, v string) { r.SalePrice = v },
	"price":          func(r *model.PropertyRecord, v string) { r.SalePrice = v },
	"leaserate":      func(r *model.PropertyRecord, v string) { r.LeaseRate = v },
	"rent":           func(r *model.PropertyRecord, v string) { r.LeaseRate = v },
	"buildingsize":   func(r *model.PropertyRecord, v string) { r.BuildingSize = v },
	"gba":            func(r *model.PropertyRecord, v string) { r.BuildingSize = v },
	"sqft":           func(r *model.PropertyRecord, v string) { r.BuildingSize = v },
	"landsize":       func(r *model.PropertyRecord, v string) { r.LandSize = v },
	"landsizeunit":   func(r *model.PropertyRecord, v string) { r.LandSizeUnit = v },
	"landunit":       func(r *model.PropertyRecord, v string) { r.LandSizeUnit = v },
	"priceperunit":   func(r *model.PropertyRecord, v string) { r.PricePerUnit = v },
	"pricepersf":     func(r *model.PropertyRecord, v string) { r.PricePerUnit = v },
	"caprate":        func(r *model.PropertyRecord, v string) { r.CapRate = v },
	"condition":      func(r *model.PropertyRecord, v string) { r.Condition = v },
	"imageurl":       func(r *model.PropertyRecord, v string) { r.ImageURL = v },
	"photo":          func(r *model.PropertyRecord, v string) { r.ImageURL = v },
}

// dateColumns are the normalized headers parsed as dates rather than copied.
var dateColumns = map[string]string{
	"solddate":        "sold",
	"saledate":        "sold",
	"closedate":       "sold",
	"recordingdate":   "sold",
	"transactiondate": "sold",
	"createdat":       "created",
	"dateadded":       "created",
}

// dateLayouts are tried in order for date columns.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
}

var fold = cases.Fold()

// normalizeHeader folds case and drops everything but letters and digits, so
// "Sale Price", "sale_price" and "SALEPRICE" all match.
func normalizeHeader(h string) string {
	h = fold.String(strings.TrimSpace(h))
	var b strings.Builder
	for _, r := range h {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Defaults fills ownership and timestamps the export does not carry.
type Defaults struct {
	AccountID string
	UserID    string
	CreatedAt time.Time
}

// Mapper turns positional rows into records using a header row.
type Mapper struct {
	setters  []setter
	dates    []string
	defaults Defaults
	mapped   int
}

// NewMapper resolves the header. Unknown columns are ignored; a header with
// no recognizable column is an error.
func NewMapper(header []string, defaults Defaults) (*Mapper, error) {
	m := &Mapper{
		setters:  make([]setter, len(header)),
		dates:    make([]string, len(header)),
		defaults: defaults,
	}
	for i, h := range header {
		key := normalizeHeader(h)
		if kind, ok := dateColumns[key]; ok {
			m.dates[i] = kind
			m.mapped++
			continue
		}
		if s := columnAliases[key]; s != nil {
			m.setters[i] = s
			m.mapped++
		}
	}
	if m.mapped == 0 {
		return nil, eris.Errorf("ingest: no recognized columns in header %v", header)
	}
	return m, nil
}

// Record maps one row. Blank rows return ok=false.
func (m *Mapper) Record(row []string) (rec model.PropertyRecord, ok bool, err error) {
	blank := true
	for i, raw := range row {
		if i >= len(m.setters) {
			break
		}
		v := strings.TrimSpace(strings.TrimRight(raw, "\x00"))
		if v == "" {
			continue
		}
		blank = false
		switch {
		case m.setters[i] != nil:
			m.setters[i](&rec, v)
		case m.dates[i] != "":
			t, perr := parseDate(v)
			if perr != nil {
				return rec, false, eris.Wrapf(perr, "ingest: column %d", i)
			}
			if m.dates[i] == "sold" {
				rec.SoldDate = &t
			} else {
				rec.CreatedAt = t
			}
		}
	}
	if blank {
		return rec, false, nil
	}

	if rec.AccountID == "" {
		rec.AccountID = m.defaults.AccountID
	}
	if rec.UserID == "" {
		rec.UserID = m.defaults.UserID
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.defaults.CreatedAt
	}
	if rec.ID == "" {
		rec.ID = contentID(&rec)
	}
	return rec, true, nil
}

func parseDate(v string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, eris.Errorf("unrecognized date %q", v)
}

// contentID derives a stable id from the fields that identify a comp.
func contentID(rec *model.PropertyRecord) string {
	sold := ""
	if rec.SoldDate != nil {
		sold = rec.SoldDate.Format("2006-01-02")
	}
	key := strings.Join([]string{
		rec.AccountID, rec.Address, rec.City, rec.State, rec.ZipCode,
		rec.Latitude, rec.Longitude, rec.Type, sold,
	}, "|")
	return uuid.NewSHA1(recordNamespace, []byte(key)).String()
}
