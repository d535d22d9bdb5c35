package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compmap/internal/model"
	"github.com/sells-group/compmap/internal/predicate"
)

// scanner is satisfied by pgx.Rows, pgx.Row, *sql.Rows and *sql.Row.
type scanner interface {
	Scan(dest ...any) error
}

// propertyDest holds scan targets for one properties row. Timestamps come
// back as time.Time from PostgreSQL and as fixed-layout text from SQLite.
type propertyDest struct {
	d       predicate.Dialect
	rec     model.PropertyRecord
	soldPG  *time.Time
	soldLit sql.NullString
	created string
}

func newPropertyDest(d predicate.Dialect) *propertyDest {
	return &propertyDest{d: d}
}

// targets returns scan destinations in model.PropertyColumns order.
func (p *propertyDest) targets() []any {
	r := &p.rec
	dest := []any{
		&r.ID, &r.AccountID, &r.UserID, &r.Type, &r.CompStatus, &r.CompType, &r.LeaseType,
		&r.PropertyType, &r.PropertyClass, &r.Address, &r.City, &r.State, &r.ZipCode,
		&r.Latitude, &r.Longitude, &r.SalePrice, &r.LeaseRate, &r.BuildingSize, &r.LandSize,
		&r.LandSizeUnit, &r.PricePerUnit, &r.CapRate, &r.Condition, &r.ImageURL,
	}
	if p.d == predicate.SQLite {
		return append(dest, &p.soldLit, &p.created)
	}
	return append(dest, &p.soldPG, &r.CreatedAt)
}

func (p *propertyDest) record() (model.PropertyRecord, error) {
	rec := p.rec
	if p.d != predicate.SQLite {
		if p.soldPG != nil {
			t := p.soldPG.UTC()
			rec.SoldDate = &t
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		return rec, nil
	}
	created, err := time.Parse(predicate.SQLiteTimeLayout, p.created)
	if err != nil {
		return rec, eris.Wrapf(err, "store: parse created_at of %s", rec.ID)
	}
	rec.CreatedAt = created
	if p.soldLit.Valid && p.soldLit.String != "" {
		sold, err := time.Parse(predicate.SQLiteTimeLayout, p.soldLit.String)
		if err != nil {
			return rec, eris.Wrapf(err, "store: parse sold_date of %s", rec.ID)
		}
		rec.SoldDate = &sold
	}
	return rec, nil
}

// scanProperty reads one properties row plus any trailing columns.
func scanProperty(s scanner, d predicate.Dialect, extra ...any) (model.PropertyRecord, error) {
	dest := newPropertyDest(d)
	if err := s.Scan(append(dest.targets(), extra...)...); err != nil {
		return model.PropertyRecord{}, eris.Wrap(err, "store: scan property")
	}
	return dest.record()
}

// binDest holds scan targets for one clusterBinsQuery row.
type binDest struct {
	d          predicate.Dialect
	bin        model.Bin
	typesPG    []string
	typesJSON  string
	totalBins  int
	totalCount int
}

func (b *binDest) targets() []any {
	dest := []any{
		&b.bin.LatBin, &b.bin.LngBin, &b.bin.Count,
		&b.bin.AvgPrice, &b.bin.AvgSize, &b.bin.AvgPricePerUnit,
		&b.bin.MinLat, &b.bin.MaxLat, &b.bin.MinLng, &b.bin.MaxLng,
	}
	if b.d == predicate.SQLite {
		dest = append(dest, &b.typesJSON)
	} else {
		dest = append(dest, &b.typesPG)
	}
	return append(dest, &b.totalBins, &b.totalCount)
}

func scanBin(s scanner, d predicate.Dialect) (model.Bin, int, int, error) {
	b := &binDest{d: d}
	if err := s.Scan(b.targets()...); err != nil {
		return model.Bin{}, 0, 0, eris.Wrap(err, "store: scan bin")
	}
	bin := b.bin
	if d == predicate.SQLite {
		if err := json.Unmarshal([]byte(b.typesJSON), &bin.PropertyTypes); err != nil {
			return model.Bin{}, 0, 0, eris.Wrap(err, "store: decode bin property types")
		}
	} else {
		bin.PropertyTypes = b.typesPG
	}
	return bin, b.totalBins, b.totalCount, nil
}

func scanSummary(s scanner) (*model.StatsSummary, error) {
	var sum model.StatsSummary
	err := s.Scan(&sum.TotalCount,
		&sum.SalePrice.Avg, &sum.SalePrice.Min, &sum.SalePrice.Max,
		&sum.BuildingSize.Avg, &sum.BuildingSize.Min, &sum.BuildingSize.Max)
	if err != nil {
		return nil, eris.Wrap(err, "store: scan stats summary")
	}
	return &sum, nil
}
