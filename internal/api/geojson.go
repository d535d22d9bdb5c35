package api

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/compmap/internal/mapsearch"
)

// FeatureCollection renders clusters as GeoJSON points at their centers, each
// carrying its bounding box and aggregates.
func FeatureCollection(res *mapsearch.ClustersResult) (*geojson.FeatureCollection, error) {
	fc := &geojson.FeatureCollection{
		BBox:     geom.NewBounds(geom.XY).Set(res.Bounds.West, res.Bounds.South, res.Bounds.East, res.Bounds.North),
		Features: make([]*geojson.Feature, 0, len(res.Clusters)),
	}
	for _, c := range res.Clusters {
		pt, err := geom.NewPoint(geom.XY).SetCoords(geom.Coord{c.Center.Lng, c.Center.Lat})
		if err != nil {
			return nil, eris.Wrapf(err, "api: cluster %s point", c.ID)
		}
		props := map[string]any{
			"count":         c.Count,
			"zoom":          c.Zoom,
			"propertyTypes": c.PropertyTypes,
			"mode":          string(res.Mode),
		}
		if c.AvgPrice != nil {
			props["avgPrice"] = *c.AvgPrice
		}
		if c.AvgSize != nil {
			props["avgSize"] = *c.AvgSize
		}
		if c.AvgPricePerUnit != nil {
			props["avgPricePerUnit"] = *c.AvgPricePerUnit
		}
		if c.Property != nil {
			props["address"] = c.Property.Address
			props["city"] = c.Property.City
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         c.ID,
			BBox:       geom.NewBounds(geom.XY).Set(c.Bounds.West, c.Bounds.South, c.Bounds.East, c.Bounds.North),
			Geometry:   pt,
			Properties: props,
		})
	}
	return fc, nil
}
