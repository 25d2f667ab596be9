package render

import (
	"address-mapper/internal/models"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// FeatureCollection exports the records with coordinates as GeoJSON points,
// in input order, with the bounding box of all points.
func FeatureCollection(records []models.AddressRecord) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{
		Features: []*geojson.Feature{},
	}

	valid := ValidRecords(records)
	if len(valid) == 0 {
		return fc
	}

	bounds := geom.NewBounds(geom.XY)
	for _, rec := range valid {
		point := geom.NewPointFlat(geom.XY, []float64{*rec.Longitude, *rec.Latitude})
		bounds.Extend(point)

		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: point,
			Properties: map[string]interface{}{
				"first_name":   rec.FirstName,
				"last_name":    rec.LastName,
				"street":       rec.Street,
				"house_number": rec.HouseNumber,
				"postal_code":  rec.PostalCode,
				"city":         rec.City,
				"country":      rec.Country,
				"full_address": rec.FullAddress,
				"label":        MarkerLabel(rec),
			},
		})
	}
	fc.BBox = bounds

	return fc
}
