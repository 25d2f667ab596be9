// Package render turns geocoded records into maps.
package render

import (
	"errors"
	"fmt"
	"io"

	"address-mapper/internal/models"
)

// DefaultZoom is the initial zoom level of rendered maps.
const DefaultZoom = 6

// ErrNoValidAddresses is returned when no record has coordinates.
var ErrNoValidAddresses = errors.New("render: no valid addresses")

// MapRenderer draws a map view.
type MapRenderer interface {
	Render(w io.Writer, view *models.MapView) error
}

// ValidRecords returns the records with coordinates, in input order.
func ValidRecords(records []models.AddressRecord) []models.AddressRecord {
	valid := []models.AddressRecord{}
	for _, rec := range records {
		if rec.HasCoordinates() {
			valid = append(valid, rec)
		}
	}
	return valid
}

// BuildMapView centers the map on the mean coordinate of the valid records
// and pins one marker per valid record. Coincident markers are kept.
func BuildMapView(records []models.AddressRecord, zoom int) (*models.MapView, error) {
	valid := ValidRecords(records)
	if len(valid) == 0 {
		return nil, ErrNoValidAddresses
	}

	view := &models.MapView{
		Zoom:    zoom,
		Markers: make([]models.Marker, 0, len(valid)),
	}

	var sumLat, sumLon float64
	for _, rec := range valid {
		sumLat += *rec.Latitude
		sumLon += *rec.Longitude

		view.Markers = append(view.Markers, models.Marker{
			Latitude:  *rec.Latitude,
			Longitude: *rec.Longitude,
			Label:     MarkerLabel(rec),
		})
	}

	n := float64(len(valid))
	view.CenterLatitude = sumLat / n
	view.CenterLongitude = sumLon / n

	return view, nil
}

// MarkerLabel is the popup text of a record's marker.
func MarkerLabel(rec models.AddressRecord) string {
	return fmt.Sprintf("%s %s, %s %s, %s %s",
		rec.FirstName, rec.LastName, rec.Street, rec.HouseNumber, rec.PostalCode, rec.City)
}
