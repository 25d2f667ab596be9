package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"address-mapper/internal/models"

	"github.com/jszwec/csvutil"
)

// Column names of the geocoded table.
const (
	ColumnAddress   = "Adresse"
	ColumnLatitude  = "Latitude"
	ColumnLongitude = "Longitude"
)

type geocodedRow struct {
	Address   string   `csv:"Adresse"`
	Latitude  *float64 `csv:"Latitude"`
	Longitude *float64 `csv:"Longitude"`
}

// WriteGeocoded writes the full address and coordinates of each record.
// Records without coordinates keep empty latitude and longitude cells.
func WriteGeocoded(w io.Writer, records []models.AddressRecord) error {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter

	enc := csvutil.NewEncoder(cw)
	if len(records) == 0 {
		if err := enc.EncodeHeader(geocodedRow{}); err != nil {
			return fmt.Errorf("table: failed to write header: %w", err)
		}
	}

	for i, rec := range records {
		row := geocodedRow{
			Address:   rec.FullAddress,
			Latitude:  rec.Latitude,
			Longitude: rec.Longitude,
		}
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("table: failed to write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

type seedRow struct {
	Address   string `csv:"Adresse"`
	Latitude  string `csv:"Latitude"`
	Longitude string `csv:"Longitude"`
}

// ReadCacheSeed reads a geocoded table with known coordinates, the format
// written by WriteGeocoded. Rows without coordinates are skipped.
func ReadCacheSeed(r io.Reader) ([]models.Location, error) {
	dec, err := newDecoder(r, []string{ColumnAddress, ColumnLatitude, ColumnLongitude})
	if err != nil {
		return nil, err
	}

	var locations []models.Location
	for row := 1; ; row++ {
		var sr seedRow
		if err := dec.Decode(&sr); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("table: failed to decode row %d: %w", row, err)
		}

		address := strings.TrimSpace(sr.Address)
		latStr := strings.TrimSpace(sr.Latitude)
		lonStr := strings.TrimSpace(sr.Longitude)
		if address == "" || latStr == "" || lonStr == "" {
			continue
		}

		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return nil, fmt.Errorf("table: invalid latitude in row %d: %s", row, latStr)
		}

		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return nil, fmt.Errorf("table: invalid longitude in row %d: %s", row, lonStr)
		}

		locations = append(locations, models.Location{
			Query:       address,
			DisplayName: address,
			Latitude:    lat,
			Longitude:   lon,
			Provider:    "seed",
		})
	}

	return locations, nil
}
