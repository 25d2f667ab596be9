package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"address-mapper/internal/models"
	"address-mapper/internal/render"
	"address-mapper/internal/table"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// NoValidAddressesWarning is reported when no row could be geocoded.
const NoValidAddressesWarning = "no valid addresses found"

// ErrInvalidTable wraps every error caused by the uploaded table itself.
var ErrInvalidTable = errors.New("service: invalid address table")

// RecordGeocoder geocodes a table of records in place
type RecordGeocoder interface {
	GeocodeRecords(ctx context.Context, records []models.AddressRecord, progress func(models.Progress)) int
}

// Pipeline runs an uploaded table through normalization, geocoding and map
// construction.
type Pipeline struct {
	geocoder RecordGeocoder
	zoom     int
}

// NewPipeline creates a pipeline producing maps at the given zoom level.
func NewPipeline(geocoder RecordGeocoder, zoom int) *Pipeline {
	return &Pipeline{geocoder: geocoder, zoom: zoom}
}

// Run processes one table. Only structural problems with the table are
// returned as errors; rows that fail to geocode are left out of the map, and
// a table where every row fails yields a warning and no map.
func (p *Pipeline) Run(ctx context.Context, r io.Reader, progress func(models.Progress)) (*models.PipelineResult, error) {
	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Logger()
	ctx = logger.WithContext(ctx)

	records, err := table.ReadAddresses(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTable, err)
	}
	logger.Info().Int("rows", len(records)).Msg("address table loaded")

	raw := slices.Clone(records)

	NormalizeRecords(records)
	FormatPostalCodes(records)
	BuildFullAddresses(records)

	found := p.geocoder.GeocodeRecords(ctx, records, progress)

	result := &models.PipelineResult{
		RunID:    runID,
		Raw:      raw,
		Records:  records,
		Geocoded: render.ValidRecords(records),
	}

	view, err := render.BuildMapView(records, p.zoom)
	switch {
	case errors.Is(err, render.ErrNoValidAddresses):
		result.Warning = NoValidAddressesWarning
		logger.Warn().Int("rows", len(records)).Msg(NoValidAddressesWarning)
	case err != nil:
		return nil, fmt.Errorf("service: failed to build map: %w", err)
	default:
		result.Map = view
	}

	logger.Info().
		Int("geocoded", found).
		Int("failed", len(records)-found).
		Msg("pipeline finished")

	return result, nil
}
