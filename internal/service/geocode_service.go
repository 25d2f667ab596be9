package service

import (
	"context"
	"fmt"
	"strings"

	"address-mapper/internal/geocoder"
	"address-mapper/internal/models"
	"address-mapper/internal/repository"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// GeoCodeService contains the core business logic for geocoding operations
type GeoCodeService struct {
	provider GeoCodeProvider
	cache    GeoCodeCache
}

// GeoCodeProvider resolves one address through an external service
type GeoCodeProvider interface {
	Geocode(ctx context.Context, address string) (*models.Location, error)
}

// GeoCodeCache interface for dependency injection
type GeoCodeCache interface {
	FindCachedLocation(ctx context.Context, hash string) (*models.Location, error)
	SaveLocation(ctx context.Context, loc *models.Location) error
}

// NewGeoCodeService creates a new geo code service. cache may be nil.
func NewGeoCodeService(provider GeoCodeProvider, cache GeoCodeCache) *GeoCodeService {
	return &GeoCodeService{provider: provider, cache: cache}
}

// Geocode resolves a single address. Cache failures are logged and fall
// through to the provider.
func (s *GeoCodeService) Geocode(ctx context.Context, address string) (*models.Location, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, &geocoder.GeocodeError{Type: geocoder.ErrorTypeInvalidRequest, Message: "service: address cannot be empty"}
	}

	logger := loggerFrom(ctx)

	if s.cache != nil {
		loc, err := s.cache.FindCachedLocation(ctx, repository.AddressHash(address))
		if err != nil {
			logger.Warn().Err(err).Msg("geocode cache lookup failed")
		} else if loc != nil {
			logger.Debug().Str("address", address).Msg("geocode cache hit")
			return loc, nil
		}
	}

	loc, err := s.provider.Geocode(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("service: failed to geocode address: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SaveLocation(ctx, loc); err != nil {
			logger.Warn().Err(err).Msg("geocode cache store failed")
		}
	}

	return loc, nil
}

// GeocodeRecords looks up every record's full address once, in order.
// Failures leave the record without coordinates and are never returned.
// It reports progress after each row and returns the number of hits.
func (s *GeoCodeService) GeocodeRecords(ctx context.Context, records []models.AddressRecord, progress func(models.Progress)) int {
	logger := loggerFrom(ctx)
	total := len(records)
	found := 0

	for i := range records {
		rec := &records[i]

		loc, err := s.Geocode(ctx, rec.FullAddress)
		if err != nil {
			reason := geocoder.TypeOf(err).String()
			rec.ClearCoordinates(reason)
			logger.Warn().
				Err(err).
				Int("row", i+1).
				Str("address", rec.FullAddress).
				Str("reason", reason).
				Msg("address could not be geocoded")
		} else {
			rec.SetCoordinates(loc.Latitude, loc.Longitude)
			found++
		}

		if progress != nil {
			progress(models.Progress{
				Processed: i + 1,
				Total:     total,
				Fraction:  float64(i+1) / float64(total),
			})
		}
	}

	return found
}

// loggerFrom returns the logger attached to ctx, or the global logger.
func loggerFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
