// Package geocoder resolves free-text addresses to coordinates through
// external providers.
package geocoder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"address-mapper/internal/config"
	"address-mapper/internal/models"
)

// DefaultGoogleMapsURL is the Google Geocoding API endpoint.
const DefaultGoogleMapsURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Geocoder returns the best match for an address. A miss is reported as a
// *GeocodeError of type ErrorTypeNotFound.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*models.Location, error)
}

// New builds the provider selected in the configuration.
func New(cfg config.Config) (Geocoder, error) {
	switch cfg.GeocoderProvider {
	case config.ProviderNominatim:
		return NewNominatim(cfg.NominatimURL, cfg.UserAgent, cfg.RequestTimeout), nil
	case config.ProviderGoogle:
		return NewGoogleMaps(DefaultGoogleMapsURL, cfg.GoogleMapsAPIKey, cfg.RequestTimeout), nil
	default:
		return nil, fmt.Errorf("geocoder: unknown provider %q", cfg.GeocoderProvider)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &loggingTransport{next: http.DefaultTransport},
	}
}
