package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"address-mapper/internal/models"
)

const providerGoogle = "google_maps"

// GoogleMaps uses the Google Maps Geocoding API.
type GoogleMaps struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewGoogleMaps creates a Google Maps geocoder.
func NewGoogleMaps(baseURL, apiKey string, timeout time.Duration) *GoogleMaps {
	return &GoogleMaps{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: newHTTPClient(timeout),
	}
}

type googleMapsResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status       string `json:"status"` // OK, ZERO_RESULTS, OVER_QUERY_LIMIT, ...
	ErrorMessage string `json:"error_message"`
}

func (g *GoogleMaps) Geocode(ctx context.Context, address string) (*models.Location, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &GeocodeError{Type: ErrorTypeInvalidRequest, Message: "google maps: building request", Err: err}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(providerGoogle, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		geoErr := ClassifyHTTPError(resp.StatusCode)
		geoErr.Message = "google maps: " + geoErr.Message
		return nil, geoErr
	}

	var gmResp googleMapsResponse
	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return nil, &GeocodeError{Type: ErrorTypeUnknown, Message: "google maps: decoding response", Err: err}
	}

	if gmResp.Status != "OK" {
		return nil, &GeocodeError{
			Type:    classifyGoogleStatus(gmResp.Status),
			Message: fmt.Sprintf("google maps status %s for %q", gmResp.Status, address),
		}
	}

	if len(gmResp.Results) == 0 {
		return nil, &GeocodeError{
			Type:    ErrorTypeNotFound,
			Message: fmt.Sprintf("google maps: no results for %q", address),
		}
	}

	result := gmResp.Results[0]

	return &models.Location{
		Query:       address,
		DisplayName: result.FormattedAddress,
		Latitude:    result.Geometry.Location.Lat,
		Longitude:   result.Geometry.Location.Lng,
		Provider:    providerGoogle,
	}, nil
}

func classifyGoogleStatus(status string) ErrorType {
	switch status {
	case "ZERO_RESULTS":
		return ErrorTypeNotFound
	case "OVER_QUERY_LIMIT":
		return ErrorTypeRateLimit
	case "OVER_DAILY_LIMIT", "REQUEST_DENIED":
		return ErrorTypeQuotaExceeded
	case "INVALID_REQUEST":
		return ErrorTypeInvalidRequest
	default:
		return ErrorTypeUnknown
	}
}
