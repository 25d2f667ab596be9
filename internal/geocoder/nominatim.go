package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"address-mapper/internal/models"
)

const providerNominatim = "nominatim"

// Nominatim queries an OpenStreetMap Nominatim search endpoint.
type Nominatim struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewNominatim creates a Nominatim geocoder. The usage policy of the public
// instance requires an identifying User-Agent.
func NewNominatim(baseURL, userAgent string, timeout time.Duration) *Nominatim {
	return &Nominatim{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: newHTTPClient(timeout),
	}
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode returns the first search result for address.
func (n *Nominatim) Geocode(ctx context.Context, address string) (*models.Location, error) {
	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, &GeocodeError{Type: ErrorTypeInvalidRequest, Message: "nominatim: building request", Err: err}
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(providerNominatim, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		geoErr := ClassifyHTTPError(resp.StatusCode)
		geoErr.Message = "nominatim: " + geoErr.Message
		return nil, geoErr
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, &GeocodeError{Type: ErrorTypeUnknown, Message: "nominatim: decoding response", Err: err}
	}

	if len(results) == 0 {
		return nil, &GeocodeError{
			Type:    ErrorTypeNotFound,
			Message: fmt.Sprintf("nominatim: no results for %q", address),
		}
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, &GeocodeError{Type: ErrorTypeUnknown, Message: "nominatim: invalid latitude", Err: err}
	}

	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, &GeocodeError{Type: ErrorTypeUnknown, Message: "nominatim: invalid longitude", Err: err}
	}

	return &models.Location{
		Query:       address,
		DisplayName: results[0].DisplayName,
		Latitude:    lat,
		Longitude:   lon,
		Provider:    providerNominatim,
	}, nil
}
