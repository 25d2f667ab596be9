package geocoder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominatim_Geocode(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		expectedType ErrorType
		expectError  bool
	}{
		{
			name:   "match",
			status: http.StatusOK,
			body:   `[{"lat":"48.2082","lon":"16.3738","display_name":"Stephansplatz 1, Wien"}]`,
		},
		{
			name:         "no match",
			status:       http.StatusOK,
			body:         `[]`,
			expectError:  true,
			expectedType: ErrorTypeNotFound,
		},
		{
			name:         "rate limited",
			status:       http.StatusTooManyRequests,
			body:         `{}`,
			expectError:  true,
			expectedType: ErrorTypeRateLimit,
		},
		{
			name:         "malformed body",
			status:       http.StatusOK,
			body:         `<html>`,
			expectError:  true,
			expectedType: ErrorTypeUnknown,
		},
		{
			name:         "malformed latitude",
			status:       http.StatusOK,
			body:         `[{"lat":"north","lon":"16.3738"}]`,
			expectError:  true,
			expectedType: ErrorTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/search", r.URL.Path)
				assert.Equal(t, "Stephansplatz 1, 1010 Wien, Österreich", r.URL.Query().Get("q"))
				assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
				assert.Equal(t, "1", r.URL.Query().Get("limit"))
				assert.Equal(t, "address-mapper-test", r.Header.Get("User-Agent"))

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g := NewNominatim(srv.URL+"/", "address-mapper-test", 5*time.Second)
			loc, err := g.Geocode(context.Background(), "Stephansplatz 1, 1010 Wien, Österreich")

			if tt.expectError {
				require.Error(t, err)
				assert.Nil(t, loc)
				assert.Equal(t, tt.expectedType, TypeOf(err))
				return
			}

			require.NoError(t, err)
			assert.InDelta(t, 48.2082, loc.Latitude, 1e-9)
			assert.InDelta(t, 16.3738, loc.Longitude, 1e-9)
			assert.Equal(t, "Stephansplatz 1, Wien", loc.DisplayName)
			assert.Equal(t, "nominatim", loc.Provider)
			assert.Equal(t, "Stephansplatz 1, 1010 Wien, Österreich", loc.Query)
		})
	}
}

func TestNominatim_Geocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := NewNominatim(srv.URL, "address-mapper-test", 20*time.Millisecond)
	_, err := g.Geocode(context.Background(), "Stephansplatz 1")

	require.Error(t, err)
	assert.Equal(t, ErrorTypeTimeout, TypeOf(err))
}

func TestNominatim_Geocode_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	g := NewNominatim(url, "address-mapper-test", time.Second)
	_, err := g.Geocode(context.Background(), "Stephansplatz 1")

	require.Error(t, err)
	assert.Equal(t, ErrorTypeNetwork, TypeOf(err))
}
