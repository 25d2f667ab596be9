package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"address-mapper/internal/models"
	"address-mapper/internal/render"
	"address-mapper/internal/service"
	"address-mapper/internal/table"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPipeline is a mock implementation of the Pipeline interface
type MockPipeline struct {
	mock.Mock
}

func (m *MockPipeline) Run(ctx context.Context, r io.Reader, progress func(models.Progress)) (*models.PipelineResult, error) {
	args := m.Called(ctx, r, progress)
	return args.Get(0).(*models.PipelineResult), args.Error(1)
}

const uploadCSV = "Vorname;Nachname;Straße;Hausnummer;PLZ;Stadt;Land\nAnna;Berger;Graben;1;1010;Wien;Österreich\n"

func float(v float64) *float64 { return &v }

func successfulResult() *models.PipelineResult {
	graben := models.AddressRecord{
		FirstName:   "Anna",
		LastName:    "Berger",
		Street:      "Graben",
		HouseNumber: "1",
		PostalCode:  "1010",
		City:        "Wien",
		Country:     "Österreich",
		FullAddress: "Graben 1, 1010 Wien, Österreich",
		Latitude:    float(48.2),
		Longitude:   float(16.37),
	}

	return &models.PipelineResult{
		RunID:    "run-1",
		Raw:      []models.AddressRecord{{FirstName: "Anna", LastName: "Berger", Street: "Graben", HouseNumber: "1", PostalCode: "1010", City: "Wien", Country: "Österreich"}},
		Records:  []models.AddressRecord{graben},
		Geocoded: []models.AddressRecord{graben},
		Map: &models.MapView{
			CenterLatitude:  48.2,
			CenterLongitude: 16.37,
			Zoom:            6,
			Markers:         []models.Marker{{Latitude: 48.2, Longitude: 16.37, Label: "Anna Berger, Graben 1, 1010 Wien"}},
		},
	}
}

func emptyResult() *models.PipelineResult {
	miss := models.AddressRecord{FirstName: "Anna", FullAddress: "Nirgendwo 1, 1010 Wien, Österreich", GeocodeError: "not_found"}
	return &models.PipelineResult{
		RunID:    "run-2",
		Raw:      []models.AddressRecord{{FirstName: "Anna"}},
		Records:  []models.AddressRecord{miss},
		Geocoded: []models.AddressRecord{},
		Warning:  service.NoValidAddressesWarning,
	}
}

func invalidTableError() error {
	return fmt.Errorf("%w: %w", service.ErrInvalidTable, &table.MissingColumnError{Column: table.ColumnCity})
}

func newUploadRouter(pipeline Pipeline) *gin.Engine {
	return newLimitedUploadRouter(pipeline, 1<<20)
}

func newLimitedUploadRouter(pipeline Pipeline, maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := NewUploadHandler(pipeline, render.NewLeaflet(), maxBytes)

	r := gin.New()
	r.SetHTMLTemplate(Templates())
	r.GET("/", h.Index)
	r.POST("/upload", h.Upload)
	r.POST("/api/upload", h.UploadAPI)
	r.POST("/api/upload/stream", h.UploadStream)
	return r
}

func uploadRequest(t *testing.T, path, field, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		part, err := mw.CreateFormFile(field, "adressen.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadHandler_Index(t *testing.T) {
	r := newUploadRouter(new(MockPipeline))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/upload"`)
	assert.Contains(t, w.Body.String(), `name="file"`)
}

func TestUploadHandler_UploadAPI(t *testing.T) {
	tests := []struct {
		name           string
		field          string
		mockResult     *models.PipelineResult
		mockError      error
		expectedStatus int
		check          func(t *testing.T, body map[string]interface{})
	}{
		{
			name:           "missing file",
			field:          "",
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "missing required form file 'file'", body["error"])
			},
		},
		{
			name:           "geocoded table",
			field:          FormField,
			mockResult:     successfulResult(),
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "run-1", body["run_id"])
				assert.Len(t, body["records"], 1)
				assert.Len(t, body["geocoded"], 1)
				assert.NotContains(t, body, "warning")

				view := body["map"].(map[string]interface{})
				assert.Equal(t, 48.2, view["center_latitude"])
				assert.Len(t, view["markers"], 1)

				fc := body["geojson"].(map[string]interface{})
				assert.Equal(t, "FeatureCollection", fc["type"])
				assert.Len(t, fc["features"], 1)
			},
		},
		{
			name:           "no valid addresses",
			field:          FormField,
			mockResult:     emptyResult(),
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, service.NoValidAddressesWarning, body["warning"])
				assert.Nil(t, body["map"])
				assert.Empty(t, body["geocoded"])
			},
		},
		{
			name:           "invalid table",
			field:          FormField,
			mockResult:     nil,
			mockError:      invalidTableError(),
			expectedStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Contains(t, body["error"], `missing required column "Stadt"`)
			},
		},
		{
			name:           "unexpected pipeline error",
			field:          FormField,
			mockResult:     nil,
			mockError:      assert.AnError,
			expectedStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "internal server error", body["error"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPipeline := new(MockPipeline)
			if tt.field != "" {
				mockPipeline.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(tt.mockResult, tt.mockError)
			}

			w := httptest.NewRecorder()
			newUploadRouter(mockPipeline).ServeHTTP(w, uploadRequest(t, "/api/upload", tt.field, uploadCSV))

			assert.Equal(t, tt.expectedStatus, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			tt.check(t, body)

			mockPipeline.AssertExpectations(t)
		})
	}
}

func TestUploadHandler_Upload(t *testing.T) {
	t.Run("renders tables and map", func(t *testing.T) {
		mockPipeline := new(MockPipeline)
		mockPipeline.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(successfulResult(), nil)

		w := httptest.NewRecorder()
		newUploadRouter(mockPipeline).ServeHTTP(w, uploadRequest(t, "/upload", FormField, uploadCSV))

		assert.Equal(t, http.StatusOK, w.Code)
		out := w.Body.String()
		assert.Contains(t, out, "Hochgeladene Daten")
		assert.Contains(t, out, "Geokodierte Adressen (1 von 1)")
		assert.Contains(t, out, "48.200000")
		assert.Contains(t, out, `<div id="address-map"`)
		assert.NotContains(t, out, NoValidAddressesMessage)
	})

	t.Run("warns when nothing was geocoded", func(t *testing.T) {
		mockPipeline := new(MockPipeline)
		mockPipeline.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(emptyResult(), nil)

		w := httptest.NewRecorder()
		newUploadRouter(mockPipeline).ServeHTTP(w, uploadRequest(t, "/upload", FormField, uploadCSV))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), NoValidAddressesMessage)
		assert.NotContains(t, w.Body.String(), "L.map(")
	})

	t.Run("invalid table", func(t *testing.T) {
		mockPipeline := new(MockPipeline)
		mockPipeline.On("Run", mock.Anything, mock.Anything, mock.Anything).Return((*models.PipelineResult)(nil), invalidTableError())

		w := httptest.NewRecorder()
		newUploadRouter(mockPipeline).ServeHTTP(w, uploadRequest(t, "/upload", FormField, uploadCSV))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "Die Datei konnte nicht verarbeitet werden")
	})

	t.Run("missing file", func(t *testing.T) {
		w := httptest.NewRecorder()
		newUploadRouter(new(MockPipeline)).ServeHTTP(w, uploadRequest(t, "/upload", "", ""))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUploadHandler_UploadStream(t *testing.T) {
	mockPipeline := new(MockPipeline)
	mockPipeline.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			progress := args.Get(2).(func(models.Progress))
			progress(models.Progress{Processed: 1, Total: 2, Fraction: 0.5})
			progress(models.Progress{Processed: 2, Total: 2, Fraction: 1})
		}).
		Return(successfulResult(), nil)

	w := httptest.NewRecorder()
	newUploadRouter(mockPipeline).ServeHTTP(w, uploadRequest(t, "/api/upload/stream", FormField, uploadCSV))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	out := w.Body.String()
	assert.Equal(t, 2, strings.Count(out, "event:progress"))
	assert.Contains(t, out, `"fraction":0.5`)
	assert.Equal(t, 1, strings.Count(out, "event:result"))
	assert.Less(t, strings.LastIndex(out, "event:progress"), strings.Index(out, "event:result"))

	mockPipeline.AssertExpectations(t)
}

func TestUploadHandler_UploadStreamError(t *testing.T) {
	mockPipeline := new(MockPipeline)
	mockPipeline.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return((*models.PipelineResult)(nil), invalidTableError())

	w := httptest.NewRecorder()
	newUploadRouter(mockPipeline).ServeHTTP(w, uploadRequest(t, "/api/upload/stream", FormField, uploadCSV))

	out := w.Body.String()
	assert.Contains(t, out, "event:error")
	assert.NotContains(t, out, "event:result")
}

func TestUploadHandler_TooLarge(t *testing.T) {
	content := uploadCSV + strings.Repeat("Anna;Berger;Graben;1;1010;Wien;Österreich\n", 20)

	tests := []struct {
		name  string
		path  string
		check func(t *testing.T, w *httptest.ResponseRecorder)
	}{
		{
			name: "api",
			path: "/api/upload",
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				var body map[string]interface{}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, "uploaded file is too large", body["error"])
			},
		},
		{
			name: "form",
			path: "/upload",
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Contains(t, w.Body.String(), "uploaded file is too large")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPipeline := new(MockPipeline)

			w := httptest.NewRecorder()
			newLimitedUploadRouter(mockPipeline, 100).ServeHTTP(w, uploadRequest(t, tt.path, FormField, content))

			assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
			tt.check(t, w)
			mockPipeline.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}
