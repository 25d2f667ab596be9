package handler

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"

	"address-mapper/internal/models"
	"address-mapper/internal/render"
	"address-mapper/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// FormField is the multipart field carrying the uploaded table.
const FormField = "file"

// NoValidAddressesMessage is shown instead of a map when nothing could be
// geocoded.
const NoValidAddressesMessage = "Keine gültigen Adressen gefunden."

//go:embed templates/*.html
var templateFS embed.FS

// Templates returns the HTML pages served by UploadHandler.
func Templates() *template.Template {
	funcs := template.FuncMap{
		"coord": func(v *float64) string {
			if v == nil {
				return ""
			}
			return strconv.FormatFloat(*v, 'f', 6, 64)
		},
		"table": func(records []models.AddressRecord, coordinates bool) addressTable {
			return addressTable{Records: records, Coordinates: coordinates}
		},
	}

	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}

type addressTable struct {
	Records     []models.AddressRecord
	Coordinates bool
}

// Pipeline processes one uploaded table
type Pipeline interface {
	Run(ctx context.Context, r io.Reader, progress func(models.Progress)) (*models.PipelineResult, error)
}

// MapFragmenter renders a map view into an HTML fragment
type MapFragmenter interface {
	Fragment(view *models.MapView) (template.HTML, error)
}

// ErrorResponse is the body of every failed API request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UploadResponse is the body of a successful API upload.
type UploadResponse struct {
	RunID    string                     `json:"run_id"`
	Records  []models.AddressRecord     `json:"records"`
	Geocoded []models.AddressRecord     `json:"geocoded"`
	Map      *models.MapView            `json:"map"`
	GeoJSON  *geojson.FeatureCollection `json:"geojson" swaggertype:"object"`
	Warning  string                     `json:"warning,omitempty"`
}

// NewUploadResponse builds the API body for a pipeline result.
func NewUploadResponse(result *models.PipelineResult) UploadResponse {
	return UploadResponse{
		RunID:    result.RunID,
		Records:  result.Records,
		Geocoded: result.Geocoded,
		Map:      result.Map,
		GeoJSON:  render.FeatureCollection(result.Records),
		Warning:  result.Warning,
	}
}

// UploadHandler handles address table uploads
type UploadHandler struct {
	pipeline Pipeline
	maps     MapFragmenter
	maxBytes int64
}

// NewUploadHandler creates a new upload handler. Request bodies larger than
// maxBytes are rejected; zero disables the limit.
func NewUploadHandler(pipeline Pipeline, maps MapFragmenter, maxBytes int64) *UploadHandler {
	return &UploadHandler{pipeline: pipeline, maps: maps, maxBytes: maxBytes}
}

// Index handles GET / requests
func (h *UploadHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{"Field": FormField})
}

// Upload handles POST /upload requests from the browser form
func (h *UploadHandler) Upload(c *gin.Context) {
	file, status, err := h.openUpload(c)
	if err != nil {
		c.HTML(status, "error.html", gin.H{"Message": err.Error()})
		return
	}
	defer file.Close()

	result, err := h.pipeline.Run(c.Request.Context(), file, nil)
	if err != nil {
		status, msg := pipelineError(err)
		c.HTML(status, "error.html", gin.H{"Message": msg})
		return
	}

	data := gin.H{
		"Raw":      result.Raw,
		"Geocoded": result.Geocoded,
		"Total":    len(result.Records),
	}

	if result.Map == nil {
		data["Warning"] = NoValidAddressesMessage
	} else {
		fragment, err := h.maps.Fragment(result.Map)
		if err != nil {
			log.Error().Err(err).Str("run_id", result.RunID).Msg("map rendering failed")
			c.HTML(http.StatusInternalServerError, "error.html", gin.H{"Message": "internal server error"})
			return
		}
		data["Map"] = fragment
	}

	c.HTML(http.StatusOK, "result.html", data)
}

// UploadAPI handles POST /api/upload requests
//
//	@Summary	Geocode an address table
//	@Tags		upload
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		file	formData	file	true	"Semicolon separated address table"
//	@Success	200		{object}	UploadResponse
//	@Failure	400		{object}	ErrorResponse
//	@Failure	413		{object}	ErrorResponse
//	@Failure	422		{object}	ErrorResponse
//	@Router		/api/upload [post]
func (h *UploadHandler) UploadAPI(c *gin.Context) {
	file, status, err := h.openUpload(c)
	if err != nil {
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}
	defer file.Close()

	result, err := h.pipeline.Run(c.Request.Context(), file, nil)
	if err != nil {
		status, msg := pipelineError(err)
		c.JSON(status, ErrorResponse{Error: msg})
		return
	}

	c.JSON(http.StatusOK, NewUploadResponse(result))
}

// UploadStream handles POST /api/upload/stream requests. Progress is sent
// as server-sent events while the table is geocoded, followed by a single
// result or error event.
//
//	@Summary	Geocode an address table with progress events
//	@Tags		upload
//	@Accept		multipart/form-data
//	@Produce	text/event-stream
//	@Param		file	formData	file	true	"Semicolon separated address table"
//	@Success	200		{object}	UploadResponse
//	@Failure	400		{object}	ErrorResponse
//	@Failure	413		{object}	ErrorResponse
//	@Router		/api/upload/stream [post]
func (h *UploadHandler) UploadStream(c *gin.Context) {
	file, status, err := h.openUpload(c)
	if err != nil {
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}
	defer file.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	result, err := h.pipeline.Run(c.Request.Context(), file, func(p models.Progress) {
		c.SSEvent("progress", p)
		c.Writer.Flush()
	})
	if err != nil {
		_, msg := pipelineError(err)
		c.SSEvent("error", ErrorResponse{Error: msg})
		c.Writer.Flush()
		return
	}

	c.SSEvent("result", NewUploadResponse(result))
	c.Writer.Flush()
}

func (h *UploadHandler) openUpload(c *gin.Context) (io.ReadCloser, int, error) {
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}

	header, err := c.FormFile(FormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, errors.New("uploaded file is too large")
		}
		return nil, http.StatusBadRequest, errors.New("missing required form file 'file'")
	}

	file, err := header.Open()
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("cannot open uploaded file")
	}

	return file, http.StatusOK, nil
}

// pipelineError maps a pipeline failure to a status and a message safe to
// show to the client.
func pipelineError(err error) (int, string) {
	if errors.Is(err, service.ErrInvalidTable) {
		return http.StatusUnprocessableEntity, err.Error()
	}

	log.Error().Err(err).Msg("pipeline failed")
	return http.StatusInternalServerError, "internal server error"
}
