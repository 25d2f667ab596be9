package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"address-mapper/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Leaflet renders map views with the Leaflet JavaScript library and
// OpenStreetMap tiles.
type Leaflet struct {
	templates *template.Template
	elementID string
}

// NewLeaflet parses the embedded templates.
func NewLeaflet() *Leaflet {
	return &Leaflet{
		templates: template.Must(template.ParseFS(templateFS, "templates/*.html")),
		elementID: "address-map",
	}
}

type fragmentData struct {
	ElementID string
	View      *models.MapView
}

// Render writes an embeddable fragment: the map container and the script
// that fills it.
func (l *Leaflet) Render(w io.Writer, view *models.MapView) error {
	if view == nil {
		return ErrNoValidAddresses
	}

	if err := l.templates.ExecuteTemplate(w, "map.html", fragmentData{ElementID: l.elementID, View: view}); err != nil {
		return fmt.Errorf("render: executing map template: %w", err)
	}

	return nil
}

// Fragment is Render into a value that html/template will not escape.
func (l *Leaflet) Fragment(view *models.MapView) (template.HTML, error) {
	var buf bytes.Buffer
	if err := l.Render(&buf, view); err != nil {
		return "", err
	}

	return template.HTML(buf.String()), nil //nolint:gosec // produced by html/template
}

// RenderDocument writes a standalone HTML page containing the map.
func (l *Leaflet) RenderDocument(w io.Writer, title string, view *models.MapView) error {
	fragment, err := l.Fragment(view)
	if err != nil {
		return err
	}

	data := struct {
		Title   string
		Map     template.HTML
		Markers int
	}{
		Title:   title,
		Map:     fragment,
		Markers: len(view.Markers),
	}

	if err := l.templates.ExecuteTemplate(w, "document.html", data); err != nil {
		return fmt.Errorf("render: executing document template: %w", err)
	}

	return nil
}
