package mapview

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded page templates. The router loads them with
// SetHTMLTemplate.
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

// PageTemplate is the name of the map page template.
const PageTemplate = "map.html"

// PageData is what map.html renders.
type PageData struct {
	Title string
	Map   Map
	// Path of the live update websocket; empty disables it.
	LiveURL string
}

// RenderPage writes the full Leaflet page for m.
func RenderPage(w io.Writer, data PageData) error {
	return Templates().ExecuteTemplate(w, PageTemplate, data)
}
