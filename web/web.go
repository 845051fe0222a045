// Package web embeds the HTML templates and static assets.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"time"

	"control-acceso/internal/dashboard"
	"control-acceso/internal/panels"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var deleteConfirmations = map[string]string{
	"cars":         "¿Estás seguro de eliminar este auto?",
	"access-codes": "¿Estás seguro de eliminar este código de acceso?",
}

// Templates parses every page template. loc is the zone used for default
// form values.
func Templates(loc *time.Location) (*template.Template, error) {
	funcs := template.FuncMap{
		"defaultExpiration": func() string { return panels.DefaultExpiration(time.Now().In(loc)) },
		"confirmDelete": func(resource string) string {
			if msg, ok := deleteConfirmations[resource]; ok {
				return msg
			}
			return "¿Estás seguro de eliminar este registro?"
		},
		"columns": func(t *dashboard.Table) int {
			n := len(t.Headers)
			if t.Detail || t.Editable || t.Deletable {
				n++
			}
			return n
		},
	}
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

// Static returns the static asset tree rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
