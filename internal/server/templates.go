package server

import (
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templatesFS embed.FS

// parseTemplates builds one template set per page, each paired with the
// shared layout (flash banners and the current-user header live there).
func parseTemplates() (map[string]*template.Template, error) {
	pages := []string{"send_form", "register", "login"}

	out := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.ParseFS(templatesFS,
			"templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		out[page] = t
	}
	return out, nil
}
