// Package web renders the HTML character browser page.
package web

import (
	"embed"
	"html/template"
	"io"
	"slices"
	"strings"

	"github.com/giannis84/character-browser/internal/browser"
	"github.com/giannis84/character-browser/internal/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

var funcs = template.FuncMap{
	"isFavourite": func(favs []int, id int) bool { return slices.Contains(favs, id) },
	"statusLabel": statusLabel,
}

var templates = template.Must(template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html"))

// HomePage is the data for home.html. An empty Email renders the sign-in notice.
type HomePage struct {
	Email    string
	View     browser.View
	Statuses []models.StatusFilter
	Error    string
}

// NewHomePage fills in the status options.
func NewHomePage(email string, view browser.View) HomePage {
	return HomePage{
		Email:    email,
		View:     view,
		Statuses: models.StatusFilters,
	}
}

// RenderHome writes the home page to w.
func RenderHome(w io.Writer, page HomePage) error {
	return templates.ExecuteTemplate(w, "home.html", page)
}

func statusLabel(s models.StatusFilter) string {
	if s == models.StatusAll || s == "" {
		return "All"
	}
	v := string(s)
	return strings.ToUpper(v[:1]) + v[1:]
}
