package httpserver

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"myrestaurants/internal/app"
	"myrestaurants/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"restaurant_list",
	"restaurant_detail",
	"dish_list",
	"dish_detail",
	"form",
	"login",
	"error",
}

var funcs = template.FuncMap{
	"restaurantURL": app.RestaurantURL,
	"dishURL":       func(d domain.Dish) string { return app.DishURL(d.ParentID(), d.ID) },
}

// Views holds one template set per page, each layered over base.html.
type Views struct {
	pages map[string]*template.Template
}

func LoadViews() (*Views, error) {
	v := &Views{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

// view is the data every template executes against.
type view struct {
	Actor domain.Actor
	Path  string
	CSRF  string
	Page  any
}

type loginPage struct {
	Username string
	Next     string
	Error    string
}

type errorPage struct {
	Status int
	Title  string
	Detail string
}

func (v *Views) Render(w io.Writer, name string, data view) error {
	t, ok := v.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	return t.ExecuteTemplate(w, "base", data)
}

// html adapts a template to the negotiator's HTML fallback.
func (v *Views) html(r *http.Request, name string, page any) func(io.Writer) error {
	data := view{Actor: ActorFrom(r.Context()), Path: r.URL.Path, CSRF: CSRFToken(r.Context()), Page: page}
	return func(w io.Writer) error { return v.Render(w, name, data) }
}
