package httpserver

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"myrestaurants/internal/app"
	"myrestaurants/internal/negotiate"
)

const loginPath = "/accounts/login"

// PageHandlers serve the HTML site. List and detail pages also answer
// with JSON or XML when the path carries a .json or .xml suffix.
type PageHandlers struct {
	P     *app.Pages
	Views *Views
}

func (s *Server) MountPages(h *PageHandlers) {
	s.mux.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/restaurants/", http.StatusFound)
	})
	s.mux.Get("/restaurants", h.restaurantList)
	s.mux.Get("/restaurants/new", h.newRestaurant)
	s.mux.Post("/restaurants/new", h.createRestaurant)
	s.mux.Get("/restaurants/{id}", h.restaurantDetail)
	s.mux.Get("/restaurants/{id}/edit", h.editRestaurant)
	s.mux.Post("/restaurants/{id}/edit", h.updateRestaurant)
	s.mux.Post("/restaurants/{id}/review", h.review)
	s.mux.Get("/restaurants/{id}/dishes", h.dishList)
	s.mux.Get("/restaurants/{id}/dishes/new", h.newDish)
	s.mux.Post("/restaurants/{id}/dishes/new", h.createDish)
	s.mux.Get("/restaurants/{id}/dishes/{dish}", h.dishDetail)
	s.mux.Get("/restaurants/{id}/dishes/{dish}/edit", h.editDish)
	s.mux.Post("/restaurants/{id}/dishes/{dish}/edit", h.updateDish)
	s.mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.errorPage(w, r, http.StatusNotFound)
	})
}

// format resolves the path suffix. Routes without suffix support only
// answer in HTML.
func (h *PageHandlers) format(w http.ResponseWriter, r *http.Request, suffixes bool) (negotiate.Format, bool) {
	f, err := negotiate.FromPath(r)
	if err != nil || (!suffixes && f != negotiate.HTML) {
		h.errorPage(w, r, http.StatusNotFound)
		return f, false
	}
	return f, true
}

func (h *PageHandlers) ids(w http.ResponseWriter, r *http.Request, names ...string) ([]int64, bool) {
	out := make([]int64, len(names))
	for i, n := range names {
		id, err := strconv.ParseInt(chi.URLParam(r, n), 10, 64)
		if err != nil || id <= 0 {
			h.errorPage(w, r, http.StatusNotFound)
			return nil, false
		}
		out[i] = id
	}
	return out, true
}

func (h *PageHandlers) parseForm(w http.ResponseWriter, r *http.Request) (url.Values, bool) {
	if err := r.ParseForm(); err != nil {
		h.errorPage(w, r, http.StatusBadRequest)
		return nil, false
	}
	return r.PostForm, true
}

// respond turns a controller result into a response.
func (h *PageHandlers) respond(w http.ResponseWriter, r *http.Request, f negotiate.Format, name string, res app.Result) {
	switch res.Kind {
	case app.KindOK:
		h.render(w, r, http.StatusOK, f, name, res.Payload)
	case app.KindRedirect:
		http.Redirect(w, r, res.Location, http.StatusFound)
	case app.KindUnauthenticated:
		http.Redirect(w, r, loginPath+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
	case app.KindInvalid:
		if form, ok := res.Payload.(app.FormPage); ok {
			h.render(w, r, http.StatusBadRequest, negotiate.HTML, "form", form)
			return
		}
		h.errorPage(w, r, http.StatusBadRequest)
	case app.KindNotFound:
		h.errorPage(w, r, http.StatusNotFound)
	case app.KindForbidden:
		h.errorPage(w, r, http.StatusForbidden)
	default:
		log.Error().Err(res.Err).Str("request_id", chimw.GetReqID(r.Context())).Str("path", r.URL.Path).Msg("page failed")
		h.errorPage(w, r, http.StatusInternalServerError)
	}
}

func (h *PageHandlers) render(w http.ResponseWriter, r *http.Request, status int, f negotiate.Format, name string, payload any) {
	if err := negotiate.Render(w, status, f, payload, h.Views.html(r, name, payload)); err != nil {
		log.Error().Err(err).Str("template", name).Str("format", f.String()).Msg("render failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *PageHandlers) errorPage(w http.ResponseWriter, r *http.Request, status int) {
	page := errorPage{Status: status, Title: http.StatusText(status)}
	switch status {
	case http.StatusForbidden:
		page.Detail = "You do not have permission to change this."
	case http.StatusNotFound:
		page.Detail = "The page you asked for does not exist."
	}
	if err := negotiate.Render(w, status, negotiate.HTML, nil, h.Views.html(r, "error", page)); err != nil {
		log.Error().Err(err).Msg("render error page failed")
		http.Error(w, page.Title, status)
	}
}

// ---- restaurants ----

func (h *PageHandlers) restaurantList(w http.ResponseWriter, r *http.Request) {
	f, ok := h.format(w, r, true)
	if !ok {
		return
	}
	h.respond(w, r, f, "restaurant_list", h.P.RestaurantList(r.Context()))
}

func (h *PageHandlers) restaurantDetail(w http.ResponseWriter, r *http.Request) {
	f, ok := h.format(w, r, true)
	if !ok {
		return
	}
	ids, ok := h.ids(w, r, "id")
	if !ok {
		return
	}
	h.respond(w, r, f, "restaurant_detail", h.P.RestaurantDetail(r.Context(), ids[0]))
}

func (h *PageHandlers) newRestaurant(w http.ResponseWriter, r *http.Request) {
	f, ok := h.format(w, r, false)
	if !ok {
		return
	}
	h.respond(w, r, f, "form", h.P.NewRestaurant(ActorFrom(r.Context())))
}

func (h *PageHandlers) createRestaurant(w http.ResponseWriter, r *http.Request) {
	f, ok := h.format(w, r, false)
	if !ok {
		return
	}
	form, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	h.respond(w, r, f, "form", h.P.CreateRestaurant(r.Context(), ActorFrom(r.Context()), form))
}

func (h *PageHandlers) editRestaurant(w http.ResponseWriter, r *http.Request) {
	f, ok := h.format(w, r, false)
	if !ok {
		return
	}
	ids, ok := h.ids(w, r, "id")
	if !ok {
		return
	}
	h.respond(w, r, f, "form", h.P.EditRestaurant(r.Context(), ActorFrom(r.Context()), ids[0]))
}

func (h *PageHandlers) updateRestaurant(w http.ResponseWriter, r *http.Request) {
	f, ok := h.format(w, r, false)
	if !ok {
		return
	}
	ids, ok := h.ids(w, r, "id")
	if !ok {
		return
	}
	form, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	h.respond(w, r, f, "form", h.P.UpdateRestaurant(r.Context(), ActorFrom(r.Context()), ids[0], form))
}

func (h *PageHandlers) review(w http.ResponseWriter, r *http.Request) {
	f, ok := h.format(w, r, false)
	if !ok {
		return
	}
	ids, ok := h.ids(w, r, "id")
	if !ok {
		return
	}
	form, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	h.respond(w, r, f, "error", h.P.SubmitReview(r.Context(), ActorFrom(r.Context()), ids[0], form))
}

// ---- dishes ----

func (h *PageHandlers) dishList(w http.ResponseWriter, r *http.Request) {
	f, ok := h.format(w, r, true)
	if !ok {
		return
	}
	ids, ok := h.ids(w, r, "id")
	if !ok {
		return
	}
	h.respond(w, r, f, "dish_list", h.P.DishList(r.Context(), ids[0]))
}

func (h *PageHandlers) dishDetail(w http.ResponseWriter, r *http.Request) {
	f, ok := h.format(w, r, true)
	if !ok {
		return
	}
	ids, ok := h.ids(w, r, "id", "dish")
	if !ok {
		return
	}
	h.respond(w, r, f, "dish_detail", h.P.DishDetail(r.Context(), ids[0], ids[1]))
}

func (h *PageHandlers) newDish(w http.ResponseWriter, r *http.Request) {
	f, ok := h.format(w, r, false)
	if !ok {
		return
	}
	ids, ok := h.ids(w, r, "id")
	if !ok {
		return
	}
	h.respond(w, r, f, "form", h.P.NewDish(r.Context(), ActorFrom(r.Context()), ids[0]))
}

func (h *PageHandlers) createDish(w http.ResponseWriter, r *http.Request) {
	f, ok := h.format(w, r, false)
	if !ok {
		return
	}
	ids, ok := h.ids(w, r, "id")
	if !ok {
		return
	}
	form, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	h.respond(w, r, f, "form", h.P.CreateDish(r.Context(), ActorFrom(r.Context()), ids[0], form))
}

func (h *PageHandlers) editDish(w http.ResponseWriter, r *http.Request) {
	f, ok := h.format(w, r, false)
	if !ok {
		return
	}
	ids, ok := h.ids(w, r, "id", "dish")
	if !ok {
		return
	}
	h.respond(w, r, f, "form", h.P.EditDish(r.Context(), ActorFrom(r.Context()), ids[0], ids[1]))
}

func (h *PageHandlers) updateDish(w http.ResponseWriter, r *http.Request) {
	f, ok := h.format(w, r, false)
	if !ok {
		return
	}
	ids, ok := h.ids(w, r, "id", "dish")
	if !ok {
		return
	}
	form, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	h.respond(w, r, f, "form", h.P.UpdateDish(r.Context(), ActorFrom(r.Context()), ids[0], ids[1], form))
}
