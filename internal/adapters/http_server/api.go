package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"myrestaurants/internal/app"
	"myrestaurants/internal/domain"
	"myrestaurants/internal/negotiate"
)

const maxBodyBytes = 1 << 20

type APIHandlers struct {
	API         *app.API
	CORSOrigins []string
}

type problem struct {
	Type   string              `json:"type"`
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

// MountAPI attaches the REST resources under /api. Token exchange is
// mounted separately by MountAccounts.
func (s *Server) MountAPI(h *APIHandlers) {
	s.mux.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.CORSOrigins,
			AllowedMethods: []string{"GET", "HEAD", "OPTIONS", "POST", "PUT", "DELETE"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "If-None-Match", CSRFHeader},
			ExposedHeaders: []string{"ETag", "Location"},
			MaxAge:         300,
		}))
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeProblem(w, http.StatusNotFound, "Not Found", "Not found.")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", `Method "`+r.Method+`" not allowed.`)
		})
		mountResource(r, h.API.Restaurants)
		mountResource(r, h.API.Dishes)
		mountResource(r, h.API.Reviews)
		mountResource(r, h.API.Addresses)
		mountResource(r, h.API.Prices)
	})
}

func mountResource[T any, P domain.Entity[T]](r chi.Router, res *app.Resource[T, P]) {
	const collection, member = "GET, POST, HEAD, OPTIONS", "GET, PUT, DELETE, HEAD, OPTIONS"
	r.Route("/"+res.Plural, func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			restaurant, err := restaurantFilter(r)
			if err != nil {
				writeProblem(w, http.StatusBadRequest, "Invalid filter", "restaurant must be a number")
				return
			}
			respondAPI(w, r, res.List(r.Context(), ActorFrom(r.Context()), restaurant))
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			body, ok := readBody(w, r)
			if !ok {
				return
			}
			respondAPI(w, r, res.Create(r.Context(), ActorFrom(r.Context()), body))
		})
		r.Options("/", allow(collection))
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := memberID(w, r)
			if !ok {
				return
			}
			respondAPI(w, r, res.Retrieve(r.Context(), ActorFrom(r.Context()), id))
		})
		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := memberID(w, r)
			if !ok {
				return
			}
			body, ok := readBody(w, r)
			if !ok {
				return
			}
			respondAPI(w, r, res.Update(r.Context(), ActorFrom(r.Context()), id, body))
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := memberID(w, r)
			if !ok {
				return
			}
			respondAPI(w, r, res.Destroy(r.Context(), ActorFrom(r.Context()), id))
		})
		r.Options("/{id}", allow(member))
	})
}

func allow(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", methods)
		w.WriteHeader(http.StatusOK)
	}
}

func restaurantFilter(r *http.Request) (int64, error) {
	s := r.URL.Query().Get("restaurant")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func memberID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeProblem(w, http.StatusNotFound, "Not Found", "Not found.")
		return 0, false
	}
	return id, true
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeProblem(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", "")
			return nil, false
		}
		writeProblem(w, http.StatusBadRequest, "Bad Request", "could not read request body")
		return nil, false
	}
	return body, true
}

// apiFormat honours an explicit .json/.xml suffix, else the Accept header.
func apiFormat(r *http.Request) (negotiate.Format, error) {
	f, err := negotiate.FromPath(r)
	if err != nil {
		return f, err
	}
	if f != negotiate.HTML {
		return f, nil
	}
	return negotiate.FromAccept(r.Header.Get("Accept")), nil
}

func respondAPI(w http.ResponseWriter, r *http.Request, res app.Result) {
	switch res.Kind {
	case app.KindOK, app.KindCreated:
		f, err := apiFormat(r)
		if err != nil {
			writeProblem(w, http.StatusNotFound, "Not Found", "Not found.")
			return
		}
		if res.Kind == app.KindCreated {
			w.Header().Set("Location", res.Location)
		}
		writeBody(w, r, res.Status(), f, res.Payload)
	case app.KindNoContent:
		w.WriteHeader(http.StatusNoContent)
	case app.KindUnauthenticated:
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "Authentication credentials were not provided.")
	case app.KindForbidden:
		writeProblem(w, http.StatusForbidden, "Forbidden", "You do not have permission to perform this action.")
	case app.KindNotFound:
		writeProblem(w, http.StatusNotFound, "Not Found", "Not found.")
	case app.KindInvalid:
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusBadRequest)
		p := problem{Type: "about:blank", Title: "Invalid input", Status: http.StatusBadRequest, Errors: res.Validation()}
		if err := json.NewEncoder(w).Encode(p); err != nil {
			log.Error().Err(err).Msg("write JSON problem response failed")
		}
	default:
		log.Error().Err(res.Err).Str("request_id", chimw.GetReqID(r.Context())).Str("path", r.URL.Path).Msg("api call failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// writeBody encodes payload once, tags it with a weak ETag and answers a
// matching If-None-Match with 304.
func writeBody(w http.ResponseWriter, r *http.Request, status int, f negotiate.Format, payload any) {
	etag, body, err := calcETagAndBody(f, payload)
	if err != nil {
		log.Error().Err(err).Str("format", f.String()).Msg("failed to encode api payload")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	w.Header().Set("Vary", "Accept")
	w.Header().Set("ETag", etag)
	if status == http.StatusOK && etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", f.MediaType())
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write api body")
	}
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody encodes once and hashes once, returning both ETag and body.
func calcETagAndBody(f negotiate.Format, v any) (string, []byte, error) {
	body, err := negotiate.EncodeAPI(f, v)
	if err != nil {
		return "", nil, err
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body, nil
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, c := range strings.Split(header, ",") {
		c = strings.TrimSpace(c)
		if c == "*" || c == etag {
			return true
		}
	}
	return false
}
