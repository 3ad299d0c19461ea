package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"myrestaurants/internal/adapters/auth"
	"myrestaurants/internal/app"
	"myrestaurants/internal/domain"
	"myrestaurants/internal/negotiate"
)

const (
	defaultNext      = "/restaurants/"
	badCredentials   = "Please enter a correct username and password."
	tokenCredentials = "Unable to log in with provided credentials."
)

// Authenticator checks credentials and issues session tokens.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (domain.User, string, error)
}

type AccountHandlers struct {
	Auth       Authenticator
	Views      *Views
	Cookie     string
	SessionTTL time.Duration
	Secure     bool
	LoginRPS   float64
	LoginBurst int
}

func (s *Server) MountAccounts(h *AccountHandlers) {
	pageLimit := Throttle(h.LoginRPS, h.LoginBurst, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Too many login attempts. Try again shortly.", http.StatusTooManyRequests)
	})
	apiLimit := Throttle(h.LoginRPS, h.LoginBurst, func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "Request was throttled.")
	})
	s.mux.Get(loginPath, h.loginForm)
	s.mux.With(pageLimit).Post(loginPath, h.login)
	s.mux.Post("/accounts/logout", h.logout)
	s.mux.With(apiLimit).Post("/api/token-auth", h.token)
}

func (h *AccountHandlers) renderLogin(w http.ResponseWriter, r *http.Request, status int, page loginPage) {
	if err := negotiate.Render(w, status, negotiate.HTML, nil, h.Views.html(r, "login", page)); err != nil {
		log.Error().Err(err).Msg("render login page failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *AccountHandlers) loginForm(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, http.StatusOK, loginPage{Next: safeNext(r.URL.Query().Get("next"))})
}

func (h *AccountHandlers) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	username, next := r.PostForm.Get("username"), safeNext(r.PostForm.Get("next"))
	_, token, err := h.Auth.Login(r.Context(), username, r.PostForm.Get("password"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			log.Error().Err(err).Msg("login failed")
		}
		h.renderLogin(w, r, http.StatusBadRequest, loginPage{Username: username, Next: next, Error: badCredentials})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.Cookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, next, http.StatusFound)
}

func (h *AccountHandlers) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.Cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, defaultNext, http.StatusFound)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// token exchanges credentials, posted as JSON or as a form, for a bearer
// token.
func (h *AccountHandlers) token(w http.ResponseWriter, r *http.Request) {
	var c credentials
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		body, ok := readBody(w, r)
		if !ok {
			return
		}
		if err := json.Unmarshal(body, &c); err != nil {
			writeProblem(w, http.StatusBadRequest, "Bad Request", "JSON parse error - "+err.Error())
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeProblem(w, http.StatusBadRequest, "Bad Request", "could not parse form")
			return
		}
		c = credentials{Username: r.PostForm.Get("username"), Password: r.PostForm.Get("password")}
	}
	_, token, err := h.Auth.Login(r.Context(), c.Username, c.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			log.Error().Err(err).Msg("token exchange failed")
		}
		respondAPI(w, r, app.Fail(domain.Invalid("non_field_errors", tokenCredentials), nil))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(map[string]string{"token": token}); err != nil {
		log.Error().Err(err).Msg("write token response failed")
	}
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return defaultNext
	}
	u, err := url.Parse(next)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return defaultNext
	}
	return next
}
