// Package negotiate picks a response encoding for a request and renders
// records in it.
package negotiate

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/munnerz/goautoneg"
)

type Format int

const (
	HTML Format = iota
	JSON
	XML
)

var ErrUnknownFormat = errors.New("unknown format")

func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	case XML:
		return "xml"
	default:
		return "html"
	}
}

func (f Format) MediaType() string {
	switch f {
	case JSON:
		return "application/json"
	case XML:
		return "application/xml"
	default:
		return "text/html; charset=utf-8"
	}
}

// ParseHint resolves a path suffix. No suffix means HTML.
func ParseHint(hint string) (Format, error) {
	switch strings.ToLower(hint) {
	case "":
		return HTML, nil
	case "json":
		return JSON, nil
	case "xml":
		return XML, nil
	}
	return HTML, ErrUnknownFormat
}

// FromPath reads the suffix stripped by chi's URLFormat middleware.
func FromPath(r *http.Request) (Format, error) {
	hint, _ := r.Context().Value(middleware.URLFormatCtxKey).(string)
	return ParseHint(hint)
}

var apiTypes = []string{"application/json", "application/xml", "text/xml"}

// FromAccept picks the API encoding from an Accept header; JSON unless the
// client prefers XML.
func FromAccept(header string) Format {
	switch goautoneg.Negotiate(header, apiTypes) {
	case "application/xml", "text/xml":
		return XML
	default:
		return JSON
	}
}
