package app

import (
	"errors"
	"net/http"

	"myrestaurants/internal/domain"
)

// Kind tags the outcome of a controller call.
type Kind int

const (
	KindOK Kind = iota
	KindCreated
	KindNoContent
	KindRedirect
	KindNotFound
	KindForbidden
	KindUnauthenticated
	KindInvalid
	KindFailed
)

// Result is what every page and API controller returns. The HTTP adapter
// turns it into a response.
type Result struct {
	Kind     Kind
	Payload  any    // record, records or page context
	Location string // redirect target, or the created record's URL
	Err      error
}

func OK(payload any) Result { return Result{Kind: KindOK, Payload: payload} }

func Created(payload any, location string) Result {
	return Result{Kind: KindCreated, Payload: payload, Location: location}
}

func NoContent() Result { return Result{Kind: KindNoContent} }

func Redirect(location string) Result { return Result{Kind: KindRedirect, Location: location} }

// Fail classifies err. payload is kept so forms can be re-rendered.
func Fail(err error, payload any) Result {
	res := Result{Err: err, Payload: payload}
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		res.Kind = KindNotFound
	case errors.Is(err, domain.ErrForbidden):
		res.Kind = KindForbidden
	case errors.Is(err, domain.ErrUnauthenticated):
		res.Kind = KindUnauthenticated
	case errors.As(err, &verr):
		res.Kind = KindInvalid
	default:
		res.Kind = KindFailed
	}
	return res
}

func (r Result) Status() int {
	switch r.Kind {
	case KindOK:
		return http.StatusOK
	case KindCreated:
		return http.StatusCreated
	case KindNoContent:
		return http.StatusNoContent
	case KindRedirect:
		return http.StatusFound
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Validation returns the per-field messages of an Invalid result.
func (r Result) Validation() map[string][]string {
	var verr *domain.ValidationError
	if errors.As(r.Err, &verr) {
		return verr.Fields
	}
	return nil
}
