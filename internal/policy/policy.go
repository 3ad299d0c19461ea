// Package policy decides whether an actor may read or mutate a record.
//
// Reads are open to everyone, anonymous actors included. Mutations need an
// authenticated actor, and updates and deletes additionally need the actor
// to own the record.
package policy

import (
	"net/http"

	"myrestaurants/internal/adapters/observability"
	"myrestaurants/internal/domain"
)

type Operation int

const (
	Read Operation = iota
	List
	Create
	Update
	Delete
)

func (o Operation) String() string {
	switch o {
	case Read:
		return "read"
	case List:
		return "list"
	case Create:
		return "create"
	case Update:
		return "update"
	case Delete:
		return "delete"
	}
	return "unknown"
}

// Safe reports whether the operation leaves state untouched.
func (o Operation) Safe() bool { return o == Read || o == List }

// OperationFor maps an HTTP method onto an operation on a single resource.
// Unknown methods are treated as updates so they never slip through as reads.
func OperationFor(method string) Operation {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return Read
	case http.MethodPost:
		return Create
	case http.MethodDelete:
		return Delete
	default:
		return Update
	}
}

// Authorize returns nil when actor may perform op on rec, ErrUnauthenticated
// when op needs a login the actor lacks, and ErrForbidden when the actor is
// not the owner. rec may be nil for Create and List.
func Authorize(actor domain.Actor, rec domain.Record, op Operation) error {
	err := decide(actor, rec, op)
	observability.ObserveAccess(op.String(), decision(err))
	return err
}

func decide(actor domain.Actor, rec domain.Record, op Operation) error {
	if op.Safe() {
		return nil
	}
	if !actor.Authenticated() {
		return domain.ErrUnauthenticated
	}
	if op == Create {
		return nil
	}
	if rec == nil || rec.OwnerID() != actor.ID {
		return domain.ErrForbidden
	}
	return nil
}

// RequireActor gates a mutation before the target is looked up, so an
// anonymous caller learns nothing about which ids exist.
func RequireActor(actor domain.Actor) error {
	if !actor.Authenticated() {
		observability.ObserveAccess("login", "unauthenticated")
		return domain.ErrUnauthenticated
	}
	return nil
}

// Stamp makes actor the owner of a record about to be created, whatever
// owner the payload carried.
func Stamp(actor domain.Actor, rec domain.Mutable) {
	rec.SetOwner(actor.ID)
}

func decision(err error) string {
	switch err {
	case nil:
		return "allow"
	case domain.ErrUnauthenticated:
		return "unauthenticated"
	default:
		return "deny"
	}
}
