package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"myrestaurants/internal/domain"
	"myrestaurants/internal/policy"
)

// Resource is the REST controller for one record type: list/create on the
// collection, retrieve/update/destroy on members.
type Resource[T any, P domain.Entity[T]] struct {
	Plural string
	coll   domain.Collection[T]
	q      *QueryService
	c      *CommandService
}

func NewResource[T any, P domain.Entity[T]](plural string, coll domain.Collection[T], q *QueryService, c *CommandService) *Resource[T, P] {
	return &Resource[T, P]{Plural: plural, coll: coll, q: q, c: c}
}

func (r *Resource[T, P]) URL(id int64) string { return fmt.Sprintf("/api/%s/%d/", r.Plural, id) }

func (r *Resource[T, P]) model() string {
	var zero T
	return P(&zero).Model()
}

func (r *Resource[T, P]) fail(op string, err error) Result {
	res := Fail(err, nil)
	if res.Kind == KindFailed {
		log.Error().Err(err).Str("resource", r.Plural).Str("op", op).Msg("api call failed")
	}
	return res
}

// List returns every record, or those under one restaurant when
// restaurantID is set.
func (r *Resource[T, P]) List(ctx context.Context, actor domain.Actor, restaurantID int64) Result {
	if err := policy.Authorize(actor, nil, policy.List); err != nil {
		return r.fail("list", err)
	}
	items, err := r.coll.List(ctx, domain.Filter{Restaurant: restaurantID})
	if err != nil {
		return r.fail("list", err)
	}
	return OK(items)
}

func (r *Resource[T, P]) Create(ctx context.Context, actor domain.Actor, body []byte) Result {
	if err := policy.RequireActor(actor); err != nil {
		return r.fail("create", err)
	}
	var rec T
	if err := decodeJSON(body, &rec); err != nil {
		return r.fail("create", err)
	}
	rec, err := create[T, P](ctx, r.c, r.coll, actor, rec)
	if err != nil {
		return r.fail("create", err)
	}
	return Created(rec, r.URL(P(&rec).RecordID()))
}

func (r *Resource[T, P]) Retrieve(ctx context.Context, actor domain.Actor, id int64) Result {
	rec, err := cachedGet(ctx, r.q, r.coll, r.model(), id)
	if err != nil {
		return r.fail("retrieve", err)
	}
	if err := policy.Authorize(actor, P(&rec), policy.Read); err != nil {
		return r.fail("retrieve", err)
	}
	return OK(rec)
}

// Update overlays the body on the stored record: omitted keys keep their
// stored values, the owner never changes.
func (r *Resource[T, P]) Update(ctx context.Context, actor domain.Actor, id int64, body []byte) Result {
	rec, err := update[T, P](ctx, r.c, r.coll, actor, id, func(cur T) (T, error) {
		err := decodeJSON(body, &cur)
		return cur, err
	})
	if err != nil {
		return r.fail("update", err)
	}
	return OK(rec)
}

func (r *Resource[T, P]) Destroy(ctx context.Context, actor domain.Actor, id int64) Result {
	if err := remove[T, P](ctx, r.c, r.coll, actor, id); err != nil {
		return r.fail("destroy", err)
	}
	return NoContent()
}

func decodeJSON(body []byte, dst any) error {
	if len(body) == 0 {
		return domain.Invalid("detail", "Request body is empty.")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return domain.Invalid("detail", "JSON parse error - "+err.Error())
	}
	return nil
}

// API bundles the resources served under /api.
type API struct {
	Restaurants *Resource[domain.Restaurant, *domain.Restaurant]
	Dishes      *Resource[domain.Dish, *domain.Dish]
	Reviews     *Resource[domain.RestaurantReview, *domain.RestaurantReview]
	Addresses   *Resource[domain.Address, *domain.Address]
	Prices      *Resource[domain.Price, *domain.Price]
}

func NewAPI(s domain.Store, q *QueryService, c *CommandService) *API {
	return &API{
		Restaurants: NewResource[domain.Restaurant, *domain.Restaurant]("restaurants", s.Restaurants(), q, c),
		Dishes:      NewResource[domain.Dish, *domain.Dish]("dishes", s.Dishes(), q, c),
		Reviews:     NewResource[domain.RestaurantReview, *domain.RestaurantReview]("reviews", s.Reviews(), q, c),
		Addresses:   NewResource[domain.Address, *domain.Address]("addresses", s.Addresses(), q, c),
		Prices:      NewResource[domain.Price, *domain.Price]("prices", s.Prices(), q, c),
	}
}
