package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"myrestaurants/internal/domain"
	"myrestaurants/internal/policy"
)

const invalidChoice = "Select a valid choice. That choice is not one of the available choices."

// CommandService owns every write: it authorizes, stamps, validates and
// persists records, then evicts what the cache holds for them.
type CommandService struct {
	store domain.Store
	cache domain.Cache
	today func() domain.Date
}

func NewCommandService(s domain.Store, c domain.Cache) *CommandService {
	if c == nil {
		c = NopCache{}
	}
	return &CommandService{store: s, cache: c, today: domain.Today}
}

func create[T any, P domain.Entity[T]](ctx context.Context, c *CommandService, coll domain.Collection[T], actor domain.Actor, rec T) (T, error) {
	if err := policy.Authorize(actor, nil, policy.Create); err != nil {
		return rec, err
	}
	p := P(&rec)
	p.SetID(0)
	policy.Stamp(actor, p)
	p.Normalize(c.today())
	if err := p.Validate(); err != nil {
		return rec, err
	}
	if err := c.checkRefs(ctx, p); err != nil {
		return rec, err
	}
	return coll.Insert(ctx, rec)
}

// update loads the stored record, checks ownership and writes what build
// returns. The id and owner always come from the stored record.
func update[T any, P domain.Entity[T]](ctx context.Context, c *CommandService, coll domain.Collection[T], actor domain.Actor, id int64, build func(cur T) (T, error)) (T, error) {
	var zero T
	if err := policy.RequireActor(actor); err != nil {
		return zero, err
	}
	cur, err := coll.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	if err := policy.Authorize(actor, P(&cur), policy.Update); err != nil {
		return zero, err
	}
	rec, err := build(cur)
	if err != nil {
		return zero, err
	}
	p := P(&rec)
	p.SetID(id)
	p.SetOwner(P(&cur).OwnerID())
	p.Normalize(c.today())
	if err := p.Validate(); err != nil {
		return zero, err
	}
	if err := c.checkRefs(ctx, p); err != nil {
		return zero, err
	}
	if err := coll.Update(ctx, rec); err != nil {
		return zero, err
	}
	c.evict(ctx, p.Model(), id)
	return rec, nil
}

func remove[T any, P domain.Entity[T]](ctx context.Context, c *CommandService, coll domain.Collection[T], actor domain.Actor, id int64) error {
	if err := policy.RequireActor(actor); err != nil {
		return err
	}
	cur, err := coll.Get(ctx, id)
	if err != nil {
		return err
	}
	p := P(&cur)
	if err := policy.Authorize(actor, p, policy.Delete); err != nil {
		return err
	}
	c.evictDependents(ctx, p.Model(), id)
	if err := coll.Delete(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, p.Model(), id)
	log.Info().Str("model", p.Model()).Int64("id", id).Int64("actor", actor.ID).Msg("record deleted")
	return nil
}

// checkRefs turns a foreign key naming a missing record into a field error.
func (c *CommandService) checkRefs(ctx context.Context, rec any) error {
	verr := &domain.ValidationError{}
	check := func(field string, id *int64, get func(context.Context, int64) error) error {
		if id == nil {
			return nil
		}
		err := get(ctx, *id)
		if errors.Is(err, domain.ErrNotFound) {
			verr.Add(field, invalidChoice)
			return nil
		}
		return err
	}
	var err error
	switch r := rec.(type) {
	case *domain.Dish:
		err = errors.Join(
			check("price", r.PriceID, exists(c.store.Prices())),
			check("restaurant", r.RestaurantID, exists(c.store.Restaurants())),
		)
	case *domain.Restaurant:
		err = errors.Join(
			check("address", r.AddressID, exists(c.store.Addresses())),
			check("dish", r.DishID, exists(c.store.Dishes())),
		)
	case *domain.RestaurantReview:
		err = check("restaurant", &r.RestaurantID, exists(c.store.Restaurants()))
	}
	if err != nil {
		return fmt.Errorf("check references: %w", err)
	}
	return verr.OrNil()
}

func exists[T any](coll domain.Collection[T]) func(context.Context, int64) error {
	return func(ctx context.Context, id int64) error {
		_, err := coll.Get(ctx, id)
		return err
	}
}

func (c *CommandService) evict(ctx context.Context, model string, id int64) {
	if err := c.cache.Del(ctx, CacheKey(model, id)); err != nil {
		log.Warn().Err(err).Str("model", model).Int64("id", id).Msg("cache evict failed")
	}
}

// evictDependents drops cached records whose references the store is
// about to clear or cascade.
func (c *CommandService) evictDependents(ctx context.Context, model string, id int64) {
	var restaurants []domain.Restaurant
	var dishes []domain.Dish
	var err error
	switch model {
	case domain.ModelAddress, domain.ModelDish:
		restaurants, err = c.store.Restaurants().List(ctx, domain.Filter{})
	case domain.ModelPrice:
		dishes, err = c.store.Dishes().List(ctx, domain.Filter{})
	case domain.ModelRestaurant:
		dishes, err = c.store.Dishes().List(ctx, domain.Filter{Restaurant: id})
		if err == nil {
			var reviews []domain.RestaurantReview
			reviews, err = c.store.Reviews().List(ctx, domain.Filter{Restaurant: id})
			for _, rv := range reviews {
				c.evict(ctx, domain.ModelReview, rv.ID)
			}
		}
	}
	if err != nil {
		log.Warn().Err(err).Str("model", model).Int64("id", id).Msg("dependent eviction skipped")
		return
	}
	for _, r := range restaurants {
		byAddress := model == domain.ModelAddress && refers(r.AddressID, id)
		byDish := model == domain.ModelDish && refers(r.DishID, id)
		if byAddress || byDish {
			c.evict(ctx, domain.ModelRestaurant, r.ID)
		}
	}
	for _, d := range dishes {
		if model == domain.ModelRestaurant || refers(d.PriceID, id) {
			c.evict(ctx, domain.ModelDish, d.ID)
		}
	}
}

func refers(ref *int64, id int64) bool { return ref != nil && *ref == id }

// ---- restaurants ----

func (c *CommandService) CreateRestaurant(ctx context.Context, actor domain.Actor, r domain.Restaurant) (domain.Restaurant, error) {
	return create(ctx, c, c.store.Restaurants(), actor, r)
}

func (c *CommandService) UpdateRestaurant(ctx context.Context, actor domain.Actor, id int64, build func(domain.Restaurant) (domain.Restaurant, error)) (domain.Restaurant, error) {
	return update(ctx, c, c.store.Restaurants(), actor, id, build)
}

// ---- dishes ----

// CreateDish creates a dish under an existing restaurant.
func (c *CommandService) CreateDish(ctx context.Context, actor domain.Actor, restaurantID int64, d domain.Dish) (domain.Dish, error) {
	if err := policy.RequireActor(actor); err != nil {
		return d, err
	}
	if _, err := c.store.Restaurants().Get(ctx, restaurantID); err != nil {
		return d, err
	}
	d.RestaurantID = &restaurantID
	return create(ctx, c, c.store.Dishes(), actor, d)
}

func (c *CommandService) UpdateDish(ctx context.Context, actor domain.Actor, id int64, build func(domain.Dish) (domain.Dish, error)) (domain.Dish, error) {
	return update(ctx, c, c.store.Dishes(), actor, id, build)
}

// ---- reviews ----

// SubmitReview records actor's review of an existing restaurant.
func (c *CommandService) SubmitReview(ctx context.Context, actor domain.Actor, restaurantID int64, rating int, comment string) (domain.RestaurantReview, error) {
	if err := policy.RequireActor(actor); err != nil {
		return domain.RestaurantReview{}, err
	}
	if _, err := c.store.Restaurants().Get(ctx, restaurantID); err != nil {
		return domain.RestaurantReview{}, err
	}
	rv := domain.RestaurantReview{Rating: rating, Comment: comment, RestaurantID: restaurantID}
	return create(ctx, c, c.store.Reviews(), actor, rv)
}
