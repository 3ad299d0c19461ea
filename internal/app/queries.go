package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"myrestaurants/internal/domain"
)

// LatestCount is how many restaurants the list page shows.
const LatestCount = 5

type QueryService struct {
	store    domain.Store
	cache    domain.Cache
	cacheTTL time.Duration
	today    func() domain.Date
}

func NewQueryService(s domain.Store, c domain.Cache, ttl time.Duration) *QueryService {
	if c == nil {
		c = NopCache{}
	}
	return &QueryService{store: s, cache: c, cacheTTL: ttl, today: domain.Today}
}

func CacheKey(model string, id int64) string { return fmt.Sprintf("%s:%d", model, id) }

// cachedGet reads one record through the cache. Cache errors degrade to a
// store read.
func cachedGet[T any](ctx context.Context, q *QueryService, coll domain.Collection[T], model string, id int64) (T, error) {
	key := CacheKey(model, id)
	var rec T
	if ok, err := q.cache.Get(ctx, key, &rec); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache get failed")
	} else if ok {
		return rec, nil
	}
	rec, err := coll.Get(ctx, id)
	if err != nil {
		return rec, err
	}
	if err := q.cache.Set(ctx, key, rec, int(q.cacheTTL.Seconds())); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
	return rec, nil
}

func (q *QueryService) Address(ctx context.Context, id int64) (domain.Address, error) {
	return cachedGet(ctx, q, q.store.Addresses(), domain.ModelAddress, id)
}

func (q *QueryService) Price(ctx context.Context, id int64) (domain.Price, error) {
	return cachedGet(ctx, q, q.store.Prices(), domain.ModelPrice, id)
}

func (q *QueryService) Dish(ctx context.Context, id int64) (domain.Dish, error) {
	return cachedGet(ctx, q, q.store.Dishes(), domain.ModelDish, id)
}

func (q *QueryService) Restaurant(ctx context.Context, id int64) (domain.Restaurant, error) {
	return cachedGet(ctx, q, q.store.Restaurants(), domain.ModelRestaurant, id)
}

func (q *QueryService) Review(ctx context.Context, id int64) (domain.RestaurantReview, error) {
	return cachedGet(ctx, q, q.store.Reviews(), domain.ModelReview, id)
}

// LatestRestaurants returns the n most recent restaurants dated today or
// earlier, oldest first.
func (q *QueryService) LatestRestaurants(ctx context.Context, n int) ([]domain.Restaurant, error) {
	rs, err := q.store.Restaurants().List(ctx, domain.Filter{Until: q.today(), Newest: true, Limit: n})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
		rs[i], rs[j] = rs[j], rs[i]
	}
	return rs, nil
}

func (q *QueryService) DishesOf(ctx context.Context, restaurantID int64) ([]domain.Dish, error) {
	return q.store.Dishes().List(ctx, domain.Filter{Restaurant: restaurantID})
}

func (q *QueryService) ReviewsOf(ctx context.Context, restaurantID int64) ([]domain.RestaurantReview, error) {
	return q.store.Reviews().List(ctx, domain.Filter{Restaurant: restaurantID, Newest: true})
}

// RestaurantPage loads a restaurant and everything its detail page shows.
func (q *QueryService) RestaurantPage(ctx context.Context, id int64) (RestaurantPage, error) {
	r, err := q.Restaurant(ctx, id)
	if err != nil {
		return RestaurantPage{}, err
	}
	page := RestaurantPage{Restaurant: r, RatingChoices: domain.RatingChoices, DefaultRating: domain.DefaultRating}

	g, gctx := errgroup.WithContext(ctx)
	if r.AddressID != nil {
		g.Go(func() error {
			a, err := q.Address(gctx, *r.AddressID)
			if err == nil {
				page.Address = &a
			}
			return ignoreMissing(err)
		})
	}
	if r.DishID != nil {
		g.Go(func() error {
			d, err := q.Dish(gctx, *r.DishID)
			if err == nil {
				page.Featured = &d
			}
			return ignoreMissing(err)
		})
	}
	g.Go(func() error {
		ds, err := q.DishesOf(gctx, id)
		page.Dishes = ds
		return err
	})
	g.Go(func() error {
		rv, err := q.ReviewsOf(gctx, id)
		page.Reviews = rv
		return err
	})
	if err := g.Wait(); err != nil {
		return RestaurantPage{}, fmt.Errorf("restaurant page %d: %w", id, err)
	}
	return page, nil
}

func ignoreMissing(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

// NopCache is used when no cache is configured.
type NopCache struct{}

func (NopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (NopCache) Set(context.Context, string, any, int) error    { return nil }
func (NopCache) Del(context.Context, string) error              { return nil }
