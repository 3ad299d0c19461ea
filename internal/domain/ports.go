package domain

import "context"

// Filter narrows a List call. Zero values mean "no constraint".
type Filter struct {
	Until      Date  // date <= Until
	Restaurant int64 // parent restaurant, for scoped records
	Newest     bool  // order by date descending instead of ascending
	Limit      int
}

// Collection is the persistence port for one record type.
type Collection[T any] interface {
	// Read paths
	Get(ctx context.Context, id int64) (T, error)
	List(ctx context.Context, f Filter) ([]T, error)

	// Write paths
	Insert(ctx context.Context, rec T) (T, error)
	Update(ctx context.Context, rec T) error
	Delete(ctx context.Context, id int64) error
	// Upsert writes rec under its own ID (fixture loading).
	Upsert(ctx context.Context, rec T) error
}

type UserRepository interface {
	Get(ctx context.Context, id int64) (User, error)
	ByUsername(ctx context.Context, username string) (User, error)
	Create(ctx context.Context, u User) (User, error)
	Upsert(ctx context.Context, u User) error
}

type Store interface {
	Addresses() Collection[Address]
	Prices() Collection[Price]
	Dishes() Collection[Dish]
	Restaurants() Collection[Restaurant]
	Reviews() Collection[RestaurantReview]
	Users() UserRepository
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
