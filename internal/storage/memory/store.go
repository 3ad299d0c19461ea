package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"myrestaurants/internal/domain"
)

type Users struct {
	mu     sync.RWMutex
	byID   map[int64]domain.User
	byName map[string]int64
	next   int64
}

func NewUsers() *Users {
	return &Users{byID: map[int64]domain.User{}, byName: map[string]int64{}, next: 1}
}

func (u *Users) Get(ctx context.Context, id int64) (domain.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	usr, ok := u.byID[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return usr, nil
}

func (u *Users) ByUsername(ctx context.Context, name string) (domain.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	id, ok := u.byName[strings.ToLower(name)]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u.byID[id], nil
}

func (u *Users) Create(ctx context.Context, usr domain.User) (domain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	key := strings.ToLower(usr.Username)
	if _, taken := u.byName[key]; taken {
		return domain.User{}, domain.Invalid("username", "A user with that username already exists.")
	}
	usr.ID = u.next
	u.next++
	if usr.DateJoined.IsZero() {
		usr.DateJoined = time.Now().UTC()
	}
	u.byID[usr.ID] = usr
	u.byName[key] = usr.ID
	return usr, nil
}

func (u *Users) Upsert(ctx context.Context, usr domain.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if old, ok := u.byID[usr.ID]; ok {
		delete(u.byName, strings.ToLower(old.Username))
	}
	u.byID[usr.ID] = usr
	u.byName[strings.ToLower(usr.Username)] = usr.ID
	if usr.ID >= u.next {
		u.next = usr.ID + 1
	}
	return nil
}

// Store bundles the tables and applies the same delete rules as the MySQL
// schema: optional references are cleared, reviews follow their restaurant.
type Store struct {
	addresses   *Table[domain.Address, *domain.Address]
	prices      *Table[domain.Price, *domain.Price]
	dishes      *Table[domain.Dish, *domain.Dish]
	restaurants *Table[domain.Restaurant, *domain.Restaurant]
	reviews     *Table[domain.RestaurantReview, *domain.RestaurantReview]
	users       *Users
}

func NewStore() *Store {
	s := &Store{
		addresses:   NewTable[domain.Address](),
		prices:      NewTable[domain.Price](),
		dishes:      NewTable[domain.Dish](),
		restaurants: NewTable[domain.Restaurant](),
		reviews:     NewTable[domain.RestaurantReview](),
		users:       NewUsers(),
	}
	s.addresses.onDelete = func(id int64) {
		s.restaurants.rewrite(func(r *domain.Restaurant) bool {
			r.AddressID = unref(r.AddressID, id)
			return true
		})
	}
	s.prices.onDelete = func(id int64) {
		s.dishes.rewrite(func(d *domain.Dish) bool {
			d.PriceID = unref(d.PriceID, id)
			return true
		})
	}
	s.dishes.onDelete = func(id int64) {
		s.restaurants.rewrite(func(r *domain.Restaurant) bool {
			r.DishID = unref(r.DishID, id)
			return true
		})
	}
	s.restaurants.onDelete = func(id int64) {
		s.dishes.rewrite(func(d *domain.Dish) bool {
			d.RestaurantID = unref(d.RestaurantID, id)
			return true
		})
		s.reviews.rewrite(func(r *domain.RestaurantReview) bool {
			return r.RestaurantID != id
		})
	}
	return s
}

func unref(ref *int64, id int64) *int64 {
	if ref != nil && *ref == id {
		return nil
	}
	return ref
}

func (s *Store) Addresses() domain.Collection[domain.Address]        { return s.addresses }
func (s *Store) Prices() domain.Collection[domain.Price]             { return s.prices }
func (s *Store) Dishes() domain.Collection[domain.Dish]              { return s.dishes }
func (s *Store) Restaurants() domain.Collection[domain.Restaurant]   { return s.restaurants }
func (s *Store) Reviews() domain.Collection[domain.RestaurantReview] { return s.reviews }
func (s *Store) Users() domain.UserRepository                        { return s.users }
