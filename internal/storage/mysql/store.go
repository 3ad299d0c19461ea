// Package mysql is the relational store: one generic table gateway per
// record type over database/sql and the MySQL driver.
package mysql

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"myrestaurants/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	addresses   *Table[domain.Address, *domain.Address]
	prices      *Table[domain.Price, *domain.Price]
	dishes      *Table[domain.Dish, *domain.Dish]
	restaurants *Table[domain.Restaurant, *domain.Restaurant]
	reviews     *Table[domain.RestaurantReview, *domain.RestaurantReview]
	users       *Users
}

func New(db *sql.DB) *Store {
	return &Store{
		addresses:   newTable[domain.Address, *domain.Address](db, addressSchema),
		prices:      newTable[domain.Price, *domain.Price](db, priceSchema),
		dishes:      newTable[domain.Dish, *domain.Dish](db, dishSchema),
		restaurants: newTable[domain.Restaurant, *domain.Restaurant](db, restaurantSchema),
		reviews:     newTable[domain.RestaurantReview, *domain.RestaurantReview](db, reviewSchema),
		users:       &Users{db: db},
	}
}

func (s *Store) Addresses() domain.Collection[domain.Address]        { return s.addresses }
func (s *Store) Prices() domain.Collection[domain.Price]             { return s.prices }
func (s *Store) Dishes() domain.Collection[domain.Dish]              { return s.dishes }
func (s *Store) Restaurants() domain.Collection[domain.Restaurant]   { return s.restaurants }
func (s *Store) Reviews() domain.Collection[domain.RestaurantReview] { return s.reviews }
func (s *Store) Users() domain.UserRepository                        { return s.users }

// Open connects and pings, retrying while the server comes up.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	var pingErr error
	for attempt := 1; attempt <= 5; attempt++ {
		if pingErr = db.PingContext(ctx); pingErr == nil {
			return db, nil
		}
		log.Warn().Err(pingErr).Int("attempt", attempt).Msg("db ping failed")
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	_ = db.Close()
	return nil, fmt.Errorf("db ping: %w", pingErr)
}

// Bootstrap applies the embedded schema. Every statement is idempotent.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	for _, stmt := range statements(schemaSQL) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}

func statements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		var lines []string
		for _, l := range strings.Split(part, "\n") {
			if t := strings.TrimSpace(l); t != "" && !strings.HasPrefix(t, "--") {
				lines = append(lines, l)
			}
		}
		if len(lines) > 0 {
			out = append(out, strings.Join(lines, "\n"))
		}
	}
	return out
}
