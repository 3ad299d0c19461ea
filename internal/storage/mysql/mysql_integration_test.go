//go:build integration

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myrestaurants/internal/domain"
	mysqlrepo "myrestaurants/internal/storage/mysql"
)

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	// Start isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=myrestaurants",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/myrestaurants?parseTime=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, mysqlrepo.Bootstrap(context.Background(), db))
	// twice: the schema must be idempotent
	require.NoError(t, mysqlrepo.Bootstrap(context.Background(), db))
	return db
}

func TestStore_MySQL_EndToEnd(t *testing.T) {
	db := startMySQL(t)
	store := mysqlrepo.New(db)
	ctx := context.Background()

	u, err := store.Users().Create(ctx, domain.User{Username: "ana", PasswordHash: "x"})
	require.NoError(t, err)

	addr, err := store.Addresses().Insert(ctx, domain.Address{Street: "Main", Number: 1, City: "Porto", Country: "PT", UserID: u.ID, Date: domain.Today()})
	require.NoError(t, err)
	price, err := store.Prices().Insert(ctx, domain.Price{Amount: decimal.RequireFromString("12.50"), Currency: "EUR", UserID: u.ID, Date: domain.Today()})
	require.NoError(t, err)
	r, err := store.Restaurants().Insert(ctx, domain.Restaurant{Name: "Casa", AddressID: &addr.ID, UserID: u.ID, Date: domain.Today()})
	require.NoError(t, err)
	d, err := store.Dishes().Insert(ctx, domain.Dish{Name: "Soup", PriceID: &price.ID, RestaurantID: &r.ID, UserID: u.ID, Date: domain.Today()})
	require.NoError(t, err)
	r.DishID = &d.ID
	require.NoError(t, store.Restaurants().Update(ctx, r))
	_, err = store.Reviews().Insert(ctx, domain.RestaurantReview{Rating: 5, Comment: "great", UserID: u.ID, RestaurantID: r.ID, Date: domain.Today()})
	require.NoError(t, err)

	gotPrice, err := store.Prices().Get(ctx, price.ID)
	require.NoError(t, err)
	assert.Equal(t, "12.50", gotPrice.Amount.StringFixed(2))

	dishes, err := store.Dishes().List(ctx, domain.Filter{Restaurant: r.ID})
	require.NoError(t, err)
	require.Len(t, dishes, 1)

	// unchanged update is not a miss
	require.NoError(t, store.Restaurants().Update(ctx, r))

	// dangling reference is a validation error
	missing := int64(9999)
	_, err = store.Dishes().Insert(ctx, domain.Dish{Name: "Ghost", PriceID: &missing})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	require.NoError(t, store.Dishes().Delete(ctx, d.ID))
	r, err = store.Restaurants().Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, r.DishID)

	require.NoError(t, store.Restaurants().Delete(ctx, r.ID))
	reviews, err := store.Reviews().List(ctx, domain.Filter{})
	require.NoError(t, err)
	assert.Empty(t, reviews)
}
