package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myrestaurants/internal/app"
	"myrestaurants/internal/domain"
	"myrestaurants/internal/storage/memory"
)

func newAPI(t *testing.T) (*app.API, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	q := app.NewQueryService(store, nil, time.Minute)
	return app.NewAPI(store, q, app.NewCommandService(store, nil)), store
}

func TestAPI_CreateStampsOwner(t *testing.T) {
	ctx := context.Background()
	api, store := newAPI(t)

	res := api.Restaurants.Create(ctx, alice, []byte(`{"id":77,"name":"Casa","user":2,"url":"https://casa.example"}`))
	require.Equal(t, app.KindCreated, res.Kind, "%v", res.Err)
	r := res.Payload.(domain.Restaurant)
	assert.EqualValues(t, 1, r.ID)
	assert.Equal(t, alice.ID, r.UserID)
	assert.Equal(t, "/api/restaurants/1/", res.Location)

	stored, err := store.Restaurants().Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, stored.UserID)
}

func TestAPI_CreateRejects(t *testing.T) {
	ctx := context.Background()
	api, _ := newAPI(t)

	assert.Equal(t, app.KindUnauthenticated, api.Dishes.Create(ctx, anon, []byte(`{"name":"x"}`)).Kind)
	assert.Equal(t, app.KindInvalid, api.Dishes.Create(ctx, alice, []byte(`{"name":`)).Kind)
	assert.Equal(t, app.KindInvalid, api.Dishes.Create(ctx, alice, nil).Kind)

	res := api.Reviews.Create(ctx, alice, []byte(`{"rating":4,"restaurant":12}`))
	require.Equal(t, app.KindInvalid, res.Kind)
	assert.Contains(t, res.Validation(), "restaurant")

	res = api.Prices.Create(ctx, alice, []byte(`{"amount":"1.005","currency":"eur"}`))
	require.Equal(t, app.KindInvalid, res.Kind)
	assert.Contains(t, res.Validation(), "amount")
}

func TestAPI_ReadsAreOpen(t *testing.T) {
	ctx := context.Background()
	api, store := newAPI(t)
	r, _ := store.Restaurants().Insert(ctx, domain.Restaurant{Name: "Casa", UserID: alice.ID})
	_, _ = store.Reviews().Insert(ctx, domain.RestaurantReview{Rating: 5, RestaurantID: r.ID, UserID: bob.ID})

	for _, actor := range []domain.Actor{alice, bob, anon} {
		assert.Equal(t, app.KindOK, api.Restaurants.Retrieve(ctx, actor, r.ID).Kind)
		res := api.Reviews.List(ctx, actor, 0)
		require.Equal(t, app.KindOK, res.Kind)
		assert.Len(t, res.Payload.([]domain.RestaurantReview), 1)
	}
	assert.Equal(t, app.KindNotFound, api.Restaurants.Retrieve(ctx, anon, 99).Kind)

	res := api.Reviews.List(ctx, anon, r.ID+1)
	require.Equal(t, app.KindOK, res.Kind)
	assert.Empty(t, res.Payload.([]domain.RestaurantReview))
}

func TestAPI_UpdateDestroyOwnerOnly(t *testing.T) {
	ctx := context.Background()
	api, store := newAPI(t)
	d, _ := store.Dishes().Insert(ctx, domain.Dish{Name: "Soup", Description: "hot", UserID: alice.ID})

	assert.Equal(t, app.KindUnauthenticated, api.Dishes.Update(ctx, anon, d.ID, []byte(`{"name":"x"}`)).Kind)
	assert.Equal(t, app.KindUnauthenticated, api.Dishes.Update(ctx, anon, 999, []byte(`{"name":"x"}`)).Kind)
	assert.Equal(t, app.KindForbidden, api.Dishes.Update(ctx, bob, d.ID, []byte(`{"name":"x"}`)).Kind)
	assert.Equal(t, app.KindForbidden, api.Dishes.Destroy(ctx, bob, d.ID).Kind)
	assert.Equal(t, app.KindNotFound, api.Dishes.Destroy(ctx, bob, 999).Kind)

	res := api.Dishes.Update(ctx, alice, d.ID, []byte(`{"name":"Stew","user":2,"id":5}`))
	require.Equal(t, app.KindOK, res.Kind, "%v", res.Err)
	got := res.Payload.(domain.Dish)
	assert.Equal(t, "Stew", got.Name)
	assert.Equal(t, "hot", got.Description)
	assert.Equal(t, alice.ID, got.UserID)
	assert.Equal(t, d.ID, got.ID)

	require.Equal(t, app.KindNoContent, api.Dishes.Destroy(ctx, alice, d.ID).Kind)
	_, err := store.Dishes().Get(ctx, d.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAPI_RejectedUpdateKeepsStoredRow(t *testing.T) {
	ctx := context.Background()
	api, store := newAPI(t)

	res := api.Restaurants.Create(ctx, alice, []byte(`{"name":"Casa"}`))
	require.Equal(t, app.KindCreated, res.Kind, "%v", res.Err)
	res = api.Dishes.Create(ctx, alice, []byte(`{"name":"Soup","restaurant":1}`))
	require.Equal(t, app.KindCreated, res.Kind, "%v", res.Err)
	d := res.Payload.(domain.Dish)

	res = api.Dishes.Update(ctx, alice, d.ID, []byte(`{"name":"Stew","restaurant":999}`))
	require.Equal(t, app.KindInvalid, res.Kind)
	assert.Contains(t, res.Validation(), "restaurant")

	stored, err := store.Dishes().Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Soup", stored.Name)
	require.NotNil(t, stored.RestaurantID)
	assert.EqualValues(t, 1, *stored.RestaurantID)
}

func TestResult_Status(t *testing.T) {
	cases := map[app.Kind]int{
		app.KindOK: 200, app.KindCreated: 201, app.KindNoContent: 204, app.KindRedirect: 302,
		app.KindNotFound: 404, app.KindForbidden: 403, app.KindUnauthenticated: 401,
		app.KindInvalid: 400, app.KindFailed: 500,
	}
	for k, want := range cases {
		assert.Equal(t, want, app.Result{Kind: k}.Status())
	}
	assert.Equal(t, app.KindFailed, app.Fail(assert.AnError, nil).Kind)
}
