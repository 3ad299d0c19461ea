package policy_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"myrestaurants/internal/domain"
	"myrestaurants/internal/policy"
)

var (
	alice = domain.Actor{ID: 1, Username: "alice"}
	bob   = domain.Actor{ID: 2, Username: "bob"}
	anon  = domain.Anonymous()
)

func records() []domain.Record {
	return []domain.Record{
		domain.Address{ID: 1, UserID: alice.ID},
		domain.Price{ID: 1, UserID: alice.ID},
		domain.Dish{ID: 1, UserID: alice.ID},
		domain.Restaurant{ID: 1, UserID: alice.ID},
		domain.RestaurantReview{ID: 1, UserID: alice.ID, RestaurantID: 1},
	}
}

func TestAuthorize_ReadsAreOpen(t *testing.T) {
	for _, rec := range records() {
		for _, actor := range []domain.Actor{alice, bob, anon} {
			assert.NoError(t, policy.Authorize(actor, rec, policy.Read), "%s read by %d", rec.Model(), actor.ID)
			assert.NoError(t, policy.Authorize(actor, rec, policy.List), "%s list by %d", rec.Model(), actor.ID)
		}
	}
}

func TestAuthorize_NonOwnerMutationsForbidden(t *testing.T) {
	for _, rec := range records() {
		for _, op := range []policy.Operation{policy.Update, policy.Delete} {
			assert.ErrorIs(t, policy.Authorize(bob, rec, op), domain.ErrForbidden, "%s %s", rec.Model(), op)
			assert.NoError(t, policy.Authorize(alice, rec, op), "%s %s by owner", rec.Model(), op)
		}
	}
}

func TestAuthorize_AnonymousMutationsNeedLogin(t *testing.T) {
	for _, op := range []policy.Operation{policy.Create, policy.Update, policy.Delete} {
		assert.ErrorIs(t, policy.Authorize(anon, domain.Restaurant{ID: 1, UserID: alice.ID}, op), domain.ErrUnauthenticated)
	}
}

func TestAuthorize_CreateNeedsOnlyLogin(t *testing.T) {
	assert.NoError(t, policy.Authorize(bob, nil, policy.Create))
}

func TestAuthorize_UnownedRecordIsForbidden(t *testing.T) {
	assert.ErrorIs(t, policy.Authorize(alice, domain.Dish{ID: 9}, policy.Update), domain.ErrForbidden)
}

func TestStamp_OverridesPayloadOwner(t *testing.T) {
	r := domain.Restaurant{Name: "x", UserID: alice.ID}
	policy.Stamp(bob, &r)
	assert.Equal(t, bob.ID, r.UserID)
}

func TestOperationFor(t *testing.T) {
	cases := map[string]policy.Operation{
		http.MethodGet:     policy.Read,
		http.MethodHead:    policy.Read,
		http.MethodOptions: policy.Read,
		http.MethodPost:    policy.Create,
		http.MethodPut:     policy.Update,
		http.MethodPatch:   policy.Update,
		http.MethodDelete:  policy.Delete,
		"PROPFIND":         policy.Update,
	}
	for method, want := range cases {
		assert.Equal(t, want, policy.OperationFor(method), method)
	}
}

func TestRequireActor(t *testing.T) {
	assert.ErrorIs(t, policy.RequireActor(anon), domain.ErrUnauthenticated)
	assert.NoError(t, policy.RequireActor(bob))
}
