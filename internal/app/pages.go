package app

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"myrestaurants/internal/domain"
	"myrestaurants/internal/policy"
)

func RestaurantURL(id int64) string { return fmt.Sprintf("/restaurants/%d/", id) }

func DishURL(restaurantID, id int64) string {
	return fmt.Sprintf("/restaurants/%d/dishes/%d/", restaurantID, id)
}

// Pages are the human-facing controllers.
type Pages struct {
	q *QueryService
	c *CommandService
}

func NewPages(q *QueryService, c *CommandService) *Pages { return &Pages{q: q, c: c} }

func failed(what string, err error, payload any) Result {
	res := Fail(err, payload)
	if res.Kind == KindFailed {
		log.Error().Err(err).Str("op", what).Msg("page failed")
	}
	return res
}

// ---- restaurants ----

func (p *Pages) RestaurantList(ctx context.Context) Result {
	rs, err := p.q.LatestRestaurants(ctx, LatestCount)
	if err != nil {
		return failed("restaurant_list", err, nil)
	}
	return OK(Listing[domain.Restaurant]{Items: rs})
}

func (p *Pages) RestaurantDetail(ctx context.Context, id int64) Result {
	page, err := p.q.RestaurantPage(ctx, id)
	if err != nil {
		return failed("restaurant_detail", err, nil)
	}
	return OK(page)
}

func (p *Pages) NewRestaurant(actor domain.Actor) Result {
	if err := policy.RequireActor(actor); err != nil {
		return Fail(err, nil)
	}
	return OK(newForm("New restaurant", "/restaurants/new", restaurantFields, nil, nil))
}

func (p *Pages) CreateRestaurant(ctx context.Context, actor domain.Actor, form url.Values) Result {
	page := newForm("New restaurant", "/restaurants/new", restaurantFields, formValues(form), nil)
	if err := policy.RequireActor(actor); err != nil {
		return Fail(err, nil)
	}
	var r domain.Restaurant
	if err := DecodeFields(submitted(form, restaurantFields), &r); err != nil {
		return invalidForm(page, err)
	}
	r, err := p.c.CreateRestaurant(ctx, actor, r)
	if err != nil {
		return invalidForm(page, err)
	}
	return Redirect(RestaurantURL(r.ID))
}

func (p *Pages) EditRestaurant(ctx context.Context, actor domain.Actor, id int64) Result {
	r, err := p.ownedRestaurant(ctx, actor, id)
	if err != nil {
		return failed("restaurant_edit", err, nil)
	}
	action := RestaurantURL(id) + "edit"
	return OK(newForm("Edit restaurant", action, restaurantFields, recordValues(r), nil))
}

func (p *Pages) UpdateRestaurant(ctx context.Context, actor domain.Actor, id int64, form url.Values) Result {
	page := newForm("Edit restaurant", RestaurantURL(id)+"edit", restaurantFields, formValues(form), nil)
	r, err := p.c.UpdateRestaurant(ctx, actor, id, func(cur domain.Restaurant) (domain.Restaurant, error) {
		next := domain.Restaurant{Date: cur.Date}
		err := DecodeFields(submitted(form, restaurantFields), &next)
		return next, err
	})
	if err != nil {
		return invalidForm(page, err)
	}
	return Redirect(RestaurantURL(r.ID))
}

func (p *Pages) ownedRestaurant(ctx context.Context, actor domain.Actor, id int64) (domain.Restaurant, error) {
	if err := policy.RequireActor(actor); err != nil {
		return domain.Restaurant{}, err
	}
	r, err := p.q.Restaurant(ctx, id)
	if err != nil {
		return r, err
	}
	return r, policy.Authorize(actor, r, policy.Update)
}

// ---- dishes ----

func (p *Pages) DishList(ctx context.Context, restaurantID int64) Result {
	ds, err := p.q.DishesOf(ctx, restaurantID)
	if err != nil {
		return failed("dish_list", err, nil)
	}
	return OK(DishListPage{Listing: Listing[domain.Dish]{Items: ds}, RestaurantID: restaurantID})
}

func (p *Pages) DishDetail(ctx context.Context, restaurantID, id int64) Result {
	d, err := p.q.Dish(ctx, id)
	if err != nil {
		return failed("dish_detail", err, nil)
	}
	if d.RestaurantID != nil && *d.RestaurantID != restaurantID {
		return Fail(domain.ErrNotFound, nil)
	}
	page := DishPage{Dish: d}
	if d.PriceID != nil {
		if pr, err := p.q.Price(ctx, *d.PriceID); err == nil {
			page.Price = &pr
		}
	}
	if r, err := p.q.Restaurant(ctx, restaurantID); err == nil {
		page.Restaurant = &r
	}
	return OK(page)
}

func (p *Pages) NewDish(ctx context.Context, actor domain.Actor, restaurantID int64) Result {
	if err := policy.RequireActor(actor); err != nil {
		return Fail(err, nil)
	}
	if _, err := p.q.Restaurant(ctx, restaurantID); err != nil {
		return failed("dish_new", err, nil)
	}
	return OK(newForm("New dish", RestaurantURL(restaurantID)+"dishes/new", dishFields, nil, nil))
}

func (p *Pages) CreateDish(ctx context.Context, actor domain.Actor, restaurantID int64, form url.Values) Result {
	page := newForm("New dish", RestaurantURL(restaurantID)+"dishes/new", dishFields, formValues(form), nil)
	if err := policy.RequireActor(actor); err != nil {
		return Fail(err, nil)
	}
	var d domain.Dish
	if err := DecodeFields(submitted(form, dishFields), &d); err != nil {
		return invalidForm(page, err)
	}
	d, err := p.c.CreateDish(ctx, actor, restaurantID, d)
	if err != nil {
		return invalidForm(page, err)
	}
	return Redirect(DishURL(restaurantID, d.ID))
}

func (p *Pages) EditDish(ctx context.Context, actor domain.Actor, restaurantID, id int64) Result {
	if err := policy.RequireActor(actor); err != nil {
		return Fail(err, nil)
	}
	d, err := p.q.Dish(ctx, id)
	if err != nil {
		return failed("dish_edit", err, nil)
	}
	if err := policy.Authorize(actor, d, policy.Update); err != nil {
		return Fail(err, nil)
	}
	return OK(newForm("Edit dish", DishURL(restaurantID, id)+"edit", dishFields, recordValues(d), nil))
}

func (p *Pages) UpdateDish(ctx context.Context, actor domain.Actor, restaurantID, id int64, form url.Values) Result {
	page := newForm("Edit dish", DishURL(restaurantID, id)+"edit", dishFields, formValues(form), nil)
	d, err := p.c.UpdateDish(ctx, actor, id, func(cur domain.Dish) (domain.Dish, error) {
		next := domain.Dish{RestaurantID: cur.RestaurantID, Date: cur.Date}
		err := DecodeFields(submitted(form, dishFields), &next)
		return next, err
	})
	if err != nil {
		return invalidForm(page, err)
	}
	return Redirect(DishURL(restaurantID, d.ID))
}

// ---- reviews ----

// SubmitReview handles the review form on the restaurant detail page.
func (p *Pages) SubmitReview(ctx context.Context, actor domain.Actor, restaurantID int64, form url.Values) Result {
	// an unparsable rating is left for validation to reject, after the
	// login and restaurant checks
	rating := domain.DefaultRating
	if s := strings.TrimSpace(form.Get("rating")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			n = -1
		}
		rating = n
	}
	if _, err := p.c.SubmitReview(ctx, actor, restaurantID, rating, form.Get("comment")); err != nil {
		return failed("review", err, nil)
	}
	return Redirect(RestaurantURL(restaurantID))
}

// invalidForm attaches validation messages to the form being re-rendered.
func invalidForm(page FormPage, err error) Result {
	res := Fail(err, page)
	if res.Kind != KindInvalid {
		res.Payload = nil
		if res.Kind == KindFailed {
			log.Error().Err(err).Str("form", page.Action).Msg("form submit failed")
		}
		return res
	}
	page.Errors = res.Validation()
	res.Payload = page
	return res
}
