package app

import "myrestaurants/internal/domain"

// Listing is a plural page context.
type Listing[T domain.Record] struct {
	Items []T
}

func (l Listing[T]) Records() []domain.Record {
	out := make([]domain.Record, 0, len(l.Items))
	for _, it := range l.Items {
		out = append(out, it)
	}
	return out
}

// RestaurantPage is the detail page context. It is itself a record, so the
// JSON and XML renderings carry just the restaurant.
type RestaurantPage struct {
	domain.Restaurant
	Address       *domain.Address
	Featured      *domain.Dish
	Dishes        []domain.Dish
	Reviews       []domain.RestaurantReview
	RatingChoices []domain.Choice
	DefaultRating int
}

// DishListPage is the scoped dish list context.
type DishListPage struct {
	Listing[domain.Dish]
	RestaurantID int64
}

type DishPage struct {
	domain.Dish
	Price      *domain.Price
	Restaurant *domain.Restaurant
}

// FormPage backs the create and edit forms.
type FormPage struct {
	Title  string
	Action string
	Fields []FormField
	Errors map[string][]string
}

type FormField struct {
	Name     string
	Label    string
	Type     string // input type, or "textarea"
	Value    string
	Required bool
}

func (f FormPage) NonFieldErrors() []string { return f.Errors["__all__"] }

func (f FormPage) ErrorsFor(name string) []string { return f.Errors[name] }
