package domain

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Address struct {
	ID              int64  `json:"id"`
	Street          string `json:"street"`
	Number          int    `json:"number"`
	City            string `json:"city"`
	ZipCode         string `json:"zipCode"`
	StateOrProvince string `json:"stateOrProvince"`
	Country         string `json:"country"`
	UserID          int64  `json:"user"`
	Date            Date   `json:"date"`
}

func (a Address) Model() string   { return ModelAddress }
func (a Address) RecordID() int64 { return a.ID }
func (a Address) OwnerID() int64  { return a.UserID }
func (a Address) Created() Date   { return a.Date }

func (a Address) Fields() []Field {
	return []Field{
		text("street", a.Street),
		{Name: "number", Type: "IntegerField", Value: a.Number},
		text("city", a.City),
		text("zipCode", a.ZipCode),
		text("stateOrProvince", a.StateOrProvince),
		text("country", a.Country),
		owner(a.UserID),
		date("date", a.Date),
	}
}

func (a *Address) SetID(id int64)    { a.ID = id }
func (a *Address) SetOwner(id int64) { a.UserID = id }

func (a *Address) Normalize(today Date) {
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.ZipCode = strings.TrimSpace(a.ZipCode)
	a.StateOrProvince = strings.TrimSpace(a.StateOrProvince)
	a.Country = strings.TrimSpace(a.Country)
	if a.Date.IsZero() {
		a.Date = today
	}
}

func (a *Address) Validate() error {
	v := &ValidationError{}
	v.required("street", a.Street)
	v.required("city", a.City)
	v.required("country", a.Country)
	return v.OrNil()
}

// Price amounts are DECIMAL(10,2).
type Price struct {
	ID       int64           `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	UserID   int64           `json:"user"`
	Date     Date            `json:"date"`
}

const (
	priceDigits = 10
	pricePlaces = 2
)

func (p Price) Model() string   { return ModelPrice }
func (p Price) RecordID() int64 { return p.ID }
func (p Price) OwnerID() int64  { return p.UserID }
func (p Price) Created() Date   { return p.Date }

func (p Price) Fields() []Field {
	return []Field{
		{Name: "amount", Type: "DecimalField", Value: p.Amount.StringFixed(pricePlaces)},
		text("currency", p.Currency),
		owner(p.UserID),
		date("date", p.Date),
	}
}

// MarshalJSON renders the amount with its fixed two places.
func (p Price) MarshalJSON() ([]byte, error) {
	type plain Price
	return json.Marshal(struct {
		plain
		Amount string `json:"amount"`
	}{plain(p), p.Amount.StringFixed(pricePlaces)})
}

func (p *Price) SetID(id int64)    { p.ID = id }
func (p *Price) SetOwner(id int64) { p.UserID = id }

func (p *Price) Normalize(today Date) {
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	if p.Date.IsZero() {
		p.Date = today
	}
}

func (p *Price) Validate() error {
	v := &ValidationError{}
	v.required("currency", p.Currency)
	if !p.Amount.Equal(p.Amount.Round(pricePlaces)) {
		v.Add("amount", "Ensure that there are no more than "+strconv.Itoa(pricePlaces)+" decimal places.")
	}
	limit := decimal.New(1, priceDigits-pricePlaces)
	if p.Amount.Abs().GreaterThanOrEqual(limit) {
		v.Add("amount", "Ensure that there are no more than "+strconv.Itoa(priceDigits)+" digits in total.")
	}
	return v.OrNil()
}

type Dish struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	PriceID      *int64 `json:"price"`
	RestaurantID *int64 `json:"restaurant"`
	UserID       int64  `json:"user"`
	Date         Date   `json:"date"`
}

func (d Dish) Model() string   { return ModelDish }
func (d Dish) RecordID() int64 { return d.ID }
func (d Dish) OwnerID() int64  { return d.UserID }
func (d Dish) Created() Date   { return d.Date }

func (d Dish) ParentID() int64 {
	if d.RestaurantID == nil {
		return 0
	}
	return *d.RestaurantID
}

func (d Dish) Fields() []Field {
	return []Field{
		text("name", d.Name),
		text("description", d.Description),
		fk("price", ModelPrice, d.PriceID),
		fk("restaurant", ModelRestaurant, d.RestaurantID),
		owner(d.UserID),
		date("date", d.Date),
	}
}

func (d *Dish) SetID(id int64)    { d.ID = id }
func (d *Dish) SetOwner(id int64) { d.UserID = id }

func (d *Dish) Detach() {
	d.PriceID, d.RestaurantID = cloneRef(d.PriceID), cloneRef(d.RestaurantID)
}

func (d *Dish) Normalize(today Date) {
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)
	if d.Date.IsZero() {
		d.Date = today
	}
}

func (d *Dish) Validate() error {
	v := &ValidationError{}
	v.required("name", d.Name)
	return v.OrNil()
}

type Restaurant struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AddressID *int64 `json:"address"`
	Telephone string `json:"telephone"`
	URL       string `json:"url"`
	DishID    *int64 `json:"dish"`
	UserID    int64  `json:"user"`
	Date      Date   `json:"date"`
}

const maxURLLength = 200

func (r Restaurant) Model() string   { return ModelRestaurant }
func (r Restaurant) RecordID() int64 { return r.ID }
func (r Restaurant) OwnerID() int64  { return r.UserID }
func (r Restaurant) Created() Date   { return r.Date }

func (r Restaurant) Fields() []Field {
	return []Field{
		text("name", r.Name),
		fk("address", ModelAddress, r.AddressID),
		text("telephone", r.Telephone),
		{Name: "url", Type: "URLField", Value: r.URL},
		fk("dish", ModelDish, r.DishID),
		owner(r.UserID),
		date("date", r.Date),
	}
}

func (r *Restaurant) SetID(id int64)    { r.ID = id }
func (r *Restaurant) SetOwner(id int64) { r.UserID = id }

func (r *Restaurant) Detach() {
	r.AddressID, r.DishID = cloneRef(r.AddressID), cloneRef(r.DishID)
}

func (r *Restaurant) Normalize(today Date) {
	r.Name = strings.TrimSpace(r.Name)
	r.Telephone = strings.TrimSpace(r.Telephone)
	r.URL = strings.TrimSpace(r.URL)
	if r.Date.IsZero() {
		r.Date = today
	}
}

func (r *Restaurant) Validate() error {
	v := &ValidationError{}
	v.required("name", r.Name)
	if r.URL != "" {
		u, err := url.Parse(r.URL)
		switch {
		case err != nil, u.Host == "", u.Scheme != "http" && u.Scheme != "https":
			v.Add("url", "Enter a valid URL.")
		case len(r.URL) > maxURLLength:
			v.Add("url", "Ensure this value has at most "+strconv.Itoa(maxURLLength)+" characters.")
		}
	}
	return v.OrNil()
}
