package domain

import "strings"

type Choice struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// RatingChoices is the fixed scale offered on the review form.
var RatingChoices = []Choice{
	{1, "one"},
	{2, "two"},
	{3, "three"},
	{4, "four"},
	{5, "five"},
}

const DefaultRating = 3

func ValidRating(n int) bool {
	for _, c := range RatingChoices {
		if c.Value == n {
			return true
		}
	}
	return false
}

type RestaurantReview struct {
	ID           int64  `json:"id"`
	Rating       int    `json:"rating"`
	Comment      string `json:"comment"`
	UserID       int64  `json:"user"`
	Date         Date   `json:"date"`
	RestaurantID int64  `json:"restaurant"`
}

func (r RestaurantReview) Model() string   { return ModelReview }
func (r RestaurantReview) RecordID() int64 { return r.ID }
func (r RestaurantReview) OwnerID() int64  { return r.UserID }
func (r RestaurantReview) Created() Date   { return r.Date }
func (r RestaurantReview) ParentID() int64 { return r.RestaurantID }

func (r RestaurantReview) Fields() []Field {
	var parent *int64
	if r.RestaurantID != 0 {
		parent = &r.RestaurantID
	}
	return []Field{
		{Name: "rating", Type: "PositiveSmallIntegerField", Value: r.Rating},
		text("comment", r.Comment),
		owner(r.UserID),
		date("date", r.Date),
		fk("restaurant", ModelRestaurant, parent),
	}
}

func (r *RestaurantReview) SetID(id int64)    { r.ID = id }
func (r *RestaurantReview) SetOwner(id int64) { r.UserID = id }

func (r *RestaurantReview) Normalize(today Date) {
	r.Comment = strings.TrimSpace(r.Comment)
	if r.Rating == 0 {
		r.Rating = DefaultRating
	}
	if r.Date.IsZero() {
		r.Date = today
	}
}

func (r *RestaurantReview) Validate() error {
	v := &ValidationError{}
	if !ValidRating(r.Rating) {
		v.Add("rating", "Select a valid choice.")
	}
	if r.RestaurantID == 0 {
		v.Add("restaurant", "This field is required.")
	}
	return v.OrNil()
}
