package mysql

import (
	"database/sql"
	"strings"

	"myrestaurants/internal/domain"
)

type scanner interface {
	Scan(dest ...any) error
}

// schema maps one record type onto its table. values and scan list the
// columns in the same order as columns; scan also reads the leading id.
type schema[T any] struct {
	table   string
	columns []string
	parent  string // column holding the owning restaurant, if scoped
	values  func(rec *T) []any
	scan    func(sc scanner, rec *T) error
	// onDelete statements run with the id, in the delete transaction.
	onDelete []string
}

func quote(col string) string { return "`" + col + "`" }

func (s schema[T]) selectSQL() string {
	cols := make([]string, 0, len(s.columns)+1)
	cols = append(cols, "id")
	for _, c := range s.columns {
		cols = append(cols, quote(c))
	}
	return "SELECT " + strings.Join(cols, ", ") + " FROM " + s.table
}

func (s schema[T]) insertSQL() string {
	cols := make([]string, len(s.columns))
	for i, c := range s.columns {
		cols[i] = quote(c)
	}
	return "INSERT INTO " + s.table + " (" + strings.Join(cols, ", ") + ") VALUES (" + placeholders(len(cols)) + ")"
}

func (s schema[T]) updateSQL() string {
	sets := make([]string, len(s.columns))
	for i, c := range s.columns {
		sets[i] = quote(c) + " = ?"
	}
	return "UPDATE " + s.table + " SET " + strings.Join(sets, ", ") + " WHERE id = ?"
}

// upsertSQL writes a row under an explicit id (fixture loading).
func (s schema[T]) upsertSQL() string {
	cols := []string{"id"}
	sets := make([]string, len(s.columns))
	for i, c := range s.columns {
		cols = append(cols, quote(c))
		sets[i] = quote(c) + " = VALUES(" + quote(c) + ")"
	}
	return "INSERT INTO " + s.table + " (" + strings.Join(cols, ", ") + ") VALUES (" + placeholders(len(cols)) + ")\n" +
		"ON DUPLICATE KEY UPDATE\n  " + strings.Join(sets, ",\n  ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// ---- value helpers ----

func valInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func valOwner(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func ref(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// ---- schemas ----

var addressSchema = schema[domain.Address]{
	table:   "addresses",
	columns: []string{"street", "number", "city", "zip_code", "state_or_province", "country", "user_id", "date"},
	values: func(a *domain.Address) []any {
		return []any{a.Street, a.Number, a.City, a.ZipCode, a.StateOrProvince, a.Country, valOwner(a.UserID), a.Date}
	},
	scan: func(sc scanner, a *domain.Address) error {
		var zip sql.NullString
		var user sql.NullInt64
		if err := sc.Scan(&a.ID, &a.Street, &a.Number, &a.City, &zip, &a.StateOrProvince, &a.Country, &user, &a.Date); err != nil {
			return err
		}
		a.ZipCode, a.UserID = zip.String, user.Int64
		return nil
	},
}

var priceSchema = schema[domain.Price]{
	table:   "prices",
	columns: []string{"amount", "currency", "user_id", "date"},
	values: func(p *domain.Price) []any {
		return []any{p.Amount, p.Currency, valOwner(p.UserID), p.Date}
	},
	scan: func(sc scanner, p *domain.Price) error {
		var user sql.NullInt64
		if err := sc.Scan(&p.ID, &p.Amount, &p.Currency, &user, &p.Date); err != nil {
			return err
		}
		p.UserID = user.Int64
		return nil
	},
}

var dishSchema = schema[domain.Dish]{
	table:   "dishes",
	columns: []string{"name", "description", "price_id", "restaurant_id", "user_id", "date"},
	parent:  "restaurant_id",
	values: func(d *domain.Dish) []any {
		return []any{d.Name, d.Description, valInt64(d.PriceID), valInt64(d.RestaurantID), valOwner(d.UserID), d.Date}
	},
	scan: func(sc scanner, d *domain.Dish) error {
		var price, rest, user sql.NullInt64
		if err := sc.Scan(&d.ID, &d.Name, &d.Description, &price, &rest, &user, &d.Date); err != nil {
			return err
		}
		d.PriceID, d.RestaurantID, d.UserID = ref(price), ref(rest), user.Int64
		return nil
	},
	onDelete: []string{"UPDATE restaurants SET dish_id = NULL WHERE dish_id = ?"},
}

var restaurantSchema = schema[domain.Restaurant]{
	table:   "restaurants",
	columns: []string{"name", "address_id", "telephone", "url", "dish_id", "user_id", "date"},
	values: func(r *domain.Restaurant) []any {
		return []any{r.Name, valInt64(r.AddressID), r.Telephone, r.URL, valInt64(r.DishID), valOwner(r.UserID), r.Date}
	},
	scan: func(sc scanner, r *domain.Restaurant) error {
		var addr, dish, user sql.NullInt64
		if err := sc.Scan(&r.ID, &r.Name, &addr, &r.Telephone, &r.URL, &dish, &user, &r.Date); err != nil {
			return err
		}
		r.AddressID, r.DishID, r.UserID = ref(addr), ref(dish), user.Int64
		return nil
	},
}

var reviewSchema = schema[domain.RestaurantReview]{
	table:   "reviews",
	columns: []string{"rating", "comment", "user_id", "date", "restaurant_id"},
	parent:  "restaurant_id",
	values: func(r *domain.RestaurantReview) []any {
		return []any{r.Rating, r.Comment, valOwner(r.UserID), r.Date, r.RestaurantID}
	},
	scan: func(sc scanner, r *domain.RestaurantReview) error {
		var user sql.NullInt64
		if err := sc.Scan(&r.ID, &r.Rating, &r.Comment, &user, &r.Date, &r.RestaurantID); err != nil {
			return err
		}
		r.UserID = user.Int64
		return nil
	},
}

// ---- users ----

const selectUserSQL = `SELECT id, username, password, date_joined FROM users`

const insertUserSQL = `INSERT INTO users (username, password, date_joined) VALUES (?, ?, ?)`

const upsertUserSQL = `
INSERT INTO users (id, username, password, date_joined)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  username    = VALUES(username),
  password    = VALUES(password),
  date_joined = VALUES(date_joined)
`
