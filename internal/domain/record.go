package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Model labels double as the type tags written by the serializers.
const (
	ModelAddress    = "myrestaurants.address"
	ModelPrice      = "myrestaurants.price"
	ModelDish       = "myrestaurants.dish"
	ModelRestaurant = "myrestaurants.restaurant"
	ModelReview     = "myrestaurants.restaurantreview"
	ModelUser       = "auth.user"
)

// Record is anything the store persists and the negotiator serializes.
type Record interface {
	Model() string
	RecordID() int64
	OwnerID() int64
	Created() Date
	Fields() []Field
}

// Mutable is implemented by record pointers.
type Mutable interface {
	SetID(id int64)
	SetOwner(id int64)
	// Normalize trims free text and fills defaults (date = today).
	Normalize(today Date)
	Validate() error
}

// Detacher is implemented by records holding pointer fields. Detach gives
// the record private copies of them.
type Detacher interface {
	Detach()
}

func cloneRef(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// Entity ties a record value type to its pointer so generic code can both
// read (T) and mutate (*T) a record.
type Entity[T any] interface {
	*T
	Record
	Mutable
}

// Scoped records hang off a restaurant.
type Scoped interface {
	ParentID() int64
}

// Field describes one serialized column of a record.
type Field struct {
	Name  string
	Type  string // django-style field class, e.g. TextField; empty for relations
	Value any    // nil when the column is NULL
	Rel   string // target model label when the field is a foreign key
}

func text(name, s string) Field { return Field{Name: name, Type: "TextField", Value: s} }
func date(name string, d Date) Field {
	if d.IsZero() {
		return Field{Name: name, Type: "DateField"}
	}
	return Field{Name: name, Type: "DateField", Value: d.String()}
}

func fk(name, model string, id *int64) Field {
	f := Field{Name: name, Rel: model}
	if id != nil {
		f.Value = *id
	}
	return f
}

func owner(id int64) Field {
	var p *int64
	if id != 0 {
		p = &id
	}
	return fk("user", ModelUser, p)
}

// ---- Date ----

const DateLayout = "2006-01-02"

// Date is a calendar day (DATE column); the zero value means "unset".
type Date struct{ time.Time }

func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func Today() Date { return DateOf(time.Now()) }

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("invalid date: %w", err)
	}
	v, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = DateOf(v)
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
	return nil
}

func (d *Date) scanString(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	v, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time, nil
}

// ---- Actor ----

// Actor is the identity a request runs as. The zero value is anonymous.
type Actor struct {
	ID       int64
	Username string
}

func Anonymous() Actor { return Actor{} }

func (a Actor) Authenticated() bool { return a.ID != 0 }
