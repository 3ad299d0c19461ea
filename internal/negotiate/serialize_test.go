package negotiate_test

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myrestaurants/internal/domain"
	"myrestaurants/internal/negotiate"
)

func day(s string) domain.Date {
	d, _ := domain.ParseDate(s)
	return d
}

func i64(v int64) *int64 { return &v }

type listing struct{ items []domain.Restaurant }

func (l listing) Records() []domain.Record {
	out := make([]domain.Record, 0, len(l.items))
	for _, r := range l.items {
		out = append(out, r)
	}
	return out
}

func TestObjects_SingleThenPlural(t *testing.T) {
	one := domain.Restaurant{ID: 1, Name: "Bar"}

	recs, err := negotiate.Objects(one)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	recs, err = negotiate.Objects(listing{items: []domain.Restaurant{one, {ID: 2}}})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = negotiate.Objects([]domain.Dish{{ID: 3}, {ID: 4}, {ID: 5}})
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	recs, err = negotiate.Objects([]domain.Dish{})
	require.NoError(t, err)
	assert.Empty(t, recs)

	_, err = negotiate.Objects(map[string]int{"x": 1})
	assert.ErrorIs(t, err, negotiate.ErrNotSerializable)
}

func TestEncodeJSON_DocumentShape(t *testing.T) {
	r := domain.Restaurant{ID: 7, Name: "Casa", AddressID: i64(2), URL: "http://casa.example", UserID: 1, Date: day("2024-05-01")}
	var buf bytes.Buffer
	require.NoError(t, negotiate.EncodeJSON(&buf, []domain.Record{r}))

	var got []struct {
		Model  string         `json:"model"`
		PK     int64          `json:"pk"`
		Fields map[string]any `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, domain.ModelRestaurant, got[0].Model)
	assert.EqualValues(t, 7, got[0].PK)
	assert.Equal(t, "Casa", got[0].Fields["name"])
	assert.EqualValues(t, 2, got[0].Fields["address"])
	assert.Nil(t, got[0].Fields["dish"])
	assert.Equal(t, "2024-05-01", got[0].Fields["date"])

	// field order follows the record declaration
	s := buf.String()
	assert.Less(t, strings.Index(s, `"name"`), strings.Index(s, `"address"`))
	assert.Less(t, strings.Index(s, `"address"`), strings.Index(s, `"telephone"`))
}

func TestEncodeJSON_EmptyIsList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, negotiate.EncodeJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestEncodeXML_DjangoDocument(t *testing.T) {
	rv := domain.RestaurantReview{ID: 3, Rating: 4, Comment: "ok", UserID: 9, RestaurantID: 7, Date: day("2024-01-02")}
	d := domain.Dish{ID: 5, Name: "Soup"}
	var buf bytes.Buffer
	require.NoError(t, negotiate.EncodeXML(&buf, []domain.Record{rv, d}))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, xml.Header))
	assert.Contains(t, out, `<django-objects version="1.0">`)
	assert.Contains(t, out, `<object pk="3" model="myrestaurants.restaurantreview">`)
	assert.Contains(t, out, `<field name="rating" type="PositiveSmallIntegerField">4</field>`)
	assert.Contains(t, out, `<field name="restaurant" rel="ManyToOneRel" to="myrestaurants.restaurant">7</field>`)
	assert.Contains(t, out, `<field name="price" rel="ManyToOneRel" to="myrestaurants.price"><None></None></field>`)
}

func TestEncodeAPI(t *testing.T) {
	a := domain.Address{ID: 1, Street: "Main", Number: 3, City: "Porto", UserID: 2}

	b, err := negotiate.EncodeAPI(negotiate.JSON, a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"street":"Main","number":3,"city":"Porto","zipCode":"","stateOrProvince":"","country":"","user":2,"date":null}`, string(b))

	b, err = negotiate.EncodeAPI(negotiate.XML, []domain.Address{a})
	require.NoError(t, err)
	assert.Contains(t, string(b), "<root><list-item><id>1</id><street>Main</street><number>3</number>")
	assert.Contains(t, string(b), "<date></date></list-item></root>")

	b, err = negotiate.EncodeAPI(negotiate.XML, a)
	require.NoError(t, err)
	assert.Contains(t, string(b), "<root><id>1</id>")
	assert.NotContains(t, string(b), "list-item")
}
