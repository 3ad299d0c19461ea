package app

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"

	"myrestaurants/internal/domain"
)

var (
	dateType    = reflect.TypeOf(domain.Date{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
	timeType    = reflect.TypeOf(time.Time{})
)

// valueHook converts the scalar shapes forms and YAML produce into the
// record types mapstructure cannot reach on its own.
func valueHook(from, to reflect.Type, data any) (any, error) {
	switch to {
	case dateType:
		switch v := data.(type) {
		case string:
			return domain.ParseDate(v)
		case time.Time:
			return domain.DateOf(v), nil
		}
	case timeType:
		if v, ok := data.(string); ok {
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(v)); err == nil {
				return t, nil
			}
			d, err := domain.ParseDate(v)
			return d.Time, err
		}
	case decimalType:
		switch v := data.(type) {
		case string:
			return decimal.NewFromString(strings.TrimSpace(v))
		case float64:
			return decimal.NewFromFloat(v), nil
		case int:
			return decimal.NewFromInt(int64(v)), nil
		}
	}
	return data, nil
}

// DecodeFields copies fields onto dst, a pointer to a record, matching keys
// against the record's JSON names. Blank values leave the target untouched.
// Values that do not convert are reported per field.
func DecodeFields(fields map[string]any, dst any) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	verr := &domain.ValidationError{}
	for _, k := range keys {
		v := fields[k]
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.DecodeHookFuncType(valueHook),
			WeaklyTypedInput: true,
			TagName:          "json",
			Result:           dst,
		})
		if err != nil {
			return fmt.Errorf("decoder: %w", err)
		}
		if err := dec.Decode(map[string]any{k: v}); err != nil {
			verr.Add(k, "Enter a valid value.")
		}
	}
	return verr.OrNil()
}

// ---- form definitions ----

var restaurantFields = []FormField{
	{Name: "name", Label: "Name", Type: "text", Required: true},
	{Name: "address", Label: "Address", Type: "number"},
	{Name: "telephone", Label: "Telephone", Type: "tel"},
	{Name: "url", Label: "Url", Type: "url"},
	{Name: "dish", Label: "Dish", Type: "number"},
}

var dishFields = []FormField{
	{Name: "name", Label: "Name", Type: "text", Required: true},
	{Name: "description", Label: "Description", Type: "textarea"},
	{Name: "price", Label: "Price", Type: "number"},
}

// submitted keeps only the fields a form declares, so hidden columns such
// as the owner cannot be posted.
func submitted(form url.Values, spec []FormField) map[string]any {
	out := make(map[string]any, len(spec))
	for _, f := range spec {
		if v, ok := form[f.Name]; ok && len(v) > 0 {
			out[f.Name] = v[0]
		}
	}
	return out
}

func newForm(title, action string, spec []FormField, values map[string]string, errs map[string][]string) FormPage {
	fields := make([]FormField, len(spec))
	for i, f := range spec {
		f.Value = values[f.Name]
		fields[i] = f
	}
	return FormPage{Title: title, Action: action, Fields: fields, Errors: errs}
}

// recordValues renders a record's fields as form input values.
func recordValues(rec domain.Record) map[string]string {
	out := map[string]string{}
	for _, f := range rec.Fields() {
		switch v := f.Value.(type) {
		case nil:
		case string:
			out[f.Name] = v
		case int:
			out[f.Name] = strconv.Itoa(v)
		case int64:
			out[f.Name] = strconv.FormatInt(v, 10)
		default:
			out[f.Name] = fmt.Sprint(v)
		}
	}
	return out
}

func formValues(form url.Values) map[string]string {
	out := make(map[string]string, len(form))
	for k := range form {
		out[k] = form.Get(k)
	}
	return out
}
