package negotiate

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"

	"myrestaurants/internal/domain"
)

var ErrNotSerializable = errors.New("payload holds no records")

// Lister is a rendering context that carries a collection of records.
type Lister interface {
	Records() []domain.Record
}

// Objects normalizes a payload into records. A single record is checked for
// first, then a plural context.
func Objects(payload any) ([]domain.Record, error) {
	recs, _, err := collect(payload)
	return recs, err
}

func collect(payload any) ([]domain.Record, bool, error) {
	switch p := payload.(type) {
	case domain.Record:
		return []domain.Record{p}, false, nil
	case Lister:
		return p.Records(), true, nil
	case []domain.Record:
		return p, true, nil
	}
	v := reflect.ValueOf(payload)
	if v.Kind() != reflect.Slice {
		return nil, false, fmt.Errorf("%w: %T", ErrNotSerializable, payload)
	}
	out := make([]domain.Record, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		rec, ok := v.Index(i).Interface().(domain.Record)
		if !ok {
			return nil, false, fmt.Errorf("%w: %T", ErrNotSerializable, payload)
		}
		out = append(out, rec)
	}
	return out, true, nil
}

// ---- django-style documents (page routes) ----

type object struct {
	Model  string `json:"model"`
	PK     int64  `json:"pk"`
	Fields fields `json:"fields"`
}

type fields []domain.Field

// MarshalJSON keeps declaration order, which a map would lose.
func (fs fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fs {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EncodeJSON writes recs as a list of {model, pk, fields} objects.
func EncodeJSON(w io.Writer, recs []domain.Record) error {
	objs := make([]object, 0, len(recs))
	for _, r := range recs {
		objs = append(objs, object{Model: r.Model(), PK: r.RecordID(), Fields: r.Fields()})
	}
	return json.NewEncoder(w).Encode(objs)
}

type xmlDocument struct {
	XMLName xml.Name    `xml:"django-objects"`
	Version string      `xml:"version,attr"`
	Objects []xmlObject `xml:"object"`
}

type xmlObject struct {
	PK     int64      `xml:"pk,attr"`
	Model  string     `xml:"model,attr"`
	Fields []xmlField `xml:"field"`
}

type xmlField struct {
	Name  string    `xml:"name,attr"`
	Type  string    `xml:"type,attr,omitempty"`
	Rel   string    `xml:"rel,attr,omitempty"`
	To    string    `xml:"to,attr,omitempty"`
	None  *struct{} `xml:"None"`
	Value string    `xml:",chardata"`
}

// EncodeXML writes recs as a <django-objects> document. Foreign keys carry
// rel/to attributes naming the target model; NULLs become <None/>.
func EncodeXML(w io.Writer, recs []domain.Record) error {
	doc := xmlDocument{Version: "1.0", Objects: make([]xmlObject, 0, len(recs))}
	for _, r := range recs {
		o := xmlObject{PK: r.RecordID(), Model: r.Model()}
		for _, f := range r.Fields() {
			xf := xmlField{Name: f.Name, Type: f.Type}
			if f.Rel != "" {
				xf.Type, xf.Rel, xf.To = "", "ManyToOneRel", f.Rel
			}
			if f.Value == nil {
				xf.None = &struct{}{}
			} else {
				xf.Value = textOf(f.Value)
			}
			o.Fields = append(o.Fields, xf)
		}
		doc.Objects = append(doc.Objects, o)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	return xml.NewEncoder(w).Encode(doc)
}

// ---- flat documents (API routes) ----

// EncodeAPI renders payload for the REST API: JSON is the record's own
// encoding, XML is a <root> document with one <list-item> per record.
func EncodeAPI(f Format, payload any) ([]byte, error) {
	if f != XML {
		return json.Marshal(payload)
	}
	recs, plural, err := collect(payload)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	root := xml.StartElement{Name: xml.Name{Local: "root"}}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}
	for _, r := range recs {
		if plural {
			item := xml.StartElement{Name: xml.Name{Local: "list-item"}}
			if err := enc.EncodeToken(item); err != nil {
				return nil, err
			}
			if err := flatFields(enc, r); err != nil {
				return nil, err
			}
			if err := enc.EncodeToken(item.End()); err != nil {
				return nil, err
			}
			continue
		}
		if err := flatFields(enc, r); err != nil {
			return nil, err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func flatFields(enc *xml.Encoder, r domain.Record) error {
	if err := enc.EncodeElement(r.RecordID(), xml.StartElement{Name: xml.Name{Local: "id"}}); err != nil {
		return err
	}
	for _, f := range r.Fields() {
		var v string
		if f.Value != nil {
			v = textOf(f.Value)
		}
		if err := enc.EncodeElement(v, xml.StartElement{Name: xml.Name{Local: f.Name}}); err != nil {
			return err
		}
	}
	return nil
}

func textOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
