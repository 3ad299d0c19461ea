package negotiate

import (
	"bytes"
	"io"
	"net/http"

	"myrestaurants/internal/adapters/observability"
)

// HTMLFunc renders the templated fallback for a page.
type HTMLFunc func(w io.Writer) error

// Render writes payload in format f with the given status. JSON and XML
// serialize the payload's records; HTML delegates to html. Output is
// buffered so a failed render never leaves a half-written response.
func Render(w http.ResponseWriter, status int, f Format, payload any, html HTMLFunc) error {
	var buf bytes.Buffer
	var err error
	switch f {
	case JSON, XML:
		recs, cerr := Objects(payload)
		if cerr != nil {
			return cerr
		}
		if f == JSON {
			err = EncodeJSON(&buf, recs)
		} else {
			err = EncodeXML(&buf, recs)
		}
	default:
		err = html(&buf)
	}
	if err != nil {
		return err
	}
	observability.ObserveRender(f.String())
	w.Header().Set("Content-Type", f.MediaType())
	w.WriteHeader(status)
	_, err = w.Write(buf.Bytes())
	return err
}
