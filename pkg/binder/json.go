package binder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// DefaultMaxJSONBytes caps request bodies read by JSON(0).
const DefaultMaxJSONBytes = 1 << 20

// Func binds part of a request into v.
type Func func(r *http.Request, v any) error

// Bind applies binders to v in order and stops at the first error.
func Bind(r *http.Request, v any, binders ...Func) error {
	for _, b := range binders {
		if err := b(r, v); err != nil {
			return err
		}
	}
	return nil
}

// JSON decodes an application/json body of at most maxBytes into v.
// An empty body is accepted and leaves v untouched.
func JSON(maxBytes int64) Func {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxJSONBytes
	}
	return func(r *http.Request, v any) error {
		if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
			return nil
		}

		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			return fmt.Errorf("%w: expected application/json", ErrMissingContentType)
		}
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "application/json" {
			return fmt.Errorf("%w: %s", ErrUnsupportedMediaType, contentType)
		}

		dec := json.NewDecoder(io.LimitReader(r.Body, maxBytes+1))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: %v", ErrFailedToParseJSON, err)
		}

		var extra json.RawMessage
		if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: unexpected data after JSON object", ErrFailedToParseJSON)
		}
		return nil
	}
}
