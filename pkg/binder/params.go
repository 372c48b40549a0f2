package binder

import "net/http"

// Query binds URL query parameters to fields tagged `query:"name"`.
// Slices accept repeated and comma-separated values.
func Query() Func {
	return func(r *http.Request, v any) error {
		return bindToStruct(v, "query", func(name string) []string {
			return r.URL.Query()[name]
		}, ErrFailedToParseQuery)
	}
}

// Path binds route parameters to fields tagged `path:"name"` using extractor,
// for example chi.URLParam.
func Path(extractor func(r *http.Request, name string) string) Func {
	return func(r *http.Request, v any) error {
		return bindToStruct(v, "path", func(name string) []string {
			if value := extractor(r, name); value != "" {
				return []string{value}
			}
			return nil
		}, ErrFailedToParsePath)
	}
}
