// Package handler adapts typed request handlers to net/http.
//
// A HandlerFunc receives the request context and a request value decoded by
// binders, and returns a core.Response:
//
//	type getRequest struct {
//		ID string `path:"id"`
//	}
//
//	r.Get("/tenants/{id}", handler.Wrap(func(ctx context.Context, req getRequest) core.Response {
//		t, err := reg.Get(ctx, req.ID)
//		if err != nil {
//			return core.JSONError(err)
//		}
//		return core.JSON("ok", t, nil)
//	}, handler.WithBinders(binder.Path(chi.URLParam))))
//
// Binding failures are answered with 400 bad_request.
package handler
