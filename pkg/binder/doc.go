// Package binder decodes HTTP request data into structs.
//
// Three binders are provided and may be chained; each only touches fields
// carrying its own struct tag:
//
//   - JSON(maxBytes) decodes a strict JSON body (unknown fields are rejected)
//   - Query() fills `query:"name"` fields from the URL query
//   - Path(extractor) fills `path:"name"` fields, e.g. with chi.URLParam
//
// Example:
//
//	type updateRequest struct {
//		ID     string         `path:"id" json:"-"`
//		Status *tenant.Status `json:"status"`
//	}
//
//	var req updateRequest
//	err := binder.Bind(r, &req, binder.Path(chi.URLParam), binder.JSON(0))
//
// All failures wrap ErrBinding, so handlers can answer them with 400.
package binder
