package binder

import "errors"

// ErrBinding is wrapped by every error returned from this package.
var ErrBinding = errors.New("request binding failed")

var (
	ErrUnsupportedMediaType = errors.Join(ErrBinding, errors.New("unsupported media type"))
	ErrMissingContentType   = errors.Join(ErrBinding, errors.New("missing content type"))
	ErrFailedToParseJSON    = errors.Join(ErrBinding, errors.New("failed to parse JSON request body"))
	ErrFailedToParseQuery   = errors.Join(ErrBinding, errors.New("failed to parse query parameters"))
	ErrFailedToParsePath    = errors.Join(ErrBinding, errors.New("failed to parse path parameters"))
	ErrInvalidTarget        = errors.Join(ErrBinding, errors.New("binding target must be a non-nil pointer to struct"))
)
