package core

import "net/http"

// HTTPError pairs a status code with a stable machine-readable key.
// Clients branch on Key; the human message is derived from Code.
type HTTPError struct {
	Code int    // HTTP status code
	Key  string // Stable error code (e.g., "unknown_tenant")
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	return e.Key
}

// 4xx Client Errors
var (
	ErrBadRequest          = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	ErrForbidden           = HTTPError{Code: http.StatusForbidden, Key: "forbidden"}
	ErrNotFound            = HTTPError{Code: http.StatusNotFound, Key: "not_found"}
	ErrConflict            = HTTPError{Code: http.StatusConflict, Key: "conflict"}
	ErrUnprocessableEntity = HTTPError{Code: http.StatusUnprocessableEntity, Key: "unprocessable_entity"}
)

// Tenant resolution errors. Each outcome has its own key so clients can tell
// a malformed request from a missing organization from a paused one.
var (
	ErrMissingTenantHeader = HTTPError{Code: http.StatusBadRequest, Key: "missing_tenant_header"}
	ErrUnknownTenant       = HTTPError{Code: http.StatusNotFound, Key: "unknown_tenant"}
	ErrInactiveTenant      = HTTPError{Code: http.StatusForbidden, Key: "inactive_tenant"}
)

// 5xx Server Errors
var (
	ErrInternalServerError  = HTTPError{Code: http.StatusInternalServerError, Key: "internal_server_error"}
	ErrServiceUnavailable   = HTTPError{Code: http.StatusServiceUnavailable, Key: "service_unavailable"}
	ErrPartitionUnavailable = HTTPError{Code: http.StatusServiceUnavailable, Key: "partition_unavailable"}
	ErrGatewayTimeout       = HTTPError{Code: http.StatusGatewayTimeout, Key: "gateway_timeout"}
)

// NewHTTPError creates a custom HTTP error with the given status code and key.
func NewHTTPError(code int, key string) HTTPError {
	return HTTPError{Code: code, Key: key}
}
