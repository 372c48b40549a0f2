// Package core holds the HTTP response vocabulary shared by the middleware
// and the admin API: HTTPError values with stable keys, and JSON responses
// that render them.
package core
