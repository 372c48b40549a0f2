package tenant

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// DefaultHeader carries the tenant id or slug on every tenant-scoped request.
const DefaultHeader = "X-Tenant-ID"

// identifierPattern accepts slugs and UUIDs with or without hyphens.
var identifierPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Resolver extracts a tenant identifier from a request.
// Returns empty string if none is present, error if the value is malformed.
type Resolver func(r *http.Request) (string, error)

func normalizeIdentifier(raw string) (string, error) {
	id := strings.ToLower(strings.TrimSpace(raw))
	if id == "" {
		return "", nil
	}
	if len(id) > MaxSlugLength || !identifierPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, raw)
	}
	// One key per tenant id: the registry invalidates the hyphenated form.
	if u, err := uuid.Parse(id); err == nil {
		return u.String(), nil
	}
	return id, nil
}

// NewHeaderResolver reads the identifier from headerName (DefaultHeader when empty).
func NewHeaderResolver(headerName string) Resolver {
	if headerName == "" {
		headerName = DefaultHeader
	}
	return func(req *http.Request) (string, error) {
		return normalizeIdentifier(req.Header.Get(headerName))
	}
}

// NewSubdomainResolver extracts the tenant from the left-most label of the host
// once suffix is stripped. Returns empty string for the bare domain.
func NewSubdomainResolver(suffix string) Resolver {
	return func(req *http.Request) (string, error) {
		host := req.Host
		if idx := strings.LastIndex(host, ":"); idx != -1 {
			host = host[:idx]
		}

		if suffix == "" || !strings.HasSuffix(host, suffix) || len(host) <= len(suffix) {
			return "", nil
		}
		labels := strings.Split(strings.TrimSuffix(host, suffix), ".")
		sub := labels[len(labels)-1]
		if sub == "" || sub == "www" {
			return "", nil
		}
		return normalizeIdentifier(sub)
	}
}

// NewCompositeResolver tries resolvers in order, returning the first non-empty result.
func NewCompositeResolver(resolvers ...Resolver) Resolver {
	return func(r *http.Request) (string, error) {
		var errs []error
		for _, resolve := range resolvers {
			id, err := resolve(r)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if id != "" {
				return id, nil
			}
		}
		if len(errs) > 0 {
			return "", errors.Join(errs...)
		}
		return "", nil
	}
}
