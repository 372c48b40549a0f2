package requestid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/requestid"
)

func serve(h http.Handler, header, value string) string {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if value != "" {
		req.Header.Set(header, value)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Header().Get(header)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var fromCtx string
	h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = requestid.FromContext(r.Context())
	}))

	t.Run("generates id when missing", func(t *testing.T) {
		echoed := serve(h, requestid.Header, "")
		_, err := uuid.Parse(echoed)
		require.NoError(t, err)
		assert.Equal(t, echoed, fromCtx)
	})

	t.Run("reuses valid client id", func(t *testing.T) {
		echoed := serve(h, requestid.Header, "req_123-abc")
		assert.Equal(t, "req_123-abc", echoed)
		assert.Equal(t, "req_123-abc", fromCtx)
	})

	t.Run("replaces invalid client id", func(t *testing.T) {
		for _, bad := range []string{"has space", "semi;colon", strings.Repeat("a", 129)} {
			echoed := serve(h, requestid.Header, bad)
			assert.NotEqual(t, bad, echoed)
			_, err := uuid.Parse(echoed)
			assert.NoError(t, err)
		}
	})
}

func TestNewMiddlewareCustomHeader(t *testing.T) {
	t.Parallel()

	h := requestid.NewMiddleware("X-Correlation-ID")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	echoed := serve(h, "X-Correlation-ID", "corr-1")
	assert.Equal(t, "corr-1", echoed)
}

func TestContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, requestid.FromContext(context.Background()))
	assert.Equal(t, "abc", requestid.FromContext(requestid.WithContext(context.Background(), "abc")))
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := requestid.LoggerExtractor()

	_, ok := extract(context.Background())
	assert.False(t, ok)

	attr, ok := extract(requestid.WithContext(context.Background(), "abc"))
	require.True(t, ok)
	assert.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "abc", attr.Value.String())
}
