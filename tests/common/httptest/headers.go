//go:build unit || e2e

package httptest

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const requestIDHeader = "X-Request-ID"

// AssertRequestID checks that the response echoes a request id and returns
// it. An empty want accepts any generated id.
func AssertRequestID(t *testing.T, w *httptest.ResponseRecorder, want string) string {
	t.Helper()

	got := w.Header().Get(requestIDHeader)
	require.NotEmpty(t, got, "response carries no %s header", requestIDHeader)
	if want != "" {
		require.Equal(t, want, got, "%s mismatch", requestIDHeader)
	}
	return got
}
