//go:build e2e

package ops_test

import (
	"net/http"
	"strings"
	"testing"

	"redemption-guard/internal/handler/middleware"
	"redemption-guard/tests/common/httptest"
	"redemption-guard/tests/e2e"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type OpsSuite struct {
	e2e.SharedSuite
}

func TestOpsSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(OpsSuite))
}

func (s *OpsSuite) TestHealth() {
	t := s.T()

	w := httptest.PerformRequest(t, s.Router, http.MethodGet, "/healthz", nil,
		map[string]string{middleware.RequestIDHeader: "req-123"})

	var body map[string]string
	httptest.AssertSuccessResponse(t, w, http.StatusOK, &body)
	require.Equal(t, "ok", body["status"])
	httptest.AssertRequestID(t, w, "req-123")
}

func (s *OpsSuite) TestMetrics() {
	t := s.T()

	w := httptest.PerformRequest(t, s.Router, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "go_goroutines"), "runtime collectors are registered")
}
