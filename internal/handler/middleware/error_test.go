//go:build unit

package middleware_test

import (
	"errors"
	"net/http"
	"testing"

	"redemption-guard/internal/handler/httperr"
	"redemption-guard/internal/handler/middleware"
	"redemption-guard/internal/pkg/config"
	"redemption-guard/tests/common/httptest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CustomRecovery())
	r.Use(middleware.LoggingMiddleware(nil, config.LogConfig{Level: "error", TimeZone: "UTC"}))
	r.Use(middleware.ErrorHandler())
	return r
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name        string
		handler     gin.HandlerFunc
		expectCode  int
		expectError string
	}{
		{
			name: "public error keeps its status and message",
			handler: func(c *gin.Context) {
				httperr.AbortWithError(c, http.StatusServiceUnavailable, errors.New("ping failed"), "Database unavailable", nil)
			},
			expectCode:  http.StatusServiceUnavailable,
			expectError: "Database unavailable",
		},
		{
			name: "private error becomes a 500",
			handler: func(c *gin.Context) {
				_ = c.Error(errors.New("boom"))
			},
			expectCode:  http.StatusInternalServerError,
			expectError: "Internal server error",
		},
		{
			name: "panic is recovered",
			handler: func(*gin.Context) {
				panic("boom")
			},
			expectCode:  http.StatusInternalServerError,
			expectError: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter()
			r.GET("/fail", tt.handler)

			w := httptest.PerformRequest(t, r, http.MethodGet, "/fail", nil,
				map[string]string{middleware.RequestIDHeader: "req-42"})

			require.Equal(t, tt.expectCode, w.Code)
			var body httperr.Response
			_ = httptest.DecodeResponseBody(t, w.Body, &body)
			assert.Equal(t, tt.expectError, body.Error.Message)
			assert.Equal(t, "req-42", body.RequestID)
		})
	}
}

func TestLoggingMiddleware_GeneratesRequestID(t *testing.T) {
	r := newRouter()
	r.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, middleware.GetRequestID(c))
	})

	w := httptest.PerformRequest(t, r, http.MethodGet, "/ok", nil, nil)

	id := httptest.AssertRequestID(t, w, "")
	assert.Equal(t, id, w.Body.String())
}
