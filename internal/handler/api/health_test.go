//go:build unit

package api_test

import (
	"errors"
	"net/http"
	"testing"

	"redemption-guard/internal/handler/api"
	"redemption-guard/internal/handler/middleware"
	"redemption-guard/tests/common/httptest"
	apimock "redemption-guard/tests/mock/api"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type HealthHandlerTestSuite struct {
	suite.Suite
	router     *gin.Engine
	mockCtrl   *gomock.Controller
	mockPinger *apimock.MockPinger
	handler    *api.HealthHandler
}

func (s *HealthHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	s.router.Use(middleware.ErrorHandler())

	s.mockCtrl = gomock.NewController(s.T())
	s.mockPinger = apimock.NewMockPinger(s.mockCtrl)
	s.handler = api.NewHealthHandler(s.mockPinger)

	s.router.GET("/healthz", s.handler.Check)
}

func (s *HealthHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestHealthHandlerSuite(t *testing.T) {
	suite.Run(t, new(HealthHandlerTestSuite))
}

func (s *HealthHandlerTestSuite) TestCheck() {
	tests := []struct {
		name         string
		pingErr      error
		expectCode   int
		expectInBody string
	}{
		{
			name:         "database reachable",
			expectCode:   http.StatusOK,
			expectInBody: `"status":"ok"`,
		},
		{
			name:         "database unreachable",
			pingErr:      errors.New("connection refused"),
			expectCode:   http.StatusServiceUnavailable,
			expectInBody: "Database unavailable",
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			s.mockPinger.EXPECT().Ping(gomock.Any()).Return(tc.pingErr)

			w := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/healthz", nil, nil)

			s.Equal(tc.expectCode, w.Code)
			s.Contains(w.Body.String(), tc.expectInBody)
		})
	}
}
