package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/hr-attendance-api/internal/handler"
	"github.com/noah-isme/hr-attendance-api/internal/models"
	appErrors "github.com/noah-isme/hr-attendance-api/pkg/errors"
)

type rejectAll struct{}

func (rejectAll) Authenticate(context.Context, string) (*models.Principal, error) {
	return nil, appErrors.ErrInvalidToken
}

func TestRegisterProtectsSessionRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	Register(r, "/api/v1", Handlers{
		Auth:          handler.NewAuthHandler(nil, ""),
		Metrics:       handler.NewMetricsHandler(nil, nil, nil),
		Authenticator: rejectAll{},
	})

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/auth/logout"},
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodPost, "/api/v1/auth/change-password"},
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(route.method, route.path, nil)
		req.Header.Set("Authorization", "Bearer nope")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
