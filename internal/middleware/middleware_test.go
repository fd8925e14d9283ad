package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hr-attendance-api/internal/models"
	appErrors "github.com/noah-isme/hr-attendance-api/pkg/errors"
)

type stubAuthenticator struct {
	principal *models.Principal
	err       error
	seen      string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, bearer string) (*models.Principal, error) {
	s.seen = bearer
	return s.principal, s.err
}

type observation struct {
	method string
	path   string
	status int
}

type stubObserver struct {
	seen []observation
}

func (s *stubObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	s.seen = append(s.seen, observation{method: method, path: path, status: status})
}

func init() {
	gin.SetMode(gin.TestMode)
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken("Bearer"))
	assert.Equal(t, "", BearerToken(""))
}

func TestBearerStoresPrincipal(t *testing.T) {
	auth := &stubAuthenticator{principal: &models.Principal{User: &models.User{ID: "u1"}}}
	r := gin.New()
	r.GET("/me", Bearer(auth), func(c *gin.Context) {
		c.String(http.StatusOK, PrincipalFrom(c).User.ID)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer tkn")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())
	assert.Equal(t, "tkn", auth.seen)
}

func TestBearerRejects(t *testing.T) {
	cases := []struct {
		name   string
		header string
		err    error
		code   string
	}{
		{name: "missing header", header: "", code: appErrors.ErrUnauthenticated.Code},
		{name: "wrong scheme", header: "Basic xyz", code: appErrors.ErrUnauthenticated.Code},
		{name: "expired", header: "Bearer old", err: appErrors.ErrTokenExpired, code: appErrors.ErrTokenExpired.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/me", Bearer(&stubAuthenticator{err: tc.err}), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tc.code, errorCode(t, w))
		})
	}
}

func TestRequireAbility(t *testing.T) {
	newRouter := func(abilities ...string) *gin.Engine {
		auth := &stubAuthenticator{principal: &models.Principal{
			User:  &models.User{ID: "u1"},
			Token: &models.AccessToken{Abilities: abilities},
		}}
		r := gin.New()
		r.POST("/pw", Bearer(auth), RequireAbility(models.AbilityChangePassword), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
		return r
	}
	do := func(r *gin.Engine) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/pw", nil)
		req.Header.Set("Authorization", "Bearer t")
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusNoContent, do(newRouter(models.AbilityAll)).Code)
	assert.Equal(t, http.StatusNoContent, do(newRouter(models.AbilityChangePassword)).Code)

	w := do(newRouter("attendance:read"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, w))
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	observer := &stubObserver{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Len(t, observer.seen, 2)
	assert.Equal(t, observation{method: http.MethodGet, path: "/items/:id", status: http.StatusAccepted}, observer.seen[0])
	assert.Equal(t, "unmatched", observer.seen[1].path)
	assert.Equal(t, http.StatusNotFound, observer.seen[1].status)
}

func TestResponseMeta(t *testing.T) {
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		c.JSON(http.StatusOK, ResponseMeta(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
	assert.NotContains(t, meta, "started_at")
}
