package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

type stubAuth struct {
	user *models.User
	err  error
	got  string
}

func (s *stubAuth) Authenticate(_ context.Context, raw string) (*models.User, error) {
	s.got = raw
	return s.user, s.err
}

func newRouter(auth Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/me", UserAuth(auth, zap.NewNop()), func(c *gin.Context) {
		id, _ := CurrentUserID(c)
		user, _ := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"id": id.Hex(), "phone": user.Phone})
	})
	return r
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestUserAuthMissingToken(t *testing.T) {
	r := newRouter(&stubAuth{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "No token provided, access denied", body["message"])
}

func TestUserAuthRejectedToken(t *testing.T) {
	auth := &stubAuth{err: apperr.Unauthorized("Token is not valid")}
	r := newRouter(auth)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer abc.def")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token is not valid", decode(t, rec)["message"])
	assert.Equal(t, "abc.def", auth.got)
}

func TestUserAuthStoreFailureIsInternal(t *testing.T) {
	r := newRouter(&stubAuth{err: apperr.Internal("db error", context.DeadlineExceeded)})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode(t, rec)["message"])
}

func TestUserAuthInjectsUser(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), Phone: "9876543210"}
	r := newRouter(&stubAuth{user: user})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer tok")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, user.ID.Hex(), body["id"])
	assert.Equal(t, "9876543210", body["phone"])
}

func TestRequestIDEchoesOrAssigns(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.NewNop()), Metrics())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-123", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestAdminAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	serve := func(auth Authenticator, header string) *httptest.ResponseRecorder {
		r := gin.New()
		r.GET("/admin", UserAuth(auth, zap.NewNop()), AdminAuth(), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	shopper := &models.User{ID: primitive.NewObjectID(), Phone: "9876543210"}
	rec := serve(&stubAuth{user: shopper}, "Bearer tok")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Admin access required", body["message"])

	assert.Equal(t, http.StatusUnauthorized, serve(&stubAuth{user: shopper}, "").Code)

	admin := &models.User{ID: primitive.NewObjectID(), Phone: "9876543211", Role: models.RoleAdmin}
	assert.Equal(t, http.StatusNoContent, serve(&stubAuth{user: admin}, "Bearer tok").Code)
}

func TestRequireRoleWithoutUserAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", RequireRole(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
