package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anoa.com/alumninetwork/internal/entity"
	userRepo "anoa.com/alumninetwork/internal/modules/user/repository"
	"anoa.com/alumninetwork/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const secret = "test-secret"

func sign(t *testing.T, subject, key string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	s, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func newRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	m := NewAuthMiddleware(userRepo.NewUserRepository(db), secret)

	r := gin.New()
	r.GET("/me", m.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	})
	r.GET("/admin", m.RequireAuth(), m.RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	db := testutil.NewDB(t)
	r := newRouter(db)
	user := testutil.CreateUser(t, db, "alice", entity.RoleStudent, "pw-123456")
	valid := sign(t, user.ID.String(), secret, time.Now().Add(time.Hour))

	w := get(r, "/me", valid)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.ID.String(), w.Body.String())

	w = get(r, "/me?token="+valid, "")
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", sign(t, user.ID.String(), "other", time.Now().Add(time.Hour))).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", sign(t, user.ID.String(), secret, time.Now().Add(-time.Minute))).Code)
}

func TestRequireAdmin(t *testing.T) {
	db := testutil.NewDB(t)
	r := newRouter(db)
	student := testutil.CreateUser(t, db, "alice", entity.RoleStudent, "pw-123456")
	admin := testutil.CreateUser(t, db, "root", entity.RoleAdmin, "pw-123456")
	expires := time.Now().Add(time.Hour)

	assert.Equal(t, http.StatusForbidden, get(r, "/admin", sign(t, student.ID.String(), secret, expires)).Code)
	assert.Equal(t, http.StatusNoContent, get(r, "/admin", sign(t, admin.ID.String(), secret, expires)).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/admin", sign(t, "not-a-uuid", secret, expires)).Code)
}
