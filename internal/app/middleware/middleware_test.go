package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/user"
)

type stubUserService struct {
	user.UserService
	users map[string]*model.User
}

func (s *stubUserService) EnsureDefaultOwner(context.Context) error { return nil }

func (s *stubUserService) Authenticate(_ context.Context, username, password string) (*model.User, error) {
	u, ok := s.users[username]
	if !ok || password != "pw" {
		return nil, fmt.Errorf("%w: 用户名或密码错误", constant.ErrUnauthorized)
	}
	return u, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthEngine() *gin.Engine {
	users := &stubUserService{users: map[string]*model.User{
		"boss":  {ID: 1, Username: "boss", Role: constant.RoleOwner},
		"guest": {ID: 2, Username: "guest", Role: constant.RoleUser},
	}}
	m := NewMiddleware("tok", users)

	r := gin.New()
	r.POST("/upload", m.UploadAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/admin", m.AdminAuth(), func(c *gin.Context) {
		if u := CurrentUser(c); u != nil {
			c.String(http.StatusOK, u.Username)
			return
		}
		c.String(http.StatusOK, "token")
	})
	return r
}

func TestUploadAuth(t *testing.T) {
	r := newAuthEngine()
	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "nope", http.StatusUnauthorized},
		{"ok", "tok", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/upload", nil)
			if tc.token != "" {
				req.Header.Set(AuthTokenHeader, tc.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestUploadAuth_EmptyConfiguredToken(t *testing.T) {
	m := NewMiddleware("", nil)
	r := gin.New()
	r.POST("/upload", m.UploadAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	req.Header.Set(AuthTokenHeader, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuth(t *testing.T) {
	r := newAuthEngine()
	cases := []struct {
		name     string
		setup    func(*http.Request)
		want     int
		wantBody string
	}{
		{"no credentials", func(*http.Request) {}, http.StatusUnauthorized, ""},
		{"token", func(req *http.Request) { req.Header.Set(AuthTokenHeader, "tok") }, http.StatusOK, "token"},
		{"owner basic", func(req *http.Request) { req.SetBasicAuth("boss", "pw") }, http.StatusOK, "boss"},
		{"bad password", func(req *http.Request) { req.SetBasicAuth("boss", "x") }, http.StatusUnauthorized, ""},
		{"plain user", func(req *http.Request) { req.SetBasicAuth("guest", "pw") }, http.StatusForbidden, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			tc.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
			if tc.wantBody != "" {
				assert.Equal(t, tc.wantBody, w.Body.String())
			}
		})
	}
}

func newCorsEngine(allowed []string) *gin.Engine {
	r := gin.New()
	r.Use(Cors(allowed))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/api/apps", ok)
	r.GET("/metrics", ok)
	return r
}

func TestCors_Whitelist(t *testing.T) {
	r := newCorsEngine([]string{"https://admin.example/"})

	req := httptest.NewRequest(http.MethodGet, "/api/apps", nil)
	req.Header.Set("Origin", "https://admin.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://admin.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Data-Source")
	assert.Equal(t, "Origin", w.Header().Get("Vary"))

	req = httptest.NewRequest(http.MethodGet, "/api/apps", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCors_WildcardAndPreflight(t *testing.T) {
	r := newCorsEngine([]string{"*"})

	req := httptest.NewRequest(http.MethodOptions, "/api/apps", nil)
	req.Header.Set("Origin", "https://any.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://any.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCors_SkipsMetrics(t *testing.T) {
	r := newCorsEngine(nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Origin", "https://any.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
