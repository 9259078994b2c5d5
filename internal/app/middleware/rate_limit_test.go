package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestClientLimiters_BurstAndRefill(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newClientLimiters(60, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	// 其他客户端不受影响
	assert.True(t, l.allow("10.0.0.2"))

	now = now.Add(time.Second)
	assert.True(t, l.allow("10.0.0.1"))
}

func TestClientLimiters_SweepsIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newClientLimiters(60, 2)
	l.now = func() time.Time { return now }

	l.allow("10.0.0.1")
	l.allow("10.0.0.2")
	assert.Equal(t, 2, l.size())

	now = now.Add(clientIdleTTL + time.Minute)
	l.allow("10.0.0.3")
	assert.Equal(t, 1, l.size())
}

func TestUploadRateLimit_PerMiddleware(t *testing.T) {
	newEngine := func(m *Middleware) *gin.Engine {
		r := gin.New()
		r.POST("/upload", m.UploadRateLimit(), func(c *gin.Context) { c.Status(http.StatusOK) })
		r.POST("/api/upload", m.UploadRateLimit(), func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}
	post := func(r *gin.Engine, path string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = "192.0.2.7:5555"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	first := newEngine(NewMiddleware("tok", nil))
	for i := 0; i < uploadBurst; i++ {
		path := "/upload"
		if i%2 == 1 {
			path = "/api/upload"
		}
		assert.Equal(t, http.StatusOK, post(first, path), "request %d", i)
	}
	// 两个上传入口共享同一份配额
	assert.Equal(t, http.StatusTooManyRequests, post(first, "/api/upload"))

	// 新的 Middleware 拥有独立的配额
	second := newEngine(NewMiddleware("tok", nil))
	assert.Equal(t, http.StatusOK, post(second, "/upload"))
}
