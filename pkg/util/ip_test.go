package util

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestGetRealClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "10.0.0.2:80", "1.2.3.4"},
		{"forwarded with port", map[string]string{"X-Forwarded-For": "1.2.3.4:5555"}, "10.0.0.2:80", "1.2.3.4"},
		{"invalid forwarded falls through", map[string]string{"X-Forwarded-For": "unknown", "X-Real-IP": "5.6.7.8"}, "10.0.0.2:80", "5.6.7.8"},
		{"cloudflare", map[string]string{"CF-Connecting-IP": "2001:db8::1"}, "10.0.0.2:80", "2001:db8::1"},
		{"remote addr", nil, "9.9.9.9:1234", "9.9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/", nil)
			c.Request.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetRealClientIP(c))
		})
	}
}
