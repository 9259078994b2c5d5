package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// 需要跨域头的路由前缀，/metrics 不在其中
var corsPrefixes = []string{"/api/", "/get/", "/upload", "/delete/"}

const (
	corsAllowMethods  = "POST, GET, OPTIONS, PUT, DELETE"
	corsAllowHeaders  = "Authorization, Content-Type, X-Auth-Token, X-Requested-With, Range, Content-Length"
	corsExposeHeaders = "Content-Length, Content-Disposition, X-Data-Source, X-Metadata-Degraded"
)

// Cors 按白名单回显 Origin。allowed 为空或包含 * 时放行任意来源。
func Cors(allowed []string) gin.HandlerFunc {
	allowAll := len(allowed) == 0
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
			continue
		}
		set[strings.TrimRight(o, "/")] = struct{}{}
	}

	return func(c *gin.Context) {
		if !needsCors(c.Request.URL.Path) {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if origin != "" {
			_, ok := set[origin]
			if allowAll || ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Methods", corsAllowMethods)
				c.Header("Access-Control-Allow-Headers", corsAllowHeaders)
				c.Header("Access-Control-Expose-Headers", corsExposeHeaders)
				c.Header("Access-Control-Allow-Credentials", "true")
			}
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func needsCors(path string) bool {
	for _, p := range corsPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
