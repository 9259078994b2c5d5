// pkg/util/ip.go
package util

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// clientIPHeaders 按优先级排列的代理 / CDN 头部，值可能是逗号分隔的多个 IP，取第一个
var clientIPHeaders = []string{
	"X-Forwarded-For",
	"X-Real-IP",
	"CF-Connecting-IP",
	"True-Client-IP",
	"X-Client-IP",
}

// GetRealClientIP 获取客户端真实IP地址，头部中都没有合法 IP 时退回到连接的远端地址
func GetRealClientIP(c *gin.Context) string {
	for _, header := range clientIPHeaders {
		v := c.GetHeader(header)
		if v == "" {
			continue
		}
		first := strings.TrimSpace(strings.Split(v, ",")[0])
		if host, _, err := net.SplitHostPort(first); err == nil {
			first = host
		}
		if IsValidIP(first) {
			return first
		}
	}

	if host, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
		return host
	}
	return c.Request.RemoteAddr
}

// IsValidIP 验证IP地址是否有效
func IsValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}
