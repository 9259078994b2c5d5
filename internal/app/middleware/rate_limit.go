/*
 * @Description: 频率限制中间件
 * @Author: 安知鱼
 * @Date: 2025-11-08 00:00:00
 * @LastEditTime: 2026-10-19 11:20:05
 * @LastEditors: 安知鱼
 */
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/response"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/util"
)

const (
	// 每个IP每分钟最多30次上传，突发允许10次
	uploadPerMinute = 30
	uploadBurst     = 10

	// 超过该时长未访问的客户端会在下一次清扫时移除
	clientIdleTTL = 10 * time.Minute
)

// clientLimiters 按客户端 IP 维护令牌桶。
// 过期条目在访问时顺带清扫，不需要后台协程。
type clientLimiters struct {
	mu        sync.Mutex
	clients   map[string]*clientEntry
	every     rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiters(perMinute, burst int) *clientLimiters {
	return &clientLimiters{
		clients: make(map[string]*clientEntry),
		every:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
		now:     time.Now,
	}
}

// allow 消耗 ip 对应令牌桶中的一个令牌
func (l *clientLimiters) allow(ip string) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= clientIdleTTL/2 {
		l.sweep(now)
	}
	e, ok := l.clients[ip]
	if !ok {
		e = &clientEntry{limiter: rate.NewLimiter(l.every, l.burst)}
		l.clients[ip] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// sweep 需要持有 mu
func (l *clientLimiters) sweep(now time.Time) {
	for ip, e := range l.clients {
		if now.Sub(e.lastSeen) > clientIdleTTL {
			delete(l.clients, ip)
		}
	}
	l.lastSweep = now
}

func (l *clientLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *clientLimiters) handler(message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(util.GetRealClientIP(c)) {
			response.Fail(c, http.StatusTooManyRequests, message)
			c.Abort()
			return
		}
		c.Next()
	}
}

// UploadRateLimit 上传接口频率限制，同一个 Middleware 上的上传路由共享配额。
// CI 批量上传时通常远低于该阈值
func (m *Middleware) UploadRateLimit() gin.HandlerFunc {
	return m.uploadLimiter.handler("上传过于频繁，请稍后再试")
}

// CustomRateLimit 创建一个独立配额的频率限制中间件
// requestsPerMinute: 每分钟允许的请求数
// burst: 突发请求数
func CustomRateLimit(requestsPerMinute, burst int) gin.HandlerFunc {
	return newClientLimiters(requestsPerMinute, burst).handler("请求过于频繁，请稍后再试")
}
