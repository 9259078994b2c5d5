// internal/app/middleware/auth.go
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/response"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/user"
)

// AuthTokenHeader 上传接口使用的令牌请求头
const AuthTokenHeader = "X-Auth-Token"

// CurrentUserKey 管理员通过 Basic 认证登录后写入 gin.Context 的键
const CurrentUserKey = "current_user"

type Middleware struct {
	authToken     string
	userSvc       user.UserService
	uploadLimiter *clientLimiters
}

func NewMiddleware(authToken string, userSvc user.UserService) *Middleware {
	return &Middleware{
		authToken:     authToken,
		userSvc:       userSvc,
		uploadLimiter: newClientLimiters(uploadPerMinute, uploadBurst),
	}
}

func (m *Middleware) tokenValid(c *gin.Context) bool {
	token := c.GetHeader(AuthTokenHeader)
	return token != "" && m.authToken != "" &&
		subtle.ConstantTimeCompare([]byte(token), []byte(m.authToken)) == 1
}

// UploadAuth 要求请求携带正确的 X-Auth-Token
func (m *Middleware) UploadAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.tokenValid(c) {
			response.Fail(c, http.StatusUnauthorized, "无效的上传令牌")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminAuth 接受 X-Auth-Token，或 Basic 认证且角色为 owner / admin 的用户
func (m *Middleware) AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.tokenValid(c) {
			c.Next()
			return
		}

		username, password, ok := c.Request.BasicAuth()
		if !ok || m.userSvc == nil {
			response.Fail(c, http.StatusUnauthorized, "请求未携带凭证，无权限访问")
			c.Abort()
			return
		}
		u, err := m.userSvc.Authenticate(c.Request.Context(), username, password)
		if err != nil {
			logrus.WithField("username", username).Debugf("[AdminAuth] 认证失败: %v", err)
			response.FromError(c, err, "认证失败")
			c.Abort()
			return
		}
		if !u.IsAdmin() {
			response.Fail(c, http.StatusForbidden, "需要管理员权限")
			c.Abort()
			return
		}
		c.Set(CurrentUserKey, u)
		c.Next()
	}
}

// CurrentUser 返回 AdminAuth 认证的用户，令牌认证时为 nil
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(CurrentUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*model.User)
	return u
}
