/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-06-15 11:30:55
 * @LastEditTime: 2026-04-12 14:02:51
 * @LastEditors: 安知鱼
 */
// anheyu-appdist/internal/infra/router/router.go
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/anzhiyu-c/anheyu-appdist/internal/app/metrics"
	"github.com/anzhiyu-c/anheyu-appdist/internal/app/middleware"
	app_handler "github.com/anzhiyu-c/anheyu-appdist/pkg/handler/app"
	build_handler "github.com/anzhiyu-c/anheyu-appdist/pkg/handler/build"
	review_handler "github.com/anzhiyu-c/anheyu-appdist/pkg/handler/review"
	setting_handler "github.com/anzhiyu-c/anheyu-appdist/pkg/handler/setting"
	user_handler "github.com/anzhiyu-c/anheyu-appdist/pkg/handler/user"
	version_handler "github.com/anzhiyu-c/anheyu-appdist/pkg/handler/version"
)

// NoCacheMiddleware 全局反缓存中间件，确保所有API响应都不会被CDN缓存
func NoCacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate, private, max-age=0")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Next()
	}
}

// Router 封装了应用的所有路由和其依赖的处理器。
type Router struct {
	buildHandler   *build_handler.Handler
	appHandler     *app_handler.Handler
	settingHandler *setting_handler.SettingHandler
	reviewHandler  *review_handler.Handler
	userHandler    *user_handler.UserHandler
	versionHandler *version_handler.Handler
	mw             *middleware.Middleware
}

// NewRouter 是 Router 的构造函数，通过依赖注入接收所有处理器。
func NewRouter(
	buildHandler *build_handler.Handler,
	appHandler *app_handler.Handler,
	settingHandler *setting_handler.SettingHandler,
	reviewHandler *review_handler.Handler,
	userHandler *user_handler.UserHandler,
	versionHandler *version_handler.Handler,
	mw *middleware.Middleware,
) *Router {
	return &Router{
		buildHandler:   buildHandler,
		appHandler:     appHandler,
		settingHandler: settingHandler,
		reviewHandler:  reviewHandler,
		userHandler:    userHandler,
		versionHandler: versionHandler,
		mw:             mw,
	}
}

// Setup 将所有路由注册到 Gin 引擎。
// 这是在 main.go 中将被调用的唯一入口点。
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(metrics.GinMiddleware())
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	// 旧版客户端使用的根路径接口
	r.registerLegacyRoutes(engine)
	// 设备安装入口需要被缓存，不在 /api 下
	r.registerInstallRoutes(engine)

	apiGroup := engine.Group("/api")
	apiGroup.Use(NoCacheMiddleware())

	r.registerBuildRoutes(apiGroup)
	r.registerAppRoutes(apiGroup)
	r.registerSettingRoutes(apiGroup)
	r.registerReviewRoutes(apiGroup)
	r.registerUserRoutes(apiGroup)
	r.registerVersionRoutes(apiGroup)
}

func (r *Router) registerLegacyRoutes(engine *gin.Engine) {
	engine.POST("/upload", r.mw.UploadRateLimit(), r.mw.UploadAuth(), r.buildHandler.UploadPlain)
	// 已废弃，保留给旧脚本
	engine.DELETE("/delete/:upload_id", r.mw.UploadAuth(), r.buildHandler.Delete)
}

func (r *Router) registerInstallRoutes(engine *gin.Engine) {
	install := engine.Group("/get")
	{
		install.GET("/:upload_id", r.buildHandler.Install)
		install.GET("/:upload_id/:file", r.buildHandler.InstallFile)
	}
}

func (r *Router) registerBuildRoutes(api *gin.RouterGroup) {
	api.POST("/upload", r.mw.UploadRateLimit(), r.mw.UploadAuth(), r.buildHandler.UploadJSON)
	api.DELETE("/delete/:upload_id", r.mw.UploadAuth(), r.buildHandler.Delete)

	bundle := api.Group("/bundle/:bundle_id")
	{
		bundle.GET("/latest_upload", r.buildHandler.LatestUpload)
		bundle.GET("/builds", r.buildHandler.ListBuilds)
	}

	uploads := api.Group("/uploads")
	{
		uploads.GET("/:upload_id", r.buildHandler.GetUpload)
		uploads.GET("/:upload_id/:file", r.buildHandler.Download)
	}
}

func (r *Router) registerAppRoutes(api *gin.RouterGroup) {
	api.GET("/apps", r.appHandler.ListApps)

	appsAdmin := api.Group("/apps").Use(r.mw.AdminAuth())
	{
		appsAdmin.POST("", r.appHandler.CreateApp)
		appsAdmin.PUT("/:bundle_id", r.appHandler.UpdateApp)
	}
}

func (r *Router) registerSettingRoutes(api *gin.RouterGroup) {
	settingsAdmin := api.Group("/settings").Use(r.mw.AdminAuth())
	{
		settingsAdmin.GET("/duplicate-policy", r.settingHandler.GetDuplicatePolicy)
		settingsAdmin.PUT("/duplicate-policy", r.settingHandler.UpdateDuplicatePolicy)
	}
}

func (r *Router) registerReviewRoutes(api *gin.RouterGroup) {
	reviews := api.Group("/reviews")
	{
		reviews.GET("/app/:bundle_id", r.reviewHandler.ListByApp)
		reviews.POST("", middleware.CustomRateLimit(10, 5), r.reviewHandler.Create)
		reviews.POST("/:id/reply", r.mw.AdminAuth(), r.reviewHandler.Reply)
	}
}

func (r *Router) registerUserRoutes(api *gin.RouterGroup) {
	users := api.Group("/users").Use(r.mw.AdminAuth())
	{
		users.GET("", r.userHandler.ListUsers)
		users.POST("", r.userHandler.CreateUser)
		users.GET("/me", r.userHandler.Me)
		users.PUT("/:username", r.userHandler.UpdateUser)
		users.DELETE("/:username", r.userHandler.DeleteUser)
		users.PUT("/:username/role", r.userHandler.ChangeRole)
	}
}

func (r *Router) registerVersionRoutes(api *gin.RouterGroup) {
	api.GET("/version", r.versionHandler.GetVersion)
	api.GET("/version/string", r.versionHandler.GetVersionString)
}
