/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-10-17 10:35:28
 * @LastEditTime: 2026-04-12 15:48:06
 * @LastEditors: 安知鱼
 */
// anheyu-appdist/cmd/server/app.go
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/anzhiyu-c/anheyu-appdist/internal/app/metrics"
	"github.com/anzhiyu-c/anheyu-appdist/internal/app/middleware"
	"github.com/anzhiyu-c/anheyu-appdist/internal/app/task"
	"github.com/anzhiyu-c/anheyu-appdist/internal/infra/persistence/database"
	"github.com/anzhiyu-c/anheyu-appdist/internal/infra/persistence/sqlstore"
	"github.com/anzhiyu-c/anheyu-appdist/internal/infra/router"
	"github.com/anzhiyu-c/anheyu-appdist/internal/infra/storage"
	"github.com/anzhiyu-c/anheyu-appdist/internal/pkg/version"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/config"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	app_handler "github.com/anzhiyu-c/anheyu-appdist/pkg/handler/app"
	build_handler "github.com/anzhiyu-c/anheyu-appdist/pkg/handler/build"
	review_handler "github.com/anzhiyu-c/anheyu-appdist/pkg/handler/review"
	setting_handler "github.com/anzhiyu-c/anheyu-appdist/pkg/handler/setting"
	user_handler "github.com/anzhiyu-c/anheyu-appdist/pkg/handler/user"
	version_handler "github.com/anzhiyu-c/anheyu-appdist/pkg/handler/version"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/blob"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/build"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/review"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/setting"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/user"
)

// shutdownTimeout 收到退出信号后等待请求结束的时间
const shutdownTimeout = 30 * time.Second

// App 持有运行期需要的全部组件
type App struct {
	cfg        *config.Config
	engine     *gin.Engine
	scheduler  *task.Scheduler
	sqlDB      *sql.DB
	redis      *redis.Client
	buildSvc   build.Service
	settingSvc setting.SettingService
	userSvc    user.UserService
	appVersion string
}

// PrintBanner 打印启动信息
func (a *App) PrintBanner() {
	logrus.Info("--------------------------------------------------------")
	logrus.Infof(" App Distribution Server - Version: %s", version.GetVersionString())
	logrus.Info("--------------------------------------------------------")
}

// setupLogging 根据 System.Debug 设置日志级别与 gin 模式
func setupLogging(cfg *config.Config) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(os.Stdout)
	if cfg.GetBool(config.KeyServerDebug) {
		logrus.SetLevel(logrus.DebugLevel)
		gin.SetMode(gin.DebugMode)
		logrus.Info("运行模式: Debug")
		return
	}
	logrus.SetLevel(logrus.InfoLevel)
	gin.SetMode(gin.ReleaseMode)
}

// openMetadataStore 建立元数据库连接并执行迁移。
// 连接失败不会阻止启动，服务以"元数据库不可用"的方式运行，全部读写走文件存储。
func openMetadataStore(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	d, err := database.DialectOf(cfg.GetString(config.KeyDBType))
	if err != nil {
		return nil, err
	}
	if d == "" {
		return nil, nil
	}
	sqlDB, err := database.NewSQLDB(ctx, cfg)
	if err != nil {
		logrus.Errorf("元数据库连接失败，将仅使用文件存储: %v", err)
		return nil, nil
	}
	if err := database.NewMigrationService(sqlDB, d).RunMigrations(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	return sqlDB, nil
}

// NewApp 是应用的构造函数，它执行所有的初始化和依赖注入工作
func NewApp(configPath string) (*App, func(), error) {
	ctx := context.Background()
	appVersion := version.GetVersion()

	// --- Phase 1: 加载外部配置 ---
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}
	setupLogging(cfg)
	if cfg.UsesDefaultAuthToken() {
		logrus.Warn("安全警告: 正在使用默认的上传令牌，请通过 Upload.AuthToken 或 UPLOADS_SECRET_AUTH_TOKEN 修改")
	}

	// --- Phase 2: 初始化基础设施 ---
	provider, err := storage.NewProviderFromURL(ctx, storage.Options{
		URL:             cfg.GetString(config.KeyStorageURL),
		AccessKeyID:     cfg.GetString(config.KeyAWSAccessKeyID),
		SecretAccessKey: cfg.GetString(config.KeyAWSSecretAccessKey),
		EndpointURL:     cfg.GetString(config.KeyAWSEndpointURL),
		Region:          cfg.GetString(config.KeyAWSRegion),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("初始化文件存储失败: %w", err)
	}
	logrus.Infof("文件存储后端: %s", provider.Type())

	sqlDB, err := openMetadataStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	drv, err := database.NewDriver(sqlDB, cfg)
	if err != nil {
		if sqlDB != nil {
			sqlDB.Close()
		}
		return nil, nil, err
	}

	redisClient, err := database.NewRedisClient(ctx, cfg)
	if err != nil {
		if sqlDB != nil {
			sqlDB.Close()
		}
		return nil, nil, fmt.Errorf("redis 初始化失败: %w", err)
	}

	cleanup := func() {
		if sqlDB != nil {
			logrus.Info("执行清理操作：关闭数据库连接...")
			sqlDB.Close()
		}
		if redisClient != nil {
			logrus.Info("关闭 Redis 连接...")
			redisClient.Close()
		}
	}

	// --- Phase 3: 初始化数据仓库层 ---
	buildRepo := sqlstore.NewBuildRepository(drv)
	settingRepo := sqlstore.NewSettingRepository(drv)
	userRepo := sqlstore.NewUserRepository(drv)
	reviewRepo := sqlstore.NewReviewRepository(drv)
	txManager := sqlstore.NewTransactionManager(drv)

	// --- Phase 4: 初始化业务逻辑层 ---
	locker, err := build.NewLocker(constant.SerializeMode(cfg.GetString(config.KeyUploadSerialize)), redisClient)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	buildSvc := build.NewService(buildRepo, blob.NewStore(provider),
		build.WithLocker(locker),
		build.WithObserver(metrics.Recorder{}),
	)
	settingSvc := setting.NewSettingService(settingRepo)
	userSvc := user.NewUserService(userRepo, txManager)
	reviewSvc := review.NewService(reviewRepo)

	// 元数据库不可用时跳过初始化，不影响启动
	if err := settingSvc.EnsureDefaults(ctx); err != nil && !errors.Is(err, constant.ErrStoreUnavailable) {
		cleanup()
		return nil, nil, fmt.Errorf("初始化默认配置失败: %w", err)
	}
	if err := userSvc.EnsureDefaultOwner(ctx); err != nil && !errors.Is(err, constant.ErrStoreUnavailable) {
		cleanup()
		return nil, nil, fmt.Errorf("初始化默认用户失败: %w", err)
	}

	// --- Phase 5: 初始化后台任务 ---
	scheduler := task.NewScheduler()
	if err := scheduler.Register(cfg.GetString(config.KeyReconcileCron), task.NewReconcileJob(buildSvc, 10*time.Minute)); err != nil {
		cleanup()
		return nil, nil, err
	}

	// --- Phase 6: 初始化 HTTP 层 ---
	mw := middleware.NewMiddleware(cfg.GetString(config.KeyUploadAuthToken), userSvc)
	appRouter := router.NewRouter(
		build_handler.NewHandler(buildSvc, settingSvc, cfg.GetString(config.KeyServerBaseURL), cfg.GetInt(config.KeyUploadMaxSizeMB)),
		app_handler.NewHandler(buildSvc),
		setting_handler.NewSettingHandler(settingSvc),
		review_handler.NewHandler(reviewSvc),
		user_handler.NewUserHandler(userSvc),
		version_handler.NewHandler(),
		mw,
	)

	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())
	if err := engine.SetTrustedProxies([]string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("设置信任代理失败: %w", err)
	}
	engine.Use(middleware.Cors(cfg.GetStringList(config.KeyServerCorsOrigins)))
	engine.MaxMultipartMemory = 32 << 20
	appRouter.Setup(engine)

	return &App{
		cfg:        cfg,
		engine:     engine,
		scheduler:  scheduler,
		sqlDB:      sqlDB,
		redis:      redisClient,
		buildSvc:   buildSvc,
		settingSvc: settingSvc,
		userSvc:    userSvc,
		appVersion: appVersion,
	}, cleanup, nil
}

func (a *App) Config() *config.Config {
	return a.cfg
}

func (a *App) Engine() *gin.Engine {
	return a.engine
}

func (a *App) BuildService() build.Service {
	return a.buildSvc
}

func (a *App) Version() string {
	return a.appVersion
}

// ReconcileOnce 执行一次对账后返回，供 --reconcile-once 使用
func (a *App) ReconcileOnce(ctx context.Context) error {
	report, err := a.buildSvc.Reconcile(ctx)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"mirrored": report.Mirrored,
		"dropped":  report.Dropped,
		"skipped":  report.Skipped,
	}).Info("对账完成")
	return nil
}

// Run 启动定时任务与 HTTP 服务，收到 SIGINT / SIGTERM 后优雅退出
func (a *App) Run() error {
	a.scheduler.Start()

	port := a.cfg.GetString(config.KeyServerPort)
	if port == "" {
		port = "8091"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logrus.Infof("应用程序启动成功，正在监听端口: %s", port)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP 服务异常退出: %w", err)
	case sig := <-shutdown:
		logrus.Infof("收到退出信号 %s，正在关闭服务...", sig)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logrus.Errorf("优雅关闭失败: %v", err)
			return srv.Close()
		}
		logrus.Info("HTTP 服务已关闭")
	}
	return nil
}

func (a *App) Stop() {
	if a.scheduler != nil {
		a.scheduler.Stop()
		logrus.Info("任务调度器已停止。")
	}
}
