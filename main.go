/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-06-28 00:21:55
 * @LastEditTime: 2026-04-12 15:50:21
 * @LastEditors: 安知鱼
 */
package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/anzhiyu-c/anheyu-appdist/cmd/server"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/config"
)

// @title           App Distribution API
// @version         1.0
// @description     iOS / Android 安装包分发服务接口文档

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8091
// @BasePath  /

// @securityDefinitions.apikey AuthToken
// @in header
// @name X-Auth-Token

// @securityDefinitions.basic BasicAuth
func main() {
	configPath := pflag.String("config", config.DefaultConfigPath, "配置文件路径")
	reconcileOnce := pflag.Bool("reconcile-once", false, "执行一次文件存储与元数据库的对账后退出")
	pflag.Parse()

	app, cleanup, err := server.NewApp(*configPath)
	if err != nil {
		logrus.Fatalf("应用初始化失败: %v", err)
	}
	defer cleanup()

	if *reconcileOnce {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if err := app.ReconcileOnce(ctx); err != nil {
			cleanup()
			logrus.Fatalf("对账失败: %v", err)
		}
		return
	}

	defer app.Stop()
	app.PrintBanner()

	if err := app.Run(); err != nil {
		logrus.Errorf("应用运行失败: %v", err)
	}
}
