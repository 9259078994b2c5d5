/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-06-15 11:30:55
 * @LastEditTime: 2026-03-12 09:40:31
 * @LastEditors: 安知鱼
 */
package database

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/config"
)

// NewRedisClient 接收配置并返回 Redis 客户端或 nil（用于自动降级）
// 如果 Redis 未配置或连接失败，返回 nil 而不是 error，让上层决定是否降级到进程内锁
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	redisAddr := cfg.GetString(config.KeyRedisAddr)
	redisPassword := cfg.GetString(config.KeyRedisPassword)

	// 如果 Redis 地址未配置，返回 nil（这不是错误，只是没有配置）
	if redisAddr == "" {
		logrus.Warn("Redis 地址未配置，将使用进程内锁")
		return nil, nil
	}

	redisDB, err := strconv.Atoi(cfg.GetString(config.KeyRedisDB))
	if err != nil {
		logrus.Warnf("无效的 Redis.DB 值 '%s': %v，将使用进程内锁", cfg.GetString(config.KeyRedisDB), err)
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		logrus.Warnf("连接 Redis (%s, DB %d) 失败: %v，将使用进程内锁", redisAddr, redisDB, err)
		rdb.Close()
		return nil, nil
	}

	logrus.Infof("成功连接到 Redis (%s, DB %d)", redisAddr, redisDB)
	return rdb, nil
}
