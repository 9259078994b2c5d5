/*
 * @Description: 同一 bundle 的上传串行化
 * @Author: 安知鱼
 * @Date: 2026-03-09 20:14:05
 * @LastEditTime: 2026-04-09 11:37:22
 * @LastEditors: 安知鱼
 */
package build

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
)

// Locker 按 bundle_id 加锁，返回的 unlock 必须被调用
type Locker interface {
	Lock(ctx context.Context, bundleID string) (unlock func(), err error)
}

// NewLocker 按配置创建锁。redis 模式下客户端为空时降级为进程内锁。
func NewLocker(mode constant.SerializeMode, rdb *redis.Client) (Locker, error) {
	switch mode {
	case constant.SerializeNone:
		return noopLocker{}, nil
	case constant.SerializeLocal, "":
		return newLocalLocker(), nil
	case constant.SerializeRedis:
		if rdb == nil {
			logrus.Warn("Upload.Serialize=redis 但 Redis 不可用，降级为进程内锁")
			return newLocalLocker(), nil
		}
		return newRedisLocker(rdb), nil
	}
	return nil, fmt.Errorf("%w: 未知的 Upload.Serialize 取值 %q", constant.ErrBadRequest, mode)
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

// localLocker 进程内按 key 的互斥锁，引用计数归零后回收
type localLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

func newLocalLocker() *localLocker {
	return &localLocker{locks: make(map[string]*lockEntry)}
}

func (l *localLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(key, e)
		})
	}, nil
}

func (l *localLocker) release(key string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

const (
	redisLockPrefix = "appdist:lock:bundle:"
	redisLockTTL    = 2 * time.Minute
	redisLockRetry  = 100 * time.Millisecond
)

// 只删除自己持有的锁
var redisUnlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// redisLocker 基于 SET NX PX 的分布式锁，多实例部署时使用
type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

func newRedisLocker(client *redis.Client) *redisLocker {
	return &redisLocker{client: client, ttl: redisLockTTL, retry: redisLockRetry}
}

func (l *redisLocker) Lock(ctx context.Context, bundleID string) (func(), error) {
	key := redisLockPrefix + bundleID
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("获取 bundle 锁 %s 失败: %w", bundleID, err)
		}
		if ok {
			break
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// 请求的 ctx 可能已取消，释放锁使用独立的超时
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := redisUnlockScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				logrus.WithField("bundle_id", bundleID).Warnf("释放 bundle 锁失败: %v", err)
			}
		})
	}, nil
}
