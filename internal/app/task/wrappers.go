/*
 * @Description: 提供了用于 cron 任务的健壮的中间件（装饰器）。
 * @Author: 安知鱼
 * @Date: 2025-06-29 22:36:09
 * @LastEditTime: 2026-04-09 22:15:40
 * @LastEditors: 安知鱼
 */
package task

import (
	"reflect"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// JobWrapper 是 cron.JobWrapper 的类型别名，用于简化代码。
type JobWrapper = cron.JobWrapper

// NewLoggingWrapper 创建一个日志装饰器。
// 每次执行都带有唯一的执行ID，便于在日志中追踪。
func NewLoggingWrapper(logger *logrus.Entry) JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			jobLogger := logger.WithFields(logrus.Fields{
				"job_name":     getJobName(j),
				"execution_id": uuid.New().String(),
			})

			startTime := time.Now()
			jobLogger.Info("Job execution started")

			j.Run()

			jobLogger.WithField("duration", time.Since(startTime).String()).Info("Job execution finished")
		})
	}
}

// NewPanicRecoveryWrapper 创建一个 panic 恢复装饰器。
// 任务 panic 时记录错误与堆栈，不会导致整个进程崩溃。
func NewPanicRecoveryWrapper(logger *logrus.Entry) JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			defer func() {
				if r := recover(); r != nil {
					logger.WithFields(logrus.Fields{
						"job_name":    getJobName(j),
						"panic":       r,
						"stack_trace": string(debug.Stack()),
					}).Error("Job panicked")
				}
			}()

			j.Run()
		})
	}
}

// getJobName 优先使用任务自定义的 Name() 方法，否则通过反射获取类型名
func getJobName(j cron.Job) string {
	if namedJob, ok := j.(interface{ Name() string }); ok {
		return namedJob.Name()
	}

	jobType := reflect.TypeOf(j)
	if jobType.Kind() == reflect.Ptr {
		return jobType.Elem().String()
	}
	return jobType.String()
}
