/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-07-12 16:09:46
 * @LastEditTime: 2026-04-09 22:20:13
 * @LastEditors: 安知鱼
 */
package task

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// cronParser 支持 5 段或带秒的 6 段表达式，以及 @every 等描述符
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler 封装了 cron 实例，负责任务的注册、启动和停止。
type Scheduler struct {
	cron   *cron.Cron
	logger *logrus.Entry
}

// NewScheduler 是 Scheduler 的构造函数。
func NewScheduler() *Scheduler {
	logger := logrus.WithField("system", "cron")

	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithChain(
			NewPanicRecoveryWrapper(logger),
			NewLoggingWrapper(logger),
			cron.DelayIfStillRunning(cron.PrintfLogger(logger)),
		),
	)

	return &Scheduler{cron: c, logger: logger}
}

// Register 按 schedule 注册一个任务，schedule 为空时跳过
func (s *Scheduler) Register(schedule string, job Job) error {
	if schedule == "" {
		s.logger.Infof("-> Skipped '%s': no schedule configured", job.Name())
		return nil
	}
	if _, err := s.cron.AddJob(schedule, job); err != nil {
		return fmt.Errorf("注册任务 %s 失败: %w", job.Name(), err)
	}
	s.logger.WithField("schedule", schedule).Infof("-> Successfully registered '%s'", job.Name())
	return nil
}

// Entries 返回已注册的任务数
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start 启动 cron 调度器。
func (s *Scheduler) Start() {
	s.logger.Info("Cron scheduler started.")
	s.cron.Start()
}

// Stop 优雅地停止 cron 调度器，等待正在运行的任务结束。
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron scheduler gracefully stopped.")
}
