// internal/app/task/job_reconcile.go
package task

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/build"
)

// Reconciler 执行一次文件存储与元数据库的对账
type Reconciler interface {
	Reconcile(ctx context.Context) (*build.ReconcileReport, error)
}

// ReconcileJob 定期把文件存储中的描述文件补写到元数据库，并清理文件已不存在的元数据行
type ReconcileJob struct {
	reconciler Reconciler
	timeout    time.Duration
}

// NewReconcileJob 是任务的构造函数
func NewReconcileJob(reconciler Reconciler, timeout time.Duration) *ReconcileJob {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &ReconcileJob{reconciler: reconciler, timeout: timeout}
}

// Run 是 Job 接口要求实现的方法
func (j *ReconcileJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	report, err := j.reconciler.Reconcile(ctx)
	if err != nil {
		// 元数据库不可用时对账会失败，等待下一次调度
		logrus.WithField("job_name", j.Name()).Warnf("对账失败: %v", err)
		return
	}
	logrus.WithFields(logrus.Fields{
		"job_name": j.Name(),
		"mirrored": report.Mirrored,
		"dropped":  report.Dropped,
		"skipped":  report.Skipped,
	}).Info("对账完成")
}

// Name 方法让日志包装器可以打印出更有意义的任务名
func (j *ReconcileJob) Name() string {
	return "ReconcileJob"
}
