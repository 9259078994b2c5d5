package build

import (
	"time"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
)

// 上传结果
const (
	OutcomeCreated  = "created"
	OutcomeReplaced = "replaced"
	OutcomeDegraded = "degraded"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
)

// Observer 接收解析服务的运行指标
type Observer interface {
	ObserveIngest(platform constant.Platform, outcome string, elapsed time.Duration)
	// ObserveFallback 读路径因元数据库不可用或无记录而回退到文件存储
	ObserveFallback(op string)
	// ObserveMirrorFailure 写元数据库失败
	ObserveMirrorFailure(op string)
	ObserveReconcile(report *ReconcileReport, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveIngest(constant.Platform, string, time.Duration) {}
func (nopObserver) ObserveFallback(string)                                 {}
func (nopObserver) ObserveMirrorFailure(string)                            {}
func (nopObserver) ObserveReconcile(*ReconcileReport, error)               {}
