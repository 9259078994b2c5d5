package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/build"
)

const namespace = "appdist"

var (
	// Registry 保存本服务的所有 Prometheus 指标
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"method", "path"},
	)

	ingestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "uploads_total",
			Help:      "Total number of package uploads by platform and outcome.",
		},
		[]string{"platform", "outcome"},
	)

	ingestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Duration of package ingestion.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"platform"},
	)

	fallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "blob_fallbacks_total",
			Help:      "Reads served from the blob store instead of the metadata store.",
		},
		[]string{"op"},
	)

	mirrorFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "metadata_write_failures_total",
			Help:      "Metadata store writes that failed and were left for reconciliation.",
		},
		[]string{"op"},
	)

	reconcileRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Total number of reconciliation runs.",
		},
		[]string{"success"},
	)

	reconcileRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "records_total",
			Help:      "Records repaired by reconciliation.",
		},
		[]string{"action"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		ingestTotal,
		ingestDuration,
		fallbackTotal,
		mirrorFailures,
		reconcileRuns,
		reconcileRecords,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler 暴露已注册指标的 HTTP 处理器
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware 记录每个请求的次数与耗时，path 使用路由模板避免标签爆炸
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// Recorder 将上传解析服务的事件转换为 Prometheus 指标
type Recorder struct{}

var _ build.Observer = Recorder{}

func (Recorder) ObserveIngest(platform constant.Platform, outcome string, elapsed time.Duration) {
	ingestTotal.WithLabelValues(string(platform), outcome).Inc()
	ingestDuration.WithLabelValues(string(platform)).Observe(elapsed.Seconds())
}

func (Recorder) ObserveFallback(op string) {
	fallbackTotal.WithLabelValues(op).Inc()
}

func (Recorder) ObserveMirrorFailure(op string) {
	mirrorFailures.WithLabelValues(op).Inc()
}

func (Recorder) ObserveReconcile(report *build.ReconcileReport, err error) {
	reconcileRuns.WithLabelValues(strconv.FormatBool(err == nil)).Inc()
	if report == nil {
		return
	}
	reconcileRecords.WithLabelValues("mirrored").Add(float64(report.Mirrored))
	reconcileRecords.WithLabelValues("dropped").Add(float64(report.Dropped))
	reconcileRecords.WithLabelValues("skipped").Add(float64(report.Skipped))
}
