// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集应用和系统指标.
//
// Example:
//
//	import "github.com/yeisme/picvault/pkg/metrics"
//
//	err := metrics.InitMetrics(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// 记录指标
//	metrics.RequestCounter.WithLabelValues("GET", "/api/v1/images").Inc()
//	metrics.UploadCounter.WithLabelValues("s3").Inc()
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 自动注册pprof端点

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/picvault/pkg/configs"
)

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// UploadCounter 按存储引擎类型统计的上传计数器.
	UploadCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_uploads_total",
			Help: "Total number of image uploads by engine type",
		},
		[]string{"engine_type"},
	)

	// DedupHitCounter 秒传（内容去重命中）计数器.
	DedupHitCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "image_dedup_hits_total",
			Help: "Total number of uploads deduplicated by content hash",
		},
	)

	// CachedEngines 缓存中的存储引擎数量.
	CachedEngines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "storage_cached_engines",
			Help: "Number of storage engines currently cached",
		},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()
)

// InitMetrics 初始化Metrics.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	// 注册标准收集器
	if config.RuntimeMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	// 注册自定义指标
	registry.MustRegister(RequestCounter, RequestDuration, UploadCounter, DedupHitCounter, CachedEngines)

	return nil
}

// StartMetricsServer 启动Metrics HTTP服务器.
func StartMetricsServer(config configs.MetricsConfig, debugEngine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	debugEngine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// 如果启用pprof，注册pprof端点
	if config.Pprof {
		debugEngine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
