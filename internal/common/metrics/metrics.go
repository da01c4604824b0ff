package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 独立 registry，避免被第三方库默认注册的指标污染。
var Registry = prometheus.NewRegistry()

var (
	// RequestDuration HTTP 请求耗时（按 method / path / status）
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "autodreams",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal HTTP 请求总数
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autodreams",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// RequestInFlight 正在处理的请求数
	RequestInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "autodreams",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being served.",
	})

	// OrdersPlaced 成交订单数
	OrdersPlaced = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "autodreams",
		Subsystem: "ledger",
		Name:      "orders_placed_total",
		Help:      "Total number of successfully placed orders.",
	})

	// VehiclesSoldOut 购买失败（车辆已售出）次数
	VehiclesSoldOut = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "autodreams",
		Subsystem: "ledger",
		Name:      "vehicle_unavailable_total",
		Help:      "Total number of order attempts rejected because the vehicle was not available.",
	})
)

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	Registry.MustRegister(
		RequestDuration,
		RequestTotal,
		RequestInFlight,
		OrdersPlaced,
		VehiclesSoldOut,
	)
}

// Handler /metrics 的 HTTP handler（Prometheus 抓取端点）
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
