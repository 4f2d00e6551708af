package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kweaver-ai/ai-store/internal/port"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ port.InstallMetrics = (*Prom)(nil)

// RequestMetrics 记录 HTTP 请求。
type RequestMetrics interface {
	ObserveRequest(method, route string, status int, d time.Duration)
}

// Noop 不输出任何指标。
type Noop struct{}

func (Noop) ObserveInstall(string, string, time.Duration)      {}
func (Noop) ObserveUninstall(string, int)                      {}
func (Noop) IncDefinitionSkipped(string)                       {}
func (Noop) ObserveRequest(string, string, int, time.Duration) {}

// Prom 基于 Prometheus 实现安装与请求指标。
type Prom struct {
	installs         *prometheus.CounterVec
	installDuration  *prometheus.HistogramVec
	uninstalls       *prometheus.CounterVec
	releasesOrphaned prometheus.Counter
	definitionsSkip  *prometheus.CounterVec
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

// NewProm 创建指标并注册到 reg；reg 为 nil 时使用默认注册表。
func NewProm(namespace string, reg prometheus.Registerer) *Prom {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prom{
		installs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installs_total",
			Help:      "Package installs by final stage and result",
		}, []string{"stage", "result"}),
		installDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "install_duration_seconds",
			Help:      "Package install duration",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"result"}),
		uninstalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uninstalls_total",
			Help:      "Application uninstalls by result",
		}, []string{"result"}),
		releasesOrphaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uninstall_release_failures_total",
			Help:      "Releases that could not be deleted during uninstall",
		}),
		definitionsSkip: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "definitions_skipped_total",
			Help:      "Ontology and agent definition files skipped during install",
		}, []string{"kind"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(p.installs, p.installDuration, p.uninstalls, p.releasesOrphaned,
		p.definitionsSkip, p.requests, p.requestDuration)
	return p
}

func (p *Prom) ObserveInstall(stage, result string, d time.Duration) {
	p.installs.WithLabelValues(stage, result).Inc()
	p.installDuration.WithLabelValues(result).Observe(d.Seconds())
}

func (p *Prom) ObserveUninstall(result string, failedReleases int) {
	p.uninstalls.WithLabelValues(result).Inc()
	if failedReleases > 0 {
		p.releasesOrphaned.Add(float64(failedReleases))
	}
}

func (p *Prom) IncDefinitionSkipped(kind string) {
	p.definitionsSkip.WithLabelValues(kind).Inc()
}

func (p *Prom) ObserveRequest(method, route string, status int, d time.Duration) {
	p.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler 返回 /metrics 的处理器。
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
