// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlineConnections prometheus.Gauge
	WaitingTickets    prometheus.Gauge
	ActiveSessions    prometheus.Gauge
	EventsReceived    *prometheus.CounterVec
	MovesRejected     *prometheus.CounterVec
	SessionsClosed    *prometheus.CounterVec
	EventLatency      prometheus.Histogram
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlineConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_connections",
			Help:      "Number of live connections",
		}),
		WaitingTickets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "waiting_tickets",
			Help:      "Number of connections waiting for a match",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live game sessions",
		}),
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Total number of inbound events",
		}, []string{"event"}),
		MovesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_rejected_total",
			Help:      "Total number of rejected moves",
		}, []string{"reason"}),
		SessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Total number of torn down sessions",
		}, []string{"reason"}),
		EventLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_latency_seconds",
			Help:      "Event processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}

	reg.MustRegister(
		m.OnlineConnections,
		m.WaitingTickets,
		m.ActiveSessions,
		m.EventsReceived,
		m.MovesRejected,
		m.SessionsClosed,
		m.EventLatency,
	)

	return m
}

// Monitor wraps the metrics. A nil *Monitor is valid and records nothing.
type Monitor struct {
	metrics    *Metrics
	gatherer   prometheus.Gatherer
	startTime  time.Time
	eventCount int64
	mutex      sync.Mutex
}

var publishOnce sync.Once

// NewMonitor registers its metrics on a fresh registry that also carries the
// Go and process collectors.
func NewMonitor(namespace string) *Monitor {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewMonitorWith(namespace, reg, reg)
}

func NewMonitorWith(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Monitor {
	m := &Monitor{
		metrics:   NewMetrics(namespace, reg),
		gatherer:  gatherer,
		startTime: time.Now(),
	}

	// 添加expvar指标
	publishOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))
		expvar.Publish("events", expvar.Func(func() interface{} {
			m.mutex.Lock()
			defer m.mutex.Unlock()
			return m.eventCount
		}))
	})
	return m
}

func (m *Monitor) Metrics() *Metrics {
	if m == nil {
		return nil
	}
	return m.metrics
}

// Register mounts /metrics and /debug/vars on mux.
func (m *Monitor) Register(mux *http.ServeMux) {
	if m == nil {
		return
	}
	mux.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
}

func (m *Monitor) IncOnlineConnections() {
	if m == nil {
		return
	}
	m.metrics.OnlineConnections.Inc()
}

func (m *Monitor) DecOnlineConnections() {
	if m == nil {
		return
	}
	m.metrics.OnlineConnections.Dec()
}

func (m *Monitor) SetWaitingTickets(count int) {
	if m == nil {
		return
	}
	m.metrics.WaitingTickets.Set(float64(count))
}

func (m *Monitor) SetActiveSessions(count int) {
	if m == nil {
		return
	}
	m.metrics.ActiveSessions.Set(float64(count))
}

func (m *Monitor) IncEventsReceived(event string) {
	if m == nil {
		return
	}
	m.metrics.EventsReceived.WithLabelValues(event).Inc()
	m.mutex.Lock()
	m.eventCount++
	m.mutex.Unlock()
}

func (m *Monitor) IncMovesRejected(reason string) {
	if m == nil {
		return
	}
	m.metrics.MovesRejected.WithLabelValues(reason).Inc()
}

func (m *Monitor) IncSessionsClosed(reason string) {
	if m == nil {
		return
	}
	m.metrics.SessionsClosed.WithLabelValues(reason).Inc()
}

func (m *Monitor) ObserveEventLatency(duration time.Duration) {
	if m == nil {
		return
	}
	m.metrics.EventLatency.Observe(duration.Seconds())
}
