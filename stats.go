package rtos

import "github.com/prometheus/client_golang/prometheus"

// MetricsRecorder is the optional Prometheus-backed implementation of
// §3's "Optional statistics fields ... do not affect behavior": ready-queue
// depth, context switch count, tick count, and semaphore counts, exposed as
// gauges/counters on a caller-supplied registry. No file in the retrieval
// pack wires Prometheus directly into a task scheduler, but
// other_examples' sourcegraph/zoekt sched.go sits a `promauto` counter right
// next to its own semaphore-gated scheduler — the nearest domain analogue —
// so this follows that shape rather than inventing one (see DESIGN.md).
//
// A Kernel built without WithMetrics behaves identically; every call site
// that touches a MetricsRecorder is additive instrumentation, never a
// decision point.
type MetricsRecorder struct {
	internal *metricsRecorder
}

// NewMetricsRecorder registers the kernel's metric families on reg and
// returns a recorder ready to pass to WithMetrics.
func NewMetricsRecorder(reg prometheus.Registerer) *MetricsRecorder {
	m := &metricsRecorder{
		readyDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tinyrtos_ready_queue_depth",
			Help: "Number of tasks currently on the ready queue.",
		}),
		contextSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinyrtos_context_switches_total",
			Help: "Total number of context switches performed.",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinyrtos_soft_ticks_total",
			Help: "Total number of soft ticks observed.",
		}),
		semaphoreCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tinyrtos_semaphore_count",
			Help: "Current count of a named semaphore.",
		}, []string{"semaphore"}),
	}
	reg.MustRegister(m.readyDepth, m.contextSwitches, m.ticks, m.semaphoreCount)
	return &MetricsRecorder{internal: m}
}

type metricsRecorder struct {
	readyDepth      prometheus.Gauge
	contextSwitches prometheus.Counter
	ticks           prometheus.Counter
	semaphoreCount  *prometheus.GaugeVec
}

func (m *metricsRecorder) observeReadyDepth(n int) {
	if m == nil {
		return
	}
	m.readyDepth.Set(float64(n))
}

func (m *metricsRecorder) observeContextSwitch() {
	if m == nil {
		return
	}
	m.contextSwitches.Inc()
}

func (m *metricsRecorder) observeTick() {
	if m == nil {
		return
	}
	m.ticks.Inc()
}

func (m *metricsRecorder) observeSemaphoreCount(name string, count uint8) {
	if m == nil {
		return
	}
	m.semaphoreCount.WithLabelValues(name).Set(float64(count))
}
