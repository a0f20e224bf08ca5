package tracing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sarchlab/vmstore/sim/hooking"
)

// SlotCounter reports how many swap slots are in use.
type SlotCounter interface {
	NumUsedSlots() int
}

// MetricsHook counts hook invocations per position in Prometheus.
type MetricsHook struct {
	events       *prometheus.CounterVec
	bytesWritten prometheus.Counter
}

// NewMetricsHook creates the collectors and registers them with reg. If
// slots is not nil, a gauge of the used swap slots is registered too.
func NewMetricsHook(reg prometheus.Registerer, slots SlotCounter) *MetricsHook {
	h := &MetricsHook{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vmstore",
			Name:      "events_total",
			Help:      "Number of backing-store events, by hook position.",
		}, []string{"pos"}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vmstore",
			Name:      "writeback_bytes_total",
			Help:      "Bytes written back to mapped files.",
		}),
	}

	reg.MustRegister(h.events, h.bytesWritten)

	if slots != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "vmstore",
			Name:      "swap_slots_used",
			Help:      "Swap slots currently holding a page.",
		}, func() float64 {
			return float64(slots.NumUsedSlots())
		}))
	}

	return h
}

// Func counts the hook invocation.
func (h *MetricsHook) Func(ctx hooking.HookCtx) {
	h.events.WithLabelValues(ctx.Pos.Name).Inc()

	e := flatten(ctx)
	if e.bytes > 0 {
		h.bytesWritten.Add(float64(e.bytes))
	}
}
