// Package metrics exposes switcher instrumentation on a dedicated
// prometheus registry and runs the frame-rate watchdog.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/videoswitch/internal/events"
)

// Metrics holds the switcher's collectors. It implements the processor's
// Recorder and mirrors bus events into counters and gauges.
type Metrics struct {
	registry *prometheus.Registry

	framesSubmitted *prometheus.CounterVec
	framesProcessed *prometheus.CounterVec
	framesDropped   *prometheus.CounterVec
	takes           *prometheus.CounterVec
	transitions     prometheus.Counter
	slotState       *prometheus.GaugeVec
	rateWarnings    *prometheus.CounterVec

	mu        sync.Mutex
	processed map[string]uint64
	unsubs    []func()
}

// New creates the collectors on a fresh registry, with the Go and process
// collectors alongside.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		framesSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "videoswitch_frames_submitted_total",
			Help: "Raw frames submitted to a processing pipeline.",
		}, []string{"key"}),
		framesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "videoswitch_frames_processed_total",
			Help: "Frames that completed effect processing.",
		}, []string{"key"}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "videoswitch_frames_dropped_total",
			Help: "Frames dropped by pipeline backpressure.",
		}, []string{"key"}),
		takes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "videoswitch_takes_total",
			Help: "Completed takes, by trigger.",
		}, []string{"trigger"}),
		transitions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "videoswitch_transitions_started_total",
			Help: "Transitions started.",
		}),
		slotState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "videoswitch_slot_state",
			Help: "Current slot state: 1 for the active state, 0 otherwise.",
		}, []string{"slot", "state"}),
		rateWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "videoswitch_frame_rate_warnings_total",
			Help: "Watchdog warnings for pipelines below target frame rate.",
		}, []string{"key"}),
		processed: make(map[string]uint64),
	}

	registry.MustRegister(
		m.framesSubmitted, m.framesProcessed, m.framesDropped,
		m.takes, m.transitions, m.slotState, m.rateWarnings,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// FrameSubmitted implements processor.Recorder.
func (m *Metrics) FrameSubmitted(key string) {
	m.framesSubmitted.WithLabelValues(key).Inc()
}

// FrameProcessed implements processor.Recorder.
func (m *Metrics) FrameProcessed(key string) {
	m.framesProcessed.WithLabelValues(key).Inc()
	m.mu.Lock()
	m.processed[key]++
	m.mu.Unlock()
}

// FrameDropped implements processor.Recorder.
func (m *Metrics) FrameDropped(key string) {
	m.framesDropped.WithLabelValues(key).Inc()
}

// ProcessedCount returns the running processed-frame count for a key. The
// watchdog samples it to compute observed frame rates.
func (m *Metrics) ProcessedCount(key string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed[key]
}

// ProcessedTotal returns the processed-frame count summed over all keys.
func (m *Metrics) ProcessedTotal() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total uint64
	for _, n := range m.processed {
		total += n
	}
	return total
}

var slotStates = []string{"empty", "loading", "ready", "error"}

// Observe subscribes the collectors to bus events: takes, transitions, and
// slot state changes.
func (m *Metrics) Observe(bus *events.Bus) {
	m.unsubs = append(m.unsubs,
		bus.Subscribe(func(e events.TakeEvent) {
			trigger := "manual"
			if e.Automated {
				trigger = "transition"
			}
			m.takes.WithLabelValues(trigger).Inc()
		}),
		bus.Subscribe(func(e events.TransitionEvent) {
			if e.Running && e.Progress == 0 {
				m.transitions.Inc()
			}
		}),
		bus.Subscribe(func(e events.SlotStateEvent) {
			for _, state := range slotStates {
				v := 0.0
				if state == e.State {
					v = 1
				}
				m.slotState.WithLabelValues(e.Slot, state).Set(v)
			}
		}),
	)
}

// Close unsubscribes from the bus.
func (m *Metrics) Close() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
}

// RecordRateWarning counts a watchdog warning for a pipeline key.
func (m *Metrics) RecordRateWarning(key string) {
	m.rateWarnings.WithLabelValues(key).Inc()
}
