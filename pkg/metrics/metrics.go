// Package metrics exposes Prometheus collectors for recording and playback.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "replayctl"

// Metrics reports capture and replay activity. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	recordingSessions prometheus.Counter
	eventsRecorded    *prometheus.CounterVec
	eventsDropped     prometheus.Counter
	playbackSessions  *prometheus.CounterVec
	eventsInjected    *prometheus.CounterVec
	injectionFailures *prometheus.CounterVec
	unresolvedKeys    prometheus.Counter
	playbackDuration  prometheus.Histogram
	playbacksActive   prometheus.Gauge
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the instance registered with the global registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNewMetrics registers the collectors with reg, reusing collectors that
// are already registered under the same name. Other registration errors panic.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		recordingSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "sessions_total",
			Help:      "Recording sessions started.",
		}),
		eventsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "events_total",
			Help:      "Events appended to recording sessions by kind.",
		}, []string{"kind"}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "events_dropped_total",
			Help:      "Events discarded because a session reached its event cap.",
		}),
		playbackSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "sessions_total",
			Help:      "Playback sessions finished, by outcome.",
		}, []string{"outcome"}),
		eventsInjected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "events_injected_total",
			Help:      "Events dispatched to the injector by kind.",
		}, []string{"kind"}),
		injectionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "injection_failures_total",
			Help:      "Events whose injection failed, by kind.",
		}, []string{"kind"}),
		unresolvedKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "unresolved_keys_total",
			Help:      "Key events skipped because the key name could not be resolved.",
		}),
		playbackDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "session_duration_seconds",
			Help:      "Wall-clock duration of playback sessions.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}),
		playbacksActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "sessions_active",
			Help:      "Playback sessions currently injecting.",
		}),
	}

	m.recordingSessions = register(reg, m.recordingSessions)
	m.eventsRecorded = register(reg, m.eventsRecorded)
	m.eventsDropped = register(reg, m.eventsDropped)
	m.playbackSessions = register(reg, m.playbackSessions)
	m.eventsInjected = register(reg, m.eventsInjected)
	m.injectionFailures = register(reg, m.injectionFailures)
	m.unresolvedKeys = register(reg, m.unresolvedKeys)
	m.playbackDuration = register(reg, m.playbackDuration)
	m.playbacksActive = register(reg, m.playbacksActive)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// RecordingStarted counts a new capture session.
func (m *Metrics) RecordingStarted() {
	if m == nil {
		return
	}
	m.recordingSessions.Inc()
}

// EventRecorded counts an event appended to a capture session.
func (m *Metrics) EventRecorded(kind string) {
	if m == nil {
		return
	}
	m.eventsRecorded.WithLabelValues(kind).Inc()
}

// EventDropped counts an event discarded by the session cap.
func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}

// PlaybackStarted marks a playback as active.
func (m *Metrics) PlaybackStarted() {
	if m == nil {
		return
	}
	m.playbacksActive.Inc()
}

// PlaybackFinished records the outcome ("completed" or "cancelled") and
// wall-clock duration of a playback.
func (m *Metrics) PlaybackFinished(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.playbacksActive.Dec()
	m.playbackSessions.WithLabelValues(outcome).Inc()
	m.playbackDuration.Observe(elapsed.Seconds())
}

// EventInjected counts an event handed to the injector.
func (m *Metrics) EventInjected(kind string) {
	if m == nil {
		return
	}
	m.eventsInjected.WithLabelValues(kind).Inc()
}

// InjectionFailed counts an event whose injection returned an error.
func (m *Metrics) InjectionFailed(kind string) {
	if m == nil {
		return
	}
	m.injectionFailures.WithLabelValues(kind).Inc()
}

// KeyUnresolved counts a key event skipped during playback.
func (m *Metrics) KeyUnresolved() {
	if m == nil {
		return
	}
	m.unresolvedKeys.Inc()
}
