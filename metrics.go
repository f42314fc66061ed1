package authsession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one counter or histogram.
type MetricID uint16

const (
	// MetricSignInSuccess counts sign-ins that produced a session.
	MetricSignInSuccess MetricID = iota
	// MetricSignInInvalidCredentials counts sign-ins rejected by the backend.
	MetricSignInInvalidCredentials
	// MetricSignUpSuccess counts registrations that produced a session.
	MetricSignUpSuccess
	// MetricSignOut counts sign-outs, successful or local-only.
	MetricSignOut
	// MetricSignOutRemoteFailure counts sign-outs whose remote logout failed.
	MetricSignOutRemoteFailure
	// MetricOperationSuccess counts every successful operation.
	MetricOperationSuccess
	// MetricOperationFailure counts every failed identity call.
	MetricOperationFailure
	// MetricOperationRejected counts calls refused by the concurrency policy.
	MetricOperationRejected
	// MetricValidationRejected counts calls refused before any remote call.
	MetricValidationRejected
	// MetricSessionRestored counts sessions adopted from the store at start.
	MetricSessionRestored
	// MetricSessionDiscardedExpired counts persisted records dropped as expired.
	MetricSessionDiscardedExpired
	// MetricSessionDiscardedCorrupt counts persisted records dropped as corrupt.
	MetricSessionDiscardedCorrupt
	// MetricSessionExpired counts sessions dropped by the expiry timer.
	MetricSessionExpired
	// MetricIdentityLatency is the identity call latency histogram.
	MetricIdentityLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters. A nil or disabled Metrics ignores
// every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics builds a metrics set from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only histogram metrics accept
// observations.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricIdentityLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies the current values. Histogram entries are present only
// when latency histograms are enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricIdentityLatency].buckets[i])
		}
		s.Histograms[MetricIdentityLatency] = buckets
	}

	return s
}

// Bucket upper bounds, in milliseconds, sized for network round trips.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 10:
		return 0
	case ms <= 50:
		return 1
	case ms <= 100:
		return 2
	case ms <= 250:
		return 3
	case ms <= 500:
		return 4
	case ms <= 1000:
		return 5
	case ms <= 2500:
		return 6
	default:
		return 7
	}
}
