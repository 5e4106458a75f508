// Package metrics is the narrow, optional observability façade the QoS
// layer reports through (the reconnect layer reports nothing here). Nothing
// in duct's core logic depends on a Sink being configured — per spec.md §1,
// observability sits outside the send/recv contract — but when one is set,
// the QoS enqueue and inner-send durations flow into it, and
// HistogramSink records them as HDR histograms, the same
// distribution-capture approach paypal-junodb's storage layer leans on for
// its own latency stats.
package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Sink receives named duration observations. Implementations must be safe
// for concurrent use; duct calls Observe from background goroutines.
type Sink interface {
	Observe(name string, d time.Duration)
}

// HistogramSink keeps one HDR histogram per observation name, sized for
// microsecond-to-minute latencies (1 to 60,000,000 microseconds, 3
// significant figures), matching the fidelity HdrHistogram-go's own
// examples default to.
type HistogramSink struct {
	mu   sync.Mutex
	hist map[string]*hdrhistogram.Histogram
}

// NewHistogramSink constructs an empty HistogramSink.
func NewHistogramSink() *HistogramSink {
	return &HistogramSink{hist: make(map[string]*hdrhistogram.Histogram)}
}

func (s *HistogramSink) Observe(name string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hist[name]
	if !ok {
		h = hdrhistogram.New(1, 60_000_000, 3)
		s.hist[name] = h
	}
	h.RecordValue(d.Microseconds())
}

// Snapshot returns the current {count, mean, p99} for name, or ok=false if
// nothing has been observed under that name yet.
func (s *HistogramSink) Snapshot(name string) (count int64, meanUs float64, p99Us int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, present := s.hist[name]
	if !present {
		return 0, 0, 0, false
	}
	return h.TotalCount(), h.Mean(), h.ValueAtQuantile(99), true
}

// NopSink discards every observation; it is the zero value used whenever no
// sink has been configured.
type NopSink struct{}

func (NopSink) Observe(string, time.Duration) {}
