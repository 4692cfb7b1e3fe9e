// Package latency tracks wall-clock handler latency per websocket endpoint
// over a rolling window, exposing P50/P95/P99 summaries.
package latency

import (
	"math"
	"sort"
	"sync"
	"time"
)

const defaultWindow = 1000

// Histogram is a thread-safe circular buffer of latency samples in
// milliseconds.
type Histogram struct {
	mu       sync.RWMutex
	samples  []float64
	window   int
	position int
	full     bool
	endpoint string
}

// NewHistogram creates a histogram for one endpoint with the given rolling
// window size.
func NewHistogram(endpoint string, window int) *Histogram {
	if window <= 0 {
		window = defaultWindow
	}
	return &Histogram{
		samples:  make([]float64, window),
		window:   window,
		endpoint: endpoint,
	}
}

// Record adds one measurement.
func (h *Histogram) Record(d time.Duration) {
	ms := float64(d.Nanoseconds()) / 1e6

	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples[h.position] = ms
	h.position = (h.position + 1) % h.window
	if !h.full && h.position == 0 {
		h.full = true
	}
}

// Percentile returns the p-th percentile (0.0-1.0) of the recorded window,
// with linear interpolation between neighbouring samples.
func (h *Histogram) Percentile(p float64) float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	size := h.size()
	if size == 0 {
		return 0
	}

	values := make([]float64, size)
	if h.full {
		copy(values, h.samples)
	} else {
		copy(values, h.samples[:h.position])
	}
	sort.Float64s(values)

	index := p * float64(size-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return values[lower]
	}
	weight := index - float64(lower)
	return values[lower]*(1-weight) + values[upper]*weight
}

// Count returns the number of samples currently in the window.
func (h *Histogram) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size()
}

func (h *Histogram) size() int {
	if h.full {
		return h.window
	}
	return h.position
}

// Summary aggregates the percentiles of one endpoint's histogram.
type Summary struct {
	Endpoint string  `json:"endpoint"`
	P50      float64 `json:"p50_ms"`
	P95      float64 `json:"p95_ms"`
	P99      float64 `json:"p99_ms"`
	Count    int     `json:"count"`
}

// Summarize returns the current percentile summary.
func (h *Histogram) Summarize() Summary {
	return Summary{
		Endpoint: h.endpoint,
		P50:      h.Percentile(0.5),
		P95:      h.Percentile(0.95),
		P99:      h.Percentile(0.99),
		Count:    h.Count(),
	}
}

// Tracker manages one histogram per endpoint.
type Tracker struct {
	mu         sync.RWMutex
	histograms map[string]*Histogram
}

// NewTracker creates an empty tracker; histograms appear on first record.
func NewTracker() *Tracker {
	return &Tracker{histograms: make(map[string]*Histogram)}
}

// Record adds a measurement for the endpoint.
func (t *Tracker) Record(endpoint string, d time.Duration) {
	t.mu.RLock()
	h, ok := t.histograms[endpoint]
	t.mu.RUnlock()

	if !ok {
		t.mu.Lock()
		if h, ok = t.histograms[endpoint]; !ok {
			h = NewHistogram(endpoint, defaultWindow)
			t.histograms[endpoint] = h
		}
		t.mu.Unlock()
	}
	h.Record(d)
}

// Summaries returns the summary for every endpoint seen so far.
func (t *Tracker) Summaries() map[string]Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]Summary, len(t.histograms))
	for endpoint, h := range t.histograms {
		out[endpoint] = h.Summarize()
	}
	return out
}
