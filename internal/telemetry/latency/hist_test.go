package latency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHistogramPercentiles(t *testing.T) {
	h := NewHistogram("/ws/order-book", 100)

	for i := 1; i <= 100; i++ {
		h.Record(time.Duration(i) * time.Millisecond)
	}

	assert.Equal(t, 100, h.Count())
	assert.InDelta(t, 50.5, h.Percentile(0.5), 0.01)
	assert.InDelta(t, 95.05, h.Percentile(0.95), 0.01)
	assert.InDelta(t, 100, h.Percentile(1.0), 0.01)
}

func TestHistogramEmpty(t *testing.T) {
	h := NewHistogram("/ws/order-book", 10)
	assert.Zero(t, h.Percentile(0.99))
	assert.Zero(t, h.Count())
}

func TestHistogramRollingWindow(t *testing.T) {
	h := NewHistogram("/ws/order-book", 4)

	for i := 0; i < 10; i++ {
		h.Record(time.Duration(i) * time.Millisecond)
	}

	// Only the last 4 samples (6..9 ms) remain.
	assert.Equal(t, 4, h.Count())
	assert.InDelta(t, 9, h.Percentile(1.0), 0.01)
	assert.InDelta(t, 6, h.Percentile(0.0), 0.01)
}

func TestTrackerSummaries(t *testing.T) {
	tr := NewTracker()
	tr.Record("/ws/order-book", 10*time.Millisecond)
	tr.Record("/ws/order-book", 20*time.Millisecond)
	tr.Record("/ws/limit-order", 5*time.Millisecond)

	summaries := tr.Summaries()
	assert.Len(t, summaries, 2)
	assert.Equal(t, 2, summaries["/ws/order-book"].Count)
	assert.Equal(t, 1, summaries["/ws/limit-order"].Count)
}
