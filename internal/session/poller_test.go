package session

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPollerFiresAndStops(t *testing.T) {
	var ticks int64
	p := NewPoller(10*time.Millisecond, func() {
		atomic.AddInt64(&ticks, 1)
	})

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&ticks) >= 2
	}, time.Second, 5*time.Millisecond)

	p.Stop()
	after := atomic.LoadInt64(&ticks)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt64(&ticks))

	// Stop is idempotent.
	p.Stop()
}

func TestPollerTinyIntervalFiresWithoutJitter(t *testing.T) {
	var ticks int64
	p := NewPoller(time.Nanosecond, func() {
		atomic.AddInt64(&ticks, 1)
	})
	defer p.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&ticks) >= 1
	}, time.Second, time.Millisecond)
}
