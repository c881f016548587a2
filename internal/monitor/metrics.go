package monitor

import (
	"math"
	"sync/atomic"
	"time"
)

const noSample = math.MaxInt64

// Counter is a concurrency-safe monotonically increasing count
type Counter struct {
	value int64
}

// Inc adds one
func (c *Counter) Inc() {
	atomic.AddInt64(&c.value, 1)
}

// Get returns the current count
func (c *Counter) Get() int64 {
	return atomic.LoadInt64(&c.value)
}

// Timer accumulates call durations without locking
type Timer struct {
	count   int64
	total   int64
	minTime int64
	maxTime int64
	last    int64
}

// NewTimer creates an empty timer
func NewTimer() *Timer {
	return &Timer{minTime: noSample}
}

// Record adds one measurement
func (t *Timer) Record(d time.Duration) {
	nanos := d.Nanoseconds()

	atomic.AddInt64(&t.count, 1)
	atomic.AddInt64(&t.total, nanos)
	atomic.StoreInt64(&t.last, nanos)

	for {
		current := atomic.LoadInt64(&t.minTime)
		if nanos >= current || atomic.CompareAndSwapInt64(&t.minTime, current, nanos) {
			break
		}
	}
	for {
		current := atomic.LoadInt64(&t.maxTime)
		if nanos <= current || atomic.CompareAndSwapInt64(&t.maxTime, current, nanos) {
			break
		}
	}
}

// Count returns the number of measurements
func (t *Timer) Count() int64 {
	return atomic.LoadInt64(&t.count)
}

// Min returns the fastest measurement, or zero when nothing was recorded
func (t *Timer) Min() time.Duration {
	v := atomic.LoadInt64(&t.minTime)
	if v == noSample {
		return 0
	}
	return time.Duration(v)
}

// Max returns the slowest measurement
func (t *Timer) Max() time.Duration {
	return time.Duration(atomic.LoadInt64(&t.maxTime))
}

// Last returns the most recent measurement
func (t *Timer) Last() time.Duration {
	return time.Duration(atomic.LoadInt64(&t.last))
}

// Avg returns the mean measurement
func (t *Timer) Avg() time.Duration {
	count := atomic.LoadInt64(&t.count)
	if count == 0 {
		return 0
	}
	return time.Duration(atomic.LoadInt64(&t.total) / count)
}
