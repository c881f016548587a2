package monitor

import (
	"sort"
	"sync"
	"time"
)

// EndpointStats is a point-in-time view of one backend operation
type EndpointStats struct {
	Operation string        `json:"operation"`
	Count     int64         `json:"count"`
	Errors    int64         `json:"errors"`
	Min       time.Duration `json:"min_ns"`
	Max       time.Duration `json:"max_ns"`
	Avg       time.Duration `json:"avg_ns"`
	Last      time.Duration `json:"last_ns"`
}

type endpoint struct {
	timer  *Timer
	errors Counter
}

// Tracker records timing and failures per backend operation
type Tracker struct {
	mu        sync.RWMutex
	endpoints map[string]*endpoint
	now       func() time.Time
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		endpoints: make(map[string]*endpoint),
		now:       time.Now,
	}
}

func (t *Tracker) endpoint(op string) *endpoint {
	t.mu.RLock()
	ep, ok := t.endpoints[op]
	t.mu.RUnlock()
	if ok {
		return ep
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if ep, ok = t.endpoints[op]; !ok {
		ep = &endpoint{timer: NewTimer()}
		t.endpoints[op] = ep
	}
	return ep
}

// Observe records one finished call
func (t *Tracker) Observe(op string, d time.Duration, err error) {
	ep := t.endpoint(op)
	ep.timer.Record(d)
	if err != nil {
		ep.errors.Inc()
	}
}

// TrackOperationWithError times fn under op and records its error
func (t *Tracker) TrackOperationWithError(op string, fn func() error) error {
	start := t.now()
	err := fn()
	t.Observe(op, t.now().Sub(start), err)
	return err
}

// Snapshot returns stats for every operation seen so far, sorted by name
func (t *Tracker) Snapshot() []EndpointStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := make([]EndpointStats, 0, len(t.endpoints))
	for op, ep := range t.endpoints {
		stats = append(stats, EndpointStats{
			Operation: op,
			Count:     ep.timer.Count(),
			Errors:    ep.errors.Get(),
			Min:       ep.timer.Min(),
			Max:       ep.timer.Max(),
			Avg:       ep.timer.Avg(),
			Last:      ep.timer.Last(),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Operation < stats[j].Operation })
	return stats
}
