package session

import (
	"sync"

	"github.com/yildizm/logdash/internal/logger"
)

// EventType names which part of the session changed
type EventType string

const (
	// EventScan means the current ScanResult or filename changed
	EventScan EventType = "scan"
	// EventRag means the index status changed
	EventRag EventType = "rag"
	// EventChat means the transcript changed
	EventChat EventType = "chat"
	// EventBusy means an in-flight flag changed
	EventBusy EventType = "busy"
)

// Event is a change notification. It carries no state: subscribers read
// Store.Snapshot after receiving one.
type Event struct {
	Type EventType
}

type bus struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	depth  int
	closed bool
	log    *logger.Logger
}

func newBus(log *logger.Logger) *bus {
	return &bus{
		subs:  make(map[chan Event]struct{}),
		depth: 64,
		log:   log,
	}
}

func (b *bus) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.depth)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()

	b.log.DebugWithFields("subscribed", []logger.Field{logger.F("subs", count)})

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
			b.mu.Unlock()
		})
	}
}

// publish never blocks. A full subscriber misses the event, which is fine
// because it still has an undelivered one queued and will re-read state.
func (b *bus) publish(types ...EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	dropped := 0
	for sub := range b.subs {
		for _, t := range types {
			select {
			case sub <- Event{Type: t}:
			default:
				dropped++
			}
		}
	}
	if dropped > 0 {
		b.log.DebugWithFields("events dropped", []logger.Field{logger.Count(dropped)})
	}
}

func (b *bus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		close(sub)
		delete(b.subs, sub)
	}
}
