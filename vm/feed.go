package vm

import (
	"log/slog"
	"sync"

	"github.com/govm-net/counter/types"
)

// eventFeed fans committed events out to subscribers. A subscriber that
// falls behind loses events instead of stalling the engine.
type eventFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan types.Event
	logger *slog.Logger
}

func newEventFeed(logger *slog.Logger) *eventFeed {
	return &eventFeed{
		subs:   make(map[int]chan types.Event),
		logger: logger,
	}
}

func (f *eventFeed) subscribe(buffer int) (<-chan types.Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan types.Event, buffer)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			// close() may have shut the channel already
			if _, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

func (f *eventFeed) publish(events []types.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ev := range events {
		for id, ch := range f.subs {
			select {
			case ch <- ev:
			default:
				f.logger.Warn("Dropping event for slow subscriber", "subscriber", id, "event", ev.Name)
			}
		}
	}
}

func (f *eventFeed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}
