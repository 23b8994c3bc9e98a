package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType names a session event.
type EventType string

const (
	EventSlotRevealed EventType = "slot_revealed"
	EventReady        EventType = "ready"
	EventRefreshed    EventType = "refreshed"
	EventSlotUpdated  EventType = "slot_updated"
	EventReset        EventType = "reset"
)

// Event is published to subscribers on every session change.
// Index and Slot are set for slot events; Index is -1 otherwise.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	State     State     `json:"state"`
	Index     int       `json:"index"`
	Slot      *Slot     `json:"slot,omitempty"`
	Words     []string  `json:"words,omitempty"`
	At        time.Time `json:"at"`
}

// subscriber queues events for one consumer. Lifecycle events (reveal, ready,
// refresh, reset) are always queued; slot updates are dropped once limit
// events are pending.
type subscriber struct {
	ch    chan Event
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
	limit int

	mu    sync.Mutex
	queue []Event
}

func newSubscriber(limit int) *subscriber {
	sub := &subscriber{
		ch:    make(chan Event),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
		limit: limit,
	}
	go sub.run()
	return sub
}

// push queues ev without blocking and reports whether it was kept.
func (sub *subscriber) push(ev Event) bool {
	sub.mu.Lock()
	if ev.Type == EventSlotUpdated && len(sub.queue) >= sub.limit {
		sub.mu.Unlock()
		return false
	}
	sub.queue = append(sub.queue, ev)
	sub.mu.Unlock()

	select {
	case sub.wake <- struct{}{}:
	default:
	}
	return true
}

func (sub *subscriber) run() {
	defer close(sub.ch)
	for {
		sub.mu.Lock()
		if len(sub.queue) == 0 {
			sub.mu.Unlock()
			select {
			case <-sub.wake:
				continue
			case <-sub.done:
				return
			}
		}
		ev := sub.queue[0]
		sub.queue[0] = Event{}
		sub.queue = sub.queue[1:]
		sub.mu.Unlock()

		select {
		case sub.ch <- ev:
		case <-sub.done:
			return
		}
	}
}

func (sub *subscriber) close() {
	sub.once.Do(func() { close(sub.done) })
}

// DefaultEventBuffer is used when Subscribe is given a non-positive buffer.
const DefaultEventBuffer = 64

// Subscribe returns a channel of future events and a function that ends the
// subscription and closes the channel. Every lifecycle event is delivered in
// order; slot updates are dropped while buffer events are pending.
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	sub := newSubscriber(buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = sub
	s.mu.Unlock()

	return sub.ch, func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		sub.close()
	}
}

// Close ends all subscriptions.
func (s *Session) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[int]*subscriber)
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	for _, sub := range subs {
		sub.close()
	}
}

func (s *Session) publishLocked(t EventType, index int) {
	if len(s.subs) == 0 {
		return
	}
	ev := Event{
		ID:        uuid.NewString(),
		Type:      t,
		SessionID: s.id,
		State:     s.state,
		Index:     index,
		At:        s.now(),
	}
	if index >= 0 && index < len(s.slots) {
		sl := s.slots[index].clone()
		ev.Slot = &sl
	}
	if t == EventReady || t == EventRefreshed {
		ev.Words = wordsOf(s.slots)
	}
	for _, sub := range s.subs {
		if !sub.push(ev) {
			s.logger.Debug("event dropped", "type", string(t))
		}
	}
}

// Pace forwards events to fn, waiting delay before each revealed slot after
// the first. It returns when events closes, ctx ends, or fn fails.
func Pace(ctx context.Context, events <-chan Event, delay time.Duration, fn func(Event) error) error {
	for {
		var ev Event
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok = <-events:
			if !ok {
				return nil
			}
		}

		if ev.Type == EventSlotRevealed && ev.Index > 0 && delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}
