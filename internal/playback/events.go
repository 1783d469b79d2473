package playback

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a run lifecycle event.
type EventType string

const (
	EventStepStart    EventType = "step-start"
	EventStepComplete EventType = "step-complete"
	EventPaused       EventType = "paused"
	EventResumed      EventType = "resumed"
	EventStopped      EventType = "stopped"
	EventCompleted    EventType = "completed"
	EventError        EventType = "error"
	EventSpeedChanged EventType = "speed-changed"
)

// Event is one run lifecycle notification. Events for a given run are
// delivered to every subscriber in the order the corresponding
// transitions occurred.
type Event struct {
	Type             EventType `json:"event"`
	SequenceID       string    `json:"sequence_id,omitempty"`
	SequenceName     string    `json:"name,omitempty"`
	CurrentStepIndex int       `json:"current_step_index"`
	TotalSteps       int       `json:"total_steps"`
	SpeedMultiplier  float64   `json:"speed_multiplier,omitempty"`
	Error            string    `json:"error,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Subscription is one observer's ordered event feed. Read from C until
// it is closed by Unsubscribe or the publisher shutting down.
type Subscription struct {
	// C delivers events in publish order.
	C <-chan Event

	id  string
	pub *Publisher
}

// Unsubscribe detaches the subscription. Already-queued events are
// still delivered before C closes.
func (s *Subscription) Unsubscribe() {
	s.pub.unsubscribe(s.id)
}

// subscriber buffers events for one observer and drains them in order
// through a dedicated goroutine, so a slow observer never blocks the
// engine worker or reorders delivery.
type subscriber struct {
	mu     sync.Mutex
	queue  []Event
	notify chan struct{}
	out    chan Event
	closed bool
}

// Publisher fans out run lifecycle events to registered observers.
//
// Publish never blocks: each subscriber has an unbounded ordered queue
// drained by its own goroutine. Subscribe and Unsubscribe are safe to
// call at any time and never drop in-flight events.
type Publisher struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	closed      bool
}

// NewPublisher creates an event publisher with no subscribers.
func NewPublisher() *Publisher {
	return &Publisher{
		subscribers: make(map[string]*subscriber),
	}
}

// Subscribe registers a new observer and returns its subscription.
func (p *Publisher) Subscribe() *Subscription {
	sub := &subscriber{
		notify: make(chan struct{}, 1),
		out:    make(chan Event),
	}
	go sub.drain()

	id := uuid.New().String()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		sub.close()
		return &Subscription{C: sub.out, id: id, pub: p}
	}
	p.subscribers[id] = sub
	p.mu.Unlock()

	return &Subscription{C: sub.out, id: id, pub: p}
}

// Publish delivers an event to every subscriber in registration-independent
// but per-subscriber publish order. Never blocks.
func (p *Publisher) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, sub := range p.subscribers {
		sub.enqueue(evt)
	}
}

// Close detaches all subscribers. Queued events are still delivered
// before each subscription channel closes.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for id, sub := range p.subscribers {
		sub.close()
		delete(p.subscribers, id)
	}
}

// SubscriberCount returns the number of active subscriptions.
func (p *Publisher) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers)
}

func (p *Publisher) unsubscribe(id string) {
	p.mu.Lock()
	sub, ok := p.subscribers[id]
	if ok {
		delete(p.subscribers, id)
	}
	p.mu.Unlock()

	if ok {
		sub.close()
	}
}

// enqueue appends an event to the subscriber's ordered queue.
func (s *subscriber) enqueue(evt Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, evt)
	s.mu.Unlock()

	// Non-blocking wake-up; a single pending signal is enough because
	// drain empties the whole queue each pass.
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// drain delivers queued events to the out channel in order.
func (s *subscriber) drain() {
	defer close(s.out)

	for range s.notify {
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				closed := s.closed
				s.mu.Unlock()
				if closed {
					return
				}
				break
			}
			evt := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			s.out <- evt
		}
	}
}

// close marks the subscriber finished. Queued events are delivered
// before the out channel closes.
func (s *subscriber) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}
