package stream

import (
	"context"
	"sync"
	"time"
)

// ReviewEvent describes a completed submission review for the live event
// stream.
type ReviewEvent struct {
	SubmissionID string    `json:"submission_id"`
	ActivityID   string    `json:"activity_id"`
	UserID       string    `json:"user_id"`
	Outcome      string    `json:"outcome"`
	AwardedGems  int64     `json:"awarded_gems"`
	Timestamp    time.Time `json:"timestamp"`
}

// Stream fan-outs review events to all active subscribers (SSE clients).
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan ReviewEvent
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan ReviewEvent)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan ReviewEvent {
	ch := make(chan ReviewEvent, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt ReviewEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
