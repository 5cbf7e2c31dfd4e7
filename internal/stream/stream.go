package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"osryn.bank/internal/ledger"
)

// DefaultBuffer is the per-subscriber channel size used when New gets <= 0.
const DefaultBuffer = 16

// Event is a posted ledger entry as seen by one account.
type Event struct {
	AccountID   string             `json:"account_id"`
	Transaction ledger.Transaction `json:"transaction"`
	Timestamp   time.Time          `json:"timestamp"`
}

type subscriber struct {
	accountID string
	ch        chan Event
}

// Stream fans ledger events out to subscribers (SSE clients).
type Stream struct {
	mu      sync.RWMutex
	subs    map[int]subscriber
	next    int
	buffer  int
	dropped atomic.Uint64
}

// New initialises an empty stream.
func New(buffer int) *Stream {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Stream{
		subs:   make(map[int]subscriber),
		buffer: buffer,
	}
}

// Subscribe registers a subscriber for accountID and returns a channel which
// will receive its events. An empty accountID receives every event.
// The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context, accountID string) <-chan Event {
	ch := make(chan Event, s.buffer)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = subscriber{accountID: accountID, ch: ch}
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

// Publish fans the event out to matching subscribers.
func (s *Stream) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = evt.Transaction.CreatedAt
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.accountID != "" && sub.accountID != evt.AccountID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			// Slow subscriber.
			s.dropped.Add(1)
		}
	}
}

// PublishTransfer emits both legs of a transfer, each to its own account.
func (s *Stream) PublishTransfer(fromID, toID string, res ledger.TransferResult) {
	s.Publish(Event{AccountID: fromID, Transaction: res.Debit})
	s.Publish(Event{AccountID: toID, Transaction: res.Credit})
}

// Subscribers reports the number of active subscribers.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Dropped reports how many events were discarded for slow subscribers.
func (s *Stream) Dropped() uint64 {
	return s.dropped.Load()
}
