package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ChangeType names a roster change pushed to subscribers
type ChangeType string

const (
	ChangeInitial               ChangeType = "initial"
	ChangeParticipantAssigned   ChangeType = "participant_assigned"
	ChangeParticipantUnassigned ChangeType = "participant_unassigned"
	ChangeEventUpdated          ChangeType = "event_updated"
	ChangeDraftUpdated          ChangeType = "draft_updated"
	ChangeEventDeleted          ChangeType = "event_deleted"

	// System
	ChangeHeartbeat ChangeType = "heartbeat"
)

// Change is one notification for the viewers of an event
type Change struct {
	Type    ChangeType  `json:"type"`
	EventID string      `json:"event_id"`
	Version int         `json:"version,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	At      time.Time   `json:"at"`
}

// Format returns the SSE formatted string
func (c *Change) Format() string {
	data, _ := json.Marshal(c)
	return "event: " + string(c.Type) + "\ndata: " + string(data) + "\n\n"
}

// Subscription is one viewer's ordered feed of an event's changes
type Subscription struct {
	ID      string
	EventID string
	Changes chan *Change
	Done    chan struct{}

	missed atomic.Int64
}

// TakeMissed returns how many changes were dropped on a full buffer since
// the last call, and resets the count. A non-zero value means the viewer's
// state is stale and needs a full snapshot.
func (s *Subscription) TakeMissed() int64 {
	return s.missed.Swap(0)
}

// ChangeSink receives every published change after local delivery. Sinks
// run on the notifier's dispatch goroutine, never under its lock.
type ChangeSink interface {
	Emit(ctx context.Context, change *Change) error
}

const sinkEmitTimeout = 5 * time.Second

// NotifierConfig tunes subscription buffers and heartbeats. SinkBuffer bounds
// the changes waiting for sinks; when it is full new changes skip the sinks.
type NotifierConfig struct {
	Buffer     int
	SinkBuffer int
	Heartbeat  time.Duration
}

// ChangeNotifier fans changes out to the subscribers of each event. Delivery
// happens under one lock so every subscriber sees changes in publish order.
type ChangeNotifier struct {
	mu     sync.Mutex
	subs   map[string][]*Subscription // eventID -> subscriptions in subscribe order
	buffer int
	closed bool
	logger *slog.Logger

	sinks     []ChangeSink
	sinkQueue chan *Change
	sinkDone  chan struct{}

	heartbeat *time.Ticker
	done      chan struct{}
	closeOnce sync.Once
}

// NewChangeNotifier creates a notifier. A positive heartbeat interval starts
// the heartbeat loop; Close stops it.
func NewChangeNotifier(cfg NotifierConfig, logger *slog.Logger, sinks ...ChangeSink) *ChangeNotifier {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	if cfg.SinkBuffer <= 0 {
		cfg.SinkBuffer = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	n := &ChangeNotifier{
		subs:   make(map[string][]*Subscription),
		buffer: cfg.Buffer,
		sinks:  sinks,
		logger: logger,
		done:   make(chan struct{}),
	}
	if len(sinks) > 0 {
		n.sinkQueue = make(chan *Change, cfg.SinkBuffer)
		n.sinkDone = make(chan struct{})
		go n.dispatchSinks()
	}
	if cfg.Heartbeat > 0 {
		n.heartbeat = time.NewTicker(cfg.Heartbeat)
		go n.sendHeartbeats()
	}
	return n
}

// Subscribe registers a new subscription for an event
func (n *ChangeNotifier) Subscribe(eventID string) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	sub := &Subscription{
		ID:      uuid.NewString(),
		EventID: eventID,
		Changes: make(chan *Change, n.buffer),
		Done:    make(chan struct{}),
	}
	n.subs[eventID] = append(n.subs[eventID], sub)
	return sub
}

// Unsubscribe removes the subscription and closes its channels. Calling it
// twice is harmless.
func (n *ChangeNotifier) Unsubscribe(sub *Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()

	list := n.subs[sub.EventID]
	for i, s := range list {
		if s != sub {
			continue
		}
		close(s.Done)
		close(s.Changes)
		list = append(list[:i], list[i+1:]...)
		break
	}
	if len(list) == 0 {
		delete(n.subs, sub.EventID)
	} else {
		n.subs[sub.EventID] = list
	}
}

// Publish delivers change to every subscriber of its event and queues it
// for the sinks. Nothing here blocks: a full subscriber buffer drops the
// change for that subscriber and marks it missed, and a full sink queue
// drops it for the sinks.
func (n *ChangeNotifier) Publish(change *Change) {
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	for _, sub := range n.subs[change.EventID] {
		select {
		case sub.Changes <- change:
		default:
			sub.missed.Add(1)
		}
	}

	if n.sinkQueue == nil || n.closed {
		return
	}
	select {
	case n.sinkQueue <- change:
	default:
		n.logger.Warn("change sink queue full, dropping change",
			slog.String("event_id", change.EventID),
			slog.String("type", string(change.Type)),
			slog.Int("version", change.Version))
	}
}

// dispatchSinks emits queued changes in publish order until Close
func (n *ChangeNotifier) dispatchSinks() {
	defer close(n.sinkDone)
	for change := range n.sinkQueue {
		for _, sink := range n.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), sinkEmitTimeout)
			err := sink.Emit(ctx, change)
			cancel()
			if err != nil {
				n.logger.Warn("change sink failed",
					slog.String("event_id", change.EventID),
					slog.String("type", string(change.Type)),
					slog.String("error", err.Error()))
			}
		}
	}
}

// SubscriberCount returns the number of live subscriptions for an event
func (n *ChangeNotifier) SubscriberCount(eventID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[eventID])
}

// EventCount returns how many events have at least one subscriber
func (n *ChangeNotifier) EventCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

func (n *ChangeNotifier) sendHeartbeats() {
	for {
		select {
		case <-n.heartbeat.C:
			n.mu.Lock()
			now := time.Now().UTC()
			for eventID, list := range n.subs {
				beat := &Change{Type: ChangeHeartbeat, EventID: eventID, At: now}
				for _, sub := range list {
					select {
					case sub.Changes <- beat:
					default:
					}
				}
			}
			n.mu.Unlock()
		case <-n.done:
			return
		}
	}
}

// Close stops heartbeats, closes every subscription and waits for the sinks
// to receive the changes already queued
func (n *ChangeNotifier) Close() {
	n.closeOnce.Do(func() {
		close(n.done)
		if n.heartbeat != nil {
			n.heartbeat.Stop()
		}

		n.mu.Lock()
		n.closed = true
		for eventID, list := range n.subs {
			for _, sub := range list {
				close(sub.Done)
				close(sub.Changes)
			}
			delete(n.subs, eventID)
		}
		if n.sinkQueue != nil {
			close(n.sinkQueue)
		}
		n.mu.Unlock()

		if n.sinkDone != nil {
			<-n.sinkDone
		}
	})
}
