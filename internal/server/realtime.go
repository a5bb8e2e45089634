package server

import (
	"context"
	"sync"
	"time"

	"github.com/liverton-codes/liverton-api/internal/engagement"
)

const (
	// RealtimeEventEngagement announces fresh aggregates for one app.
	RealtimeEventEngagement = "engagement-change"
	realtimeEventHeartbeat  = "heartbeat"
)

// RealtimeMessage carries one engagement update to SSE subscribers.
type RealtimeMessage struct {
	AppID     string
	EventType string
	Summary   engagement.Summary
	Timestamp time.Time
}

// RealtimeDispatcher fans engagement updates out to per-app subscribers.
// Slow subscribers are skipped rather than blocking the publisher.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
}

type realtimeSubscriber struct {
	id     int64
	stream chan RealtimeMessage
}

// NewRealtimeDispatcher constructs an empty dispatcher.
func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[string]map[int64]*realtimeSubscriber),
		bufferSize:  16,
	}
}

// Subscribe registers a stream for the app's updates until ctx is done.
func (d *RealtimeDispatcher) Subscribe(ctx context.Context, appID string) (<-chan RealtimeMessage, func()) {
	if appID == "" {
		ch := make(chan RealtimeMessage)
		close(ch)
		return ch, func() {}
	}
	subscriber := &realtimeSubscriber{
		id:     d.nextSequence(),
		stream: make(chan RealtimeMessage, d.bufferSize),
	}
	d.registerSubscriber(appID, subscriber)
	cleanup := func() {
		d.unregisterSubscriber(appID, subscriber.id)
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// Publish delivers the message to every subscriber of its app.
func (d *RealtimeDispatcher) Publish(message RealtimeMessage) {
	if message.AppID == "" || message.EventType == "" {
		return
	}
	d.mu.RLock()
	subscribers := d.subscribers[message.AppID]
	if len(subscribers) == 0 {
		d.mu.RUnlock()
		return
	}
	copies := make([]*realtimeSubscriber, 0, len(subscribers))
	for _, subscriber := range subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

func (d *RealtimeDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *RealtimeDispatcher) registerSubscriber(appID string, subscriber *realtimeSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[appID]; !ok {
		d.subscribers[appID] = make(map[int64]*realtimeSubscriber)
	}
	d.subscribers[appID][subscriber.id] = subscriber
}

func (d *RealtimeDispatcher) unregisterSubscriber(appID string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[appID]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, appID)
		}
	}
	d.mu.Unlock()
}
