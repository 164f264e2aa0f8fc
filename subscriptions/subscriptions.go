// Package subscriptions makes it easy to manage subscriptions to generation
// events.
package subscriptions

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	bingo "github.com/Parkreiner/climbingbingo"
)

const (
	maxSubscriberGoroutines = 100
	defaultDispatchTimeout  = 2 * time.Second
)

// ErrDisposed is returned by every method once a Manager has been disposed.
var ErrDisposed = errors.New("subscription manager has been disposed")

type subscriptionEntry struct {
	id          uuid.UUID
	eventChan   chan bingo.GenerationEvent
	eventTypes  []bingo.GenerationEventType
	unsubscribe func()
}

// Manager fans generation events out to every interested subscriber.
type Manager struct {
	subs []subscriptionEntry
	// Should always be buffered with some size
	routineBuffer   chan struct{}
	disposed        bool
	dispatchTimeout time.Duration
	mtx             *sync.Mutex
}

var _ bingo.EventSubscriber = &Manager{}

// New creates a Manager. A non-positive dispatchTimeout falls back to a
// default of two seconds.
func New(dispatchTimeout time.Duration) *Manager {
	if dispatchTimeout <= 0 {
		dispatchTimeout = defaultDispatchTimeout
	}

	buffer := make(chan struct{}, maxSubscriberGoroutines)
	for i := 0; i < maxSubscriberGoroutines; i++ {
		buffer <- struct{}{}
	}

	return &Manager{
		subs:            nil,
		routineBuffer:   buffer,
		dispatchTimeout: dispatchTimeout,
		mtx:             &sync.Mutex{},
	}
}

// DispatchEvent sends an event to every subscriber whose filters match. A
// subscriber that doesn't receive the event within the dispatch timeout is
// skipped, and reported in the returned error.
func (sm *Manager) DispatchEvent(event bingo.GenerationEvent) error {
	sm.mtx.Lock()
	defer sm.mtx.Unlock()

	if sm.disposed {
		return ErrDisposed
	}

	var eligible []subscriptionEntry
	for _, s := range sm.subs {
		if isEligibleForDispatch(s, event) {
			eligible = append(eligible, s)
		}
	}

	var successfulBroadcasts atomic.Int64
	wg := sync.WaitGroup{}
	for _, s := range eligible {
		s := s
		wg.Add(1)
		<-sm.routineBuffer
		go func() {
			defer func() {
				wg.Done()
				sm.routineBuffer <- struct{}{}
			}()

			select {
			case s.eventChan <- event:
				successfulBroadcasts.Add(1)
			case <-time.After(sm.dispatchTimeout):
			}
		}()
	}
	wg.Wait()

	failed := len(eligible) - int(successfulBroadcasts.Load())
	if failed > 0 {
		return fmt.Errorf("dispatch failed for %d/%d subscribers", failed, len(eligible))
	}
	return nil
}

// Subscribe registers a new subscriber. If types is nil or empty, the
// subscriber receives every event.
func (sm *Manager) Subscribe(types []bingo.GenerationEventType) (<-chan bingo.GenerationEvent, func(), error) {
	sm.mtx.Lock()
	defer sm.mtx.Unlock()

	if sm.disposed {
		return nil, nil, ErrDisposed
	}

	subID := uuid.New()
	eventChan := make(chan bingo.GenerationEvent, 1)
	once := &sync.Once{}

	entry := subscriptionEntry{
		id:         subID,
		eventChan:  eventChan,
		eventTypes: slices.Clone(types),
	}
	entry.unsubscribe = func() {
		once.Do(func() {
			sm.mtx.Lock()
			defer sm.mtx.Unlock()
			sm.removeLocked(subID)
			close(eventChan)
		})
	}

	sm.subs = append(sm.subs, entry)
	return eventChan, entry.unsubscribe, nil
}

// SubscriberCount returns how many subscribers are currently registered.
func (sm *Manager) SubscriberCount() int {
	sm.mtx.Lock()
	defer sm.mtx.Unlock()
	return len(sm.subs)
}

// Dispose closes every subscription. Once disposed, the manager rejects all
// new subscriptions and dispatches. This function is safe to call multiple
// times.
func (sm *Manager) Dispose() {
	sm.mtx.Lock()
	if sm.disposed {
		sm.mtx.Unlock()
		return
	}
	sm.disposed = true
	subsCopy := slices.Clone(sm.subs)
	sm.mtx.Unlock()

	for _, s := range subsCopy {
		s.unsubscribe()
	}
}

func (sm *Manager) removeLocked(subID uuid.UUID) {
	var filtered []subscriptionEntry
	for _, entry := range sm.subs {
		if entry.id != subID {
			filtered = append(filtered, entry)
		}
	}
	sm.subs = filtered
}

func isEligibleForDispatch(subscription subscriptionEntry, event bingo.GenerationEvent) bool {
	if len(subscription.eventTypes) == 0 {
		return true
	}
	return slices.Contains(subscription.eventTypes, event.Type)
}
