// Package changefeed fans committed row changes out to in-process subscribers.
//
// Each consumer owns its Subscription: it subscribes when it starts and
// unsubscribes exactly once when it goes away.
package changefeed

import (
	"context"
	"slices"
	"slotwise/infras/metrics"
	"sync"

	"github.com/rs/zerolog/log"
)

type Handler func(Event)

type Subscription struct {
	id    uint64
	table string
}

// Publisher is the write side used by the domain services.
type Publisher interface {
	Publish(ctx context.Context, events ...Event)
}

type Feed interface {
	Publisher
	Subscribe(table string, predicate Predicate, handler Handler) Subscription
	Unsubscribe(subscription Subscription) bool
	Subscribers() int
}

type subscriber struct {
	id        uint64
	predicate Predicate
	handler   Handler
}

type feedImpl struct {
	mu      sync.RWMutex
	nextID  uint64
	tables  map[string][]subscriber
	metrics metrics.Recorder
}

func New(recorder metrics.Recorder) Feed {
	return &feedImpl{
		tables:  map[string][]subscriber{},
		metrics: recorder,
	}
}

// Subscribe registers handler for events of table matching predicate. A nil predicate matches everything.
func (f *feedImpl) Subscribe(table string, predicate Predicate, handler Handler) Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++

	f.tables[table] = append(f.tables[table], subscriber{
		id:        f.nextID,
		predicate: predicate,
		handler:   handler,
	})

	f.metrics.SetSubscribers(f.count())

	return Subscription{id: f.nextID, table: table}
}

// Unsubscribe reports whether the subscription was still live.
func (f *feedImpl) Unsubscribe(subscription Subscription) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	subs := f.tables[subscription.table]

	idx := slices.IndexFunc(subs, func(s subscriber) bool {
		return s.id == subscription.id
	})
	if idx == -1 {
		return false
	}

	f.tables[subscription.table] = slices.Delete(subs, idx, idx+1)
	if len(f.tables[subscription.table]) == 0 {
		delete(f.tables, subscription.table)
	}

	f.metrics.SetSubscribers(f.count())

	return true
}

// Publish delivers events synchronously. Handlers must not block; a panicking handler is logged and skipped.
func (f *feedImpl) Publish(_ context.Context, events ...Event) {
	for _, event := range events {
		f.mu.RLock()
		subs := slices.Clone(f.tables[event.Table])
		f.mu.RUnlock()

		for _, sub := range subs {
			if sub.predicate != nil && !sub.predicate(event) {
				continue
			}

			f.deliver(sub, event)
		}
	}
}

func (f *feedImpl) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.count()
}

func (f *feedImpl) deliver(sub subscriber, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("table", event.Table).
				Str("event", string(event.Type)).
				Uint64("subscription", sub.id).
				Msg("change feed handler panicked")
		}
	}()

	sub.handler(event)
}

func (f *feedImpl) count() int {
	total := 0
	for _, subs := range f.tables {
		total += len(subs)
	}

	return total
}
