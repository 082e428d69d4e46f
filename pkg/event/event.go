// Package event provides a small typed publish/subscribe bus. Subscribers
// hold an explicit handle and stay registered until they unsubscribe.
package event

import (
	"sync"
)

// Handler receives published values
type Handler[T any] func(T)

// Bus delivers values of type T to its subscribers, synchronously and in
// subscription order.
type Bus[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   []*Subscription[T]
}

// Subscription is the handle returned by Subscribe
type Subscription[T any] struct {
	bus     *Bus[T]
	id      uint64
	handler Handler[T]
	paused  bool
}

// Subscribe registers fn and returns its handle
func (b *Bus[T]) Subscribe(fn Handler[T]) *Subscription[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	s := &Subscription[T]{bus: b, id: b.nextID, handler: fn}
	b.subs = append(b.subs, s)
	return s
}

// Publish calls every active subscriber with v
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	active := make([]Handler[T], 0, len(b.subs))
	for _, s := range b.subs {
		if !s.paused {
			active = append(active, s.handler)
		}
	}
	b.mu.Unlock()

	// Handlers run unlocked so they may subscribe or unsubscribe.
	for _, fn := range active {
		fn(v)
	}
}

// Len returns the number of registered subscriptions
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Unsubscribe removes the subscription from its bus. Calling it more than
// once is harmless.
func (s *Subscription[T]) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub.id == s.id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			break
		}
	}
	s.bus = nil
}

// Pause stops delivery to this subscriber until Resume is called
func (s *Subscription[T]) Pause() {
	s.setPaused(true)
}

// Resume re-enables delivery after Pause
func (s *Subscription[T]) Resume() {
	s.setPaused(false)
}

func (s *Subscription[T]) setPaused(p bool) {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.mu.Lock()
	s.paused = p
	s.bus.mu.Unlock()
}
