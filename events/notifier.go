// Package events broadcasts session change events to subscribers.
package events

import "sync"

// ChangeEvent lists the session ids affected by a single store mutation.
type ChangeEvent struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Changed []string `json:"changed"`
}

// Empty reports whether the event carries no ids.
func (e ChangeEvent) Empty() bool {
	return len(e.Added) == 0 && len(e.Removed) == 0 && len(e.Changed) == 0
}

type subscriber struct {
	id uint64
	fn func(ChangeEvent)
}

// Notifier delivers ChangeEvents synchronously to its subscribers in
// subscription order. A Fire call works on the subscriber list as it was when
// the call started; nothing is buffered for later subscribers.
type Notifier struct {
	mu          sync.RWMutex
	nextID      uint64
	subscribers []subscriber
	closed      bool
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe registers fn and returns a function that removes it again. The
// returned function is safe to call more than once.
func (n *Notifier) Subscribe(fn func(ChangeEvent)) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed || fn == nil {
		return func() {}
	}
	n.nextID++
	id := n.nextID
	n.subscribers = append(n.subscribers, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { n.remove(id) })
	}
}

// Fire delivers ev to every current subscriber. Events with no ids are not
// delivered. Subscribers must not block: they run on the caller's goroutine.
func (n *Notifier) Fire(ev ChangeEvent) {
	if ev.Empty() {
		return
	}

	n.mu.RLock()
	snapshot := make([]subscriber, len(n.subscribers))
	copy(snapshot, n.subscribers)
	n.mu.RUnlock()

	for _, s := range snapshot {
		s.fn(clone(ev))
	}
}

// SubscriberCount returns the number of registered subscribers.
func (n *Notifier) SubscriberCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subscribers)
}

// Close drops all subscribers. Subscribing after Close has no effect.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.subscribers = nil
}

func (n *Notifier) remove(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, s := range n.subscribers {
		if s.id == id {
			n.subscribers = append(n.subscribers[:i:i], n.subscribers[i+1:]...)
			return
		}
	}
}

// clone gives each subscriber its own slices.
func clone(ev ChangeEvent) ChangeEvent {
	return ChangeEvent{
		Added:   append([]string{}, ev.Added...),
		Removed: append([]string{}, ev.Removed...),
		Changed: append([]string{}, ev.Changed...),
	}
}
