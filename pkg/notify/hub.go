// Package notify provides the subscriber collection shared by records, the
// registry and the filter models.
package notify

import "sync"

// Listener receives events of type T.
type Listener[T any] func(T)

// Hub is a set of listeners. Dispatch runs on the caller's goroutine against a
// copy of the listener list, so a listener may subscribe, unsubscribe or call
// back into the owner while an event is being delivered.
type Hub[T any] struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]Listener[T]
	order     []uint64
}

// Subscribe registers l and returns a function that removes it again.
// Calling the returned function more than once is harmless.
func (h *Hub[T]) Subscribe(l Listener[T]) (unsubscribe func()) {
	if l == nil {
		return func() {}
	}

	h.mu.Lock()
	if h.listeners == nil {
		h.listeners = make(map[uint64]Listener[T])
	}
	h.nextID++
	id := h.nextID
	h.listeners[id] = l
	h.order = append(h.order, id)
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *Hub[T]) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.listeners[id]; !ok {
		return
	}
	delete(h.listeners, id)
	for i, v := range h.order {
		if v == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of registered listeners.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.order)
}

// Emit delivers ev to every listener registered at the time of the call, in
// subscription order.
func (h *Hub[T]) Emit(ev T) {
	h.mu.Lock()
	snapshot := make([]Listener[T], 0, len(h.order))
	for _, id := range h.order {
		snapshot = append(snapshot, h.listeners[id])
	}
	h.mu.Unlock()

	for _, l := range snapshot {
		l(ev)
	}
}
