// Package events demultiplexes server-pushed notifications onto typed
// subscriber registries. Each backend service owns a router keyed by its
// event identifiers; frames for unknown services or events are logged and
// dropped without disturbing other subscribers.
package events

import "sync"

// Handle identifies one registered subscriber within a registry.
type Handle int

// registry keeps subscribers in registration order and survives concurrent
// subscribe/unsubscribe while an emit is in flight.
type registry[T any] struct {
	mu       sync.Mutex
	next     Handle
	order    []Handle
	handlers map[Handle]func(T)
}

// Subscribe registers fn and returns a handle for later removal.
func (r *registry[T]) Subscribe(fn func(T)) Handle {
	if fn == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handlers == nil {
		r.handlers = make(map[Handle]func(T))
	}
	r.next++
	handle := r.next
	r.handlers[handle] = fn
	r.order = append(r.order, handle)
	return handle
}

// Unsubscribe removes the subscriber; unknown handles are ignored.
func (r *registry[T]) Unsubscribe(handle Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[handle]; !ok {
		return
	}
	delete(r.handlers, handle)
	for i, existing := range r.order {
		if existing == handle {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// emit invokes every subscriber in registration order. The handler list is
// snapshotted first so a handler may unsubscribe itself without deadlocking.
func (r *registry[T]) emit(event T) {
	r.mu.Lock()
	handlers := make([]func(T), 0, len(r.order))
	for _, handle := range r.order {
		if fn, ok := r.handlers[handle]; ok {
			handlers = append(handlers, fn)
		}
	}
	r.mu.Unlock()
	for _, fn := range handlers {
		fn(event)
	}
}
