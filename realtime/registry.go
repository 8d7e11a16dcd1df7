package realtime

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// Registry maps event types to the ordered set of handlers interested in
// them. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[EventType][]*entry
	logger   Logger

	// onlineCount is applied to every online_count envelope before any
	// registered handler runs.
	onlineCount func(count int64)
}

// entry is one registration. removed is set when the handler leaves the set,
// so a dispatch already in progress skips it.
type entry struct {
	handler Handler
	removed atomic.Bool
}

// NewRegistry creates an empty registry. onlineCount may be nil.
func NewRegistry(logger Logger, onlineCount func(count int64)) *Registry {
	if logger == nil {
		logger = &nopLogger{}
	}
	return &Registry{
		handlers:    make(map[EventType][]*entry),
		logger:      logger,
		onlineCount: onlineCount,
	}
}

// On adds h to the set for t. Adding a handler already in the set is a no-op.
func (r *Registry) On(t EventType, h Handler) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.handlers[t] {
		if sameHandler(existing.handler, h) {
			return
		}
	}
	r.handlers[t] = append(r.handlers[t], &entry{handler: h})
}

// Off removes h from the set for t. It is a no-op if h is not registered.
func (r *Registry) Off(t EventType, h Handler) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.handlers[t]
	for i, existing := range set {
		if !sameHandler(existing.handler, h) {
			continue
		}
		existing.removed.Store(true)
		next := make([]*entry, 0, len(set)-1)
		next = append(next, set[:i]...)
		next = append(next, set[i+1:]...)
		if len(next) == 0 {
			delete(r.handlers, t)
		} else {
			r.handlers[t] = next
		}
		return
	}
}

// Clear removes every handler registered for t.
func (r *Registry) Clear(t EventType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.handlers[t] {
		e.removed.Store(true)
	}
	delete(r.handlers, t)
}

// Len returns the number of handlers registered for t.
func (r *Registry) Len(t EventType) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[t])
}

// Dispatch applies the built-in online_count behaviour and then calls every
// handler registered for env.Type with the unchanged payload. Handlers run
// independently: an error or panic in one is logged and the rest still run.
// A handler removed by an earlier handler is skipped; one added during the
// dispatch first runs on the next envelope.
func (r *Registry) Dispatch(env Envelope) {
	if env.Type == EventOnlineCount && r.onlineCount != nil {
		p, err := DecodePayload[OnlineCountPayload](env.Payload)
		if err != nil {
			r.logger.Error(err, "Invalid online_count payload")
		} else {
			r.onlineCount(p.Count)
		}
	}

	r.mu.RLock()
	set := r.handlers[env.Type]
	r.mu.RUnlock()

	for _, e := range set {
		if e.removed.Load() {
			continue
		}
		if err := r.invoke(env, e.handler); err != nil {
			r.logger.Error(err, "Event handler failed", "type", string(env.Type))
		}
	}
}

func (r *Registry) invoke(env Envelope, h Handler) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &HandlerError{Type: env.Type, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	if herr := h.HandleEvent(env.Payload); herr != nil {
		return &HandlerError{Type: env.Type, Err: herr}
	}
	return nil
}

// sameHandler compares by identity. Handlers whose dynamic type is not
// comparable never match, so they can only be removed with Clear.
func sameHandler(a, b Handler) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
