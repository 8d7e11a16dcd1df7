package realtime

import "encoding/json"

// Handler receives the payload of every dispatched envelope of the types it
// is registered for.
//
// The registry compares handlers by identity, so implementations should be
// pointer types. Registering the same handler twice for a type is a no-op,
// and Off removes it by the same identity.
type Handler interface {
	HandleEvent(payload json.RawMessage) error
}

type funcHandler struct {
	fn func(payload json.RawMessage) error
}

func (h *funcHandler) HandleEvent(payload json.RawMessage) error {
	return h.fn(payload)
}

// HandleFunc adapts fn into a Handler. Each call returns a distinct Handler;
// keep the returned value to unregister it later.
func HandleFunc(fn func(payload json.RawMessage) error) Handler {
	return &funcHandler{fn: fn}
}

type typedHandler[T any] struct {
	fn func(T) error
}

func (h *typedHandler[T]) HandleEvent(payload json.RawMessage) error {
	v, err := DecodePayload[T](payload)
	if err != nil {
		return err
	}
	return h.fn(v)
}

// Typed returns a Handler that decodes the payload into T before calling fn.
//
//	client.On(realtime.EventNewComment, realtime.Typed(func(p realtime.NewCommentPayload) error {
//		...
//	}))
func Typed[T any](fn func(T) error) Handler {
	return &typedHandler[T]{fn: fn}
}
