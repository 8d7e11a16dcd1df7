package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope is the {type, payload} unit exchanged over the connection.
// Payload is left undecoded; handlers interpret it.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// outbound mirrors Envelope for encoding an arbitrary payload value.
type outbound struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// Decode parses a text frame into an Envelope. Any failure is returned as a
// *DecodeError.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, &DecodeError{Frame: frame, Err: err}
	}
	if env.Type == "" {
		return Envelope{}, &DecodeError{Frame: frame, Err: ErrMissingType}
	}
	if len(env.Payload) == 0 {
		env.Payload = json.RawMessage("null")
	}
	return env, nil
}

// Encode serializes an outbound request as {"type":...,"payload":...}.
// A nil payload is written as null.
func Encode(t EventType, payload any) ([]byte, error) {
	data, err := json.Marshal(outbound{Type: t, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", t, err)
	}
	return data, nil
}

// DecodePayload unmarshals an envelope payload into T.
func DecodePayload[T any](payload json.RawMessage) (T, error) {
	var out T
	if len(bytes.TrimSpace(payload)) == 0 {
		return out, fmt.Errorf("decode payload: empty")
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}
