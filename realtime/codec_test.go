package realtime

import (
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	env, err := Decode([]byte(`{"type":"online_count","payload":{"count":42}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Type != EventOnlineCount {
		t.Errorf("expected online_count, got %s", env.Type)
	}
	if string(env.Payload) != `{"count":42}` {
		t.Errorf("unexpected payload %s", env.Payload)
	}
}

func TestDecode_MissingPayloadIsNull(t *testing.T) {
	env, err := Decode([]byte(`{"type":"pong"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(env.Payload) != "null" {
		t.Errorf("expected null payload, got %s", env.Payload)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		is    error
	}{
		{name: "not json", frame: `hello`},
		{name: "truncated", frame: `{"type":"reaction"`},
		{name: "array", frame: `[1,2]`},
		{name: "missing type", frame: `{"payload":{}}`, is: ErrMissingType},
		{name: "empty type", frame: `{"type":"","payload":{}}`, is: ErrMissingType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.frame))
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("expected a DecodeError, got %v", err)
			}
			if string(decodeErr.Frame) != tt.frame {
				t.Errorf("expected frame to be kept, got %s", decodeErr.Frame)
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("expected %v, got %v", tt.is, err)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		t       EventType
		payload any
		want    string
	}{
		{EventPing, nil, `{"type":"ping","payload":null}`},
		{EventSubscribeArticle, ArticlePayload{ArticleID: "a1"}, `{"type":"subscribe_article","payload":{"articleId":"a1"}}`},
		{EventTyping, map[string]string{"articleId": "a2"}, `{"type":"typing","payload":{"articleId":"a2"}}`},
	}
	for _, tt := range tests {
		got, err := Encode(tt.t, tt.payload)
		if err != nil {
			t.Fatalf("Encode(%s): %v", tt.t, err)
		}
		if string(got) != tt.want {
			t.Errorf("Encode(%s) = %s, want %s", tt.t, got, tt.want)
		}
	}
}

func TestEncode_Unsupported(t *testing.T) {
	if _, err := Encode(EventTyping, make(chan int)); err == nil {
		t.Error("expected an error for an unencodable payload")
	}
}

func TestDecodePayload(t *testing.T) {
	p, err := DecodePayload[AchievementPayload]([]byte(`{"id":"x","name":"First post","points":10}`))
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if p.Name != "First post" || p.Points != 10 {
		t.Errorf("unexpected payload %+v", p)
	}

	if _, err := DecodePayload[OnlineCountPayload](nil); err == nil {
		t.Error("expected error for empty payload")
	}
}

func TestEventType_Known(t *testing.T) {
	for _, et := range InboundEventTypes {
		if !et.Known() {
			t.Errorf("%s should be known", et)
		}
	}
	if EventType("poll_result").Known() {
		t.Error("poll_result should not be known")
	}
}
