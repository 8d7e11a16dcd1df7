package realtime

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestHeartbeat_Ticks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := newHeartbeat(clock, 30*time.Second)

	beats := make(chan uint64, 4)
	h.start(func(token uint64) { beats <- token })
	defer h.stop()

	for i := 0; i < 2; i++ {
		clock.Advance(30 * time.Second)
		select {
		case token := <-beats:
			if !h.current(token) {
				t.Errorf("beat %d carried a stale token", i)
			}
		case <-time.After(time.Second):
			t.Fatalf("beat %d not delivered", i)
		}
	}
}

func TestHeartbeat_StopInvalidatesToken(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := newHeartbeat(clock, 30*time.Second)

	beats := make(chan uint64, 1)
	h.start(func(token uint64) { beats <- token })
	clock.Advance(30 * time.Second)
	token := <-beats

	h.stop()
	if h.running() {
		t.Error("expected heartbeat to be stopped")
	}
	if h.current(token) {
		t.Error("token must be stale after stop")
	}

	clock.Advance(time.Minute)
	select {
	case <-beats:
		t.Error("stopped heartbeat beat")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHeartbeat_RestartReplacesTicker(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := newHeartbeat(clock, 30*time.Second)

	h.start(func(uint64) {})
	old := h.token
	h.start(func(uint64) {})
	defer h.stop()

	if h.current(old) {
		t.Error("restart must invalidate the previous token")
	}
	if !h.running() {
		t.Error("expected heartbeat to be running")
	}
}

func TestHeartbeat_ZeroIntervalDisabled(t *testing.T) {
	h := newHeartbeat(clockwork.NewFakeClock(), 0)
	h.start(func(uint64) { t.Error("disabled heartbeat beat") })
	if h.running() {
		t.Error("expected heartbeat to stay off")
	}
	h.stop()
}
