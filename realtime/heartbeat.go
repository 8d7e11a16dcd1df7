package realtime

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// heartbeat runs at most one ping ticker. Like scheduler it relies on the
// Client mutex.
type heartbeat struct {
	clock    clockwork.Clock
	interval time.Duration
	ticker   clockwork.Ticker
	done     chan struct{}
	token    uint64
}

func newHeartbeat(clock clockwork.Clock, interval time.Duration) *heartbeat {
	return &heartbeat{clock: clock, interval: interval}
}

// start replaces any running ticker. beat is called from the ticker
// goroutine with the token of this run.
func (h *heartbeat) start(beat func(token uint64)) {
	h.stop()
	if h.interval <= 0 {
		return
	}
	token := h.token
	ticker := h.clock.NewTicker(h.interval)
	done := make(chan struct{})
	h.ticker, h.done = ticker, done

	go func() {
		for {
			select {
			case <-ticker.Chan():
				beat(token)
			case <-done:
				return
			}
		}
	}()
}

// stop halts the ticker. After it returns, current rejects every token
// handed out before.
func (h *heartbeat) stop() {
	if h.ticker != nil {
		h.ticker.Stop()
		close(h.done)
		h.ticker, h.done = nil, nil
	}
	h.token++
}

func (h *heartbeat) current(token uint64) bool {
	return h.ticker != nil && token == h.token
}

func (h *heartbeat) running() bool {
	return h.ticker != nil
}
