package assessment

import "time"

// clock drives a session's countdown. One goroutine per running session,
// stopped on terminal transition or Close. A tick that fires after stop is
// ignored by the session's own status check, so a straggler between stop()
// and goroutine exit is harmless.
type clock struct {
	ticker *time.Ticker
	done   chan struct{}
}

func newClock(s *Session, interval time.Duration) *clock {
	c := &clock{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go c.run(s)
	return c
}

func (c *clock) run(s *Session) {
	for {
		select {
		case <-c.done:
			return
		case <-c.ticker.C:
			s.tick()
		}
	}
}

func (c *clock) stop() {
	c.ticker.Stop()
	select {
	case <-c.done:
		// already stopped
	default:
		close(c.done)
	}
}
