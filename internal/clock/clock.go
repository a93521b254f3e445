package clock

import "time"

// Clock abstracts the time source used by the timer engine.
// Production code uses Real, tests use Fake to control time advancement.
type Clock interface {
	// Now returns the current time. Values returned by Real carry a monotonic
	// reading, so differences between them are immune to wall-clock jumps.
	Now() time.Time
	// NewTicker creates a Ticker that fires at intervals of duration d.
	NewTicker(d time.Duration) Ticker
}

// Ticker represents a repeating timer.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

// Real returns a Clock backed by the standard time package.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

type realTicker struct {
	ticker *time.Ticker
}

func (t *realTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *realTicker) Stop() {
	t.ticker.Stop()
}
