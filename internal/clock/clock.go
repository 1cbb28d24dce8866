// Package clock abstracts time for the voxkit session layer. The audio
// session polls recording duration and playback position on short tick
// intervals and arms a max-duration deadline; routing those through a [Clock]
// lets tests advance virtual time deterministically instead of sleeping.
package clock

import "time"

// Ticker delivers ticks on a channel at a fixed interval until stopped.
type Ticker interface {
	// Chan returns the channel on which ticks are delivered.
	Chan() <-chan time.Time

	// Stop ends tick delivery. It does not close the channel.
	Stop()
}

// Timer is a one-shot deadline armed via [Clock.AfterFunc].
type Timer interface {
	// Stop cancels the timer. It reports whether the call prevented the
	// function from firing.
	Stop() bool
}

// Clock is the time source injected into the session layer.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// NewTicker returns a [Ticker] firing every d.
	NewTicker(d time.Duration) Ticker

	// AfterFunc arms f to run on its own goroutine after d.
	AfterFunc(d time.Duration, f func()) Timer
}

// System returns the [Clock] backed by the real time package.
func System() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) NewTicker(d time.Duration) Ticker {
	return systemTicker{time.NewTicker(d)}
}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type systemTicker struct {
	t *time.Ticker
}

func (s systemTicker) Chan() <-chan time.Time { return s.t.C }
func (s systemTicker) Stop()                  { s.t.Stop() }
