package clock

import (
	"sync"
	"time"
)

// Fake is a [Clock] whose time only moves when a test calls [Fake.Advance].
// Tickers and timers created from it fire synchronously inside Advance.
//
// Fake is safe for concurrent use.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeWaiter
}

// Compile-time interface check.
var _ Clock = (*Fake)(nil)

// NewFake returns a Fake positioned at an arbitrary fixed instant.
func NewFake() *Fake {
	return &Fake{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

type fakeWaiter struct {
	target  time.Time
	period  time.Duration // 0 for one-shot timers
	ch      chan time.Time
	fn      func()
	stopped bool
}

// Now implements [Clock].
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// NewTicker implements [Clock].
func (f *Fake) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &fakeWaiter{
		target: f.now.Add(d),
		period: d,
		ch:     make(chan time.Time, 1),
	}
	f.waiters = append(f.waiters, w)
	return &fakeTicker{f: f, w: w}
}

// AfterFunc implements [Clock].
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &fakeWaiter{
		target: f.now.Add(d),
		fn:     fn,
	}
	f.waiters = append(f.waiters, w)
	return &fakeTimer{f: f, w: w}
}

// Advance moves the fake time forward by d, firing every due ticker tick and
// timer function. Timer functions run on the caller's goroutine, outside the
// clock lock, so they may safely call back into the clock.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	now := f.now

	var due []func()
	for _, w := range f.waiters {
		for !w.stopped && !w.target.After(now) {
			if w.fn != nil {
				due = append(due, w.fn)
				w.stopped = true
				continue
			}
			// Ticker semantics: drop the tick if the receiver is behind.
			select {
			case w.ch <- w.target:
			default:
			}
			w.target = w.target.Add(w.period)
		}
	}
	f.waiters = f.activeWaitersLocked()
	f.mu.Unlock()

	for _, fn := range due {
		fn()
	}
}

// activeWaitersLocked drops stopped waiters. Callers must hold f.mu.
func (f *Fake) activeWaitersLocked() []*fakeWaiter {
	active := f.waiters[:0]
	for _, w := range f.waiters {
		if !w.stopped {
			active = append(active, w)
		}
	}
	return active
}

type fakeTicker struct {
	f *Fake
	w *fakeWaiter
}

func (t *fakeTicker) Chan() <-chan time.Time { return t.w.ch }

func (t *fakeTicker) Stop() {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	t.w.stopped = true
}

type fakeTimer struct {
	f *Fake
	w *fakeWaiter
}

func (t *fakeTimer) Stop() bool {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	prevented := !t.w.stopped
	t.w.stopped = true
	return prevented
}
