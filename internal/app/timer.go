package app

import (
	"sync"
	"time"
)

// DefaultTurnSeconds is the time a player has to answer a question.
const DefaultTurnSeconds = 15

// Ticker is the subset of time.Ticker the turn timer needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc builds a ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type stdTicker struct {
	t *time.Ticker
}

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// NewTicker wraps time.NewTicker.
func NewTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

// TimerEvent is emitted once when a countdown starts, once per elapsed second
// and a final time with Expired set after Remaining reached zero.
type TimerEvent struct {
	Remaining int  `json:"remaining"`
	Expired   bool `json:"expired"`
}

// TurnTimer counts down whole seconds for the active question. Only one
// countdown runs at a time: Start cancels the previous one.
type TurnTimer struct {
	duration  int
	newTicker TickerFunc

	mu        sync.Mutex
	gen       uint64
	remaining int
	expired   bool
	running   bool
	stop      chan struct{}
}

// NewTurnTimer builds a timer of the given length. A nil newTicker uses real time.
func NewTurnTimer(seconds int, newTicker TickerFunc) *TurnTimer {
	if seconds <= 0 {
		seconds = DefaultTurnSeconds
	}
	if newTicker == nil {
		newTicker = NewTicker
	}
	return &TurnTimer{
		duration:  seconds,
		newTicker: newTicker,
		remaining: seconds,
	}
}

// Duration returns the full countdown length in seconds.
func (t *TurnTimer) Duration() int {
	return t.duration
}

// Start resets the countdown to the full duration and runs it in the
// background. listener may be nil; it is called from the timer goroutine.
func (t *TurnTimer) Start(listener func(TimerEvent)) {
	t.mu.Lock()
	t.cancelLocked()
	t.gen++
	gen := t.gen
	t.remaining = t.duration
	t.expired = false
	t.running = true
	stop := make(chan struct{})
	t.stop = stop
	ticker := t.newTicker(time.Second)
	t.mu.Unlock()

	go t.run(gen, ticker, stop, listener)
}

// Cancel stops the running countdown, if any. The expired flag is kept.
func (t *TurnTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

// Remaining returns the seconds left on the current countdown.
func (t *TurnTimer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Expired reports whether the current countdown reached zero.
func (t *TurnTimer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expired
}

// Running reports whether a countdown is in progress.
func (t *TurnTimer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *TurnTimer) cancelLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	t.running = false
	t.gen++
}

func (t *TurnTimer) run(gen uint64, ticker Ticker, stop <-chan struct{}, listener func(TimerEvent)) {
	defer ticker.Stop()

	emit := func(ev TimerEvent) {
		if listener != nil {
			listener(ev)
		}
	}
	emit(TimerEvent{Remaining: t.duration})

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			t.mu.Lock()
			if t.gen != gen {
				t.mu.Unlock()
				return
			}
			t.remaining--
			done := t.remaining <= 0
			if done {
				t.remaining = 0
				t.expired = true
				t.running = false
				t.stop = nil
			}
			remaining := t.remaining
			t.mu.Unlock()

			emit(TimerEvent{Remaining: remaining})
			if done {
				emit(TimerEvent{Remaining: 0, Expired: true})
				return
			}
		}
	}
}
