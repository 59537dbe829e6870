package testutil

import (
	gosync "sync"
	"time"

	"github.com/nhle/lnemail-client/internal/sync"
)

// ManualTicker fires only when Tick is called.
type ManualTicker struct {
	Interval time.Duration
	ch       chan time.Time
}

// C implements sync.Ticker.
func (m *ManualTicker) C() <-chan time.Time { return m.ch }

// Stop implements sync.Ticker.
func (m *ManualTicker) Stop() {}

// Tick delivers one tick and blocks until the task goroutine receives it.
func (m *ManualTicker) Tick() { m.ch <- time.Now() }

// TryTick delivers a tick only if the task goroutine is waiting for one.
func (m *ManualTicker) TryTick() bool {
	select {
	case m.ch <- time.Now():
		return true
	default:
		return false
	}
}

// Tickers records every ticker a scheduler creates.
type Tickers struct {
	mu  gosync.Mutex
	all []*ManualTicker
}

// Factory is a sync.TickerFunc.
func (ts *Tickers) Factory(d time.Duration) sync.Ticker {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t := &ManualTicker{Interval: d, ch: make(chan time.Time)}
	ts.all = append(ts.all, t)
	return t
}

// Last returns the most recently created ticker with the given interval,
// or nil.
func (ts *Tickers) Last(d time.Duration) *ManualTicker {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for i := len(ts.all) - 1; i >= 0; i-- {
		if ts.all[i].Interval == d {
			return ts.all[i]
		}
	}
	return nil
}

// NewManualScheduler returns a scheduler driven by manual tickers.
func NewManualScheduler() (*sync.Scheduler, *Tickers) {
	ts := &Tickers{}
	return sync.NewScheduler(ts.Factory), ts
}
