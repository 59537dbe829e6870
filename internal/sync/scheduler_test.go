package sync

import (
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// manualTicker fires only when Tick is called.
type manualTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { m.stopped.Store(true) }

type tickers struct {
	mu  gosync.Mutex
	all []*manualTicker
}

func (ts *tickers) factory(time.Duration) Ticker {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t := &manualTicker{ch: make(chan time.Time)}
	ts.all = append(ts.all, t)
	return t
}

func (ts *tickers) get(i int) *manualTicker {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.all[i]
}

func TestSchedulerRunsOnTick(t *testing.T) {
	ts := &tickers{}
	s := NewScheduler(ts.factory)

	calls := make(chan struct{}, 4)
	s.Start("refresh", time.Second, func() { calls <- struct{}{} })
	require.True(t, s.Running("refresh"))

	ts.get(0).ch <- time.Now()
	ts.get(0).ch <- time.Now()
	<-calls
	<-calls

	s.StopAll()
	s.Wait()
	assert.False(t, s.Running("refresh"))
	assert.True(t, ts.get(0).stopped.Load())
}

func TestSchedulerReplacesTaskWithSameName(t *testing.T) {
	ts := &tickers{}
	s := NewScheduler(ts.factory)

	var first atomic.Int32
	secondRan := make(chan struct{})
	s.Start("poll", time.Second, func() { first.Add(1) })
	s.Start("poll", time.Second, func() { close(secondRan) })

	ts.get(1).ch <- time.Now()
	<-secondRan

	s.StopAll()
	s.Wait()

	assert.Equal(t, int32(0), first.Load())
	assert.True(t, ts.get(0).stopped.Load())
}

func TestSchedulerTaskCanStopItself(t *testing.T) {
	ts := &tickers{}
	s := NewScheduler(ts.factory)

	ran := make(chan struct{})
	s.Start("payment", time.Second, func() {
		s.Stop("payment")
		close(ran)
	})

	ts.get(0).ch <- time.Now()
	<-ran
	s.Wait()
	assert.False(t, s.Running("payment"))
}

func TestSchedulerIgnoresNonPositiveInterval(t *testing.T) {
	s := NewScheduler(nil)
	s.Start("never", 0, func() {})
	assert.False(t, s.Running("never"))
	s.Wait()
}

func TestSchedulerWithRealTicker(t *testing.T) {
	s := NewScheduler(nil)

	var n atomic.Int32
	s.Start("fast", 5*time.Millisecond, func() { n.Add(1) })

	require.Eventually(t, func() bool { return n.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop("fast")
	s.Wait()
}
