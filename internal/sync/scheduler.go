package sync

import (
	gosync "sync"
	"time"
)

// Ticker is the subset of *time.Ticker the scheduler needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// RealTicker wraps time.NewTicker.
func RealTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// task is one running periodic job.
type task struct {
	stopCh chan struct{}
	once   gosync.Once
}

func (t *task) stop() {
	t.once.Do(func() { close(t.stopCh) })
}

// Scheduler runs named periodic tasks, each in its own goroutine. Starting
// a task under a name that is already running replaces it.
type Scheduler struct {
	newTicker TickerFunc

	mu    gosync.Mutex
	tasks map[string]*task
	wg    gosync.WaitGroup
}

// NewScheduler creates a scheduler. A nil TickerFunc uses real tickers.
func NewScheduler(newTicker TickerFunc) *Scheduler {
	if newTicker == nil {
		newTicker = RealTicker
	}
	return &Scheduler{
		newTicker: newTicker,
		tasks:     make(map[string]*task),
	}
}

// Start runs fn every interval under name until the task is stopped. fn is
// never called concurrently with itself.
func (s *Scheduler) Start(name string, interval time.Duration, fn func()) {
	if interval <= 0 {
		return
	}

	t := &task{stopCh: make(chan struct{})}

	s.mu.Lock()
	if old, ok := s.tasks[name]; ok {
		old.stop()
	}
	s.tasks[name] = t
	s.mu.Unlock()

	ticker := s.newTicker(interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		defer s.remove(name, t)

		for {
			select {
			case <-t.stopCh:
				return
			case <-ticker.C():
				// A stop may race with the tick; prefer the stop.
				select {
				case <-t.stopCh:
					return
				default:
				}
				fn()
			}
		}
	}()
}

// Stop ends the named task. It does not wait for a tick in progress, so a
// task may stop itself from within fn.
func (s *Scheduler) Stop(name string) {
	s.mu.Lock()
	t, ok := s.tasks[name]
	if ok {
		delete(s.tasks, name)
	}
	s.mu.Unlock()

	if ok {
		t.stop()
	}
}

// StopAll ends every task.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = make(map[string]*task)
	s.mu.Unlock()

	for _, t := range tasks {
		t.stop()
	}
}

// Running reports whether a task is registered under name.
func (s *Scheduler) Running(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[name]
	return ok
}

// Wait blocks until every task goroutine has exited. Call it after
// StopAll; it must not be called from within a task.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// remove drops t from the registry if it is still the current task for
// name.
func (s *Scheduler) remove(name string, t *task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tasks[name] == t {
		delete(s.tasks, name)
	}
}
