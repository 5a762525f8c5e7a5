package host

import (
	"sync"
	"time"
)

// CancelFunc stops a scheduled callback or subscription. Implementations
// must be idempotent; the engine cancels liberally during teardown.
type CancelFunc func()

// Scheduler is the engine's only source of deferred execution: frame
// callbacks, one-shot timers, and repeating timers. All callbacks for
// one scheduler are delivered serially, never concurrently; the
// engine's components rely on that ordering the way browser code relies
// on the event loop.
type Scheduler interface {
	// OnFrame schedules fn for the next animation frame. One-shot;
	// the animation engine reschedules itself each frame.
	OnFrame(fn func(now time.Time)) CancelFunc

	// After schedules fn once after d.
	After(d time.Duration, fn func()) CancelFunc

	// Interval schedules fn repeatedly every d until cancelled.
	Interval(d time.Duration, fn func()) CancelFunc
}

// FrameInterval is the nominal frame period the engine is tuned for.
const FrameInterval = 16 * time.Millisecond

// LoopScheduler is a Scheduler backed by a single goroutine run loop.
// Timers and frames post work onto one channel, so callbacks never
// overlap. The demo binary drives its whole UI through one of these;
// tests use the manual scheduler in hosttest instead.
type LoopScheduler struct {
	mu     sync.Mutex
	work   chan func()
	done   chan struct{}
	closed bool

	frameMu   sync.Mutex
	frameSubs map[uint64]func(now time.Time)
	nextFrame uint64
}

// NewLoopScheduler creates and starts a run-loop scheduler.
func NewLoopScheduler() *LoopScheduler {
	s := &LoopScheduler{
		work:      make(chan func(), 256),
		done:      make(chan struct{}),
		frameSubs: make(map[uint64]func(now time.Time)),
	}
	go s.run()
	return s
}

func (s *LoopScheduler) run() {
	ticker := time.NewTicker(FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case fn := <-s.work:
			fn()
		case now := <-ticker.C:
			s.fireFrame(now)
		}
	}
}

func (s *LoopScheduler) fireFrame(now time.Time) {
	s.frameMu.Lock()
	if len(s.frameSubs) == 0 {
		s.frameMu.Unlock()
		return
	}
	subs := make([]func(time.Time), 0, len(s.frameSubs))
	for _, fn := range s.frameSubs {
		subs = append(subs, fn)
	}
	s.frameSubs = make(map[uint64]func(now time.Time))
	s.frameMu.Unlock()

	for _, fn := range subs {
		fn(now)
	}
}

// OnFrame schedules fn for the next frame tick.
func (s *LoopScheduler) OnFrame(fn func(now time.Time)) CancelFunc {
	s.frameMu.Lock()
	id := s.nextFrame
	s.nextFrame++
	s.frameSubs[id] = fn
	s.frameMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.frameMu.Lock()
			delete(s.frameSubs, id)
			s.frameMu.Unlock()
		})
	}
}

// After schedules fn once after d on the run loop.
func (s *LoopScheduler) After(d time.Duration, fn func()) CancelFunc {
	var mu sync.Mutex
	cancelled := false

	timer := time.AfterFunc(d, func() {
		s.post(func() {
			mu.Lock()
			dead := cancelled
			mu.Unlock()
			if !dead {
				fn()
			}
		})
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			cancelled = true
			mu.Unlock()
			timer.Stop()
		})
	}
}

// Interval schedules fn every d on the run loop until cancelled.
func (s *LoopScheduler) Interval(d time.Duration, fn func()) CancelFunc {
	var mu sync.Mutex
	cancelled := false

	stop := make(chan struct{})
	ticker := time.NewTicker(d)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.post(func() {
					mu.Lock()
					dead := cancelled
					mu.Unlock()
					if !dead {
						fn()
					}
				})
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			cancelled = true
			mu.Unlock()
			close(stop)
		})
	}
}

// Post runs fn on the run loop. Used by host adapters to serialize
// their own event delivery with engine callbacks.
func (s *LoopScheduler) Post(fn func()) {
	s.post(fn)
}

func (s *LoopScheduler) post(fn func()) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	select {
	case s.work <- fn:
	case <-s.done:
	}
}

// Stop shuts the run loop down. Pending work is dropped.
func (s *LoopScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}
