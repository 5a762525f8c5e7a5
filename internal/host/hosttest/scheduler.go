package hosttest

import (
	"sort"
	"sync"
	"time"

	"github.com/dshills/caretglide/internal/host"
)

type fakeTimer struct {
	id    uint64
	at    time.Time
	every time.Duration
	fn    func()
	dead  bool
}

// Scheduler is a host.Scheduler with a manual clock. Nothing fires
// until the test calls Step or Advance; callbacks run synchronously on
// the calling goroutine, mirroring the serial delivery guarantee of
// the real run loop.
type Scheduler struct {
	mu     sync.Mutex
	now    time.Time
	nextID uint64
	frames map[uint64]func(now time.Time)
	timers []*fakeTimer
}

// NewScheduler creates a scheduler at an arbitrary fixed epoch.
func NewScheduler() *Scheduler {
	return &Scheduler{
		now:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		frames: make(map[uint64]func(now time.Time)),
	}
}

// Now returns the fake clock reading.
func (s *Scheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// OnFrame schedules fn for the next Step call.
func (s *Scheduler) OnFrame(fn func(now time.Time)) host.CancelFunc {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.frames[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.frames, id)
			s.mu.Unlock()
		})
	}
}

// After schedules fn once after d of fake time.
func (s *Scheduler) After(d time.Duration, fn func()) host.CancelFunc {
	return s.addTimer(d, 0, fn)
}

// Interval schedules fn every d of fake time.
func (s *Scheduler) Interval(d time.Duration, fn func()) host.CancelFunc {
	return s.addTimer(d, d, fn)
}

func (s *Scheduler) addTimer(d, every time.Duration, fn func()) host.CancelFunc {
	s.mu.Lock()
	t := &fakeTimer{id: s.nextID, at: s.now.Add(d), every: every, fn: fn}
	s.nextID++
	s.timers = append(s.timers, t)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			t.dead = true
			s.mu.Unlock()
		})
	}
}

// Step advances the clock by one frame interval, fires due timers,
// then fires pending frame callbacks. Returns the number of frame
// callbacks fired.
func (s *Scheduler) Step() int {
	s.advance(host.FrameInterval)

	s.mu.Lock()
	fns := make([]func(time.Time), 0, len(s.frames))
	for _, fn := range s.frames {
		fns = append(fns, fn)
	}
	s.frames = make(map[uint64]func(now time.Time))
	now := s.now
	s.mu.Unlock()

	for _, fn := range fns {
		fn(now)
	}
	return len(fns)
}

// Advance moves the clock forward by d, firing any timers that come
// due (repeating timers fire once per elapsed period). Frame callbacks
// are not fired; use Step for those.
func (s *Scheduler) Advance(d time.Duration) {
	s.advance(d)
}

func (s *Scheduler) advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	for {
		s.mu.Lock()
		var next *fakeTimer
		for _, t := range s.timers {
			if t.dead {
				continue
			}
			if !t.at.After(target) && (next == nil || t.at.Before(next.at)) {
				next = t
			}
		}
		if next == nil {
			s.now = target
			s.compact()
			s.mu.Unlock()
			return
		}
		if next.at.After(s.now) {
			s.now = next.at
		}
		fn := next.fn
		if next.every > 0 {
			next.at = next.at.Add(next.every)
		} else {
			next.dead = true
		}
		s.mu.Unlock()

		fn()
	}
}

func (s *Scheduler) compact() {
	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.dead {
			live = append(live, t)
		}
	}
	s.timers = live
	sort.Slice(s.timers, func(i, j int) bool { return s.timers[i].at.Before(s.timers[j].at) })
}

// PendingTimers returns the number of live timers, for teardown
// assertions.
func (s *Scheduler) PendingTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.dead {
			n++
		}
	}
	return n
}

// PendingFrames returns the number of scheduled frame callbacks.
func (s *Scheduler) PendingFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}
