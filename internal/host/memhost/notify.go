package memhost

import (
	"sync"

	"github.com/dshills/caretglide/internal/host"
)

// NotifySurface wraps Surface with every optional capability: update,
// key, mouse, scroll, and focus notification. Callers emit events
// directly and can count live subscriptions to verify teardown.
type NotifySurface struct {
	*Surface

	mu      sync.Mutex
	nextID  uint64
	updates map[uint64]func(host.Update)
	keys    map[uint64]func(host.Key)
	mouse   map[uint64]func(host.Mouse)
	scroll  map[uint64]func()
	focus   map[uint64]func(bool)
}

// NewNotifySurface creates a surface with all capabilities present.
func NewNotifySurface(id, text string) *NotifySurface {
	return &NotifySurface{
		Surface: NewSurface(id, text),
		updates: make(map[uint64]func(host.Update)),
		keys:    make(map[uint64]func(host.Key)),
		mouse:   make(map[uint64]func(host.Mouse)),
		scroll:  make(map[uint64]func()),
		focus:   make(map[uint64]func(bool)),
	}
}

func (s *NotifySurface) subscribe(register func(id uint64), remove func(id uint64)) host.CancelFunc {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	register(id)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			remove(id)
			s.mu.Unlock()
		})
	}
}

// SubscribeUpdates implements host.UpdateNotifier.
func (s *NotifySurface) SubscribeUpdates(fn func(host.Update)) host.CancelFunc {
	return s.subscribe(
		func(id uint64) { s.updates[id] = fn },
		func(id uint64) { delete(s.updates, id) },
	)
}

// SubscribeKeys implements host.KeyNotifier.
func (s *NotifySurface) SubscribeKeys(fn func(host.Key)) host.CancelFunc {
	return s.subscribe(
		func(id uint64) { s.keys[id] = fn },
		func(id uint64) { delete(s.keys, id) },
	)
}

// SubscribeMouse implements host.MouseNotifier.
func (s *NotifySurface) SubscribeMouse(fn func(host.Mouse)) host.CancelFunc {
	return s.subscribe(
		func(id uint64) { s.mouse[id] = fn },
		func(id uint64) { delete(s.mouse, id) },
	)
}

// SubscribeScroll implements host.ScrollNotifier.
func (s *NotifySurface) SubscribeScroll(fn func()) host.CancelFunc {
	return s.subscribe(
		func(id uint64) { s.scroll[id] = fn },
		func(id uint64) { delete(s.scroll, id) },
	)
}

// SubscribeFocus implements host.FocusNotifier.
func (s *NotifySurface) SubscribeFocus(fn func(bool)) host.CancelFunc {
	return s.subscribe(
		func(id uint64) { s.focus[id] = fn },
		func(id uint64) { delete(s.focus, id) },
	)
}

// EmitUpdate delivers an update record to subscribers.
func (s *NotifySurface) EmitUpdate(u host.Update) {
	for _, fn := range s.snapshotUpdates() {
		fn(u)
	}
}

// EmitKey delivers a key press to subscribers.
func (s *NotifySurface) EmitKey(k host.Key) {
	s.mu.Lock()
	fns := make([]func(host.Key), 0, len(s.keys))
	for _, fn := range s.keys {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(k)
	}
}

// EmitMouse delivers a mouse press to subscribers.
func (s *NotifySurface) EmitMouse(m host.Mouse) {
	s.mu.Lock()
	fns := make([]func(host.Mouse), 0, len(s.mouse))
	for _, fn := range s.mouse {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(m)
	}
}

// EmitScroll delivers a scroll event to subscribers.
func (s *NotifySurface) EmitScroll() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.scroll))
	for _, fn := range s.scroll {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// EmitFocus delivers a focus transition to subscribers.
func (s *NotifySurface) EmitFocus(focused bool) {
	s.mu.Lock()
	fns := make([]func(bool), 0, len(s.focus))
	for _, fn := range s.focus {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(focused)
	}
}

func (s *NotifySurface) snapshotUpdates() []func(host.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fns := make([]func(host.Update), 0, len(s.updates))
	for _, fn := range s.updates {
		fns = append(fns, fn)
	}
	return fns
}

// SubscriptionCount returns the number of live subscriptions across
// all capabilities, for session-isolation assertions.
func (s *NotifySurface) SubscriptionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates) + len(s.keys) + len(s.mouse) + len(s.scroll) + len(s.focus)
}
