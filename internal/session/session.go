// Package session binds every component to one host editing surface:
// it owns the wiring between the signal aggregator, coordinate
// resolver, glyph measurer, shape resolver, animation engine, overlay
// manager, suppressor, and health monitor, and guarantees full
// teardown on detach. At most one session is active at a time; the
// Plugin enforces that.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/caretglide/internal/anim"
	"github.com/dshills/caretglide/internal/config"
	"github.com/dshills/caretglide/internal/geom"
	"github.com/dshills/caretglide/internal/host"
	"github.com/dshills/caretglide/internal/logging"
	"github.com/dshills/caretglide/internal/measure"
	"github.com/dshills/caretglide/internal/monitor"
	"github.com/dshills/caretglide/internal/overlay"
	"github.com/dshills/caretglide/internal/resolve"
	"github.com/dshills/caretglide/internal/shape"
	"github.com/dshills/caretglide/internal/signal"
	"github.com/dshills/caretglide/internal/suppress"
)

// healthInterval is the cadence of the periodic self-repair pass.
const healthInterval = time.Second

// Session is the complete bound state between the engine and one host
// editing surface.
type Session struct {
	mu sync.Mutex

	id      string
	surface host.Surface
	sched   host.Scheduler
	logger  *logging.Logger
	store   *config.Store
	clock   func() time.Time

	resolver   *resolve.Resolver
	measurer   *measure.Measurer
	overlay    *overlay.Manager
	monitor    *monitor.Monitor
	suppressor *suppress.Suppressor
	signals    *signal.Aggregator
	engine     *anim.Engine
	shapes     *shape.Resolver

	healthCancel host.CancelFunc
	configSub    *config.Subscription

	attached     bool
	yOffset      float64
	useTransform bool
}

// newSession builds a session and wires component callbacks. Nothing
// runs until attach.
func newSession(surface host.Surface, sched host.Scheduler, store *config.Store, clock func() time.Time, logger *logging.Logger) *Session {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = logging.NullLogger
	}

	s := &Session{
		id:      uuid.NewString(),
		surface: surface,
		sched:   sched,
		store:   store,
		clock:   clock,
	}
	s.logger = logger.WithComponent("session").WithField("id", s.id)

	s.resolver = resolve.New(surface, clock, logger)
	s.measurer = measure.New(surface, logger)
	s.overlay = overlay.New(surface.Doc(), surface.ContentRoot(), logger)
	s.suppressor = suppress.New(surface, sched, logger)
	s.monitor = monitor.New(surface, s.overlay, s.suppressor, clock, logger)
	s.engine = anim.New(sched, anim.DefaultConfig(), logger)
	s.engine.SetCallbacks(s.onAnimFrame, s.onMoveStart, s.onMoveStop)

	cfg := store.Current()
	s.shapes = shape.NewResolver(cfg.Mapping(), s.overlay, s.engine,
		func() { s.refresh(true, false) },
		s.refreshIdleEffects,
	)

	s.signals = signal.New(surface, sched, signal.Callbacks{
		PositionChanged: func(isTyping bool) {
			// Drop cached coordinates before resolving the new
			// position; an edit can shift text under every cached
			// offset within the TTL window.
			s.resolver.Invalidate()
			s.refresh(true, isTyping)
		},
		ScrollSync: func() {
			s.resolver.Invalidate()
			s.refresh(false, false)
		},
		ScrollSettled: func() { s.refresh(true, false) },
		LayoutChanged: func() {
			s.resolver.Invalidate()
			s.measurer.Reset()
			s.refresh(false, false)
		},
		FocusChanged: s.onFocus,
		FocusGate:    func() bool { return s.monitor.IsFocused(false) },
	}, clock, logger)

	return s
}

// attach starts the session: overlay creation, suppression, signal
// subscriptions, health interval, and the initial paint.
func (s *Session) attach() {
	s.mu.Lock()
	if s.attached {
		s.mu.Unlock()
		return
	}
	s.attached = true
	s.mu.Unlock()

	s.overlay.Create(s.id)
	s.applyConfig(s.store.Current())
	s.suppressor.Attach()
	s.signals.Start()

	s.mu.Lock()
	s.healthCancel = s.sched.Interval(healthInterval, func() {
		s.monitor.EnsureHealth(false)
	})
	s.configSub = s.store.Subscribe(func(c config.Change) {
		s.applyConfig(c.New)
	})
	s.mu.Unlock()

	s.monitor.IsFocused(true)
	s.refresh(false, false)
	s.logger.Info("attached to surface %s", s.surface.ID())
}

// detach tears everything down: subscriptions, timers, the overlay
// node, and the suppression overrides. The session cannot be reused.
func (s *Session) detach() {
	s.mu.Lock()
	if !s.attached {
		s.mu.Unlock()
		return
	}
	s.attached = false
	healthCancel := s.healthCancel
	configSub := s.configSub
	s.healthCancel = nil
	s.configSub = nil
	s.mu.Unlock()

	if configSub != nil {
		configSub.Unsubscribe()
	}
	if healthCancel != nil {
		healthCancel()
	}
	s.signals.Stop()
	s.engine.Stop()
	s.suppressor.Detach()
	s.overlay.Destroy()
	s.resolver.Invalidate()
	s.measurer.Reset()
	s.logger.Info("detached from surface %s", s.surface.ID())
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Surface returns the bound host surface.
func (s *Session) Surface() host.Surface {
	return s.surface
}

// IsAttached reports whether the session is live.
func (s *Session) IsAttached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

// healthy reports whether the session is live with its overlay still
// in the document.
func (s *Session) healthy() bool {
	return s.IsAttached() && s.overlay.IsConnected()
}

// SetMode applies an externally detected editing mode. Shape changes
// morph smoothly; an unchanged shape only refreshes the idle effects.
func (s *Session) SetMode(mode shape.Mode) {
	s.shapes.SetMode(mode)
}

// Mode returns the current editing mode.
func (s *Session) Mode() shape.Mode {
	return s.shapes.Mode()
}

// ForceRefresh drops every cache, forces a health pass, and repaints
// from scratch. Exposed for manual recovery.
func (s *Session) ForceRefresh() {
	if !s.IsAttached() {
		return
	}
	s.resolver.Invalidate()
	s.measurer.Reset()
	s.monitor.EnsureHealth(true)
	s.signals.CheckNow()
	s.refresh(false, false)
}

// refresh recomputes the target rectangle for the current caret and
// hands it to the animation engine. A failed resolution hides the
// overlay and waits for the next signal.
func (s *Session) refresh(animated, isTyping bool) {
	if !s.IsAttached() {
		return
	}
	if !s.store.Current().Enabled {
		s.overlay.Hide()
		return
	}

	offset := s.surface.CaretOffset()
	pt, ok := s.resolver.Resolve(offset)
	if !ok {
		s.logger.Debug("resolution failed at offset %d, hiding", offset)
		s.overlay.Hide()
		return
	}

	width := s.measurer.Width(offset)
	base := geom.Rect{X: pt.X, Y: pt.Y, Width: width, Height: s.surface.LineHeight()}
	shaped, yOff := shape.Apply(s.shapes.Applied(), base)
	if !shaped.Valid() {
		s.logger.Debug("invalid target %+v, hiding", shaped)
		s.overlay.Hide()
		return
	}

	s.mu.Lock()
	s.yOffset = yOff
	s.mu.Unlock()

	// First appearance snaps; interpolating from the parked position
	// would sweep the cursor across the screen.
	if animated && s.overlay.IsVisible() {
		s.engine.AnimateTo(shaped, isTyping)
	} else {
		s.engine.SetImmediate(shaped)
	}
	s.overlay.Show()
}

func (s *Session) onAnimFrame(r geom.Rect) {
	s.mu.Lock()
	yOff := s.yOffset
	useTransform := s.useTransform
	s.mu.Unlock()
	s.overlay.UpdatePosition(r.X, r.Y, r.Width, r.Height, useTransform, yOff)
}

func (s *Session) onMoveStart() {
	s.overlay.SetMoving(true)
}

func (s *Session) onMoveStop() {
	s.overlay.SetMoving(false)
}

func (s *Session) onFocus(focused bool) {
	s.monitor.IsFocused(true)
	if focused {
		// Synchronous suppression ahead of the next observer tick, so
		// the native caret never flashes on focus entry.
		s.suppressor.ForceHide()
		s.monitor.EnsureHealth(true)
		s.refresh(false, false)
	} else {
		s.overlay.Hide()
	}
}

// applyConfig pushes settings into every component that consumes them.
// Called on attach and on every settings change.
func (s *Session) applyConfig(cfg config.Config) {
	if cfg.Debug {
		s.logger.SetLevel(logging.LevelDebug)
	} else {
		s.logger.SetLevel(logging.ParseLevel(cfg.LogLevel))
	}

	s.engine.SetConfig(anim.Config{
		Enabled:        cfg.Animation.Enabled,
		Duration:       time.Duration(cfg.Animation.DurationMs) * time.Millisecond,
		TypingEnabled:  cfg.Animation.TypingEnabled,
		TypingDuration: time.Duration(cfg.Animation.TypingDurationMs) * time.Millisecond,
		StopDebounce:   anim.DefaultConfig().StopDebounce,
	})
	s.shapes.SetMapping(cfg.Mapping())

	s.mu.Lock()
	s.useTransform = cfg.Placement == config.PlacementTransform
	s.mu.Unlock()

	if el := s.overlay.Element(); el != nil {
		el.SetStyle("background-color", cfg.CSSColor())
	}
	s.refreshIdleEffects()

	if !s.IsAttached() {
		return
	}
	if cfg.Enabled {
		s.refresh(false, false)
	} else {
		s.overlay.Hide()
	}
}

// refreshIdleEffects re-applies the breathing flag from settings. The
// overlay keeps movement ahead of breathing, so this is safe to call
// mid-animation.
func (s *Session) refreshIdleEffects() {
	s.overlay.SetBreathing(s.store.Current().Breathing.Enabled)
}
