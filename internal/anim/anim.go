// Package anim implements the chase animation that moves the overlay
// from its current rectangle toward a target. Every frame each field is
// interpolated by a factor derived from the configured duration; the
// loop terminates when squared deltas fall under fixed thresholds and
// snaps exactly onto the target. Movement start/stop notifications let
// dependent effects (the idle pulse) pause while the cursor travels.
package anim

import (
	"sync"
	"time"

	"github.com/dshills/caretglide/internal/geom"
	"github.com/dshills/caretglide/internal/host"
	"github.com/dshills/caretglide/internal/logging"
)

const (
	// posEpsilonSq is the squared positional delta under which the
	// animation settles. Tuned for sub-pixel settling without jitter.
	posEpsilonSq = 0.25

	// dimEpsilonSq is the squared dimensional delta under which the
	// animation settles.
	dimEpsilonSq = 0.01
)

// Config controls animation behavior.
type Config struct {
	// Enabled turns interpolation on. When false every move snaps.
	Enabled bool

	// Duration is the interpolation profile for general movement.
	Duration time.Duration

	// TypingEnabled turns interpolation on for typing-caused moves.
	TypingEnabled bool

	// TypingDuration is the faster profile used while typing.
	TypingDuration time.Duration

	// StopDebounce is the trailing quiet window after settling before
	// the movement-stopped notification fires. Prevents the idle
	// pulse from flickering between rapid consecutive moves.
	StopDebounce time.Duration
}

// DefaultConfig returns the stock animation configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		Duration:       100 * time.Millisecond,
		TypingEnabled:  true,
		TypingDuration: 50 * time.Millisecond,
		StopDebounce:   250 * time.Millisecond,
	}
}

// Engine interpolates the overlay rectangle toward targets. All state
// transitions happen on scheduler callbacks or caller methods; the
// mutex only orders them, callbacks are never invoked while it is held.
type Engine struct {
	mu     sync.Mutex
	sched  host.Scheduler
	logger *logging.Logger
	cfg    Config

	current    geom.Rect
	target     geom.Rect
	hasCurrent bool

	running    bool
	animTyping bool
	moving     bool

	frameCancel host.CancelFunc
	stopCancel  host.CancelFunc

	onFrame func(geom.Rect)
	onStart func()
	onStop  func()
}

// New creates an engine. Callbacks are optional and set separately so
// the owning session can wire itself after construction.
func New(sched host.Scheduler, cfg Config, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NullLogger
	}
	return &Engine{
		sched:  sched,
		logger: logger.WithComponent("anim"),
		cfg:    cfg,
	}
}

// SetCallbacks installs the frame and movement callbacks. onFrame is
// invoked with the interpolated rectangle every frame; onStart/onStop
// bracket movement for idle-effect suspension.
func (e *Engine) SetCallbacks(onFrame func(geom.Rect), onStart, onStop func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onFrame = onFrame
	e.onStart = onStart
	e.onStop = onStop
}

// SetConfig replaces the animation configuration. An in-flight
// animation picks up the new durations on its next frame.
func (e *Engine) SetConfig(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
}

// Config returns the active configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Current returns the current interpolated rectangle.
func (e *Engine) Current() geom.Rect {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Target returns the rectangle being chased.
func (e *Engine) Target() geom.Rect {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.target
}

// IsAnimating reports whether the frame loop is active.
func (e *Engine) IsAnimating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// IsMoving reports whether movement has started and the stopped
// notification has not fired yet.
func (e *Engine) IsMoving() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.moving
}

// SeedSize overwrites the current dimensions without touching position
// or target. Used by the shape resolver so a shape change morphs from
// what is actually displayed.
func (e *Engine) SeedSize(width, height float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current.Width = width
	e.current.Height = height
	e.hasCurrent = true
}

// AnimateTo sets a new target and begins (or redirects) the chase.
// isTyping selects the faster typing profile. Invalid targets are
// dropped; the caller hides the overlay instead of rendering garbage.
// The very first target snaps, since there is no origin to chase from.
func (e *Engine) AnimateTo(target geom.Rect, isTyping bool) {
	if !target.Valid() {
		e.logger.Debug("dropping invalid animation target %+v", target)
		return
	}

	e.mu.Lock()

	snap := !e.cfg.Enabled || (isTyping && !e.cfg.TypingEnabled) || !e.hasCurrent
	if snap {
		e.stopLoopLocked()
		e.current = target
		e.target = target
		e.hasCurrent = true
		started := e.markMovingLocked()
		e.scheduleStopLocked()
		frame, onStart := e.onFrame, e.onStart
		cur := e.current
		e.mu.Unlock()

		if started && onStart != nil {
			onStart()
		}
		if frame != nil {
			frame(cur)
		}
		return
	}

	e.target = target
	e.animTyping = isTyping
	started := e.markMovingLocked()
	if !e.running {
		e.running = true
		e.scheduleFrameLocked()
	}
	onStart := e.onStart
	e.mu.Unlock()

	if started && onStart != nil {
		onStart()
	}
}

// SetImmediate cancels any in-flight animation and pins current and
// target to position synchronously. Used where interpolation would be
// visually wrong: first appearance, scroll tracking, shape baseline
// resets.
func (e *Engine) SetImmediate(position geom.Rect) {
	if !position.Valid() {
		e.logger.Debug("dropping invalid immediate position %+v", position)
		return
	}

	e.mu.Lock()
	e.stopLoopLocked()
	e.current = position
	e.target = position
	e.hasCurrent = true
	if e.moving {
		// Movement ends through the usual debounced notification.
		e.scheduleStopLocked()
	}
	frame := e.onFrame
	cur := e.current
	e.mu.Unlock()

	if frame != nil {
		frame(cur)
	}
}

// Stop cancels the frame loop and all pending notifications. Called on
// session teardown.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLoopLocked()
	if e.stopCancel != nil {
		e.stopCancel()
		e.stopCancel = nil
	}
	e.moving = false
}

// step runs one animation frame.
func (e *Engine) step(time.Time) {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}

	dur := e.cfg.Duration
	if e.animTyping {
		dur = e.cfg.TypingDuration
	}
	e.current = geom.LerpRect(e.current, e.target, lerpFactor(dur))

	done := e.current.DistSq(e.target) < posEpsilonSq &&
		e.current.SizeDeltaSq(e.target) < dimEpsilonSq
	if done {
		e.current = e.target
		e.running = false
		e.frameCancel = nil
		e.scheduleStopLocked()
	} else {
		e.scheduleFrameLocked()
	}

	frame := e.onFrame
	cur := e.current
	e.mu.Unlock()

	if frame != nil {
		frame(cur)
	}
}

// markMovingLocked transitions into the moving state, cancelling any
// pending stopped notification. Returns true when onStart should fire.
func (e *Engine) markMovingLocked() bool {
	if e.stopCancel != nil {
		e.stopCancel()
		e.stopCancel = nil
	}
	if e.moving {
		return false
	}
	e.moving = true
	return true
}

func (e *Engine) scheduleStopLocked() {
	if e.stopCancel != nil {
		e.stopCancel()
	}
	e.stopCancel = e.sched.After(e.cfg.StopDebounce, func() {
		e.mu.Lock()
		e.stopCancel = nil
		if !e.moving {
			e.mu.Unlock()
			return
		}
		e.moving = false
		onStop := e.onStop
		e.mu.Unlock()

		if onStop != nil {
			onStop()
		}
	})
}

func (e *Engine) scheduleFrameLocked() {
	e.frameCancel = e.sched.OnFrame(e.step)
}

func (e *Engine) stopLoopLocked() {
	e.running = false
	if e.frameCancel != nil {
		e.frameCancel()
		e.frameCancel = nil
	}
}

// lerpFactor converts a configured duration into a per-frame
// interpolation factor, clamped so durations at or under one frame
// snap in a single step.
func lerpFactor(d time.Duration) float64 {
	frame := float64(host.FrameInterval.Milliseconds())
	ms := float64(d.Milliseconds())
	if ms < frame {
		ms = frame
	}
	f := frame / ms
	if f > 1 {
		f = 1
	}
	return f
}
