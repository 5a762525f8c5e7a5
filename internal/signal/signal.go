// Package signal merges the heterogeneous change signals that mean
// "the caret may have moved": the host's update stream, navigation
// keys, mouse clicks, scroll events, DOM mutations of the rendered
// content, and a slow poll as the last-resort safety net. Every source
// is independent and optional; a host missing one capability loses
// responsiveness on that channel, never correctness.
package signal

import (
	"strings"
	"sync"
	"time"

	"github.com/dshills/caretglide/internal/host"
	"github.com/dshills/caretglide/internal/logging"
)

const (
	// typingWindow is the trailing quiet time after a content change
	// before the typing flag clears.
	typingWindow = 150 * time.Millisecond

	// scrollThrottle caps scroll-driven position syncs at frame rate.
	scrollThrottle = host.FrameInterval

	// scrollSettle is the trailing quiet time after the last scroll
	// event before scrolling is declared over.
	scrollSettle = 150 * time.Millisecond

	// mutationDebounce is the trailing window for mutation-derived
	// layout-change detection. Rendered/source line swaps arrive as
	// bursts of records; one notification per burst is enough.
	mutationDebounce = 250 * time.Millisecond

	// pollInterval is the cadence of the fallback caret poll. Matches
	// the focus throttle so the poll never out-queries the focus
	// cache it is gated on.
	pollInterval = 100 * time.Millisecond
)

// Callbacks receive aggregated signals. All are optional.
type Callbacks struct {
	// PositionChanged fires when the caret's effective offset changed
	// (or the document changed under it). isTyping selects the faster
	// animation profile.
	PositionChanged func(isTyping bool)

	// ScrollSync fires during active scrolling, throttled to frame
	// rate; position updates should apply without animation.
	ScrollSync func()

	// ScrollSettled fires once after scrolling goes quiet; the final
	// position update should animate.
	ScrollSettled func()

	// LayoutChanged fires when mutation observation detects a layout
	// change none of the other channels reported; caches must be
	// invalidated before recomputing.
	LayoutChanged func()

	// FocusChanged forwards focus transitions from the host.
	FocusChanged func(focused bool)

	// FocusGate, when set, suppresses the fallback poll while the
	// surface is unfocused.
	FocusGate func() bool
}

// Aggregator wires all available signal sources for one surface and
// owns their teardown.
type Aggregator struct {
	mu      sync.Mutex
	surface host.Surface
	sched   host.Scheduler
	logger  *logging.Logger
	clock   func() time.Time
	cb      Callbacks

	started    bool
	lastOffset int

	typing       bool
	typingCancel host.CancelFunc

	scrolling       bool
	lastScrollSync  time.Time
	hasScrollSync   bool
	scrollEndCancel host.CancelFunc

	mutationCancel host.CancelFunc
	inMutation     bool

	recheckCancel host.CancelFunc

	cancels []host.CancelFunc
	sources []string
}

// New creates an aggregator. clock may be nil (wall clock).
func New(surface host.Surface, sched host.Scheduler, cb Callbacks, clock func() time.Time, logger *logging.Logger) *Aggregator {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = logging.NullLogger
	}
	return &Aggregator{
		surface: surface,
		sched:   sched,
		logger:  logger.WithComponent("signal"),
		clock:   clock,
		cb:      cb,
	}
}

// Start subscribes to every capability the surface offers plus the
// mutation observer and the fallback poll.
func (a *Aggregator) Start() {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return
	}
	a.started = true
	a.lastOffset = a.surface.CaretOffset()
	a.mu.Unlock()

	var cancels []host.CancelFunc
	var sources []string

	if un, ok := host.Updates(a.surface); ok {
		cancels = append(cancels, un.SubscribeUpdates(a.onUpdate))
		sources = append(sources, "updates")
	}
	if kn, ok := host.Keys(a.surface); ok {
		cancels = append(cancels, kn.SubscribeKeys(a.onKey))
		sources = append(sources, "keys")
	}
	if mn, ok := host.MouseEvents(a.surface); ok {
		cancels = append(cancels, mn.SubscribeMouse(a.onMouse))
		sources = append(sources, "mouse")
	}
	if sn, ok := host.ScrollEvents(a.surface); ok {
		cancels = append(cancels, sn.SubscribeScroll(a.onScroll))
		sources = append(sources, "scroll")
	}
	if fn, ok := host.FocusEvents(a.surface); ok {
		cancels = append(cancels, fn.SubscribeFocus(a.onFocus))
		sources = append(sources, "focus")
	}

	cancels = append(cancels, a.surface.Doc().ObserveMutations(a.surface.ContentRoot(), a.onMutations))
	sources = append(sources, "mutations")

	cancels = append(cancels, a.sched.Interval(pollInterval, a.poll))
	sources = append(sources, "poll")

	a.mu.Lock()
	a.cancels = cancels
	a.sources = sources
	a.mu.Unlock()

	a.logger.Debug("signal sources active: %s", strings.Join(sources, ","))
}

// Stop tears down every subscription, timer, and pending debounce.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return
	}
	a.started = false
	cancels := a.cancels
	a.cancels = nil
	extra := []host.CancelFunc{a.typingCancel, a.scrollEndCancel, a.mutationCancel, a.recheckCancel}
	a.typingCancel, a.scrollEndCancel, a.mutationCancel, a.recheckCancel = nil, nil, nil, nil
	a.typing = false
	a.scrolling = false
	a.mu.Unlock()

	for _, c := range cancels {
		c()
	}
	for _, c := range extra {
		if c != nil {
			c()
		}
	}
}

// IsTyping reports whether a content change happened within the typing
// window.
func (a *Aggregator) IsTyping() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.typing
}

// IsScrolling reports whether the surface is actively scrolling.
func (a *Aggregator) IsScrolling() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scrolling
}

// Sources returns the names of the active signal sources, for
// diagnostics.
func (a *Aggregator) Sources() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.sources))
	copy(out, a.sources)
	return out
}

// CheckNow re-derives the caret offset immediately, for the manual
// force-refresh action.
func (a *Aggregator) CheckNow() {
	a.checkCaret(true)
}

func (a *Aggregator) onUpdate(u host.Update) {
	if !a.running() {
		return
	}
	if u.DocChanged {
		a.markTyping()
	}
	a.checkCaret(u.DocChanged)
}

// onKey compensates for hosts whose update stream is unreachable: a
// navigation key means the caret is about to move, so recheck one
// frame later once the host's selection state has settled.
func (a *Aggregator) onKey(k host.Key) {
	if !host.NavigationKeys[k.Name] {
		return
	}
	a.recheckNextFrame()
}

func (a *Aggregator) onMouse(m host.Mouse) {
	if m.Target == nil || !a.surface.Contains(m.Target) {
		return
	}
	a.recheckNextFrame()
}

func (a *Aggregator) recheckNextFrame() {
	if !a.running() {
		return
	}
	cancel := a.sched.OnFrame(func(time.Time) {
		a.mu.Lock()
		a.recheckCancel = nil
		a.mu.Unlock()
		if a.running() {
			a.checkCaret(false)
		}
	})

	a.mu.Lock()
	if a.recheckCancel != nil {
		a.recheckCancel()
	}
	a.recheckCancel = cancel
	a.mu.Unlock()
}

func (a *Aggregator) onScroll() {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return
	}
	now := a.clock()
	a.scrolling = true

	sync := !a.hasScrollSync || now.Sub(a.lastScrollSync) >= scrollThrottle
	if sync {
		a.lastScrollSync = now
		a.hasScrollSync = true
	}

	if a.scrollEndCancel != nil {
		a.scrollEndCancel()
	}
	a.scrollEndCancel = a.sched.After(scrollSettle, a.scrollEnded)
	cb := a.cb.ScrollSync
	a.mu.Unlock()

	if sync && cb != nil {
		cb()
	}
}

func (a *Aggregator) scrollEnded() {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return
	}
	a.scrolling = false
	a.scrollEndCancel = nil
	cb := a.cb.ScrollSettled
	a.mu.Unlock()

	if cb != nil {
		cb()
	}
}

func (a *Aggregator) onFocus(focused bool) {
	if !a.running() {
		return
	}
	if a.cb.FocusChanged != nil {
		a.cb.FocusChanged(focused)
	}
}

// onMutations watches for element-level child changes and class/style
// flips on content line nodes. This catches host-internal line
// representation swaps that fire none of the other signals.
func (a *Aggregator) onMutations(muts []host.Mutation) {
	a.mu.Lock()
	if !a.started || a.inMutation {
		a.mu.Unlock()
		return
	}

	relevant := false
	for _, m := range muts {
		switch m.Kind {
		case host.MutationChildList:
			relevant = true
		case host.MutationAttribute:
			if (m.Attr == "class" || m.Attr == "style") && a.surface.IsContentLine(m.Target) {
				relevant = true
			}
		}
		if relevant {
			break
		}
	}
	if !relevant {
		a.mu.Unlock()
		return
	}

	if a.mutationCancel != nil {
		a.mutationCancel()
	}
	a.mutationCancel = a.sched.After(mutationDebounce, a.mutationSettled)
	a.mu.Unlock()
}

func (a *Aggregator) mutationSettled() {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return
	}
	a.mutationCancel = nil
	a.inMutation = true
	cb := a.cb.LayoutChanged
	a.mu.Unlock()

	if cb != nil {
		cb()
	}

	a.mu.Lock()
	a.inMutation = false
	a.mu.Unlock()
}

// poll is the last-resort detector: re-derive the caret offset on a
// slow cadence, gated on focus so an idle background surface costs
// nothing.
func (a *Aggregator) poll() {
	if !a.running() {
		return
	}
	if a.cb.FocusGate != nil && !a.cb.FocusGate() {
		return
	}
	a.checkCaret(false)
}

func (a *Aggregator) markTyping() {
	a.mu.Lock()
	a.typing = true
	if a.typingCancel != nil {
		a.typingCancel()
	}
	a.typingCancel = a.sched.After(typingWindow, func() {
		a.mu.Lock()
		a.typing = false
		a.typingCancel = nil
		a.mu.Unlock()
	})
	a.mu.Unlock()
}

// checkCaret fires PositionChanged when the effective offset moved, or
// unconditionally after a document change (the same offset can land on
// different coordinates once text shifts under it).
func (a *Aggregator) checkCaret(docChanged bool) {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return
	}
	off := a.surface.CaretOffset()
	changed := off != a.lastOffset || docChanged
	a.lastOffset = off
	typing := a.typing
	cb := a.cb.PositionChanged
	a.mu.Unlock()

	if changed && cb != nil {
		cb(typing)
	}
}

func (a *Aggregator) running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.started
}
