// Package suppress keeps the host's own caret invisible while the
// overlay is attached. Class toggles alone race the host's re-render
// cycles, so caret elements get direct style overrides, re-asserted by
// both a mutation observer and a fixed interval for caret nodes the
// host re-creates.
package suppress

import (
	"sync"
	"time"

	"github.com/dshills/caretglide/internal/host"
	"github.com/dshills/caretglide/internal/logging"
)

const (
	// MarkerClass marks a surface whose native cursor is suppressed.
	// Present if and only if a session is attached to the surface.
	MarkerClass = "caretglide-suppressed"

	// reassertInterval is the fallback re-hide cadence for caret
	// elements the mutation observer misses.
	reassertInterval = 100 * time.Millisecond
)

type savedStyle struct {
	visibility string
	display    string
}

// Suppressor hides native caret elements for one attached surface and
// restores them on detach.
type Suppressor struct {
	mu      sync.Mutex
	surface host.Surface
	sched   host.Scheduler
	logger  *logging.Logger

	attached   bool
	overridden map[host.Node]savedStyle

	obsCancel      host.CancelFunc
	intervalCancel host.CancelFunc
}

// New creates a suppressor for a surface.
func New(surface host.Surface, sched host.Scheduler, logger *logging.Logger) *Suppressor {
	if logger == nil {
		logger = logging.NullLogger
	}
	return &Suppressor{
		surface: surface,
		sched:   sched,
		logger:  logger.WithComponent("suppress"),
	}
}

// Attach hides all native caret elements immediately and installs the
// observer and interval that keep newly created ones hidden.
func (s *Suppressor) Attach() {
	s.mu.Lock()
	if s.attached {
		s.mu.Unlock()
		return
	}
	s.attached = true
	s.overridden = make(map[host.Node]savedStyle)
	s.mu.Unlock()

	s.EnsureMarker()
	s.ForceHide()

	root := s.surface.ContentRoot()
	obsCancel := s.surface.Doc().ObserveMutations(root, func([]host.Mutation) {
		s.ForceHide()
	})
	intervalCancel := s.sched.Interval(reassertInterval, func() {
		s.ForceHide()
	})

	s.mu.Lock()
	s.obsCancel = obsCancel
	s.intervalCancel = intervalCancel
	s.mu.Unlock()
}

// Detach stops re-assertion and reverses every style override so the
// native caret renders again.
func (s *Suppressor) Detach() {
	s.mu.Lock()
	if !s.attached {
		s.mu.Unlock()
		return
	}
	s.attached = false
	obsCancel, intervalCancel := s.obsCancel, s.intervalCancel
	s.obsCancel, s.intervalCancel = nil, nil
	overridden := s.overridden
	s.overridden = nil
	s.mu.Unlock()

	if obsCancel != nil {
		obsCancel()
	}
	if intervalCancel != nil {
		intervalCancel()
	}

	for n, saved := range overridden {
		n.SetStyle("visibility", saved.visibility)
		n.SetStyle("display", saved.display)
	}
	s.surface.ContentRoot().RemoveClass(MarkerClass)
}

// ForceHide synchronously hides every native caret element currently
// present. Exposed for callers that need the guarantee immediately
// after a focus-entering event, ahead of the next observer tick.
func (s *Suppressor) ForceHide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached && s.overridden == nil {
		return
	}
	for _, n := range s.surface.NativeCaretNodes() {
		if n == nil {
			continue
		}
		if _, done := s.overridden[n]; done && n.Style("visibility") == "hidden" {
			continue
		}
		if _, done := s.overridden[n]; !done {
			s.overridden[n] = savedStyle{
				visibility: n.Style("visibility"),
				display:    n.Style("display"),
			}
		}
		n.SetStyle("visibility", "hidden")
		n.SetStyle("display", "none")
	}
}

// EnsureMarker re-asserts the suppression marker class on the surface.
// Health checks call this; hosts drop the class on their own re-render
// cycles.
func (s *Suppressor) EnsureMarker() {
	s.mu.Lock()
	attached := s.attached
	s.mu.Unlock()
	if !attached {
		return
	}
	root := s.surface.ContentRoot()
	if !root.HasClass(MarkerClass) {
		s.logger.Debug("re-asserting suppression marker")
		root.AddClass(MarkerClass)
	}
}

// HasMarker reports whether the suppression marker is present.
func (s *Suppressor) HasMarker() bool {
	return s.surface.ContentRoot().HasClass(MarkerClass)
}

// IsAttached reports whether suppression is active.
func (s *Suppressor) IsAttached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}
