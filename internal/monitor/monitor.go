// Package monitor tracks the health of an attached surface: whether it
// has focus, whether the suppression marker survived the host's last
// re-render, and whether the overlay node is still in the document.
// Checks are throttled to bound their DOM-query cost; forced checks
// around focus and click events close the gap.
package monitor

import (
	"sync"
	"time"

	"github.com/dshills/caretglide/internal/host"
	"github.com/dshills/caretglide/internal/logging"
)

const (
	// focusThrottle caps how often focus is recomputed from the
	// document without a forcing event.
	focusThrottle = 100 * time.Millisecond

	// healthThrottle caps how often the self-repair pass runs without
	// a forcing event.
	healthThrottle = time.Second
)

// OverlayHealth is the slice of the overlay manager the monitor
// repairs.
type OverlayHealth interface {
	IsConnected() bool
	Recreate()
}

// SuppressorHealth is the slice of the suppressor the monitor
// re-asserts.
type SuppressorHealth interface {
	EnsureMarker()
	ForceHide()
}

// Monitor performs throttled focus tracking and periodic self-repair
// for one attached surface.
type Monitor struct {
	mu      sync.Mutex
	surface host.Surface
	logger  *logging.Logger
	clock   func() time.Time

	overlay    OverlayHealth
	suppressor SuppressorHealth

	focused      bool
	focusChecked bool
	lastFocusAt  time.Time

	lastHealthAt  time.Time
	healthChecked bool

	repairs int
}

// New creates a monitor. clock may be nil (wall clock).
func New(surface host.Surface, overlay OverlayHealth, suppressor SuppressorHealth, clock func() time.Time, logger *logging.Logger) *Monitor {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = logging.NullLogger
	}
	return &Monitor{
		surface:    surface,
		logger:     logger.WithComponent("monitor"),
		clock:      clock,
		overlay:    overlay,
		suppressor: suppressor,
	}
}

// IsFocused returns whether the surface has focus. The answer is
// cached and recomputed at most every 100 ms, or immediately when
// force is set (native focus/blur events).
func (m *Monitor) IsFocused(force bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	if !force && m.focusChecked && now.Sub(m.lastFocusAt) < focusThrottle {
		return m.focused
	}

	active := m.surface.Doc().ActiveNode()
	m.focused = active != nil && (active == m.surface.ContentRoot() || m.surface.Contains(active))
	m.focusChecked = true
	m.lastFocusAt = now
	return m.focused
}

// EnsureHealth runs the self-repair pass: re-assert the suppression
// marker and recreate the overlay node if the host tore it out of the
// document. Throttled to once per second unless forced.
func (m *Monitor) EnsureHealth(force bool) {
	m.mu.Lock()
	now := m.clock()
	if !force && m.healthChecked && now.Sub(m.lastHealthAt) < healthThrottle {
		m.mu.Unlock()
		return
	}
	m.healthChecked = true
	m.lastHealthAt = now
	overlay, suppressor := m.overlay, m.suppressor
	m.mu.Unlock()

	if suppressor != nil {
		suppressor.EnsureMarker()
	}
	if overlay != nil && !overlay.IsConnected() {
		m.logger.Debug("overlay node lost from document, recreating")
		m.mu.Lock()
		m.repairs++
		m.mu.Unlock()
		overlay.Recreate()
	}
}

// Repairs returns how many times the overlay had to be recreated, for
// diagnostics.
func (m *Monitor) Repairs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repairs
}
