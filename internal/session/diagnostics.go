package session

import (
	"github.com/dshills/caretglide/internal/geom"
)

// Diagnostics is a snapshot of internal component state, for the
// debug dump action.
type Diagnostics struct {
	SessionID string
	SurfaceID string
	Attached  bool

	Mode  string
	Shape string

	Focused          bool
	OverlayConnected bool
	OverlayVisible   bool
	Suppressed       bool

	Animating bool
	Moving    bool
	Typing    bool
	Scrolling bool

	Sources []string

	CoordCacheSize int
	GlyphCacheSize int
	LastGood       geom.Point
	HasLastGood    bool
	Repairs        int
}

// Diagnostics captures the session's current internal state.
func (s *Session) Diagnostics() Diagnostics {
	last, hasLast := s.resolver.LastGood()
	return Diagnostics{
		SessionID: s.id,
		SurfaceID: s.surface.ID(),
		Attached:  s.IsAttached(),

		Mode:  s.shapes.Mode().String(),
		Shape: s.shapes.Applied().String(),

		Focused:          s.monitor.IsFocused(false),
		OverlayConnected: s.overlay.IsConnected(),
		OverlayVisible:   s.overlay.IsVisible(),
		Suppressed:       s.suppressor.HasMarker(),

		Animating: s.engine.IsAnimating(),
		Moving:    s.engine.IsMoving(),
		Typing:    s.signals.IsTyping(),
		Scrolling: s.signals.IsScrolling(),

		Sources: s.signals.Sources(),

		CoordCacheSize: s.resolver.CacheSize(),
		GlyphCacheSize: s.measurer.CacheSize(),
		LastGood:       last,
		HasLastGood:    hasLast,
		Repairs:        s.monitor.Repairs(),
	}
}
