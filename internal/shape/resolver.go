package shape

import (
	"sync"

	"github.com/dshills/caretglide/internal/geom"
)

// OverlayState is the slice of the overlay manager the resolver needs:
// what is actually on screen, and where the shape tag lives.
type OverlayState interface {
	// DisplayedRect returns the rectangle currently painted, or
	// ok=false if nothing is displayed yet.
	DisplayedRect() (geom.Rect, bool)
	// UpdateShape stores the shape tag used for dimension handling.
	UpdateShape(Shape)
}

// EngineState is the slice of the animation engine the resolver needs
// to seed a smooth morph.
type EngineState interface {
	// Current returns the engine's current rectangle.
	Current() geom.Rect
	// SeedSize overwrites the current dimensions without touching
	// position or target, so the next animation morphs from them.
	SeedSize(width, height float64)
}

// Resolver applies mode changes to the overlay's shape. On a real
// shape change it seeds the animation engine with the dimensions that
// are actually displayed, so block→bar morphs smoothly instead of
// popping.
type Resolver struct {
	mu      sync.Mutex
	mapping Mapping
	mode    Mode
	applied Shape

	overlay OverlayState
	engine  EngineState

	// refresh triggers an animated position/size recomputation.
	refresh func()
	// refreshIdle re-applies idle-pulse configuration without a
	// recomputation (same-shape mode changes).
	refreshIdle func()
}

// NewResolver creates a resolver. refresh and refreshIdle may be nil.
func NewResolver(mapping Mapping, overlay OverlayState, engine EngineState, refresh, refreshIdle func()) *Resolver {
	if mapping == nil {
		mapping = DefaultMapping()
	}
	return &Resolver{
		mapping:     mapping,
		mode:        ModeUnknown,
		applied:     ShapeBlock,
		overlay:     overlay,
		engine:      engine,
		refresh:     refresh,
		refreshIdle: refreshIdle,
	}
}

// SetMapping replaces the mode→shape mapping and re-applies the
// current mode under it.
func (r *Resolver) SetMapping(mapping Mapping) {
	r.mu.Lock()
	r.mapping = mapping
	mode := r.mode
	r.mu.Unlock()
	r.SetMode(mode)
}

// Mode returns the last mode set.
func (r *Resolver) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// Applied returns the currently applied shape.
func (r *Resolver) Applied() Shape {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applied
}

// SetMode resolves mode to a shape and applies it. A real shape change
// seeds the engine with the displayed dimensions and triggers an
// animated recomputation; an unchanged shape only refreshes the shape
// tag and idle-pulse configuration.
func (r *Resolver) SetMode(mode Mode) {
	r.mu.Lock()
	r.mode = mode
	next := r.mapping.ShapeFor(mode)
	changed := next != r.applied

	if !changed {
		r.mu.Unlock()
		r.overlay.UpdateShape(next)
		if r.refreshIdle != nil {
			r.refreshIdle()
		}
		return
	}

	// Seed the morph from what is actually on screen. If nothing is
	// displayed yet the engine's current dimensions already carry the
	// old shape.
	if displayed, ok := r.overlay.DisplayedRect(); ok {
		r.engine.SeedSize(displayed.Width, displayed.Height)
	} else {
		cur := r.engine.Current()
		r.engine.SeedSize(cur.Width, cur.Height)
	}

	r.applied = next
	r.mu.Unlock()

	r.overlay.UpdateShape(next)
	if r.refresh != nil {
		r.refresh()
	}
}
