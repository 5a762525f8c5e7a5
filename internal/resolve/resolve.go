// Package resolve turns document offsets into screen coordinates using
// an ordered fallback chain. Host coordinate queries fail routinely
// (virtualized rendering, mid-layout calls, transient re-renders), so
// every strategy is optional and failure degrades to "hide the overlay
// and retry on the next signal", never to an error the caller must
// handle.
package resolve

import (
	"sync"
	"time"

	"github.com/dshills/caretglide/internal/geom"
	"github.com/dshills/caretglide/internal/host"
	"github.com/dshills/caretglide/internal/logging"
)

const (
	// cacheTTL is how long a resolved coordinate stays valid for
	// repeated queries within one rendering tick.
	cacheTTL = 50 * time.Millisecond

	// cacheCapacity bounds the per-offset cache; the oldest entry is
	// evicted past it.
	cacheCapacity = 32

	// staleLimit bounds how old the last-good fallback may be before
	// it is discarded rather than reused.
	staleLimit = 2 * time.Second
)

type entry struct {
	pt geom.Point
	at time.Time
}

// Resolver resolves caret offsets to screen coordinates for one
// attached surface.
type Resolver struct {
	mu      sync.Mutex
	surface host.Surface
	logger  *logging.Logger
	clock   func() time.Time

	cache map[int]entry
	order []int

	lastGood    geom.Point
	lastGoodAt  time.Time
	hasLastGood bool
}

// New creates a resolver for a surface. clock may be nil (wall clock).
func New(surface host.Surface, clock func() time.Time, logger *logging.Logger) *Resolver {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = logging.NullLogger
	}
	return &Resolver{
		surface: surface,
		logger:  logger.WithComponent("resolve"),
		clock:   clock,
		cache:   make(map[int]entry),
	}
}

// Resolve returns screen coordinates for a document offset. The
// fallback chain, first success wins:
//
//  1. host query biased to the following character
//  2. host query biased to the preceding character
//  3. bounding rectangle of a native caret element, if present and
//     non-zero-sized
//  4. the last successfully resolved coordinate, if recent enough
//
// ok=false means every strategy failed and the overlay must hide.
func (r *Resolver) Resolve(offset int) (geom.Point, bool) {
	now := r.clock()

	r.mu.Lock()
	if e, ok := r.cache[offset]; ok && now.Sub(e.at) <= cacheTTL {
		r.mu.Unlock()
		return e.pt, true
	}
	r.mu.Unlock()

	if pt, ok := r.surface.CoordsAtOffset(offset, host.BiasAfter); ok && pt.Valid() {
		r.record(offset, pt, now)
		return pt, true
	}
	if pt, ok := r.surface.CoordsAtOffset(offset, host.BiasBefore); ok && pt.Valid() {
		r.record(offset, pt, now)
		return pt, true
	}

	if pt, ok := r.nativeCaretRect(); ok {
		r.record(offset, pt, now)
		return pt, true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hasLastGood && now.Sub(r.lastGoodAt) <= staleLimit {
		r.logger.Debug("resolve fell back to last-good coordinate offset=%d", offset)
		return r.lastGood, true
	}

	r.logger.Debug("resolve failed offset=%d", offset)
	return geom.Point{}, false
}

// nativeCaretRect reads the host's own (hidden) caret element, which
// tracks the caret even when offset queries fail mid-layout.
func (r *Resolver) nativeCaretRect() (geom.Point, bool) {
	for _, n := range r.surface.NativeCaretNodes() {
		if n == nil || !n.IsConnected() {
			continue
		}
		b := n.Bounds()
		if !b.Valid() {
			continue
		}
		if b.Width <= 0 && b.Height <= 0 {
			continue
		}
		return geom.Point{X: b.X, Y: b.Y}, true
	}
	return geom.Point{}, false
}

func (r *Resolver) record(offset int, pt geom.Point, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cache[offset]; !ok {
		if len(r.order) >= cacheCapacity {
			oldest := r.order[0]
			r.order = r.order[1:]
			delete(r.cache, oldest)
		}
		r.order = append(r.order, offset)
	}
	r.cache[offset] = entry{pt: pt, at: now}
	r.lastGood = pt
	r.lastGoodAt = now
	r.hasLastGood = true
}

// Invalidate drops all cached coordinates. Called synchronously on any
// detected offset change or host content/layout change, before the
// next resolution.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[int]entry)
	r.order = r.order[:0]
}

// CacheSize returns the number of cached offsets, for diagnostics.
func (r *Resolver) CacheSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}

// LastGood returns the last successfully resolved coordinate and
// whether one exists, for diagnostics.
func (r *Resolver) LastGood() (geom.Point, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastGood, r.hasLastGood
}
