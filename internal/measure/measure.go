// Package measure computes the rendered pixel width of the character
// under the caret. Direct measurement asks the host for coordinates on
// both sides of the character; when the host cannot answer (virtualized
// lines, pending layout) the width is estimated from the default
// character width, doubled for wide scripts.
package measure

import (
	"sync"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"

	"github.com/dshills/caretglide/internal/host"
	"github.com/dshills/caretglide/internal/logging"
)

const (
	// cacheCapacity bounds the per-character width cache.
	cacheCapacity = 512

	// fallbackWidth is used when even the host's default character
	// width is unknown (fonts not measured yet). Results computed
	// from it are never cached.
	fallbackWidth = 8.0

	// wideCodePointMin doubles the estimate for symbol and emoji
	// ranges that runewidth alone may classify as narrow.
	wideCodePointMin = 0x1F000
)

// Measurer measures glyph widths for one attached surface. Results are
// cached by grapheme value, not by offset, so identical characters
// anywhere in the document share one measurement.
type Measurer struct {
	mu      sync.Mutex
	surface host.Surface
	logger  *logging.Logger

	cache map[string]float64
	order []string
}

// New creates a measurer for a surface.
func New(surface host.Surface, logger *logging.Logger) *Measurer {
	if logger == nil {
		logger = logging.NullLogger
	}
	return &Measurer{
		surface: surface,
		logger:  logger.WithComponent("measure"),
		cache:   make(map[string]float64),
	}
}

// Width returns the pixel width of the character at offset. Empty
// lines and end-of-document offsets measure as the host's default
// character width.
func (m *Measurer) Width(offset int) float64 {
	gr := m.graphemeAt(offset)
	if gr == "" || gr == "\n" {
		return m.defaultWidth()
	}

	m.mu.Lock()
	if w, ok := m.cache[gr]; ok {
		m.mu.Unlock()
		return w
	}
	m.mu.Unlock()

	if w, ok := m.measureDirect(offset, gr); ok {
		m.put(gr, w)
		return w
	}

	def := m.surface.DefaultCharWidth()
	known := def > 0
	if !known {
		def = fallbackWidth
	}

	w := def
	if isWide(gr) {
		w = def * 2
	}

	// An unknown default makes the estimate unreliable; skip the
	// cache so a later call can measure properly.
	if known {
		m.put(gr, w)
	}
	return w
}

// Reset drops all cached widths. Called when the host signals a
// layout or font change.
func (m *Measurer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]float64)
	m.order = m.order[:0]
}

// CacheSize returns the number of cached widths, for diagnostics.
func (m *Measurer) CacheSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cache)
}

// measureDirect asks the host for coordinates on both sides of the
// character and takes the horizontal delta. Fails when either side is
// unresolvable, the sides land on different lines (wrap point), or
// the delta is non-positive.
func (m *Measurer) measureDirect(offset int, gr string) (float64, bool) {
	start, ok := m.surface.CoordsAtOffset(offset, host.BiasAfter)
	if !ok || !start.Valid() {
		return 0, false
	}
	end, ok := m.surface.CoordsAtOffset(offset+utf8.RuneCountInString(gr), host.BiasAfter)
	if !ok || !end.Valid() {
		return 0, false
	}
	if end.Y != start.Y {
		return 0, false
	}
	delta := end.X - start.X
	if delta <= 0 {
		return 0, false
	}
	return delta, true
}

func (m *Measurer) defaultWidth() float64 {
	if def := m.surface.DefaultCharWidth(); def > 0 {
		return def
	}
	return fallbackWidth
}

// graphemeAt returns the grapheme cluster starting at offset, so
// combining sequences measure as one unit.
func (m *Measurer) graphemeAt(offset int) string {
	if offset < 0 || offset >= m.surface.DocLength() {
		return ""
	}
	// A cluster never needs more than a handful of runes of context.
	text := m.surface.TextRange(offset, offset+8)
	if text == "" {
		return ""
	}
	g := uniseg.NewGraphemes(text)
	if !g.Next() {
		return ""
	}
	return g.Str()
}

func (m *Measurer) put(gr string, w float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cache[gr]; !ok {
		if len(m.order) >= cacheCapacity {
			oldest := m.order[0]
			m.order = m.order[1:]
			delete(m.cache, oldest)
		}
		m.order = append(m.order, gr)
	}
	m.cache[gr] = w
}

// isWide reports whether a grapheme renders at double width: CJK
// ideographs, fullwidth forms, Hangul, wide Kana, and symbols above
// the high code-point threshold.
func isWide(gr string) bool {
	r, _ := utf8.DecodeRuneInString(gr)
	if r == utf8.RuneError {
		return false
	}
	if runewidth.RuneWidth(r) >= 2 {
		return true
	}
	return r >= wideCodePointMin
}
