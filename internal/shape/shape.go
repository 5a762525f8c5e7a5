// Package shape maps externally supplied edit modes to cursor glyph
// shapes and adjusts target dimensions for the active shape. The mode
// value itself comes from outside the engine; unknown modes get the
// safe block configuration.
package shape

import "github.com/dshills/caretglide/internal/geom"

// Mode is an externally supplied edit mode.
type Mode uint8

const (
	// ModeNormal is command/navigation mode.
	ModeNormal Mode = iota
	// ModeInsert is text-insertion mode.
	ModeInsert
	// ModeVisual is selection mode.
	ModeVisual
	// ModeReplace is overtype mode.
	ModeReplace
	// ModeCommand is command-line entry mode.
	ModeCommand
	// ModeUnknown is any unrecognized or missing mode value.
	ModeUnknown
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeInsert:
		return "insert"
	case ModeVisual:
		return "visual"
	case ModeReplace:
		return "replace"
	case ModeCommand:
		return "command"
	default:
		return "unknown"
	}
}

// ModeFromString converts a mode name to a Mode. Unrecognized names
// map to ModeUnknown.
func ModeFromString(s string) Mode {
	switch s {
	case "normal":
		return ModeNormal
	case "insert":
		return ModeInsert
	case "visual":
		return ModeVisual
	case "replace":
		return ModeReplace
	case "command", "command-line":
		return ModeCommand
	default:
		return ModeUnknown
	}
}

// Shape is the visual appearance of the cursor glyph.
type Shape uint8

const (
	// ShapeBlock is a filled block covering the glyph.
	ShapeBlock Shape = iota
	// ShapeBar is a thin vertical line.
	ShapeBar
	// ShapeUnderline is a thin horizontal line under the glyph.
	ShapeUnderline
)

// String returns the shape name.
func (s Shape) String() string {
	switch s {
	case ShapeBlock:
		return "block"
	case ShapeBar:
		return "bar"
	case ShapeUnderline:
		return "underline"
	default:
		return "block"
	}
}

// ShapeFromString converts a shape name to a Shape. Unrecognized names
// map to ShapeBlock.
func ShapeFromString(s string) Shape {
	switch s {
	case "block":
		return ShapeBlock
	case "bar", "line":
		return ShapeBar
	case "underline", "underscore":
		return ShapeUnderline
	default:
		return ShapeBlock
	}
}

const (
	// BarWidth is the fixed width of a bar cursor in pixels.
	BarWidth = 2.0
	// UnderlineHeight is the fixed height of an underline cursor in
	// pixels.
	UnderlineHeight = 2.0
)

// Mapping is a total EditMode → CursorShape map. Missing entries
// resolve to ShapeBlock.
type Mapping map[Mode]Shape

// DefaultMapping returns the conventional vim-style mapping.
func DefaultMapping() Mapping {
	return Mapping{
		ModeNormal:  ShapeBlock,
		ModeInsert:  ShapeBar,
		ModeVisual:  ShapeBlock,
		ModeReplace: ShapeUnderline,
		ModeCommand: ShapeBar,
	}
}

// ShapeFor resolves a mode to its configured shape, defaulting to
// block for unknown or unmapped modes.
func (m Mapping) ShapeFor(mode Mode) Shape {
	if s, ok := m[mode]; ok {
		return s
	}
	return ShapeBlock
}

// Apply clamps a raw glyph rectangle to the given shape. The returned
// yOffset shifts the painted rectangle downward (used by underline to
// sit at the glyph baseline); the rectangle's own Y is untouched so
// the animation engine keeps interpolating in glyph space.
func Apply(s Shape, base geom.Rect) (geom.Rect, float64) {
	switch s {
	case ShapeBar:
		return geom.Rect{X: base.X, Y: base.Y, Width: BarWidth, Height: base.Height}, 0
	case ShapeUnderline:
		yOffset := base.Height - UnderlineHeight
		if yOffset < 0 {
			yOffset = 0
		}
		return geom.Rect{X: base.X, Y: base.Y, Width: base.Width, Height: UnderlineHeight}, yOffset
	default:
		return base, 0
	}
}
