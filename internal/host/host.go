// Package host defines the boundary between the overlay engine and the
// editing surface it decorates. The engine never owns a document model,
// a layout pass, or an event loop of its own; everything it knows about
// the editor arrives through the interfaces in this package. Concrete
// implementations live in the embedding application (the demo binary
// ships a terminal-backed one).
package host

import "github.com/dshills/caretglide/internal/geom"

// Bias selects which side of a document offset a coordinate query
// should favor. At a line wrap or bidi boundary the two sides of the
// same offset can have very different screen positions.
type Bias int

const (
	// BiasAfter asks for the coordinates of the character following
	// the offset.
	BiasAfter Bias = iota
	// BiasBefore asks for the coordinates of the character preceding
	// the offset.
	BiasBefore
)

// Surface is the host editing surface the overlay attaches to.
//
// CoordsAtOffset is the primary coordinate query and may fail for any
// offset at any time (virtualized rendering, mid-layout queries); the
// engine treats failure as routine and falls back. All other accessors
// are expected to be cheap.
type Surface interface {
	// ID identifies this surface instance for logging and session
	// bookkeeping. Stable for the lifetime of the surface.
	ID() string

	// CoordsAtOffset returns the top-left screen position for a
	// document offset, or ok=false if the host cannot resolve it.
	CoordsAtOffset(offset int, bias Bias) (geom.Point, bool)

	// CaretOffset returns the current primary caret offset.
	CaretOffset() int

	// DocLength returns the document length in offsets.
	DocLength() int

	// TextRange returns the document text between two offsets. Used
	// only to inspect the character under the caret; never mutated.
	TextRange(from, to int) string

	// DefaultCharWidth returns the width in pixels of a typical
	// narrow character, or 0 if the host does not know yet (fonts
	// still loading). Callers must tolerate 0.
	DefaultCharWidth() float64

	// LineHeight returns the height in pixels of one text line.
	LineHeight() float64

	// ContentRoot returns the node containing the rendered document
	// lines. The overlay element is parented here and mutation
	// observation is rooted here.
	ContentRoot() Node

	// Doc returns the document the surface lives in.
	Doc() Document

	// Contains reports whether a node is part of this surface.
	Contains(n Node) bool

	// IsContentLine reports whether a node is one of the host's
	// rendered line elements. Used to scope mutation filtering.
	IsContentLine(n Node) bool

	// NativeCaretNodes returns the host's own caret elements, if it
	// renders the caret as DOM nodes. May be empty.
	NativeCaretNodes() []Node
}

// Node is the minimal element surface the engine needs: class and
// style manipulation, geometry, and lifecycle inspection. It stands in
// for a DOM element without importing any DOM machinery.
type Node interface {
	// AddClass and RemoveClass manage marker classes.
	AddClass(class string)
	RemoveClass(class string)
	HasClass(class string) bool

	// SetStyle writes an inline style property. Style reads one back
	// (empty string if unset).
	SetStyle(prop, value string)
	Style(prop string) string

	// SetAttr and Attr manage plain attributes.
	SetAttr(name, value string)
	Attr(name string) string

	// Bounds returns the node's current rectangle in screen pixels.
	Bounds() geom.Rect

	// IsConnected reports whether the node is still part of its
	// document. Hosts replace subtrees without notice; a false
	// return here is how the engine discovers a ghost overlay.
	IsConnected() bool

	// AppendChild attaches a child node.
	AppendChild(child Node)

	// Remove detaches the node from its document.
	Remove()
}

// Document is the engine's handle on the document containing the
// surface: node creation, class queries for orphan sweeps, focus
// inspection, and mutation observation.
type Document interface {
	// CreateNode creates a detached node.
	CreateNode() Node

	// NodesByClass returns every connected node in the document
	// carrying the given class.
	NodesByClass(class string) []Node

	// ActiveNode returns the node that currently has focus, or nil.
	ActiveNode() Node

	// ObserveMutations watches root's subtree and invokes fn with
	// batches of mutation records. The returned CancelFunc stops
	// observation; it must be safe to call more than once.
	ObserveMutations(root Node, fn func([]Mutation)) CancelFunc
}

// MutationKind classifies a mutation record.
type MutationKind int

const (
	// MutationChildList indicates child nodes were added or removed.
	MutationChildList MutationKind = iota
	// MutationAttribute indicates an attribute changed.
	MutationAttribute
)

// String returns the mutation kind name.
func (k MutationKind) String() string {
	switch k {
	case MutationChildList:
		return "childlist"
	case MutationAttribute:
		return "attribute"
	default:
		return "unknown"
	}
}

// Mutation is one observed change to the host's rendered content.
type Mutation struct {
	// Kind is the mutation type.
	Kind MutationKind

	// Target is the node the mutation occurred on.
	Target Node

	// Attr is the changed attribute name for MutationAttribute
	// records; empty otherwise.
	Attr string
}

// Update is one record from the host's content-and-selection change
// stream.
type Update struct {
	// DocChanged is true when document content changed (typing,
	// paste, delete), false for pure selection movement.
	DocChanged bool

	// Offset is the primary caret offset after the update.
	Offset int
}

// Key is a key press observed on the surface. Only the key name is
// carried; the engine cares about navigation keys exclusively.
type Key struct {
	Name string
}

// NavigationKeys is the set of key names that move the caret without
// changing content. Key observation exists as a compensating signal
// for hosts whose update stream is unreachable.
var NavigationKeys = map[string]bool{
	"ArrowUp":    true,
	"ArrowDown":  true,
	"ArrowLeft":  true,
	"ArrowRight": true,
	"Home":       true,
	"End":        true,
	"PageUp":     true,
	"PageDown":   true,
}

// Mouse is a mouse press observed on the document.
type Mouse struct {
	// Target is the node under the press.
	Target Node
	// X, Y are document pixel coordinates.
	X float64
	Y float64
}

// SettingsStore is the host's persistence facility for the overlay's
// configuration blob. The format of the blob is owned by the engine;
// the store treats it as opaque bytes.
type SettingsStore interface {
	// Load returns the stored blob, or nil if nothing is stored yet.
	Load() ([]byte, error)
	// Save persists the blob.
	Save(blob []byte) error
}
