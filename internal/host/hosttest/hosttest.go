// Package hosttest packages the test doubles for the host boundary:
// the in-memory nodes, documents, and surfaces from memhost, plus a
// manually stepped scheduler. Every component test drives the engine
// through these instead of a real editing surface.
package hosttest

import (
	"github.com/dshills/caretglide/internal/host/memhost"
)

// Aliases into memhost, so tests keep one import for the whole fake
// host.
type (
	Node          = memhost.Node
	Document      = memhost.Document
	Surface       = memhost.Surface
	NotifySurface = memhost.NotifySurface
)

// NewNode creates a detached node.
func NewNode() *Node { return memhost.NewNode() }

// NewDocument creates an empty document.
func NewDocument() *Document { return memhost.NewDocument() }

// NewSurface creates a surface with sensible grid metrics.
func NewSurface(id, text string) *Surface { return memhost.NewSurface(id, text) }

// NewNotifySurface creates a surface with all capabilities present.
func NewNotifySurface(id, text string) *NotifySurface { return memhost.NewNotifySurface(id, text) }
