// Package overlay owns the single node that visually represents the
// cursor. Nothing else in the engine writes to that node; position,
// visibility, shape tag, and the breathing/moving state classes all go
// through the Manager, which keeps concurrent writers from interleaving
// inconsistent styles.
package overlay

import (
	"fmt"
	"sync"

	"github.com/dshills/caretglide/internal/geom"
	"github.com/dshills/caretglide/internal/host"
	"github.com/dshills/caretglide/internal/logging"
	"github.com/dshills/caretglide/internal/shape"
)

const (
	// ClassName marks the overlay cursor node. At most one node with
	// this class exists in a document while a session is attached.
	ClassName = "caretglide-cursor"

	// MovingClass marks the overlay while it is actively animating.
	MovingClass = "caretglide-moving"

	// BreathingClass enables the idle pulse. Mutually exclusive with
	// MovingClass; moving always wins so two opacity animations never
	// fight.
	BreathingClass = "caretglide-breathing"

	// SessionAttr records the owning session on the node.
	SessionAttr = "data-caretglide-session"

	// ShapeAttr records the active shape tag on the node.
	ShapeAttr = "data-caretglide-shape"

	// parkOffset moves a hidden overlay far off screen so it cannot
	// flash at its old position on the next show.
	parkOffset = -9999.0
)

// Manager owns the overlay node lifecycle for one session.
type Manager struct {
	mu     sync.Mutex
	doc    host.Document
	parent host.Node
	logger *logging.Logger

	node      host.Node
	sessionID string
	shapeTag  shape.Shape
	visible   bool
	breathing bool
	moving    bool

	lastRect   geom.Rect
	lastOffset float64
	hasPainted bool
}

// New creates a manager that parents the overlay node under parent.
func New(doc host.Document, parent host.Node, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NullLogger
	}
	return &Manager{
		doc:    doc,
		parent: parent,
		logger: logger.WithComponent("overlay"),
	}
}

// Create builds the overlay node for a session, first removing any
// pre-existing or orphaned overlay nodes found in the document. The
// new node starts hidden and parked off screen.
func (m *Manager) Create(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createLocked(sessionID)
}

func (m *Manager) createLocked(sessionID string) {
	for _, orphan := range m.doc.NodesByClass(ClassName) {
		orphan.Remove()
	}

	node := m.doc.CreateNode()
	node.AddClass(ClassName)
	node.SetAttr(SessionAttr, sessionID)
	node.SetAttr(ShapeAttr, m.shapeTag.String())
	m.parent.AppendChild(node)

	m.node = node
	m.sessionID = sessionID
	m.visible = false
	m.hasPainted = false
	m.parkLocked()
	m.applyStateLocked()
}

// Element returns the overlay node, or nil when none exists.
func (m *Manager) Element() host.Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.node
}

// IsConnected reports whether the overlay node exists and is still
// attached to the document.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.node != nil && m.node.IsConnected()
}

// Recreate rebuilds the overlay node for the current session. Used by
// health checks after the host discards the subtree holding the node.
func (m *Manager) Recreate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessionID == "" {
		return
	}
	m.logger.Debug("recreating overlay node session=%s", m.sessionID)
	m.createLocked(m.sessionID)
}

// Show makes the overlay visible. Position must be written separately;
// a freshly created or hidden node is parked off screen.
func (m *Manager) Show() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.node == nil {
		return
	}
	m.visible = true
	m.node.SetStyle("visibility", "visible")
}

// Hide makes the overlay invisible without destroying it, and parks it
// off screen so the next Show cannot flash a stale position.
func (m *Manager) Hide() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.node == nil {
		return
	}
	m.visible = false
	m.node.SetStyle("visibility", "hidden")
	m.parkLocked()
}

// IsVisible reports whether the overlay is currently shown.
func (m *Manager) IsVisible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible
}

func (m *Manager) parkLocked() {
	if m.node == nil {
		return
	}
	m.node.SetStyle("left", px(parkOffset))
	m.node.SetStyle("top", px(parkOffset))
	m.node.SetStyle("transform", "")
	m.hasPainted = false
}

// UpdatePosition writes the overlay's physical placement. Two mutually
// exclusive strategies are supported: direct left/top offsets, or a
// single compositing transform. yOffset shifts the painted rectangle
// downward (underline shapes). If the node has been torn out of the
// document it is recreated first.
func (m *Manager) UpdatePosition(x, y, width, height float64, useTransform bool, yOffset float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.node == nil {
		return
	}
	if !m.node.IsConnected() {
		m.logger.Debug("overlay node detached before position write, recreating")
		wasVisible := m.visible
		m.createLocked(m.sessionID)
		if wasVisible {
			m.visible = true
			m.node.SetStyle("visibility", "visible")
		}
	}

	top := y + yOffset
	if useTransform {
		m.node.SetStyle("transform", fmt.Sprintf("translate(%spx, %spx)", fmtPx(x), fmtPx(top)))
		m.node.SetStyle("left", "0px")
		m.node.SetStyle("top", "0px")
	} else {
		m.node.SetStyle("left", px(x))
		m.node.SetStyle("top", px(top))
		m.node.SetStyle("transform", "")
	}
	m.node.SetStyle("width", px(width))
	m.node.SetStyle("height", px(height))

	m.lastRect = geom.Rect{X: x, Y: y, Width: width, Height: height}
	m.lastOffset = yOffset
	m.hasPainted = true
}

// DisplayedRect returns the rectangle currently painted, or ok=false
// if the overlay has not painted since creation or hide.
func (m *Manager) DisplayedRect() (geom.Rect, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.node == nil || !m.hasPainted {
		return geom.Rect{}, false
	}
	// The node's own bounds are the most accurate source when the
	// host lays the node out; fall back to the last written rect.
	if b := m.node.Bounds(); b.Valid() && (b.Width > 0 || b.Height > 0) {
		return b, true
	}
	return m.lastRect, true
}

// UpdateShape stores the shape tag for later dimension handling and
// reflects it on the node.
func (m *Manager) UpdateShape(s shape.Shape) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shapeTag = s
	if m.node != nil {
		m.node.SetAttr(ShapeAttr, s.String())
	}
}

// Shape returns the stored shape tag.
func (m *Manager) Shape() shape.Shape {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shapeTag
}

// SetBreathing toggles the idle pulse state. It takes effect only
// while the cursor is not moving.
func (m *Manager) SetBreathing(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breathing = on
	m.applyStateLocked()
}

// SetMoving toggles the moving state. Moving suppresses breathing for
// as long as it is set.
func (m *Manager) SetMoving(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moving = on
	m.applyStateLocked()
}

func (m *Manager) applyStateLocked() {
	if m.node == nil {
		return
	}
	if m.moving {
		m.node.AddClass(MovingClass)
		m.node.RemoveClass(BreathingClass)
		return
	}
	m.node.RemoveClass(MovingClass)
	if m.breathing {
		m.node.AddClass(BreathingClass)
	} else {
		m.node.RemoveClass(BreathingClass)
	}
}

// Destroy removes the overlay node. The manager can be reused with a
// subsequent Create.
func (m *Manager) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.node != nil {
		m.node.Remove()
		m.node = nil
	}
	m.visible = false
	m.hasPainted = false
}

func px(v float64) string {
	return fmtPx(v) + "px"
}

func fmtPx(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
