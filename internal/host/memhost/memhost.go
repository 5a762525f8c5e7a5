// Package memhost is a complete in-memory implementation of the host
// boundary: nodes, documents, and surfaces with every optional
// capability. The demo binary uses it as its simulated editing
// surface; the hosttest package re-exports it for component tests.
package memhost

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dshills/caretglide/internal/geom"
	"github.com/dshills/caretglide/internal/host"
)

// Node is an in-memory host.Node.
type Node struct {
	mu        sync.Mutex
	classes   map[string]bool
	styles    map[string]string
	attrs     map[string]string
	children  []*Node
	parent    *Node
	connected bool

	// Rect is returned by Bounds.
	Rect geom.Rect
}

// NewNode creates a detached node.
func NewNode() *Node {
	return &Node{
		classes: make(map[string]bool),
		styles:  make(map[string]string),
		attrs:   make(map[string]string),
	}
}

// AddClass adds a class.
func (n *Node) AddClass(class string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.classes[class] = true
}

// RemoveClass removes a class.
func (n *Node) RemoveClass(class string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.classes, class)
}

// HasClass reports whether the node carries a class.
func (n *Node) HasClass(class string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.classes[class]
}

// SetStyle writes an inline style property.
func (n *Node) SetStyle(prop, value string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.styles[prop] = value
}

// Style reads an inline style property.
func (n *Node) Style(prop string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.styles[prop]
}

// SetAttr sets an attribute.
func (n *Node) SetAttr(name, value string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attrs[name] = value
}

// Attr reads an attribute.
func (n *Node) Attr(name string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.attrs[name]
}

// Bounds returns the node's rectangle.
func (n *Node) Bounds() geom.Rect {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Rect
}

// IsConnected reports whether the node is attached to a document.
func (n *Node) IsConnected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connected
}

// AppendChild attaches a child; the child inherits connectedness.
func (n *Node) AppendChild(child host.Node) {
	c, ok := child.(*Node)
	if !ok {
		panic(fmt.Sprintf("memhost: AppendChild got %T", child))
	}
	n.mu.Lock()
	n.children = append(n.children, c)
	connected := n.connected
	n.mu.Unlock()

	c.mu.Lock()
	c.parent = n
	c.mu.Unlock()
	c.setConnected(connected)
}

// Remove detaches the node from its parent and marks its subtree
// disconnected.
func (n *Node) Remove() {
	n.mu.Lock()
	parent := n.parent
	n.parent = nil
	n.mu.Unlock()

	if parent != nil {
		parent.mu.Lock()
		for i, c := range parent.children {
			if c == n {
				parent.children = append(parent.children[:i], parent.children[i+1:]...)
				break
			}
		}
		parent.mu.Unlock()
	}
	n.setConnected(false)
}

// Disconnect marks the subtree disconnected without removing it from
// its parent, simulating a host swapping rendered subtrees.
func (n *Node) Disconnect() {
	n.setConnected(false)
}

func (n *Node) setConnected(connected bool) {
	n.mu.Lock()
	n.connected = connected
	children := make([]*Node, len(n.children))
	copy(children, n.children)
	n.mu.Unlock()
	for _, c := range children {
		c.setConnected(connected)
	}
}

// Parent returns the node's parent, or nil.
func (n *Node) Parent() *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.parent
}

type observer struct {
	root host.Node
	fn   func([]host.Mutation)
	dead bool
}

// Document is an in-memory host.Document.
type Document struct {
	mu        sync.Mutex
	created   []*Node
	active    host.Node
	observers []*observer
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{}
}

// CreateNode creates a detached node and remembers it so NodesByClass
// can find orphans.
func (d *Document) CreateNode() host.Node {
	n := NewNode()
	d.mu.Lock()
	d.created = append(d.created, n)
	d.mu.Unlock()
	return n
}

// Adopt registers an externally built node with the document.
func (d *Document) Adopt(n *Node) {
	d.mu.Lock()
	d.created = append(d.created, n)
	d.mu.Unlock()
	n.setConnected(true)
}

// NodesByClass returns every connected node carrying class.
func (d *Document) NodesByClass(class string) []host.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []host.Node
	for _, n := range d.created {
		if n.IsConnected() && n.HasClass(class) {
			out = append(out, n)
		}
	}
	return out
}

// ActiveNode returns the focused node.
func (d *Document) ActiveNode() host.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// SetActiveNode sets the focused node.
func (d *Document) SetActiveNode(n host.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active = n
}

// ObserveMutations registers a mutation observer.
func (d *Document) ObserveMutations(root host.Node, fn func([]host.Mutation)) host.CancelFunc {
	obs := &observer{root: root, fn: fn}
	d.mu.Lock()
	d.observers = append(d.observers, obs)
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			obs.dead = true
			for i, o := range d.observers {
				if o == obs {
					d.observers = append(d.observers[:i], d.observers[i+1:]...)
					break
				}
			}
			d.mu.Unlock()
		})
	}
}

// EmitMutations delivers mutation records to observers rooted at root.
func (d *Document) EmitMutations(root host.Node, muts []host.Mutation) {
	d.mu.Lock()
	var targets []func([]host.Mutation)
	for _, o := range d.observers {
		if !o.dead && o.root == root {
			targets = append(targets, o.fn)
		}
	}
	d.mu.Unlock()
	for _, fn := range targets {
		fn(muts)
	}
}

// ObserverCount returns the number of live observers, for teardown
// assertions.
func (d *Document) ObserverCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.observers)
}

// Surface is an in-memory host.Surface over a monospace text grid.
// Offsets are rune indices; coordinates place each character on a
// CharWidth by LineH pixel grid. It implements only the mandatory
// Surface interface; NotifySurface adds the optional capabilities.
type Surface struct {
	mu sync.Mutex

	// IDValue is returned by ID.
	IDValue string
	// Text is the document content.
	Text string
	// Caret is the current caret offset.
	Caret int
	// CharWidth is the default character width in pixels.
	CharWidth float64
	// LineH is the line height in pixels.
	LineH float64
	// FailCoords forces CoordsAtOffset to fail, simulating a host
	// mid-layout.
	FailCoords bool
	coordsOverride func(offset int, bias host.Bias) (geom.Point, bool)

	doc        *Document
	root       *Node
	caretNodes []host.Node

	// LineClass marks content line nodes.
	LineClass string
}

// NewSurface creates a surface with sensible grid metrics.
func NewSurface(id, text string) *Surface {
	doc := NewDocument()
	root := NewNode()
	root.AddClass("content-root")
	doc.Adopt(root)
	return &Surface{
		IDValue:   id,
		Text:      text,
		CharWidth: 8,
		LineH:     18,
		doc:       doc,
		root:      root,
		LineClass: "content-line",
	}
}

// ID returns the surface identifier.
func (s *Surface) ID() string { return s.IDValue }

// SetCoordsFunc overrides coordinate resolution.
func (s *Surface) SetCoordsFunc(fn func(offset int, bias host.Bias) (geom.Point, bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coordsOverride = fn
}

// CoordsAtOffset maps an offset onto the monospace grid.
func (s *Surface) CoordsAtOffset(offset int, bias host.Bias) (geom.Point, bool) {
	s.mu.Lock()
	override := s.coordsOverride
	fail := s.FailCoords
	text := s.Text
	cw, lh := s.CharWidth, s.LineH
	s.mu.Unlock()

	if override != nil {
		return override(offset, bias)
	}
	if fail {
		return geom.Point{}, false
	}

	runes := []rune(text)
	if offset < 0 || offset > len(runes) {
		return geom.Point{}, false
	}
	if bias == host.BiasBefore && offset > 0 {
		offset--
	}
	line, col := 0, 0
	for i := 0; i < offset && i < len(runes); i++ {
		if runes[i] == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}
	return geom.Point{X: float64(col) * cw, Y: float64(line) * lh}, true
}

// CaretOffset returns the caret offset.
func (s *Surface) CaretOffset() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Caret
}

// SetCaret moves the caret.
func (s *Surface) SetCaret(offset int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Caret = offset
}

// DocLength returns the document length in runes.
func (s *Surface) DocLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len([]rune(s.Text))
}

// TextRange returns the text between two rune offsets, clamped.
func (s *Surface) TextRange(from, to int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	runes := []rune(s.Text)
	if from < 0 {
		from = 0
	}
	if to > len(runes) {
		to = len(runes)
	}
	if from >= to {
		return ""
	}
	return string(runes[from:to])
}

// DefaultCharWidth returns the grid character width.
func (s *Surface) DefaultCharWidth() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CharWidth
}

// SetDefaultCharWidth overrides the grid character width (0 simulates
// a host that has not measured its font yet).
func (s *Surface) SetDefaultCharWidth(w float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CharWidth = w
}

// LineHeight returns the grid line height.
func (s *Surface) LineHeight() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LineH
}

// ContentRoot returns the content root node.
func (s *Surface) ContentRoot() host.Node { return s.root }

// Root returns the concrete content root for direct manipulation.
func (s *Surface) Root() *Node { return s.root }

// Doc returns the surface's document.
func (s *Surface) Doc() host.Document { return s.doc }

// Document returns the concrete document for direct manipulation.
func (s *Surface) Document() *Document { return s.doc }

// Contains walks the parent chain to decide membership.
func (s *Surface) Contains(n host.Node) bool {
	cur, ok := n.(*Node)
	if !ok {
		return false
	}
	for cur != nil {
		if cur == s.root {
			return true
		}
		cur = cur.Parent()
	}
	return false
}

// IsContentLine reports whether n carries the line class.
func (s *Surface) IsContentLine(n host.Node) bool {
	return n != nil && n.HasClass(s.LineClass)
}

// NativeCaretNodes returns the registered native caret nodes.
func (s *Surface) NativeCaretNodes() []host.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]host.Node, len(s.caretNodes))
	copy(out, s.caretNodes)
	return out
}

// AddNativeCaret registers a native caret node.
func (s *Surface) AddNativeCaret(n *Node) {
	s.doc.Adopt(n)
	s.root.AppendChild(n)
	s.mu.Lock()
	s.caretNodes = append(s.caretNodes, n)
	s.mu.Unlock()
}

// InsertText inserts text at the caret and advances it, like typing.
func (s *Surface) InsertText(text string) {
	s.mu.Lock()
	runes := []rune(s.Text)
	at := s.Caret
	if at < 0 {
		at = 0
	}
	if at > len(runes) {
		at = len(runes)
	}
	s.Text = string(runes[:at]) + text + string(runes[at:])
	s.Caret = at + len([]rune(text))
	s.mu.Unlock()
}

// LineText returns a line's content, for demo-style assertions.
func (s *Surface) LineText(line int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := strings.Split(s.Text, "\n")
	if line < 0 || line >= len(lines) {
		return ""
	}
	return lines[line]
}
