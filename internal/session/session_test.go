package session

import (
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dshills/caretglide/internal/config"
	"github.com/dshills/caretglide/internal/host"
	"github.com/dshills/caretglide/internal/host/hosttest"
	"github.com/dshills/caretglide/internal/overlay"
	"github.com/dshills/caretglide/internal/shape"
)

func newPlugin(t *testing.T) (*Plugin, *hosttest.Scheduler, *config.Store) {
	t.Helper()
	sched := hosttest.NewScheduler()
	store := config.NewStore(config.Default())
	return NewPlugin(sched, store, sched.Now, nil), sched, store
}

func overlayNodes(s *hosttest.NotifySurface) []host.Node {
	return s.Document().NodesByClass(overlay.ClassName)
}

func TestAttachCreatesOverlayAndSuppresses(t *testing.T) {
	p, _, _ := newPlugin(t)
	surf := hosttest.NewNotifySurface("a", "hello world")
	caret := hosttest.NewNode()
	surf.AddNativeCaret(caret)

	sess := p.Attach(surf)
	defer p.Detach()

	if !sess.IsAttached() {
		t.Fatal("session not attached")
	}
	if n := len(overlayNodes(surf)); n != 1 {
		t.Fatalf("overlay nodes = %d, want 1", n)
	}
	if caret.Style("visibility") != "hidden" {
		t.Error("native caret not suppressed on attach")
	}
	if !surf.Root().HasClass("caretglide-suppressed") {
		t.Error("suppression marker missing while attached")
	}
}

func TestAttachIsIdempotent(t *testing.T) {
	p, _, _ := newPlugin(t)
	surf := hosttest.NewNotifySurface("a", "hello")

	first := p.Attach(surf)
	second := p.Attach(surf)

	if first != second {
		t.Error("healthy re-attach created a new session")
	}
	if n := len(overlayNodes(surf)); n != 1 {
		t.Errorf("overlay nodes = %d after double attach, want 1", n)
	}
}

func TestDetachRemovesEverything(t *testing.T) {
	p, sched, _ := newPlugin(t)
	surf := hosttest.NewNotifySurface("a", "hello")
	caret := hosttest.NewNode()
	caret.SetStyle("visibility", "visible")
	surf.AddNativeCaret(caret)

	p.Attach(surf)
	p.Detach()

	if n := len(overlayNodes(surf)); n != 0 {
		t.Errorf("overlay nodes = %d after detach, want 0", n)
	}
	if surf.Root().HasClass("caretglide-suppressed") {
		t.Error("suppression marker survived detach")
	}
	if got := caret.Style("visibility"); got != "visible" {
		t.Errorf("caret visibility = %q, suppression not reversed", got)
	}
	if n := surf.SubscriptionCount(); n != 0 {
		t.Errorf("subscriptions = %d after detach, want 0", n)
	}
	if n := surf.Document().ObserverCount(); n != 0 {
		t.Errorf("mutation observers = %d after detach, want 0", n)
	}
	if n := sched.PendingTimers(); n != 0 {
		t.Errorf("pending timers = %d after detach, want 0", n)
	}
}

func TestSwitchingSurfacesIsolatesSessions(t *testing.T) {
	p, _, _ := newPlugin(t)
	surfA := hosttest.NewNotifySurface("a", "first")
	surfB := hosttest.NewNotifySurface("b", "second")

	sessA := p.Attach(surfA)
	sessB := p.Attach(surfB)

	if sessA == sessB {
		t.Fatal("surface switch reused the session")
	}
	if sessA.IsAttached() {
		t.Error("previous session still attached")
	}
	if n := len(overlayNodes(surfA)); n != 0 {
		t.Errorf("surface A overlay nodes = %d, want 0", n)
	}
	if n := surfA.SubscriptionCount(); n != 0 {
		t.Errorf("surface A subscriptions = %d, want 0", n)
	}
	if n := surfA.Document().ObserverCount(); n != 0 {
		t.Errorf("surface A observers = %d, want 0", n)
	}
	if n := len(overlayNodes(surfB)); n != 1 {
		t.Errorf("surface B overlay nodes = %d, want 1", n)
	}
}

func TestInitialPaintSnapsToCaret(t *testing.T) {
	p, _, _ := newPlugin(t)
	surf := hosttest.NewNotifySurface("a", "hello")
	surf.SetCaret(2)

	p.Attach(surf)
	defer p.Detach()

	el := overlayNodes(surf)[0]
	if got := el.Style("visibility"); got != "visible" {
		t.Fatalf("visibility = %q", got)
	}
	// Default placement is transform; offset 2 on the fake grid is
	// x=16, y=0.
	if got := el.Style("transform"); got != "translate(16.00px, 0.00px)" {
		t.Errorf("transform = %q", got)
	}
}

func TestNavigationAnimatesToFinalOffset(t *testing.T) {
	p, sched, _ := newPlugin(t)
	surf := hosttest.NewNotifySurface("a", "hello world")

	p.Attach(surf)
	defer p.Detach()

	surf.SetCaret(5)
	surf.EmitUpdate(host.Update{Offset: 5})

	el := overlayNodes(surf)[0]
	for i := 0; i < 60; i++ {
		sched.Step()
	}
	if got := el.Style("transform"); got != "translate(40.00px, 0.00px)" {
		t.Errorf("transform = %q, want final offset position", got)
	}
}

func TestEditInvalidatesCachedCoordinates(t *testing.T) {
	p, sched, _ := newPlugin(t)
	surf := hosttest.NewNotifySurface("a", "abc\ndef")
	surf.SetCaret(4) // line 1, col 0

	p.Attach(surf)
	defer p.Detach()

	// Navigate back onto the first line, then type. The insertion puts
	// the caret back on offset 4, which now lands on line 0 col 4; the
	// pre-edit coordinate for offset 4 must not be served from cache.
	surf.SetCaret(3)
	surf.EmitUpdate(host.Update{Offset: 3})
	surf.InsertText("X")
	surf.EmitUpdate(host.Update{DocChanged: true, Offset: surf.CaretOffset()})

	el := overlayNodes(surf)[0]
	for i := 0; i < 60; i++ {
		sched.Step()
	}
	if got := el.Style("transform"); got != "translate(32.00px, 0.00px)" {
		t.Errorf("transform = %q, want post-edit caret position", got)
	}
}

func TestResolutionFailureHidesOverlay(t *testing.T) {
	p, sched, _ := newPlugin(t)
	surf := hosttest.NewNotifySurface("a", "hello")

	p.Attach(surf)
	defer p.Detach()

	surf.FailCoords = true
	// Push past the last-good staleness bound so the fallback chain
	// is fully exhausted.
	sched.Advance(3 * time.Second)
	surf.SetCaret(3)
	surf.EmitUpdate(host.Update{Offset: 3})

	el := overlayNodes(surf)[0]
	if got := el.Style("visibility"); got != "hidden" {
		t.Errorf("visibility = %q after failed resolution, want hidden", got)
	}
}

func TestModeChangeUpdatesShape(t *testing.T) {
	p, _, _ := newPlugin(t)
	surf := hosttest.NewNotifySurface("a", "hello")

	sess := p.Attach(surf)
	defer p.Detach()

	sess.SetMode(shape.ModeInsert)

	el := overlayNodes(surf)[0]
	if got := el.Attr(overlay.ShapeAttr); got != "bar" {
		t.Errorf("shape attr = %q, want bar", got)
	}
	if got := sess.Mode(); got != shape.ModeInsert {
		t.Errorf("mode = %v", got)
	}
}

func TestMovementSuspendsBreathing(t *testing.T) {
	p, sched, _ := newPlugin(t)
	surf := hosttest.NewNotifySurface("a", "hello world")

	p.Attach(surf)
	defer p.Detach()

	el := overlayNodes(surf)[0]
	if !el.HasClass(overlay.BreathingClass) {
		t.Fatal("breathing not enabled at rest")
	}

	surf.SetCaret(8)
	surf.EmitUpdate(host.Update{Offset: 8})
	if !el.HasClass(overlay.MovingClass) {
		t.Fatal("moving class missing during animation")
	}
	if el.HasClass(overlay.BreathingClass) {
		t.Error("breathing visible while moving")
	}

	// Converge, then wait out the stop debounce.
	for i := 0; i < 60; i++ {
		sched.Step()
	}
	sched.Advance(400 * time.Millisecond)
	if el.HasClass(overlay.MovingClass) {
		t.Error("moving class survived the stop debounce")
	}
	if !el.HasClass(overlay.BreathingClass) {
		t.Error("breathing did not resume after movement stopped")
	}
}

func TestConfigChangeReappliesLive(t *testing.T) {
	p, _, store := newPlugin(t)
	surf := hosttest.NewNotifySurface("a", "hello")

	p.Attach(surf)
	defer p.Detach()

	cfg := store.Current()
	cfg.Color = "#ff0000"
	cfg.Opacity = 0.5
	if err := store.Update(cfg, "api"); err != nil {
		t.Fatalf("Update: %v", err)
	}

	el := overlayNodes(surf)[0]
	if got := el.Style("background-color"); got != "rgba(255, 0, 0, 0.50)" {
		t.Errorf("background-color = %q", got)
	}
}

func TestDisabledConfigHidesOverlay(t *testing.T) {
	p, _, store := newPlugin(t)
	surf := hosttest.NewNotifySurface("a", "hello")

	p.Attach(surf)
	defer p.Detach()

	cfg := store.Current()
	cfg.Enabled = false
	if err := store.Update(cfg, "api"); err != nil {
		t.Fatalf("Update: %v", err)
	}

	el := overlayNodes(surf)[0]
	if got := el.Style("visibility"); got != "hidden" {
		t.Errorf("visibility = %q with engine disabled, want hidden", got)
	}
}

func TestBlurHidesFocusRestores(t *testing.T) {
	p, _, _ := newPlugin(t)
	surf := hosttest.NewNotifySurface("a", "hello")
	surf.Document().SetActiveNode(surf.Root())

	p.Attach(surf)
	defer p.Detach()

	el := overlayNodes(surf)[0]
	surf.EmitFocus(false)
	surf.Document().SetActiveNode(nil)
	if got := el.Style("visibility"); got != "hidden" {
		t.Errorf("visibility = %q after blur, want hidden", got)
	}

	surf.Document().SetActiveNode(surf.Root())
	surf.EmitFocus(true)
	if got := el.Style("visibility"); got != "visible" {
		t.Errorf("visibility = %q after focus, want visible", got)
	}
}

func TestDiagnosticsSnapshot(t *testing.T) {
	p, _, _ := newPlugin(t)
	surf := hosttest.NewNotifySurface("a", "hello")

	sess := p.Attach(surf)
	defer p.Detach()

	d := sess.Diagnostics()
	if d.SessionID != sess.ID() || d.SurfaceID != "a" {
		t.Errorf("identity = %q/%q", d.SessionID, d.SurfaceID)
	}
	if !d.Attached || !d.OverlayConnected {
		t.Errorf("state = %+v", d)
	}
	if len(d.Sources) == 0 {
		t.Error("no signal sources reported")
	}
	if d.Shape != "block" {
		t.Errorf("shape = %q", d.Shape)
	}
}

func TestForceRefreshRecovers(t *testing.T) {
	p, _, _ := newPlugin(t)
	surf := hosttest.NewNotifySurface("a", "hello")

	sess := p.Attach(surf)
	defer p.Detach()

	// Host silently replaces the overlay's subtree.
	el := overlayNodes(surf)[0].(*hosttest.Node)
	el.Disconnect()

	sess.ForceRefresh()

	nodes := overlayNodes(surf)
	if len(nodes) != 1 {
		t.Fatalf("overlay nodes = %d after force refresh, want 1", len(nodes))
	}
	if got := nodes[0].Style("visibility"); got != "visible" {
		t.Errorf("visibility = %q after force refresh", got)
	}
}

type fakeSettings struct {
	blob []byte
}

func (f *fakeSettings) Load() ([]byte, error) { return f.blob, nil }
func (f *fakeSettings) Save(b []byte) error   { f.blob = b; return nil }

func TestSettingsRoundTrip(t *testing.T) {
	p, _, store := newPlugin(t)
	ss := &fakeSettings{blob: []byte(`{"editor": {"theme": "dusk"}, "caretglide": {"color": "#010203"}}`)}

	if err := p.LoadSettings(ss); err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got := store.Current().Color; got != "#010203" {
		t.Errorf("loaded color = %q", got)
	}

	cfg := store.Current()
	cfg.Color = "#445566"
	if err := store.Update(cfg, "api"); err != nil {
		t.Fatal(err)
	}
	if err := p.SaveSettings(ss); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	if got := gjson.GetBytes(ss.blob, "caretglide.color").String(); got != "#445566" {
		t.Errorf("saved color = %q", got)
	}
	if got := gjson.GetBytes(ss.blob, "editor.theme").String(); got != "dusk" {
		t.Errorf("host key = %q, round trip lost foreign keys", got)
	}
}
