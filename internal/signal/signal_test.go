package signal

import (
	"testing"
	"time"

	"github.com/dshills/caretglide/internal/host"
	"github.com/dshills/caretglide/internal/host/hosttest"
)

type capture struct {
	positions []bool // isTyping flag per PositionChanged
	syncs     int
	settles   int
	layouts   int
	focus     []bool
}

func newAggregator(t *testing.T, s *hosttest.NotifySurface) (*Aggregator, *hosttest.Scheduler, *capture) {
	t.Helper()
	sched := hosttest.NewScheduler()
	cap := &capture{}
	a := New(s, sched, Callbacks{
		PositionChanged: func(isTyping bool) { cap.positions = append(cap.positions, isTyping) },
		ScrollSync:      func() { cap.syncs++ },
		ScrollSettled:   func() { cap.settles++ },
		LayoutChanged:   func() { cap.layouts++ },
		FocusChanged:    func(f bool) { cap.focus = append(cap.focus, f) },
	}, sched.Now, nil)
	a.Start()
	return a, sched, cap
}

func TestUpdateStreamNavigation(t *testing.T) {
	s := hosttest.NewNotifySurface("s1", "hello world")
	a, _, cap := newAggregator(t, s)
	defer a.Stop()

	s.SetCaret(5)
	s.EmitUpdate(host.Update{Offset: 5})

	if len(cap.positions) != 1 {
		t.Fatalf("position changes = %d, want 1", len(cap.positions))
	}
	if cap.positions[0] {
		t.Error("pure navigation flagged as typing")
	}
}

func TestUpdateStreamTyping(t *testing.T) {
	s := hosttest.NewNotifySurface("s1", "hello")
	a, sched, cap := newAggregator(t, s)
	defer a.Stop()

	s.InsertText("x")
	s.EmitUpdate(host.Update{DocChanged: true, Offset: s.CaretOffset()})

	if len(cap.positions) != 1 || !cap.positions[0] {
		t.Fatalf("positions = %v, want one typing-flagged change", cap.positions)
	}
	if !a.IsTyping() {
		t.Error("typing flag not set after content change")
	}

	// The flag clears after the trailing quiet window.
	sched.Advance(200 * time.Millisecond)
	if a.IsTyping() {
		t.Error("typing flag still set after quiet window")
	}
}

func TestUnchangedOffsetIgnored(t *testing.T) {
	s := hosttest.NewNotifySurface("s1", "hello")
	s.SetCaret(3)
	a, _, cap := newAggregator(t, s)
	defer a.Stop()

	s.EmitUpdate(host.Update{Offset: 3})

	if len(cap.positions) != 0 {
		t.Errorf("position changes = %d for unmoved caret, want 0", len(cap.positions))
	}
}

func TestNavigationKeyRecheckOneFrameLater(t *testing.T) {
	s := hosttest.NewNotifySurface("s1", "hello")
	a, sched, cap := newAggregator(t, s)
	defer a.Stop()

	s.EmitKey(host.Key{Name: "ArrowRight"})
	// Host selection settles between the key and the next frame.
	s.SetCaret(1)

	if len(cap.positions) != 0 {
		t.Fatal("recheck ran before the next frame")
	}
	sched.Step()
	if len(cap.positions) != 1 {
		t.Errorf("position changes = %d after frame, want 1", len(cap.positions))
	}
}

func TestNonNavigationKeyIgnored(t *testing.T) {
	s := hosttest.NewNotifySurface("s1", "hello")
	a, sched, cap := newAggregator(t, s)
	defer a.Stop()

	s.EmitKey(host.Key{Name: "a"})
	s.SetCaret(2)
	sched.Step()

	if len(cap.positions) != 0 {
		t.Errorf("position changes = %d for non-navigation key, want 0", len(cap.positions))
	}
}

func TestMouseClickRecheck(t *testing.T) {
	s := hosttest.NewNotifySurface("s1", "hello")
	a, sched, cap := newAggregator(t, s)
	defer a.Stop()

	inside := hosttest.NewNode()
	s.Root().AppendChild(inside)
	s.EmitMouse(host.Mouse{Target: inside, X: 10, Y: 10})
	s.SetCaret(4)
	sched.Step()

	if len(cap.positions) != 1 {
		t.Errorf("position changes = %d after in-surface click, want 1", len(cap.positions))
	}
}

func TestMouseClickOutsideIgnored(t *testing.T) {
	s := hosttest.NewNotifySurface("s1", "hello")
	a, sched, cap := newAggregator(t, s)
	defer a.Stop()

	outside := hosttest.NewNode()
	s.EmitMouse(host.Mouse{Target: outside})
	s.SetCaret(4)
	sched.Step()

	if len(cap.positions) != 0 {
		t.Errorf("position changes = %d after outside click, want 0", len(cap.positions))
	}
}

func TestScrollThrottleAndSettle(t *testing.T) {
	s := hosttest.NewNotifySurface("s1", "hello")
	a, sched, cap := newAggregator(t, s)
	defer a.Stop()

	// A burst of scroll events inside one frame throttles to one sync.
	s.EmitScroll()
	s.EmitScroll()
	s.EmitScroll()
	if cap.syncs != 1 {
		t.Errorf("syncs = %d within one frame, want 1", cap.syncs)
	}
	if !a.IsScrolling() {
		t.Error("not marked scrolling during scroll burst")
	}

	// Next frame allows another sync.
	sched.Advance(20 * time.Millisecond)
	s.EmitScroll()
	if cap.syncs != 2 {
		t.Errorf("syncs = %d after frame interval, want 2", cap.syncs)
	}

	// Quiet window ends the scroll with one settle.
	sched.Advance(200 * time.Millisecond)
	if cap.settles != 1 {
		t.Errorf("settles = %d, want 1", cap.settles)
	}
	if a.IsScrolling() {
		t.Error("still marked scrolling after settle")
	}
}

func TestMutationDebounce(t *testing.T) {
	s := hosttest.NewNotifySurface("s1", "hello")
	a, sched, cap := newAggregator(t, s)
	defer a.Stop()

	line := hosttest.NewNode()
	line.AddClass("content-line")
	s.Root().AppendChild(line)

	// Burst of childlist records: one layout change after the window.
	for i := 0; i < 5; i++ {
		s.Document().EmitMutations(s.ContentRoot(), []host.Mutation{
			{Kind: host.MutationChildList, Target: line},
		})
	}
	if cap.layouts != 0 {
		t.Fatal("layout change fired before debounce window")
	}

	sched.Advance(300 * time.Millisecond)
	if cap.layouts != 1 {
		t.Errorf("layouts = %d, want 1", cap.layouts)
	}
}

func TestMutationAttributeFilter(t *testing.T) {
	s := hosttest.NewNotifySurface("s1", "hello")
	a, sched, cap := newAggregator(t, s)
	defer a.Stop()

	line := hosttest.NewNode()
	line.AddClass("content-line")
	s.Root().AppendChild(line)
	other := hosttest.NewNode()
	s.Root().AppendChild(other)

	// Class flip on a non-line node is noise.
	s.Document().EmitMutations(s.ContentRoot(), []host.Mutation{
		{Kind: host.MutationAttribute, Target: other, Attr: "class"},
	})
	sched.Advance(300 * time.Millisecond)
	if cap.layouts != 0 {
		t.Fatalf("layouts = %d for non-line attribute, want 0", cap.layouts)
	}

	// Class flip on a content line is a representation swap.
	s.Document().EmitMutations(s.ContentRoot(), []host.Mutation{
		{Kind: host.MutationAttribute, Target: line, Attr: "class"},
	})
	sched.Advance(300 * time.Millisecond)
	if cap.layouts != 1 {
		t.Errorf("layouts = %d for line attribute, want 1", cap.layouts)
	}
}

func TestPollFallbackDetectsMovement(t *testing.T) {
	// A surface with no capabilities at all: only mutations and poll.
	plain := hosttest.NewSurface("s1", "hello")
	sched := hosttest.NewScheduler()
	cap := &capture{}
	a := New(plain, sched, Callbacks{
		PositionChanged: func(isTyping bool) { cap.positions = append(cap.positions, isTyping) },
	}, sched.Now, nil)
	a.Start()
	defer a.Stop()

	plain.SetCaret(3)
	sched.Advance(150 * time.Millisecond)

	if len(cap.positions) != 1 {
		t.Errorf("position changes = %d via poll, want 1", len(cap.positions))
	}
}

func TestPollGatedOnFocus(t *testing.T) {
	plain := hosttest.NewSurface("s1", "hello")
	sched := hosttest.NewScheduler()
	cap := &capture{}
	a := New(plain, sched, Callbacks{
		PositionChanged: func(isTyping bool) { cap.positions = append(cap.positions, isTyping) },
		FocusGate:       func() bool { return false },
	}, sched.Now, nil)
	a.Start()
	defer a.Stop()

	plain.SetCaret(3)
	sched.Advance(500 * time.Millisecond)

	if len(cap.positions) != 0 {
		t.Errorf("position changes = %d while unfocused, want 0", len(cap.positions))
	}
}

func TestFocusForwarded(t *testing.T) {
	s := hosttest.NewNotifySurface("s1", "hello")
	a, _, cap := newAggregator(t, s)
	defer a.Stop()

	s.EmitFocus(true)
	s.EmitFocus(false)

	if len(cap.focus) != 2 || !cap.focus[0] || cap.focus[1] {
		t.Errorf("focus transitions = %v, want [true false]", cap.focus)
	}
}

func TestStopTearsDownEverything(t *testing.T) {
	s := hosttest.NewNotifySurface("s1", "hello")
	a, sched, cap := newAggregator(t, s)

	s.EmitScroll()    // arms the settle timer
	s.InsertText("x") // arms the typing timer via update
	s.EmitUpdate(host.Update{DocChanged: true, Offset: s.CaretOffset()})
	s.EmitKey(host.Key{Name: "ArrowRight"}) // arms the frame recheck

	a.Stop()

	if s.SubscriptionCount() != 0 {
		t.Errorf("subscriptions = %d after Stop, want 0", s.SubscriptionCount())
	}
	if s.Document().ObserverCount() != 0 {
		t.Errorf("mutation observers = %d after Stop, want 0", s.Document().ObserverCount())
	}
	if sched.PendingTimers() != 0 {
		t.Errorf("pending timers = %d after Stop, want 0", sched.PendingTimers())
	}
	if sched.PendingFrames() != 0 {
		t.Errorf("pending frame callbacks = %d after Stop, want 0", sched.PendingFrames())
	}

	// Late events must be inert.
	before := len(cap.positions)
	s.SetCaret(4)
	sched.Advance(time.Second)
	if len(cap.positions) != before {
		t.Error("signals still delivered after Stop")
	}
}

func TestRapidNavigationTracksFinalOffset(t *testing.T) {
	s := hosttest.NewNotifySurface("s1", "hello world hello world")
	a, sched, cap := newAggregator(t, s)
	defer a.Stop()

	// Five arrow presses inside 200 ms.
	for i := 1; i <= 5; i++ {
		s.EmitKey(host.Key{Name: "ArrowRight"})
		s.SetCaret(i)
		sched.Step()
	}

	if len(cap.positions) != 5 {
		t.Errorf("position changes = %d, want 5", len(cap.positions))
	}
	if got := s.CaretOffset(); got != 5 {
		t.Errorf("final offset = %d, want 5", got)
	}
	if a.IsTyping() {
		t.Error("navigation burst set the typing flag")
	}
}
