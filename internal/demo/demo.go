// Package demo runs an interactive terminal host for the overlay
// engine. A simulated editing surface (the in-memory document model
// from memhost, which is a full host.Surface) is rendered onto a
// tcell screen; the overlay node's styles are read back each frame and
// painted as the cursor. This drives every component of the engine the
// way a real embedding would.
package demo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/caretglide/internal/config"
	"github.com/dshills/caretglide/internal/host"
	"github.com/dshills/caretglide/internal/host/memhost"
	"github.com/dshills/caretglide/internal/logging"
	"github.com/dshills/caretglide/internal/overlay"
	"github.com/dshills/caretglide/internal/session"
	"github.com/dshills/caretglide/internal/shape"
)

const sampleText = `CaretGlide demo surface.
Use the arrow keys to navigate, i to enter insert mode,
Esc to return to normal mode, v for visual, r for replace.
Type in insert mode and watch the cursor chase the caret.
Ctrl-R forces a refresh, Ctrl-Q quits.`

// Cell metrics of the simulated surface, in virtual pixels.
const (
	cellWidth  = 8.0
	lineHeight = 18.0
)

// App is the demo application: one surface, one session, one screen.
type App struct {
	screen tcell.Screen
	sched  *host.LoopScheduler
	store  *config.Store
	logger *logging.Logger

	surf   *memhost.NotifySurface
	plugin *session.Plugin
	sess   *session.Session

	mode     shape.Mode
	start    time.Time
	quit     chan struct{}
	quitOnce sync.Once
}

// New creates the demo app on a fresh tcell screen.
func New(store *config.Store, logger *logging.Logger) (*App, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.EnableMouse()
	screen.HideCursor()

	if logger == nil {
		logger = logging.NullLogger
	}

	return &App{
		screen: screen,
		sched:  host.NewLoopScheduler(),
		store:  store,
		logger: logger,
		mode:   shape.ModeNormal,
		start:  time.Now(),
		quit:   make(chan struct{}),
	}, nil
}

// Run attaches the engine to the simulated surface and blocks until
// quit.
func (a *App) Run() error {
	a.surf = memhost.NewNotifySurface("demo", sampleText)
	a.surf.CharWidth = cellWidth
	a.surf.LineH = lineHeight
	a.surf.Document().SetActiveNode(a.surf.Root())

	a.plugin = session.NewPlugin(a.sched, a.store, nil, a.logger)
	a.sess = a.plugin.Attach(a.surf)
	a.sess.SetMode(a.mode)
	a.surf.EmitFocus(true)

	a.scheduleDraw()
	go a.eventLoop()

	<-a.quit

	a.plugin.Detach()
	a.sched.Stop()
	a.screen.Fini()
	return nil
}

// Quit stops the app. Safe to call from any goroutine, more than once.
func (a *App) Quit() {
	a.quitOnce.Do(func() { close(a.quit) })
}

// eventLoop translates tcell events into host surface events, posted
// onto the run loop so engine callbacks stay serial.
func (a *App) eventLoop() {
	for {
		ev := a.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			key := *ev
			a.sched.Post(func() { a.handleKey(&key) })
		case *tcell.EventResize:
			a.sched.Post(func() { a.screen.Sync() })
		}
	}
}

func (a *App) handleKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyCtrlQ, tcell.KeyCtrlC:
		a.Quit()
		return
	case tcell.KeyCtrlR:
		a.sess.ForceRefresh()
		return
	case tcell.KeyEscape:
		a.setMode(shape.ModeNormal)
		return
	case tcell.KeyLeft:
		a.moveCaret(-1)
		return
	case tcell.KeyRight:
		a.moveCaret(1)
		return
	case tcell.KeyUp:
		a.moveCaretLine(-1)
		return
	case tcell.KeyDown:
		a.moveCaretLine(1)
		return
	case tcell.KeyHome:
		a.caretToLineEdge(true)
		return
	case tcell.KeyEnd:
		a.caretToLineEdge(false)
		return
	case tcell.KeyRune:
		// handled below
	default:
		return
	}

	r := ev.Rune()
	if a.mode == shape.ModeInsert || a.mode == shape.ModeReplace {
		a.surf.InsertText(string(r))
		a.surf.EmitUpdate(host.Update{DocChanged: true, Offset: a.surf.CaretOffset()})
		return
	}
	switch r {
	case 'i':
		a.setMode(shape.ModeInsert)
	case 'v':
		a.setMode(shape.ModeVisual)
	case 'r':
		a.setMode(shape.ModeReplace)
	case ':':
		a.setMode(shape.ModeCommand)
	case 'h':
		a.moveCaret(-1)
	case 'l':
		a.moveCaret(1)
	case 'k':
		a.moveCaretLine(-1)
	case 'j':
		a.moveCaretLine(1)
	}
}

func (a *App) setMode(m shape.Mode) {
	a.mode = m
	a.sess.SetMode(m)
}

func (a *App) moveCaret(delta int) {
	off := a.surf.CaretOffset() + delta
	if off < 0 {
		off = 0
	}
	if limit := a.surf.DocLength(); off > limit {
		off = limit
	}
	a.surf.SetCaret(off)
	a.surf.EmitUpdate(host.Update{Offset: off})
}

func (a *App) moveCaretLine(delta int) {
	text := a.surf.TextRange(0, a.surf.DocLength())
	lines := strings.Split(text, "\n")
	row, col := caretRowCol(lines, a.surf.CaretOffset())

	row += delta
	if row < 0 {
		row = 0
	}
	if row >= len(lines) {
		row = len(lines) - 1
	}
	if col > len([]rune(lines[row])) {
		col = len([]rune(lines[row]))
	}
	a.surf.SetCaret(offsetAt(lines, row, col))
	a.surf.EmitUpdate(host.Update{Offset: a.surf.CaretOffset()})
}

func (a *App) caretToLineEdge(home bool) {
	text := a.surf.TextRange(0, a.surf.DocLength())
	lines := strings.Split(text, "\n")
	row, _ := caretRowCol(lines, a.surf.CaretOffset())
	col := 0
	if !home {
		col = len([]rune(lines[row]))
	}
	a.surf.SetCaret(offsetAt(lines, row, col))
	a.surf.EmitUpdate(host.Update{Offset: a.surf.CaretOffset()})
}

func caretRowCol(lines []string, offset int) (int, int) {
	remaining := offset
	for i, line := range lines {
		n := len([]rune(line))
		if remaining <= n {
			return i, remaining
		}
		remaining -= n + 1
	}
	return len(lines) - 1, len([]rune(lines[len(lines)-1]))
}

func offsetAt(lines []string, row, col int) int {
	off := 0
	for i := 0; i < row; i++ {
		off += len([]rune(lines[i])) + 1
	}
	return off + col
}

// scheduleDraw re-arms itself every frame; the engine's one-shot
// frame callbacks require explicit rescheduling.
func (a *App) scheduleDraw() {
	a.sched.OnFrame(func(now time.Time) {
		select {
		case <-a.quit:
			return
		default:
		}
		a.draw(now)
		a.scheduleDraw()
	})
}

func (a *App) draw(now time.Time) {
	a.screen.Clear()
	textStyle := tcell.StyleDefault

	text := a.surf.TextRange(0, a.surf.DocLength())
	for row, line := range strings.Split(text, "\n") {
		for col, r := range []rune(line) {
			a.screen.SetContent(col, row, r, nil, textStyle)
		}
	}
	a.drawStatus(textStyle.Reverse(true))
	a.drawCursor(now)
	a.screen.Show()
}

func (a *App) drawStatus(style tcell.Style) {
	d := a.sess.Diagnostics()
	status := fmt.Sprintf(" %s | shape:%s | sources:%s | repairs:%d ",
		strings.ToUpper(d.Mode), d.Shape, strings.Join(d.Sources, ","), d.Repairs)
	_, h := a.screen.Size()
	for i, r := range status {
		a.screen.SetContent(i, h-1, r, nil, style)
	}
}

// drawCursor reads the overlay node's styles back, exactly the way a
// browser compositor would, and paints the corresponding cell.
func (a *App) drawCursor(now time.Time) {
	nodes := a.surf.Document().NodesByClass(overlay.ClassName)
	if len(nodes) == 0 {
		return
	}
	node := nodes[0]
	if node.Style("visibility") != "visible" {
		return
	}

	x, y, ok := nodePosition(node)
	if !ok {
		return
	}
	width := parsePx(node.Style("width"))

	col := int(math.Round(x / cellWidth))
	row := int(math.Round(y / lineHeight))
	cells := int(math.Round(width / cellWidth))
	if cells < 1 {
		cells = 1
	}

	color := a.cursorColor(node, now)
	r, g, b := color.RGB255()
	style := tcell.StyleDefault.Background(tcell.NewRGBColor(int32(r), int32(g), int32(b)))

	glyph := ' '
	switch node.Attr(overlay.ShapeAttr) {
	case "bar":
		glyph = '▎'
		style = tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(r), int32(g), int32(b)))
		cells = 1
	case "underline":
		glyph = '▁'
		style = tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(r), int32(g), int32(b)))
	}

	for i := 0; i < cells; i++ {
		mainc, _, _, _ := a.screen.GetContent(col+i, row)
		if glyph == ' ' && mainc != ' ' && mainc != 0 {
			// Block cursor keeps the glyph visible underneath.
			a.screen.SetContent(col+i, row, mainc, nil, style)
			continue
		}
		a.screen.SetContent(col+i, row, glyph, nil, style)
	}
}

// cursorColor applies the breathing pulse: while the idle effect is
// active the color oscillates between full and the configured dim
// endpoint, blended in Lab space.
func (a *App) cursorColor(node host.Node, now time.Time) colorful.Color {
	cfg := a.store.Current()
	base := cfg.ParsedColor()

	if !node.HasClass(overlay.BreathingClass) || node.HasClass(overlay.MovingClass) {
		return base
	}

	background, _ := colorful.Hex("#000000")
	dim := cfg.DimColor(background)
	period := time.Duration(cfg.Breathing.PeriodMs) * time.Millisecond
	phase := float64(now.Sub(a.start)%period) / float64(period)
	pulse := (math.Sin(2*math.Pi*phase) + 1) / 2
	return dim.BlendLab(base, pulse)
}

func nodePosition(node host.Node) (float64, float64, bool) {
	if tr := node.Style("transform"); tr != "" {
		var x, y float64
		if _, err := fmt.Sscanf(tr, "translate(%fpx, %fpx)", &x, &y); err == nil {
			return x, y, true
		}
		return 0, 0, false
	}
	x := parsePx(node.Style("left"))
	y := parsePx(node.Style("top"))
	return x, y, true
}

func parsePx(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "px"), 64)
	if err != nil {
		return 0
	}
	return v
}
