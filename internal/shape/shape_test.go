package shape

import (
	"testing"

	"github.com/dshills/caretglide/internal/geom"
)

func TestModeRoundTrip(t *testing.T) {
	tests := []struct {
		input string
		want  Mode
	}{
		{"normal", ModeNormal},
		{"insert", ModeInsert},
		{"visual", ModeVisual},
		{"replace", ModeReplace},
		{"command", ModeCommand},
		{"command-line", ModeCommand},
		{"bogus", ModeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ModeFromString(tt.input); got != tt.want {
				t.Errorf("ModeFromString(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestShapeFromString(t *testing.T) {
	tests := []struct {
		input string
		want  Shape
	}{
		{"block", ShapeBlock},
		{"bar", ShapeBar},
		{"line", ShapeBar},
		{"underline", ShapeUnderline},
		{"underscore", ShapeUnderline},
		{"unknown", ShapeBlock},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ShapeFromString(tt.input); got != tt.want {
				t.Errorf("ShapeFromString(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestMappingDefaultsToBlock(t *testing.T) {
	m := Mapping{ModeInsert: ShapeBar}

	if got := m.ShapeFor(ModeInsert); got != ShapeBar {
		t.Errorf("ShapeFor(insert) = %v, want bar", got)
	}
	if got := m.ShapeFor(ModeNormal); got != ShapeBlock {
		t.Errorf("ShapeFor(normal) = %v, want block", got)
	}
	if got := m.ShapeFor(ModeUnknown); got != ShapeBlock {
		t.Errorf("ShapeFor(unknown) = %v, want block", got)
	}
}

func TestApplyDimensions(t *testing.T) {
	base := geom.Rect{X: 10, Y: 20, Width: 8, Height: 18}

	tests := []struct {
		name       string
		shape      Shape
		wantRect   geom.Rect
		wantOffset float64
	}{
		{"block", ShapeBlock, geom.Rect{X: 10, Y: 20, Width: 8, Height: 18}, 0},
		{"bar", ShapeBar, geom.Rect{X: 10, Y: 20, Width: 2, Height: 18}, 0},
		{"underline", ShapeUnderline, geom.Rect{X: 10, Y: 20, Width: 8, Height: 2}, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, offset := Apply(tt.shape, base)
			if got != tt.wantRect {
				t.Errorf("Apply(%v) rect = %+v, want %+v", tt.shape, got, tt.wantRect)
			}
			if offset != tt.wantOffset {
				t.Errorf("Apply(%v) yOffset = %v, want %v", tt.shape, offset, tt.wantOffset)
			}
		})
	}
}

func TestApplyUnderlineShortGlyph(t *testing.T) {
	// A glyph shorter than the underline thickness must not produce a
	// negative offset.
	base := geom.Rect{Width: 8, Height: 1}
	_, offset := Apply(ShapeUnderline, base)
	if offset != 0 {
		t.Errorf("yOffset = %v, want 0", offset)
	}
}

type fakeOverlay struct {
	displayed    geom.Rect
	hasDisplayed bool
	shape        Shape
	shapeUpdates int
}

func (f *fakeOverlay) DisplayedRect() (geom.Rect, bool) { return f.displayed, f.hasDisplayed }
func (f *fakeOverlay) UpdateShape(s Shape)              { f.shape = s; f.shapeUpdates++ }

type fakeEngine struct {
	current geom.Rect
	seededW float64
	seededH float64
	seeded  bool
}

func (f *fakeEngine) Current() geom.Rect { return f.current }
func (f *fakeEngine) SeedSize(w, h float64) {
	f.seededW, f.seededH = w, h
	f.seeded = true
}

func TestResolverShapeChangeSeedsDisplayedDimensions(t *testing.T) {
	ov := &fakeOverlay{displayed: geom.Rect{X: 5, Y: 5, Width: 8, Height: 18}, hasDisplayed: true}
	en := &fakeEngine{current: geom.Rect{Width: 99, Height: 99}}
	refreshed := 0
	r := NewResolver(DefaultMapping(), ov, en, func() { refreshed++ }, nil)

	r.SetMode(ModeInsert) // block → bar

	if !en.seeded {
		t.Fatal("engine was not seeded on shape change")
	}
	if en.seededW != 8 || en.seededH != 18 {
		t.Errorf("seeded dims = (%v, %v), want displayed (8, 18)", en.seededW, en.seededH)
	}
	if ov.shape != ShapeBar {
		t.Errorf("applied shape = %v, want bar", ov.shape)
	}
	if refreshed != 1 {
		t.Errorf("refresh calls = %d, want 1", refreshed)
	}
}

func TestResolverShapeChangeFallsBackToEngineDimensions(t *testing.T) {
	ov := &fakeOverlay{hasDisplayed: false}
	en := &fakeEngine{current: geom.Rect{Width: 8, Height: 18}}
	r := NewResolver(DefaultMapping(), ov, en, nil, nil)

	r.SetMode(ModeInsert)

	if !en.seeded {
		t.Fatal("engine was not seeded on shape change")
	}
	if en.seededW != 8 || en.seededH != 18 {
		t.Errorf("seeded dims = (%v, %v), want engine current (8, 18)", en.seededW, en.seededH)
	}
}

func TestResolverUnchangedShapeOnlyRefreshesIdle(t *testing.T) {
	ov := &fakeOverlay{hasDisplayed: true}
	en := &fakeEngine{}
	refreshed, idled := 0, 0
	r := NewResolver(DefaultMapping(), ov, en, func() { refreshed++ }, func() { idled++ })

	r.SetMode(ModeVisual) // block → block

	if en.seeded {
		t.Error("engine seeded on unchanged shape")
	}
	if refreshed != 0 {
		t.Errorf("refresh calls = %d, want 0", refreshed)
	}
	if idled != 1 {
		t.Errorf("refreshIdle calls = %d, want 1", idled)
	}
	if ov.shapeUpdates != 1 {
		t.Errorf("shape tag updates = %d, want 1", ov.shapeUpdates)
	}
}
