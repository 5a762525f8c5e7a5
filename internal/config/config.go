// Package config holds the cursor overlay settings: per-mode shape
// selection, animation profiles, color and opacity, breathing, and
// the positioning strategy. Settings load from TOML files, live-reload
// through a file watcher, and round-trip through the host's JSON
// settings blob without disturbing keys the engine doesn't own.
package config

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/caretglide/internal/shape"
)

// Placement selects how the overlay element is positioned.
type Placement string

const (
	// PlacementOffset positions the overlay with left/top offsets.
	PlacementOffset Placement = "offset"

	// PlacementTransform positions the overlay with a CSS transform,
	// which stays on the compositor thread in most hosts.
	PlacementTransform Placement = "transform"
)

// ParsePlacement converts a string to a Placement.
func ParsePlacement(s string) (Placement, error) {
	switch Placement(s) {
	case PlacementOffset:
		return PlacementOffset, nil
	case PlacementTransform:
		return PlacementTransform, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPlacement, s)
	}
}

// Animation controls the chase animation.
type Animation struct {
	// Enabled toggles animated movement. Disabled means every
	// position update snaps.
	Enabled bool `toml:"enabled" json:"enabled"`

	// DurationMs is the chase duration for ordinary movement.
	DurationMs int `toml:"duration_ms" json:"duration_ms"`

	// TypingEnabled toggles animation during rapid typing.
	TypingEnabled bool `toml:"typing_enabled" json:"typing_enabled"`

	// TypingDurationMs is the shortened chase duration while typing.
	TypingDurationMs int `toml:"typing_duration_ms" json:"typing_duration_ms"`
}

// Breathing controls the idle opacity pulse.
type Breathing struct {
	// Enabled toggles the idle pulse.
	Enabled bool `toml:"enabled" json:"enabled"`

	// PeriodMs is the full pulse cycle length.
	PeriodMs int `toml:"period_ms" json:"period_ms"`

	// MinOpacity is the dimmest point of the pulse, as a fraction of
	// the configured opacity.
	MinOpacity float64 `toml:"min_opacity" json:"min_opacity"`
}

// Config is the complete settings surface for the cursor overlay.
type Config struct {
	// Enabled toggles the whole overlay.
	Enabled bool `toml:"enabled" json:"enabled"`

	// Color is the cursor color as a hex string (#rrggbb).
	Color string `toml:"color" json:"color"`

	// Opacity is the base overlay opacity in [0,1].
	Opacity float64 `toml:"opacity" json:"opacity"`

	// Placement selects offset or transform positioning.
	Placement Placement `toml:"placement" json:"placement"`

	// Shapes maps editing mode names to shape names. Modes absent
	// from the map fall back to a block cursor.
	Shapes map[string]string `toml:"shapes" json:"shapes"`

	// Animation configures the chase animation.
	Animation Animation `toml:"animation" json:"animation"`

	// Breathing configures the idle pulse.
	Breathing Breathing `toml:"breathing" json:"breathing"`

	// Debug enables verbose logging.
	Debug bool `toml:"debug" json:"debug"`

	// LogLevel overrides the log level when Debug is off.
	LogLevel string `toml:"log_level" json:"log_level"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Enabled:   true,
		Color:     "#ffcc00",
		Opacity:   1.0,
		Placement: PlacementTransform,
		Shapes: map[string]string{
			"normal":  "block",
			"insert":  "bar",
			"visual":  "block",
			"replace": "underline",
			"command": "bar",
		},
		Animation: Animation{
			Enabled:          true,
			DurationMs:       100,
			TypingEnabled:    false,
			TypingDurationMs: 50,
		},
		Breathing: Breathing{
			Enabled:    true,
			PeriodMs:   2400,
			MinOpacity: 0.55,
		},
		LogLevel: "info",
	}
}

// Validate checks every field and returns the first problem found.
func (c Config) Validate() error {
	if _, err := colorful.Hex(c.Color); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidColor, c.Color)
	}
	if c.Opacity < 0 || c.Opacity > 1 {
		return fmt.Errorf("%w: opacity %v", ErrOutOfRange, c.Opacity)
	}
	if _, err := ParsePlacement(string(c.Placement)); err != nil {
		return err
	}
	for mode, sh := range c.Shapes {
		if shape.ModeFromString(mode) == shape.ModeUnknown {
			return fmt.Errorf("%w: mode %q", ErrUnknownMode, mode)
		}
		if !knownShape(sh) {
			return fmt.Errorf("%w: shape %q", ErrUnknownShape, sh)
		}
	}
	if c.Animation.DurationMs <= 0 {
		return fmt.Errorf("%w: animation duration %dms", ErrOutOfRange, c.Animation.DurationMs)
	}
	if c.Animation.TypingDurationMs <= 0 {
		return fmt.Errorf("%w: typing duration %dms", ErrOutOfRange, c.Animation.TypingDurationMs)
	}
	if c.Breathing.PeriodMs <= 0 {
		return fmt.Errorf("%w: breathing period %dms", ErrOutOfRange, c.Breathing.PeriodMs)
	}
	if c.Breathing.MinOpacity < 0 || c.Breathing.MinOpacity > 1 {
		return fmt.Errorf("%w: breathing min opacity %v", ErrOutOfRange, c.Breathing.MinOpacity)
	}
	return nil
}

// knownShape reports whether name is a recognized shape spelling.
// ShapeFromString can't distinguish an unknown name from "block".
func knownShape(name string) bool {
	switch name {
	case "block", "bar", "line", "underline", "underscore":
		return true
	default:
		return false
	}
}

// Mapping converts the shape table to the resolver's mode mapping.
// Unlisted modes take the default block shape. Call Validate first;
// unknown names are skipped here.
func (c Config) Mapping() shape.Mapping {
	m := shape.DefaultMapping()
	for name, sh := range c.Shapes {
		mode := shape.ModeFromString(name)
		if mode == shape.ModeUnknown || !knownShape(sh) {
			continue
		}
		m[mode] = shape.ShapeFromString(sh)
	}
	return m
}

// ParsedColor returns the cursor color. Falls back to the default
// color when the configured value doesn't parse.
func (c Config) ParsedColor() colorful.Color {
	col, err := colorful.Hex(c.Color)
	if err != nil {
		col, _ = colorful.Hex(Default().Color)
	}
	return col
}

// CSSColor renders the cursor color as an rgba() value carrying the
// configured opacity.
func (c Config) CSSColor() string {
	col := c.ParsedColor()
	r, g, b := col.RGB255()
	return fmt.Sprintf("rgba(%d, %d, %d, %.2f)", r, g, b, c.Opacity)
}

// DimColor returns the breathing pulse's dim endpoint: the cursor
// color blended toward the given background in Lab space by the
// configured minimum opacity.
func (c Config) DimColor(background colorful.Color) colorful.Color {
	return background.BlendLab(c.ParsedColor(), c.Breathing.MinOpacity)
}

// merged returns c with zero-value numeric fields filled from
// defaults, so a sparse TOML file doesn't zero out durations.
func (c Config) merged() Config {
	def := Default()
	if c.Color == "" {
		c.Color = def.Color
	}
	if c.Placement == "" {
		c.Placement = def.Placement
	}
	if c.Shapes == nil {
		c.Shapes = def.Shapes
	}
	if c.Animation.DurationMs == 0 {
		c.Animation.DurationMs = def.Animation.DurationMs
	}
	if c.Animation.TypingDurationMs == 0 {
		c.Animation.TypingDurationMs = def.Animation.TypingDurationMs
	}
	if c.Breathing.PeriodMs == 0 {
		c.Breathing.PeriodMs = def.Breathing.PeriodMs
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	return c
}
