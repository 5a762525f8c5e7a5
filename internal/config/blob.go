package config

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// blobKey is the root key the engine owns inside the host's settings
// blob. Everything outside it belongs to the host and passes through
// untouched.
const blobKey = "caretglide"

// FromBlob extracts engine settings from the host's JSON settings
// blob. Keys the blob doesn't carry keep their defaults, so a partial
// blob (or one written by an older version) still yields a complete
// Config.
func FromBlob(blob []byte) (Config, error) {
	cfg := Default()
	if len(blob) == 0 {
		return cfg, nil
	}
	if !gjson.ValidBytes(blob) {
		return Config{}, fmt.Errorf("settings blob: %w", ErrInvalidBlob)
	}
	root := gjson.GetBytes(blob, blobKey)
	if !root.Exists() {
		return cfg, nil
	}

	if v := root.Get("enabled"); v.Exists() {
		cfg.Enabled = v.Bool()
	}
	if v := root.Get("color"); v.Exists() {
		cfg.Color = v.String()
	}
	if v := root.Get("opacity"); v.Exists() {
		cfg.Opacity = v.Float()
	}
	if v := root.Get("placement"); v.Exists() {
		cfg.Placement = Placement(v.String())
	}
	if v := root.Get("shapes"); v.IsObject() {
		shapes := make(map[string]string)
		v.ForEach(func(key, value gjson.Result) bool {
			shapes[key.String()] = value.String()
			return true
		})
		cfg.Shapes = shapes
	}
	if v := root.Get("animation.enabled"); v.Exists() {
		cfg.Animation.Enabled = v.Bool()
	}
	if v := root.Get("animation.duration_ms"); v.Exists() {
		cfg.Animation.DurationMs = int(v.Int())
	}
	if v := root.Get("animation.typing_enabled"); v.Exists() {
		cfg.Animation.TypingEnabled = v.Bool()
	}
	if v := root.Get("animation.typing_duration_ms"); v.Exists() {
		cfg.Animation.TypingDurationMs = int(v.Int())
	}
	if v := root.Get("breathing.enabled"); v.Exists() {
		cfg.Breathing.Enabled = v.Bool()
	}
	if v := root.Get("breathing.period_ms"); v.Exists() {
		cfg.Breathing.PeriodMs = int(v.Int())
	}
	if v := root.Get("breathing.min_opacity"); v.Exists() {
		cfg.Breathing.MinOpacity = v.Float()
	}
	if v := root.Get("debug"); v.Exists() {
		cfg.Debug = v.Bool()
	}
	if v := root.Get("log_level"); v.Exists() {
		cfg.LogLevel = v.String()
	}

	cfg = cfg.merged()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("settings blob: %w", err)
	}
	return cfg, nil
}

// ToBlob writes engine settings into the host's JSON settings blob,
// preserving every key outside the engine's root. An empty blob
// produces a fresh object.
func ToBlob(blob []byte, cfg Config) ([]byte, error) {
	if len(blob) == 0 {
		blob = []byte("{}")
	}
	if !gjson.ValidBytes(blob) {
		return nil, fmt.Errorf("settings blob: %w", ErrInvalidBlob)
	}

	out := blob
	var err error
	set := func(key string, value any) {
		if err != nil {
			return
		}
		out, err = sjson.SetBytes(out, blobKey+"."+key, value)
	}

	set("enabled", cfg.Enabled)
	set("color", cfg.Color)
	set("opacity", cfg.Opacity)
	set("placement", string(cfg.Placement))
	for mode, sh := range cfg.Shapes {
		set("shapes."+mode, sh)
	}
	set("animation.enabled", cfg.Animation.Enabled)
	set("animation.duration_ms", cfg.Animation.DurationMs)
	set("animation.typing_enabled", cfg.Animation.TypingEnabled)
	set("animation.typing_duration_ms", cfg.Animation.TypingDurationMs)
	set("breathing.enabled", cfg.Breathing.Enabled)
	set("breathing.period_ms", cfg.Breathing.PeriodMs)
	set("breathing.min_opacity", cfg.Breathing.MinOpacity)
	set("debug", cfg.Debug)
	set("log_level", cfg.LogLevel)

	if err != nil {
		return nil, fmt.Errorf("writing settings blob: %w", err)
	}
	return out, nil
}
