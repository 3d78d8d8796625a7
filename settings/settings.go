// Package settings holds the enhancement settings snapshot, its defaults and
// merge semantics, and the stores that persist it (YAML file with fsnotify
// change notification, SQLite with poll-based change detection).
//
// A Snapshot is a value: the engine never mutates one and tolerates being
// handed a new one at any time. Persisted records are partial — unknown or
// missing fields fall back to the built-in defaults field by field, never by
// wholesale replacement.
package settings

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Contrast levels for the full (inline SVG) treatment.
const (
	ContrastMedium  = "medium"
	ContrastHigh    = "high"
	ContrastMaximum = "maximum"
)

// Intensities for the raster HDR pass.
const (
	HDRLow    = "low"
	HDRMedium = "medium"
	HDRHigh   = "high"
)

// Snapshot is the complete settings record consumed by the engine.
type Snapshot struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	OutlineEnabled bool   `yaml:"outline_enabled" json:"outlineEnabled"`
	OutlineColor   string `yaml:"outline_color" json:"outlineColor"`
	OutlineWidth   int    `yaml:"outline_width" json:"outlineWidth"`

	ContrastEnabled bool   `yaml:"contrast_enabled" json:"contrastEnabled"`
	ContrastLevel   string `yaml:"contrast_level" json:"contrastLevel"`

	HighlightEnabled bool   `yaml:"highlight_enabled" json:"highlightEnabled"`
	HighlightColor   string `yaml:"highlight_color" json:"highlightColor"`

	FocusIndicators bool `yaml:"focus_indicators" json:"focusIndicators"`

	ImageHDREnabled   bool   `yaml:"image_hdr_enabled" json:"imageHdrEnabled"`
	ImageHDRIntensity string `yaml:"image_hdr_intensity" json:"imageHdrIntensity"`
}

// Defaults returns the built-in default set: enhancement on, outline on with
// a visible but unaggressive style, the heavier treatments opt-in.
func Defaults() Snapshot {
	return Snapshot{
		Enabled:           true,
		OutlineEnabled:    true,
		OutlineColor:      "#ffd400",
		OutlineWidth:      2,
		ContrastEnabled:   false,
		ContrastLevel:     ContrastHigh,
		HighlightEnabled:  false,
		HighlightColor:    "#00e0ff",
		FocusIndicators:   false,
		ImageHDREnabled:   false,
		ImageHDRIntensity: HDRMedium,
	}
}

// Overlay is a partial settings record as persisted. Nil fields mean "keep
// the base value".
type Overlay struct {
	Enabled *bool `yaml:"enabled" json:"enabled"`

	OutlineEnabled *bool   `yaml:"outline_enabled" json:"outlineEnabled"`
	OutlineColor   *string `yaml:"outline_color" json:"outlineColor"`
	OutlineWidth   *int    `yaml:"outline_width" json:"outlineWidth"`

	ContrastEnabled *bool   `yaml:"contrast_enabled" json:"contrastEnabled"`
	ContrastLevel   *string `yaml:"contrast_level" json:"contrastLevel"`

	HighlightEnabled *bool   `yaml:"highlight_enabled" json:"highlightEnabled"`
	HighlightColor   *string `yaml:"highlight_color" json:"highlightColor"`

	FocusIndicators *bool `yaml:"focus_indicators" json:"focusIndicators"`

	ImageHDREnabled   *bool   `yaml:"image_hdr_enabled" json:"imageHdrEnabled"`
	ImageHDRIntensity *string `yaml:"image_hdr_intensity" json:"imageHdrIntensity"`
}

// Merge overlays the set fields of over onto base, field by field.
func Merge(base Snapshot, over Overlay) Snapshot {
	if over.Enabled != nil {
		base.Enabled = *over.Enabled
	}
	if over.OutlineEnabled != nil {
		base.OutlineEnabled = *over.OutlineEnabled
	}
	if over.OutlineColor != nil {
		base.OutlineColor = *over.OutlineColor
	}
	if over.OutlineWidth != nil {
		base.OutlineWidth = *over.OutlineWidth
	}
	if over.ContrastEnabled != nil {
		base.ContrastEnabled = *over.ContrastEnabled
	}
	if over.ContrastLevel != nil {
		base.ContrastLevel = *over.ContrastLevel
	}
	if over.HighlightEnabled != nil {
		base.HighlightEnabled = *over.HighlightEnabled
	}
	if over.HighlightColor != nil {
		base.HighlightColor = *over.HighlightColor
	}
	if over.FocusIndicators != nil {
		base.FocusIndicators = *over.FocusIndicators
	}
	if over.ImageHDREnabled != nil {
		base.ImageHDREnabled = *over.ImageHDREnabled
	}
	if over.ImageHDRIntensity != nil {
		base.ImageHDRIntensity = *over.ImageHDRIntensity
	}
	return base
}

// colorPattern admits hex colors, named colors, and functional notation
// (rgb(...), hsl(...)).
var colorPattern = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]+(\([^)]*\))?)$`)

// Validate checks a full snapshot. Overlays are validated after merging.
func (s Snapshot) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.OutlineColor, validation.Required, validation.Match(colorPattern)),
		validation.Field(&s.OutlineWidth, validation.Min(1), validation.Max(64)),
		validation.Field(&s.ContrastLevel, validation.Required,
			validation.In(ContrastMedium, ContrastHigh, ContrastMaximum)),
		validation.Field(&s.HighlightColor, validation.Required, validation.Match(colorPattern)),
		validation.Field(&s.ImageHDRIntensity, validation.Required,
			validation.In(HDRLow, HDRMedium, HDRHigh)),
	)
}
