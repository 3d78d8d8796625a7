package svgdetect

import (
	"log/slog"
	"time"

	"github.com/atelier9/svglens/dom"
)

// Kind is the representation a graphic was discovered under. The enhancer
// dispatches on it exhaustively.
type Kind int

const (
	// KindInline is vector markup present directly in the tree.
	KindInline Kind = iota
	// KindRasterReferenced is an <img> whose source is a vector file.
	KindRasterReferenced
	// KindPluginEmbedded is an <object>/<embed> hosting a vector document.
	KindPluginEmbedded
	// KindAnimationHosted is markup produced inside an animation player.
	KindAnimationHosted
)

func (k Kind) String() string {
	switch k {
	case KindInline:
		return "inline"
	case KindRasterReferenced:
		return "raster"
	case KindPluginEmbedded:
		return "embedded"
	case KindAnimationHosted:
		return "animation"
	default:
		return "unknown"
	}
}

// Graphic identifies one discovered graphic instance.
//
// Primary is the node to enhance. For animation-hosted graphics it is the
// markup the player rendered, not the player itself; Container then retains
// the player element.
type Graphic struct {
	Kind      Kind
	Primary   *dom.Node
	Container *dom.Node
}

// Config holds detection heuristics and tunables. The animation lists
// describe third-party player libraries; the defaults cover the common
// Lottie/Bodymovin deployments.
type Config struct {
	// ContainerClasses mark an element as an animation wrapper.
	ContainerClasses []string
	// PlayerTags are animation custom-element tag names. These render
	// asynchronously and get pending watches when empty.
	PlayerTags []string
	// DataAttrs mark an element as driving an animation from data.
	DataAttrs []string
	// InlineMarkerClasses/InlineMarkerAttrs identify markup that is itself
	// the output of an animation library.
	InlineMarkerClasses []string
	InlineMarkerAttrs   []string

	// WatchTimeout bounds how long a pending watch waits for markup to be
	// rendered inside a player before giving up. Default: 10s.
	WatchTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.ContainerClasses == nil {
		c.ContainerClasses = []string{"lottie", "lottie-player", "lottie-animation", "bodymovin"}
	}
	if c.PlayerTags == nil {
		c.PlayerTags = []string{"lottie-player", "dotlottie-player"}
	}
	if c.DataAttrs == nil {
		c.DataAttrs = []string{"data-animation-path", "data-anim-path", "data-bm-path"}
	}
	if c.InlineMarkerClasses == nil {
		c.InlineMarkerClasses = []string{"lottie", "lottie-svg"}
	}
	if c.InlineMarkerAttrs == nil {
		c.InlineMarkerAttrs = []string{"data-lottie"}
	}
	if c.WatchTimeout <= 0 {
		c.WatchTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
