// Package rasterhdr is the raster-media companion pass: a reversible
// HDR-style filter over <img> and <video> elements. It shares the engine's
// capture-and-restore discipline but none of its per-shape bookkeeping — a
// raster element only ever carries one filter expression.
package rasterhdr

import (
	"log/slog"
	"strings"

	"github.com/atelier9/svglens/dom"
	"github.com/atelier9/svglens/internal/weakref"
	"github.com/atelier9/svglens/settings"
	"github.com/atelier9/svglens/shadowwalk"
)

// ClassHDR marks elements currently carrying the HDR filter.
const ClassHDR = "svglens-hdr"

var filterExprs = map[string]string{
	settings.HDRLow:    "brightness(1.05) contrast(1.1) saturate(1.1)",
	settings.HDRMedium: "brightness(1.1) contrast(1.2) saturate(1.2)",
	settings.HDRHigh:   "brightness(1.15) contrast(1.35) saturate(1.3)",
}

type original struct {
	val     string
	present bool
}

// Pass applies and reverts the HDR filter on one document.
type Pass struct {
	doc     *dom.Document
	records *weakref.Map[dom.Node, original]
	logger  *slog.Logger
}

// New creates a Pass for doc.
func New(doc *dom.Document, logger *slog.Logger) *Pass {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pass{doc: doc, records: weakref.NewMap[dom.Node, original](), logger: logger}
}

// Apply brings every raster element in line with the snapshot: filter on
// when the pass is enabled, restored when it is not. Elements the vector
// engine already treats (SVG-sourced images) are left alone.
func (p *Pass) Apply(s settings.Snapshot) {
	if !s.Enabled || !s.ImageHDREnabled {
		p.RestoreAll()
		return
	}
	expr, ok := filterExprs[s.ImageHDRIntensity]
	if !ok {
		expr = filterExprs[settings.HDRMedium]
	}
	for _, el := range p.targets() {
		orig, tracked := p.records.Get(el)
		if !tracked {
			v, present := el.StyleProp("filter")
			orig = original{val: v, present: present}
			p.records.Set(el, orig)
		}
		if orig.present && orig.val != "" {
			el.SetStyleProp("filter", orig.val+" "+expr)
		} else {
			el.SetStyleProp("filter", expr)
		}
		el.AddClass(ClassHDR)
	}
}

// RestoreAll reverts every element currently carrying the HDR marker.
func (p *Pass) RestoreAll() {
	for _, el := range shadowwalk.FindAll(p.doc.Root(), "."+ClassHDR) {
		orig, ok := p.records.Get(el)
		if !ok {
			el.RemoveClass(ClassHDR)
			continue
		}
		if orig.present {
			el.SetStyleProp("filter", orig.val)
		} else {
			el.RemoveStyleProp("filter")
		}
		el.RemoveClass(ClassHDR)
		p.records.Delete(el)
	}
}

func (p *Pass) targets() []*dom.Node {
	var out []*dom.Node
	for _, tag := range []string{"img", "video"} {
		for _, el := range shadowwalk.FindAll(p.doc.Root(), tag) {
			if tag == "img" && isVectorImage(el) {
				continue
			}
			out = append(out, el)
		}
	}
	return out
}

// isVectorImage mirrors the detector's raster-reference sniff so the two
// passes never fight over the same element.
func isVectorImage(el *dom.Node) bool {
	src := strings.ToLower(el.AttrOr("src", ""))
	if i := strings.IndexByte(src, '#'); i >= 0 {
		src = src[:i]
	}
	return strings.HasSuffix(src, ".svg") || strings.Contains(src, ".svg?")
}
