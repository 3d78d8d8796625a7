package runner

import (
	"github.com/atelier9/svglens/settings"
	"github.com/atelier9/svglens/svgdetect"
	"github.com/atelier9/svglens/svgenhance"
)

// GraphicReport describes one detected graphic by its position in the tree.
type GraphicReport struct {
	Kind      string `json:"kind"`
	Path      string `json:"path"`
	Container string `json:"container,omitempty"`
}

// Report is the outcome of a one-shot engine run.
type Report struct {
	ID       string            `json:"id"`
	Graphics []GraphicReport   `json:"graphics"`
	Detector svgdetect.Stats   `json:"detector"`
	Enhancer svgenhance.Stats  `json:"enhancer"`
	Settings settings.Snapshot `json:"settings"`
}

func (r *Runner) buildReport(s *Session, snap settings.Snapshot) *Report {
	rep := &Report{
		ID:       r.newID(),
		Graphics: make([]GraphicReport, 0, len(s.graphics)),
		Detector: s.det.Stats(),
		Enhancer: s.enh.Stats(),
		Settings: snap,
	}
	for _, g := range s.graphics {
		gr := GraphicReport{Kind: g.Kind.String(), Path: g.Primary.Path()}
		if g.Container != nil && g.Container != g.Primary {
			gr.Container = g.Container.Path()
		}
		rep.Graphics = append(rep.Graphics, gr)
	}
	return rep
}
