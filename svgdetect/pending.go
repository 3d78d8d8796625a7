package svgdetect

import "github.com/atelier9/svglens/dom"

// pendingWatch waits for an animation player to render its markup. It
// observes structural mutations on the container (and its shadow root, if
// one exists yet) and self-terminates: the first resolution reports the
// graphic and disconnects permanently; hitting the timeout disconnects
// without reporting — a container that never renders is assumed
// non-graphical or broken, not an error.
type pendingWatch struct {
	det       *Detector
	container *dom.Node
	obs       *dom.Observer
	timer     *dom.Timer
	done      bool
}

// startPendingWatch is idempotent per container while a watch is open.
func (d *Detector) startPendingWatch(container *dom.Node) {
	if _, ok := d.pending[container]; ok {
		return
	}
	w := &pendingWatch{det: d, container: container}
	w.obs = d.doc.NewObserver(w.onMutations)
	w.obs.Observe(container, dom.ObserveOptions{ChildList: true, Subtree: true})
	if sr := container.Shadow(); sr != nil {
		w.obs.Observe(sr, dom.ObserveOptions{ChildList: true, Subtree: true})
	}
	w.timer = d.doc.Loop().After(d.cfg.WatchTimeout, w.expire)
	d.pending[container] = w
	d.watches.Add(1)
	d.cfg.Logger.Debug("svgdetect: pending watch started", "container", container.Path())
}

func (w *pendingWatch) onMutations(recs []dom.Record) {
	if w.done {
		return
	}
	svg := resolvePrimary(w.container)
	if svg == nil {
		// The player may have attached its shadow root since the watch
		// started; start observing it so content inserted there resolves.
		if sr := w.container.Shadow(); sr != nil {
			w.obs.Observe(sr, dom.ObserveOptions{ChildList: true, Subtree: true})
		}
		return
	}
	w.dispose()
	w.det.report(Graphic{Kind: KindAnimationHosted, Primary: svg, Container: w.container})
}

func (w *pendingWatch) expire() {
	if w.done {
		return
	}
	w.det.expired.Add(1)
	w.det.cfg.Logger.Debug("svgdetect: pending watch expired", "container", w.container.Path())
	w.dispose()
}

func (w *pendingWatch) dispose() {
	w.done = true
	w.obs.Disconnect()
	w.timer.Stop()
	delete(w.det.pending, w.container)
}
