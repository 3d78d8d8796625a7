package dom

// Op is the kind of a mutation record.
type Op string

const (
	OpInsert  Op = "insert"
	OpRemove  Op = "remove"
	OpAttr    Op = "attr"
	OpAttrDel Op = "attr_del"
)

// Record is one observed mutation. For child-list operations Target is the
// parent whose children changed; for attribute operations it is the element
// itself.
type Record struct {
	Op       Op
	Target   *Node
	Added    []*Node
	Removed  []*Node
	Attr     string
	Value    string
	OldValue string
}

// ObserveOptions selects which mutations an observation target reports.
type ObserveOptions struct {
	ChildList  bool
	Subtree    bool
	Attributes bool
}

// Observer collects mutation records and delivers them in batches on the
// document's loop. A single delivery carries every record queued since the
// previous one, in mutation order.
//
// Records do not cross shadow boundaries: to see mutations inside a shadow
// tree, observe that shadow root (or a node within it) directly.
type Observer struct {
	doc       *Document
	cb        func([]Record)
	targets   []obsTarget
	queue     []Record
	scheduled bool
	active    bool
}

type obsTarget struct {
	node *Node
	opts ObserveOptions
}

// NewObserver creates an observer delivering to cb. It observes nothing
// until Observe is called.
func (d *Document) NewObserver(cb func([]Record)) *Observer {
	o := &Observer{doc: d, cb: cb, active: true}
	d.observers = append(d.observers, o)
	return o
}

// Observe adds an observation target. Observing the same node again
// replaces its options.
func (o *Observer) Observe(target *Node, opts ObserveOptions) {
	if !o.active {
		o.active = true
		o.doc.observers = append(o.doc.observers, o)
	}
	for i := range o.targets {
		if o.targets[i].node == target {
			o.targets[i].opts = opts
			return
		}
	}
	o.targets = append(o.targets, obsTarget{node: target, opts: opts})
}

// Disconnect stops observation and discards any queued, undelivered records.
// The observer may be reused by calling Observe again.
func (o *Observer) Disconnect() {
	o.active = false
	o.targets = nil
	o.queue = nil
	for i, reg := range o.doc.observers {
		if reg == o {
			obs := o.doc.observers
			copy(obs[i:], obs[i+1:])
			obs[len(obs)-1] = nil
			o.doc.observers = obs[:len(obs)-1]
			break
		}
	}
}

func (o *Observer) wants(rec Record) bool {
	childList := rec.Op == OpInsert || rec.Op == OpRemove
	for _, t := range o.targets {
		if childList && !t.opts.ChildList {
			continue
		}
		if !childList && !t.opts.Attributes {
			continue
		}
		if t.node == rec.Target || (t.opts.Subtree && t.node.contains(rec.Target)) {
			return true
		}
	}
	return false
}

func (o *Observer) enqueue(rec Record) {
	o.queue = append(o.queue, rec)
	if o.scheduled {
		return
	}
	o.scheduled = true
	o.doc.loop.Post(o.deliver)
}

func (o *Observer) deliver() {
	o.scheduled = false
	recs := o.queue
	o.queue = nil
	if !o.active || len(recs) == 0 {
		return
	}
	o.cb(recs)
}

// queueRecord routes a mutation to every interested observer.
func (d *Document) queueRecord(rec Record) {
	for _, o := range d.observers {
		if o.wants(rec) {
			o.enqueue(rec)
		}
	}
}
