package dom

import "testing"

func newObservedTree(t *testing.T) (*Document, *Node) {
	t.Helper()
	d := NewDocument()
	root := d.CreateElement("div")
	d.Root().AppendChild(root)
	d.Loop().Drain() // flush the setup insert
	return d, root
}

func TestObserverChildListDelivery(t *testing.T) {
	d, root := newObservedTree(t)

	var batches [][]Record
	obs := d.NewObserver(func(recs []Record) { batches = append(batches, recs) })
	obs.Observe(root, ObserveOptions{ChildList: true})

	a := d.CreateElement("span")
	b := d.CreateElement("em")
	root.AppendChild(a)
	root.AppendChild(b)

	if len(batches) != 0 {
		t.Fatal("records delivered before drain")
	}
	d.Loop().Drain()

	if len(batches) != 1 {
		t.Fatalf("expected one batched delivery, got %d", len(batches))
	}
	recs := batches[0]
	if len(recs) != 2 || recs[0].Op != OpInsert || recs[0].Added[0] != a || recs[1].Added[0] != b {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

func TestObserverSubtree(t *testing.T) {
	d, root := newObservedTree(t)
	child := d.CreateElement("section")
	root.AppendChild(child)
	d.Loop().Drain()

	var recs []Record
	obs := d.NewObserver(func(rs []Record) { recs = append(recs, rs...) })
	obs.Observe(root, ObserveOptions{ChildList: true, Subtree: true})

	child.AppendChild(d.CreateElement("span"))
	d.Loop().Drain()
	if len(recs) != 1 {
		t.Fatalf("subtree insert not delivered, got %d records", len(recs))
	}

	// Without Subtree, a deep insert is invisible.
	obs.Disconnect()
	recs = nil
	obs.Observe(root, ObserveOptions{ChildList: true})
	child.AppendChild(d.CreateElement("span"))
	d.Loop().Drain()
	if len(recs) != 0 {
		t.Fatalf("non-subtree observer saw a deep insert: %+v", recs)
	}
}

func TestObserverAttributes(t *testing.T) {
	d, root := newObservedTree(t)

	var recs []Record
	obs := d.NewObserver(func(rs []Record) { recs = append(recs, rs...) })
	obs.Observe(root, ObserveOptions{Attributes: true})

	root.SetAttr("data-x", "1")
	root.SetAttr("data-x", "2")
	root.SetAttr("data-x", "2") // no-op, same value
	root.RemoveAttr("data-x")
	d.Loop().Drain()

	if len(recs) != 3 {
		t.Fatalf("expected 3 attribute records, got %d", len(recs))
	}
	if recs[1].OldValue != "1" || recs[1].Value != "2" {
		t.Fatalf("old value not carried: %+v", recs[1])
	}
	if recs[2].Op != OpAttrDel || recs[2].OldValue != "2" {
		t.Fatalf("removal record wrong: %+v", recs[2])
	}
}

func TestObserverDisconnectDiscardsQueue(t *testing.T) {
	d, root := newObservedTree(t)

	delivered := false
	obs := d.NewObserver(func([]Record) { delivered = true })
	obs.Observe(root, ObserveOptions{ChildList: true})

	root.AppendChild(d.CreateElement("span"))
	obs.Disconnect()
	d.Loop().Drain()

	if delivered {
		t.Fatal("disconnected observer received queued records")
	}
}

func TestObserverReusableAfterDisconnect(t *testing.T) {
	d, root := newObservedTree(t)

	count := 0
	obs := d.NewObserver(func([]Record) { count++ })
	obs.Observe(root, ObserveOptions{ChildList: true})
	obs.Disconnect()

	obs.Observe(root, ObserveOptions{ChildList: true})
	root.AppendChild(d.CreateElement("span"))
	d.Loop().Drain()

	if count != 1 {
		t.Fatalf("re-observed observer got %d deliveries", count)
	}
}

func TestShadowMutationsStayInsideBoundary(t *testing.T) {
	d, root := newObservedTree(t)
	host := d.CreateElement("div")
	root.AppendChild(host)
	sr := host.AttachShadow()
	d.Loop().Drain()

	var docRecs, shadowRecs int
	docObs := d.NewObserver(func(rs []Record) { docRecs += len(rs) })
	docObs.Observe(d.Root(), ObserveOptions{ChildList: true, Subtree: true})
	srObs := d.NewObserver(func(rs []Record) { shadowRecs += len(rs) })
	srObs.Observe(sr, ObserveOptions{ChildList: true, Subtree: true})

	sr.AppendChild(d.CreateElement("svg"))
	d.Loop().Drain()

	if docRecs != 0 {
		t.Fatalf("document observer saw %d shadow-tree records", docRecs)
	}
	if shadowRecs != 1 {
		t.Fatalf("shadow observer got %d records", shadowRecs)
	}
}

func TestRunToCompletionBatching(t *testing.T) {
	d, root := newObservedTree(t)

	// Mutations made inside a delivery are delivered in a later batch, not
	// interleaved into the current one.
	var batches [][]Record
	var obs *Observer
	obs = d.NewObserver(func(rs []Record) {
		batches = append(batches, rs)
		if len(batches) == 1 {
			root.AppendChild(d.CreateElement("em"))
		}
	})
	obs.Observe(root, ObserveOptions{ChildList: true})

	root.AppendChild(d.CreateElement("span"))
	d.Loop().Drain()

	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if len(batches[0]) != 1 || len(batches[1]) != 1 {
		t.Fatalf("batches not separated: %d + %d", len(batches[0]), len(batches[1]))
	}
}
