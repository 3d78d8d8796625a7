package dom

import (
	"strings"
	"testing"
)

func TestParseBasicTree(t *testing.T) {
	d, err := ParseString(`<!DOCTYPE html><html><body><div id="a">hi</div></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	if d.DocumentElement() == nil || d.DocumentElement().Tag != "html" {
		t.Fatal("document element missing")
	}
	div := FindAll(d.Root(), "#a")
	if len(div) != 1 || div[0].Text() != "hi" {
		t.Fatalf("div lookup failed: %v", div)
	}
}

func TestParseDeclarativeShadow(t *testing.T) {
	d, err := ParseString(`<div id="host"><template shadowrootmode="open"><svg></svg></template><p>light</p></div>`)
	if err != nil {
		t.Fatal(err)
	}
	host := FindAll(d.Root(), "#host")[0]
	sr := host.Shadow()
	if sr == nil {
		t.Fatal("template did not become a shadow root")
	}
	if got := len(FindAll(sr, "svg")); got != 1 {
		t.Fatalf("shadow content missing: %d svg", got)
	}
	// The template itself must not survive as a light child.
	if got := len(FindAll(host, "template")); got != 0 {
		t.Fatal("shadow template left in light tree")
	}
	if got := len(FindAll(host, "p")); got != 1 {
		t.Fatal("light content lost")
	}
}

func TestRenderRoundTripsShadow(t *testing.T) {
	in := `<div id="host"><template shadowrootmode="open"><svg class="x"></svg></template></div>`
	d, err := ParseString(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := RenderString(d)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `<template shadowrootmode="open">`) {
		t.Fatalf("shadow root not serialised declaratively: %s", out)
	}

	d2, err := ParseString(out)
	if err != nil {
		t.Fatal(err)
	}
	host := FindAll(d2.Root(), "#host")[0]
	if host.Shadow() == nil || len(FindAll(host.Shadow(), "svg.x")) != 1 {
		t.Fatal("round-tripped shadow tree lost content")
	}
}

func TestRenderPreservesAttributes(t *testing.T) {
	d, err := ParseString(`<svg class="a b" data-x="1"><path stroke="#fff"></path></svg>`)
	if err != nil {
		t.Fatal(err)
	}
	out, err := RenderString(d)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`class="a b"`, `data-x="1"`, `stroke="#fff"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %s: %s", want, out)
		}
	}
}

func TestParsedTreeIsLive(t *testing.T) {
	d, err := ParseString(`<div></div>`)
	if err != nil {
		t.Fatal(err)
	}
	div := FindAll(d.Root(), "div")[0]

	var recs int
	obs := d.NewObserver(func(rs []Record) { recs += len(rs) })
	obs.Observe(div, ObserveOptions{ChildList: true})

	div.AppendChild(d.CreateElement("svg"))
	d.Loop().Drain()
	if recs != 1 {
		t.Fatalf("parsed tree not observable: %d records", recs)
	}
}
