package runner

import (
	"context"
	"strings"
	"testing"

	"github.com/atelier9/svglens/dom"
	"github.com/atelier9/svglens/settings"
	"github.com/atelier9/svglens/svgdetect"
	"github.com/atelier9/svglens/svgenhance"
)

func mustParse(t *testing.T, src string) *dom.Document {
	t.Helper()
	d, err := dom.ParseString(src)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

const samplePage = `
	<h1>Gallery</h1>
	<svg><path d="M0 0"></path></svg>
	<img src="logo.svg">
	<div class="lottie"><svg id="anim"></svg></div>
	<img src="photo.jpg">`

func TestEnhanceOnce(t *testing.T) {
	r := New(Config{})
	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	doc := mustParse(t, samplePage)
	rep, err := r.EnhanceOnce(doc)
	if err != nil {
		t.Fatal(err)
	}

	if len(rep.Graphics) != 3 {
		t.Fatalf("graphics = %d, want 3", len(rep.Graphics))
	}
	if !strings.HasPrefix(rep.ID, "rpt_") {
		t.Fatalf("report id = %q", rep.ID)
	}
	if rep.Detector.Reported != 3 {
		t.Fatalf("detector reported = %d", rep.Detector.Reported)
	}
	if rep.Enhancer.Enhanced == 0 {
		t.Fatal("nothing enhanced")
	}

	out, err := dom.RenderString(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, svgenhance.ClassEnhanced) {
		t.Fatal("inline marker missing from output")
	}
	if !strings.Contains(out, svgenhance.ClassEnhancedFilter) {
		t.Fatal("filter marker missing from output")
	}
}

func TestReportContainerForAnimationGraphics(t *testing.T) {
	r := New(Config{})
	doc := mustParse(t, samplePage)
	rep, err := r.EnhanceOnce(doc)
	if err != nil {
		t.Fatal(err)
	}

	var anim *GraphicReport
	for i := range rep.Graphics {
		if rep.Graphics[i].Kind == svgdetect.KindAnimationHosted.String() {
			anim = &rep.Graphics[i]
		}
	}
	if anim == nil {
		t.Fatal("no animation graphic reported")
	}
	if anim.Container == "" || anim.Container == anim.Path {
		t.Fatalf("container path = %q (primary %q)", anim.Container, anim.Path)
	}
}

func TestDetectOnceLeavesDocumentUntouched(t *testing.T) {
	r := New(Config{})
	doc := mustParse(t, samplePage)
	before, _ := dom.RenderString(doc)

	rep, err := r.DetectOnce(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Graphics) != 3 {
		t.Fatalf("graphics = %d, want 3", len(rep.Graphics))
	}
	if rep.Enhancer.Enhanced != 0 {
		t.Fatalf("detect-only run enhanced %d nodes", rep.Enhancer.Enhanced)
	}

	after, _ := dom.RenderString(doc)
	if after != before {
		t.Fatal("detect-only run modified the document")
	}
}

func TestEnhanceOnceWithOverride(t *testing.T) {
	r := New(Config{})
	doc := mustParse(t, `<svg style="filter: sepia(1)"></svg>`)

	snap := settings.Defaults()
	snap.ContrastEnabled = true
	snap.ContrastLevel = settings.ContrastMaximum
	rep, err := r.EnhanceOnceWith(doc, snap)
	if err != nil {
		t.Fatal(err)
	}
	if !rep.Settings.ContrastEnabled {
		t.Fatal("report carries wrong settings")
	}

	svg := dom.FindAll(doc.Root(), "svg")[0]
	if got, _ := svg.StyleProp("filter"); got != "sepia(1) contrast(1.5) saturate(1.35)" {
		t.Fatalf("filter = %q", got)
	}
	// Runner-level snapshot is untouched by the override.
	if r.Snapshot().ContrastEnabled {
		t.Fatal("override leaked into the runner snapshot")
	}
}

func TestUpdateSettings(t *testing.T) {
	r := New(Config{})

	color := "#ff0000"
	snap, err := r.UpdateSettings(context.Background(), settings.Overlay{OutlineColor: &color})
	if err != nil {
		t.Fatal(err)
	}
	if snap.OutlineColor != color || r.Snapshot().OutlineColor != color {
		t.Fatal("overlay not applied")
	}
	// The untouched fields keep their defaults.
	if snap.OutlineWidth != settings.Defaults().OutlineWidth {
		t.Fatal("merge clobbered an unset field")
	}

	bad := "chartreuse-ish"
	if _, err := r.UpdateSettings(context.Background(), settings.Overlay{OutlineColor: &bad}); err == nil {
		t.Fatal("invalid overlay accepted")
	}
	if r.Snapshot().OutlineColor != color {
		t.Fatal("rejected overlay still mutated the snapshot")
	}
}

func TestSessionApplySettingsDisable(t *testing.T) {
	r := New(Config{})
	doc := mustParse(t, samplePage)
	before, _ := dom.RenderString(doc)

	sess, err := r.Attach(doc)
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()
	doc.Loop().Drain()

	if len(sess.Graphics()) != 3 {
		t.Fatalf("graphics = %d, want 3", len(sess.Graphics()))
	}
	if sess.Enhancer().Tracked() == 0 {
		t.Fatal("nothing enhanced on attach")
	}

	off := settings.Defaults()
	off.Enabled = false
	sess.ApplySettings(off)
	doc.Loop().Drain()

	after, _ := dom.RenderString(doc)
	if after != before {
		t.Fatalf("disable did not restore:\n got %s\nwant %s", after, before)
	}
	if sess.Enhancer().Tracked() != 0 {
		t.Fatal("enhancement records survived disable")
	}
}

func TestSettingsChangeReachesAttachedSessions(t *testing.T) {
	r := New(Config{})
	doc := mustParse(t, samplePage)
	before, _ := dom.RenderString(doc)

	sess, err := r.Attach(doc)
	if err != nil {
		t.Fatal(err)
	}
	doc.Loop().Drain()
	if sess.Enhancer().Tracked() == 0 {
		t.Fatal("nothing enhanced on attach")
	}

	// A store change lands on the session's document loop: the global
	// disable restores everything without any explicit session call.
	off := settings.Defaults()
	off.Enabled = false
	r.setSnapshot(off)
	doc.Loop().Drain()

	after, _ := dom.RenderString(doc)
	if after != before {
		t.Fatalf("disable via settings change did not restore:\n got %s\nwant %s", after, before)
	}
	if sess.Enhancer().Tracked() != 0 {
		t.Fatal("enhancement records survived the forwarded disable")
	}

	// Re-enabling re-enhances the already-detected graphics.
	r.setSnapshot(settings.Defaults())
	doc.Loop().Drain()
	if sess.Enhancer().Tracked() == 0 {
		t.Fatal("forwarded re-enable did not re-enhance")
	}

	// A closed session stops following.
	sess.Close()
	r.setSnapshot(off)
	doc.Loop().Drain()
	if sess.Enhancer().Tracked() == 0 {
		t.Fatal("closed session still received settings changes")
	}
}

func TestSessionEnhancesLateInsertions(t *testing.T) {
	r := New(Config{})
	doc := mustParse(t, `<div id="slot"></div>`)

	sess, err := r.Attach(doc)
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()
	doc.Loop().Drain()

	slot := dom.FindAll(doc.Root(), "#slot")[0]
	svg := doc.CreateElement("svg")
	slot.AppendChild(svg)
	doc.Loop().Drain()

	if len(sess.Graphics()) != 1 {
		t.Fatalf("graphics = %d, want 1", len(sess.Graphics()))
	}
	if !svg.HasClass(svgenhance.ClassEnhanced) {
		t.Fatal("late insertion not enhanced")
	}
}
