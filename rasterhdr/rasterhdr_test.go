package rasterhdr

import (
	"testing"

	"github.com/atelier9/svglens/dom"
	"github.com/atelier9/svglens/settings"
)

func mustParse(t *testing.T, src string) *dom.Document {
	t.Helper()
	d, err := dom.ParseString(src)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func hdrOn(intensity string) settings.Snapshot {
	s := settings.Defaults()
	s.ImageHDREnabled = true
	s.ImageHDRIntensity = intensity
	return s
}

func TestApplyFiltersRasterMedia(t *testing.T) {
	d := mustParse(t, `<img src="photo.jpg"><video src="clip.mp4"></video>`)
	p := New(d, nil)
	p.Apply(hdrOn(settings.HDRMedium))

	for _, tag := range []string{"img", "video"} {
		el := dom.FindAll(d.Root(), tag)[0]
		if got, _ := el.StyleProp("filter"); got != "brightness(1.1) contrast(1.2) saturate(1.2)" {
			t.Fatalf("%s filter = %q", tag, got)
		}
		if !el.HasClass(ClassHDR) {
			t.Fatalf("%s missing marker class", tag)
		}
	}
}

func TestApplySkipsVectorImages(t *testing.T) {
	d := mustParse(t, `<img src="icon.svg"><img src="ICON.SVG?v=2"><img src="shape.svg#frag"><img src="photo.png">`)
	p := New(d, nil)
	p.Apply(hdrOn(settings.HDRMedium))

	imgs := dom.FindAll(d.Root(), "img")
	for _, img := range imgs[:3] {
		if img.HasClass(ClassHDR) {
			t.Fatalf("vector image %q was filtered", img.AttrOr("src", ""))
		}
	}
	if !imgs[3].HasClass(ClassHDR) {
		t.Fatal("raster image was skipped")
	}
}

func TestApplyComposesAfterExistingFilter(t *testing.T) {
	d := mustParse(t, `<img src="a.png" style="filter: grayscale(1)">`)
	p := New(d, nil)
	p.Apply(hdrOn(settings.HDRLow))

	img := dom.FindAll(d.Root(), "img")[0]
	want := "grayscale(1) brightness(1.05) contrast(1.1) saturate(1.1)"
	if got, _ := img.StyleProp("filter"); got != want {
		t.Fatalf("filter = %q, want %q", got, want)
	}
}

func TestIntensityChangeReplacesNotStacks(t *testing.T) {
	d := mustParse(t, `<img src="a.png" style="filter: blur(2px)">`)
	p := New(d, nil)
	img := dom.FindAll(d.Root(), "img")[0]

	p.Apply(hdrOn(settings.HDRLow))
	p.Apply(hdrOn(settings.HDRHigh))

	want := "blur(2px) brightness(1.15) contrast(1.35) saturate(1.3)"
	if got, _ := img.StyleProp("filter"); got != want {
		t.Fatalf("filter = %q, want %q", got, want)
	}
}

func TestRestoreAllExact(t *testing.T) {
	d := mustParse(t, `<img src="a.png" style="filter: invert(1)"><img src="b.png">`)
	before, _ := dom.RenderString(d)

	p := New(d, nil)
	p.Apply(hdrOn(settings.HDRHigh))
	p.RestoreAll()

	after, _ := dom.RenderString(d)
	if after != before {
		t.Fatalf("restore not exact:\n got %s\nwant %s", after, before)
	}
}

func TestApplyDisabledRestores(t *testing.T) {
	d := mustParse(t, `<img src="a.png">`)
	p := New(d, nil)
	img := dom.FindAll(d.Root(), "img")[0]

	p.Apply(hdrOn(settings.HDRMedium))
	if !img.HasClass(ClassHDR) {
		t.Fatal("not applied")
	}

	s := hdrOn(settings.HDRMedium)
	s.ImageHDREnabled = false
	p.Apply(s)
	if img.HasClass(ClassHDR) || img.HasAttr("style") {
		t.Fatal("disable did not restore")
	}

	// The global toggle restores too.
	p.Apply(hdrOn(settings.HDRMedium))
	s = hdrOn(settings.HDRMedium)
	s.Enabled = false
	p.Apply(s)
	if img.HasClass(ClassHDR) {
		t.Fatal("global disable did not restore")
	}
}

func TestApplyReachesShadowTrees(t *testing.T) {
	d := mustParse(t, `<div><template shadowrootmode="open"><img src="deep.png"></template></div>`)
	p := New(d, nil)
	p.Apply(hdrOn(settings.HDRMedium))

	host := dom.FindAll(d.Root(), "div")[0]
	img := dom.FindAll(host.Shadow(), "img")[0]
	if !img.HasClass(ClassHDR) {
		t.Fatal("shadow-tree image not filtered")
	}

	p.RestoreAll()
	if img.HasClass(ClassHDR) {
		t.Fatal("shadow-tree image not restored")
	}
}
