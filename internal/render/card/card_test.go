package card

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"strings"
	"testing"
)

var sample = MemberData{
	FullName:     "Alioune Sylla",
	MemberNumber: "ALU-2025-0001",
	BirthDate:    "2002-09-12",
	Email:        "alioune.sylla@email.com",
	Phone:        "+221 77 330 7117",
	MemberSince:  "2025-11-18",
}

func goFonts() *FontResolver { return NewFontResolver(nil, GoFontSource{}) }

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func mustRenderer(t *testing.T, spec TemplateSpec) Renderer {
	t.Helper()
	r, err := New(spec, goFonts(), Options{})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	return r
}

func TestGenerated_PortraitPlaceholderMarker(t *testing.T) {
	t.Parallel()

	r := mustRenderer(t, TemplateSpec{Variant: VariantGenerated, Preset: PresetPortrait})
	img, err := r.Render(context.Background(), sample, nil)
	if err != nil {
		t.Fatalf("Render() err=%v", err)
	}
	if b := img.Bounds(); b.Dx() != 630 || b.Dy() != 1000 {
		t.Fatalf("bounds=%v, want 630x1000", b)
	}
	if got := img.RGBAAt(315, 220); got != lightGray {
		t.Fatalf("placeholder pixel=%v, want %v", got, lightGray)
	}
	// Header triangle and footer band.
	if got := img.RGBAAt(10, 5); got != primaryBlue {
		t.Fatalf("header pixel=%v, want %v", got, primaryBlue)
	}
	if got := img.RGBAAt(20, 990); got != primaryBlue {
		t.Fatalf("footer pixel=%v, want %v", got, primaryBlue)
	}
}

func TestGenerated_PortraitPhotoReplacesPlaceholder(t *testing.T) {
	t.Parallel()

	r := mustRenderer(t, TemplateSpec{Variant: VariantGenerated, Preset: PresetPortrait})
	photo := solid(400, 300, color.RGBA{R: 0xFF, A: 0xFF})
	img, err := r.Render(context.Background(), sample, photo)
	if err != nil {
		t.Fatalf("Render() err=%v", err)
	}
	got := img.RGBAAt(315, 220)
	if got.R < 0xF0 || got.G > 0x10 || got.B > 0x10 {
		t.Fatalf("photo pixel=%v, want red", got)
	}
}

func TestGenerated_CreditCardPreset(t *testing.T) {
	t.Parallel()

	r := mustRenderer(t, TemplateSpec{Variant: VariantGenerated, Preset: PresetCreditCard})
	img, err := r.Render(context.Background(), sample, nil)
	if err != nil {
		t.Fatalf("Render() err=%v", err)
	}
	if b := img.Bounds(); b.Dx() != 1011 || b.Dy() != 638 {
		t.Fatalf("bounds=%v, want 1011x638", b)
	}
	if got := img.RGBAAt(100, 200); got != lightGray {
		t.Fatalf("placeholder pixel=%v, want %v", got, lightGray)
	}
}

func TestGenerated_ByteIdenticalRerender(t *testing.T) {
	t.Parallel()

	r := mustRenderer(t, TemplateSpec{Variant: VariantGenerated, Preset: PresetPortrait})
	photo := solid(120, 160, color.RGBA{R: 0x20, G: 0x80, B: 0x40, A: 0xFF})

	render := func() []byte {
		img, err := r.Render(context.Background(), sample, photo)
		if err != nil {
			t.Fatalf("Render() err=%v", err)
		}
		b, err := PNGBytes(img)
		if err != nil {
			t.Fatalf("PNGBytes() err=%v", err)
		}
		return b
	}
	if a, b := render(), render(); !bytes.Equal(a, b) {
		t.Fatalf("re-render differs: %d vs %d bytes", len(a), len(b))
	}
}

func TestGenerated_MissingFontsFallBackToBitmap(t *testing.T) {
	t.Parallel()

	fonts := NewFontResolver(nil, DirSource{Dir: t.TempDir()})
	res := fonts.Resolve(WeightBold, 40)
	if !res.Fallback || res.Source != "basicfont" {
		t.Fatalf("Resolve()=%+v, want bitmap fallback", res)
	}

	r, err := New(TemplateSpec{Preset: PresetPortrait}, fonts, Options{})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if _, err := r.Render(context.Background(), sample, nil); err != nil {
		t.Fatalf("Render() err=%v", err)
	}
}

func TestFontResolver_PrefersEarlierSource(t *testing.T) {
	t.Parallel()

	fonts := NewFontResolver(nil, DirSource{Dir: t.TempDir()}, GoFontSource{})
	res := fonts.Resolve(WeightRegular, 14)
	if res.Fallback || res.Source != "gofont" {
		t.Fatalf("Resolve()=%+v, want gofont", res)
	}
}

func TestOverlay_MissingTemplate(t *testing.T) {
	t.Parallel()

	if _, err := New(TemplateSpec{Variant: VariantOverlay, Preset: PresetCreditCard}, goFonts(), Options{}); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("New(nil template) err=%v, want ErrTemplateNotFound", err)
	}

	r := mustRenderer(t, TemplateSpec{
		Variant:  VariantOverlay,
		Preset:   PresetCreditCard,
		Template: FileTemplate{Path: filepath.Join(t.TempDir(), "missing.png")},
	})
	if _, err := r.Render(context.Background(), sample, nil); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("Render() err=%v, want ErrTemplateNotFound", err)
	}
}

func TestOverlay_ScalesTemplateToPreset(t *testing.T) {
	t.Parallel()

	r := mustRenderer(t, TemplateSpec{
		Variant:  VariantOverlay,
		Preset:   PresetCreditCard,
		Template: ImageTemplate{Image: solid(500, 300, color.White)},
	})
	img, err := r.Render(context.Background(), sample, nil)
	if err != nil {
		t.Fatalf("Render() err=%v", err)
	}
	if b := img.Bounds(); b.Dx() != 1011 || b.Dy() != 638 {
		t.Fatalf("bounds=%v, want 1011x638", b)
	}
}

func TestOverlay_CircularPhotoMask(t *testing.T) {
	t.Parallel()

	bgColor := color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xFF}
	r := mustRenderer(t, TemplateSpec{
		Variant:  VariantOverlay,
		Preset:   PresetCreditCard,
		Template: ImageTemplate{Image: solid(1011, 638, bgColor)},
	})
	photo := solid(300, 200, color.RGBA{R: 0xFF, A: 0xFF})
	img, err := r.Render(context.Background(), sample, photo)
	if err != nil {
		t.Fatalf("Render() err=%v", err)
	}

	l := creditCardLayout()
	cx, cy, rad := l.PhotoCenter.X, l.PhotoCenter.Y, 120
	if got := img.RGBAAt(cx, cy); got.R < 0xF0 || got.G > 0x10 {
		t.Fatalf("circle center=%v, want red", got)
	}
	// Just inside the bounding square but outside the circle keeps the template.
	if got := img.RGBAAt(cx-rad+2, cy-rad+2); got != bgColor {
		t.Fatalf("mask corner=%v, want template %v", got, bgColor)
	}
}

func TestCircleMask(t *testing.T) {
	t.Parallel()

	m := circleMask(50)
	if b := m.Bounds(); b.Dx() != 100 || b.Dy() != 100 {
		t.Fatalf("bounds=%v", b)
	}
	if a := m.AlphaAt(50, 50).A; a != 0xFF {
		t.Fatalf("center alpha=%d, want 255", a)
	}
	if a := m.AlphaAt(1, 1).A; a != 0 {
		t.Fatalf("corner alpha=%d, want 0", a)
	}
}

func TestDecodePhoto_Corrupt(t *testing.T) {
	t.Parallel()

	if _, err := DecodePhoto(strings.NewReader("not an image")); !errors.Is(err, ErrPhotoDecode) {
		t.Fatalf("DecodePhoto() err=%v, want ErrPhotoDecode", err)
	}

	b, err := PNGBytes(solid(10, 10, color.White))
	if err != nil {
		t.Fatalf("PNGBytes() err=%v", err)
	}
	img, err := DecodePhoto(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("DecodePhoto(png) err=%v", err)
	}
	if img.Bounds().Dx() != 10 {
		t.Fatalf("decoded width=%d", img.Bounds().Dx())
	}
}

func TestNew_UnknownPreset(t *testing.T) {
	t.Parallel()

	if _, err := New(TemplateSpec{Preset: "a4"}, goFonts(), Options{}); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("New() err=%v, want ErrUnknownPreset", err)
	}
	if _, err := New(TemplateSpec{Variant: "hologram"}, goFonts(), Options{}); !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("New() err=%v, want ErrUnknownVariant", err)
	}
}
