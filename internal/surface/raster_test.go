package surface

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"idcards/internal/cache"
	"idcards/internal/card"
	"idcards/internal/cardtemplate"
	"idcards/internal/employee"
)

func redPhoto(t *testing.T) *employee.PhotoAsset {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 80, 100))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+3] = 255, 255
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return &employee.PhotoAsset{Data: buf.Bytes(), Width: 80, Height: 100, Format: "png"}
}

func newProvider(t *testing.T) (Provider, *ImageCache) {
	t.Helper()
	images := cache.New[string, image.Image]()
	return NewRasterSource(BuiltinFonts(), nil).ForJob(cardtemplate.Default(), images), images
}

func TestCaptureSizeMatchesScale(t *testing.T) {
	p, _ := newProvider(t)
	rec := &employee.Record{Name: "Ada Lovelace", EmployeeID: "24EMP001", Mobile: "555", BloodGroup: "O+"}
	s := p.Surface(rec, card.Front)
	if s == nil {
		t.Fatal("front surface not ready")
	}
	if d := s.Dimensions(); d.Width != card.FrameWidthPx || d.Height != card.FrameHeightPx {
		t.Fatalf("dimensions = %+v", d)
	}
	for _, scale := range []float64{1, 4.5, 8} {
		img, err := s.CaptureRaster(context.Background(), scale)
		if err != nil {
			t.Fatalf("capture at %v failed: %v", scale, err)
		}
		w, h := card.CaptureSize(card.FrameWidthPx, card.FrameHeightPx, scale)
		if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
			t.Errorf("scale %v: got %dx%d, want %dx%d", scale, b.Dx(), b.Dy(), w, h)
		}
	}
}

func photoCenterPixel(t *testing.T, s Surface, scale float64) color.Color {
	t.Helper()
	img, err := s.CaptureRaster(context.Background(), scale)
	if err != nil {
		t.Fatal(err)
	}
	r, _ := s.PhotoRegion()
	return img.At(int((r.X+r.W/2)*scale), int((r.Y+r.H/2)*scale))
}

func TestHidePhotoExcludesAndRestores(t *testing.T) {
	p, images := newProvider(t)
	rec := &employee.Record{Name: "Ada", EmployeeID: "E1", Photo: redPhoto(t)}
	s := p.Surface(rec, card.Front)

	isRed := func(c color.Color) bool {
		r, g, b, _ := c.RGBA()
		return r > 0xf000 && g < 0x1000 && b < 0x1000
	}
	if !isRed(photoCenterPixel(t, s, 2)) {
		t.Fatal("photo not drawn on visible capture")
	}
	if images.Len() != 1 {
		t.Errorf("decoded photo not cached, len = %d", images.Len())
	}

	err := WithPhotoHidden(s, func() error {
		if isRed(photoCenterPixel(t, s, 2)) {
			t.Error("photo drawn while hidden")
		}
		return errors.New("capture failed")
	})
	if err == nil {
		t.Fatal("expected error from fn")
	}
	if s.(*Raster).PhotoHidden() {
		t.Fatal("photo still hidden after failed scope")
	}
	if !isRed(photoCenterPixel(t, s, 2)) {
		t.Fatal("photo not restored")
	}
}

func TestBackSurfaceIsTemplateOnly(t *testing.T) {
	p, _ := newProvider(t)
	back := p.Surface(nil, card.Back)
	if back == nil {
		t.Fatal("back surface not ready")
	}
	if _, ok := back.PhotoRegion(); ok {
		t.Error("back surface must not carry a photo region")
	}
	withRec := p.Surface(&employee.Record{Name: "Someone", EmployeeID: "E9"}, card.Back)
	a, _ := back.CaptureRaster(context.Background(), 1)
	b, _ := withRec.CaptureRaster(context.Background(), 1)
	if !bytes.Equal(a.(*image.RGBA).Pix, b.(*image.RGBA).Pix) {
		t.Error("back surface rendered record data")
	}
	if p.Surface(nil, card.Front) != nil {
		t.Error("front surface without record should be not ready")
	}
}

func TestMissingSideIsNotReady(t *testing.T) {
	tpl := cardtemplate.Default()
	tpl.Back = nil
	p := NewRasterSource(nil, nil).ForJob(tpl, nil)
	if p.Surface(nil, card.Back) != nil {
		t.Fatal("expected nil surface for missing back config")
	}
}

func TestFontsReadiness(t *testing.T) {
	if err := BuiltinFonts().WaitReady(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("builtin fonts not ready: %v", err)
	}
	f := LoadFonts(filepath.Join(t.TempDir(), "missing.ttf"), "")
	err := f.WaitReady(context.Background(), time.Second)
	if !errors.Is(err, ErrFontNotReady) {
		t.Fatalf("err = %v, want ErrFontNotReady", err)
	}
	// Fallback faces still render.
	if _, err := f.Face(true, 12); err != nil {
		t.Fatalf("fallback face: %v", err)
	}
}
