package quality

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"idcards/internal/card"
	"idcards/internal/cardtemplate"
	"idcards/internal/employee"
	"idcards/internal/surface"
)

type stubSurface struct {
	dims surface.Dimensions
}

func (s stubSurface) Dimensions() surface.Dimensions { return s.dims }
func (s stubSurface) CaptureRaster(context.Context, float64) (image.Image, error) {
	return nil, errors.New("not used")
}
func (s stubSurface) PhotoRegion() (card.RectPx, bool) { return card.RectPx{}, false }
func (s stubSurface) HidePhoto() func()                { return func() {} }

type stubProvider struct {
	noBack   bool
	notReady map[string]bool
}

func (p stubProvider) Surface(rec *employee.Record, side card.Side) surface.Surface {
	ready := stubSurface{dims: surface.Dimensions{Width: card.FrameWidthPx, Height: card.FrameHeightPx}}
	if side == card.Back {
		if p.noBack {
			return nil
		}
		return ready
	}
	if rec == nil || p.notReady[rec.EmployeeID] {
		return nil
	}
	return ready
}

type stubFonts struct{ err error }

func (f stubFonts) WaitReady(context.Context, time.Duration) error { return f.err }

func pngOf(w, h int) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

var cardPNG = pngOf(1280, 1600)

func goodRecord(id string) employee.Record {
	return employee.Record{
		Name:       "Person " + id,
		EmployeeID: id,
		Mobile:     "5550100",
		BloodGroup: "A+",
		Photo:      &employee.PhotoAsset{Data: cardPNG, Width: 1280, Height: 1600, Format: "png"},
	}
}

func input(recs ...employee.Record) Input {
	tpl := cardtemplate.Default()
	return Input{
		Template:     &tpl,
		Records:      recs,
		IncludeFront: true,
		IncludeBack:  true,
		CaptureScale: 5,
		Surfaces:     stubProvider{},
		Fonts:        stubFonts{},
	}
}

func TestValidateCleanJob(t *testing.T) {
	r := NewValidator(nil).Validate(context.Background(), input(goodRecord("E1"), goodRecord("E2")))
	if !r.OK() || len(r.Warnings) != 0 {
		t.Fatalf("clean job reported %+v", r)
	}
}

func TestMissingBloodGroupNamesFieldAndRow(t *testing.T) {
	bad := goodRecord("E2")
	bad.BloodGroup = " "
	r := NewValidator(nil).Validate(context.Background(), input(goodRecord("E1"), bad))
	if len(r.Errors) != 1 {
		t.Fatalf("errors = %+v, want exactly one", r.Errors)
	}
	got := r.Errors[0]
	if got.Code != MissingRecordField || got.Field != "blood_group" || got.Row != 2 {
		t.Fatalf("issue = %+v", got)
	}
	if msg := r.Format(0); !strings.Contains(msg, "Row 2 (E2)") || !strings.Contains(msg, "blood group") {
		t.Errorf("formatted = %q", msg)
	}
}

func TestLowResolutionPhotoBlocks(t *testing.T) {
	rec := goodRecord("E1")
	rec.Photo = &employee.PhotoAsset{Data: pngOf(400, 500), Width: 400, Height: 500, Format: "png"}
	r := NewValidator(nil).Validate(context.Background(), input(rec))
	if r.OK() {
		t.Fatal("400x500 photo passed the gate")
	}
	for _, is := range r.Errors {
		if is.Code != LowPhotoResolution {
			t.Errorf("unexpected issue %+v", is)
		}
	}
}

func TestShapeWithoutColourBlocks(t *testing.T) {
	in := input(goodRecord("E1"))
	in.Template.Front.Shapes = append(in.Template.Front.Shapes, cardtemplate.Shape{Kind: cardtemplate.ShapeLine, X2: 20, Y2: 20})
	r := NewValidator(nil).Validate(context.Background(), in)
	if len(r.Errors) != 1 || r.Errors[0].Code != MissingTemplateConfig || !strings.Contains(r.Errors[0].Message, "colour is required") {
		t.Fatalf("errors = %+v", r.Errors)
	}
}

func TestStoredPhotoSizeIsNotTrusted(t *testing.T) {
	rec := goodRecord("E1")
	rec.Photo = &employee.PhotoAsset{Data: pngOf(8, 10), Width: 1280, Height: 1600, Format: "png"}
	r := CheckPhotos([]employee.Record{rec})
	if r.OK() {
		t.Fatal("8x10 image labelled 1280x1600 passed the gate")
	}
	if len(r.Warnings) == 0 || !strings.Contains(r.Warnings[0].Message, "does not match") {
		t.Errorf("warnings = %+v", r.Warnings)
	}
}

func TestUndecodablePhotoBlocks(t *testing.T) {
	rec := goodRecord("E1")
	rec.Photo = &employee.PhotoAsset{Data: []byte("not an image"), Width: 1280, Height: 1600, Format: "png"}
	r := CheckPhotos([]employee.Record{rec})
	if len(r.Errors) != 1 || r.Errors[0].Code != MissingPhoto {
		t.Fatalf("errors = %+v", r.Errors)
	}
}

func TestMissingPhotoSkipsDPI(t *testing.T) {
	rec := goodRecord("E1")
	rec.Photo = nil
	r := NewValidator(nil).Validate(context.Background(), input(rec))
	if len(r.Errors) != 1 || r.Errors[0].Code != MissingPhoto {
		t.Fatalf("errors = %+v", r.Errors)
	}
}

func TestDuplicateEmployeeID(t *testing.T) {
	r := CheckRecords([]employee.Record{goodRecord("E1"), goodRecord("E1")})
	if len(r.Errors) != 1 || r.Errors[0].Code != DuplicateRecord || r.Errors[0].Row != 2 {
		t.Fatalf("errors = %+v", r.Errors)
	}
}

func TestFontTimeoutIsWarning(t *testing.T) {
	in := input(goodRecord("E1"))
	in.Fonts = stubFonts{err: errors.New("font not ready")}
	r := NewValidator(nil).Validate(context.Background(), in)
	if !r.OK() {
		t.Fatalf("font timeout blocked export: %+v", r.Errors)
	}
	if len(r.Warnings) != 1 || r.Warnings[0].Code != FontNotReady {
		t.Fatalf("warnings = %+v", r.Warnings)
	}
}

func TestSurfaceChecks(t *testing.T) {
	in := input(goodRecord("E1"), goodRecord("E2"))
	in.Surfaces = stubProvider{noBack: true, notReady: map[string]bool{"E2": true}}
	r := NewValidator(nil).Validate(context.Background(), in)
	codes := map[Code]int{}
	for _, is := range r.Errors {
		codes[is.Code]++
	}
	if codes[BackTemplateMissing] != 1 || codes[RenderSurfaceNotReady] != 1 {
		t.Fatalf("errors = %+v", r.Errors)
	}

	in.IncludeBack = false
	if r := NewValidator(nil).Validate(context.Background(), in); len(r.Errors) != 1 {
		t.Fatalf("front-only errors = %+v", r.Errors)
	}
}

func TestTemplateFailureSkipsSurfaces(t *testing.T) {
	in := input(goodRecord("E1"))
	in.Template.Palette = nil
	in.Surfaces = stubProvider{noBack: true}
	r := NewValidator(nil).Validate(context.Background(), in)
	if len(r.Errors) != 1 || r.Errors[0].Code != MissingTemplateConfig {
		t.Fatalf("errors = %+v", r.Errors)
	}
}

func TestCaptureScaleBelowPrintDPI(t *testing.T) {
	tpl := cardtemplate.Default()
	if r := CheckTemplate(&tpl, true, true, 2); r.OK() {
		t.Fatal("scale 2 accepted")
	}
	if r := CheckTemplate(&tpl, true, true, card.DefaultCaptureScale); !r.OK() {
		t.Fatalf("default scale rejected: %+v", r.Errors)
	}
}

func TestFrontWithoutPhotoFrameBlocks(t *testing.T) {
	in := input(goodRecord("E1"))
	in.Template.Front.Photo = nil
	r := NewValidator(nil).Validate(context.Background(), in)
	if len(r.Errors) != 1 {
		t.Fatalf("errors = %+v, want one", r.Errors)
	}
	if got := r.Errors[0]; got.Code != MissingTemplateConfig || got.Field != "template.front.photo" {
		t.Fatalf("issue = %+v", got)
	}

	// back-only jobs never place a photo
	in.IncludeFront = false
	if r := CheckTemplate(in.Template, false, true, 5); !r.OK() {
		t.Fatalf("back-only job blocked: %+v", r.Errors)
	}
}

func TestFormatTruncates(t *testing.T) {
	var recs []employee.Record
	for i := 0; i < 12; i++ {
		rec := goodRecord(fmt.Sprintf("E%02d", i))
		rec.Mobile = ""
		recs = append(recs, rec)
	}
	r := CheckRecords(recs)
	msg := r.Format(DefaultReportLimit)
	if !strings.HasPrefix(msg, "Export blocked by 12 problems:") {
		t.Fatalf("header: %q", msg)
	}
	if !strings.Contains(msg, "\n10. Row 10 (E09)") || strings.Contains(msg, "\n11.") {
		t.Errorf("list not cut at 10: %q", msg)
	}
	if !strings.HasSuffix(msg, "...and 2 more") {
		t.Errorf("missing tail: %q", msg)
	}
	if one := FormatIssues(r.Errors[:1], 0); one != "Row 1 (E00): mobile is required" {
		t.Errorf("single = %q", one)
	}
}
