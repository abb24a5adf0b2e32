package quality

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"strings"
	"time"

	_ "golang.org/x/image/webp"

	"idcards/internal/card"
	"idcards/internal/cardtemplate"
	"idcards/internal/employee"
	"idcards/internal/surface"
)

// FontChecker confirms the approved typeface is loaded.
type FontChecker interface {
	WaitReady(ctx context.Context, timeout time.Duration) error
}

// DefaultFontWait bounds the font readiness gate.
const DefaultFontWait = 3 * time.Second

// Input is everything one validation run looks at.
type Input struct {
	Template     *cardtemplate.Template
	Records      []employee.Record
	IncludeFront bool
	IncludeBack  bool
	CaptureScale float64
	Surfaces     surface.Provider // nil when no surfaces could be prepared
	Fonts        FontChecker      // nil skips the font gate
	FontWait     time.Duration
}

// Validator runs the gates in order, cheapest first.
type Validator struct {
	log *slog.Logger
}

func NewValidator(log *slog.Logger) *Validator {
	if log == nil {
		log = slog.Default()
	}
	return &Validator{log: log}
}

// Validate runs every gate and returns one aggregated report. Surface checks
// are skipped when the template itself is incomplete, since no surface can
// be built from it.
func (v *Validator) Validate(ctx context.Context, in Input) Report {
	var r Report
	tpl := CheckTemplate(in.Template, in.IncludeFront, in.IncludeBack, in.CaptureScale)
	r.Merge(tpl)
	r.Merge(CheckRecords(in.Records))
	if tpl.OK() && in.Surfaces != nil {
		r.Merge(CheckSurfaces(in.Surfaces, in.Records, in.IncludeFront, in.IncludeBack))
	}
	if in.Fonts != nil {
		fonts := CheckFonts(ctx, in.Fonts, in.FontWait)
		for _, w := range fonts.Warnings {
			v.log.Warn("quality: "+w.Message, "code", w.Code)
		}
		r.Merge(fonts)
	}
	r.Merge(CheckPhotos(in.Records))

	v.log.Debug("quality: validation finished",
		"records", len(in.Records),
		"errors", len(r.Errors),
		"warnings", len(r.Warnings),
	)
	return r
}

// CheckTemplate requires the front side with a photo frame when fronts are
// included, the back side when backs are included, a palette and a capture
// scale that reaches print resolution.
func CheckTemplate(t *cardtemplate.Template, includeFront, includeBack bool, scale float64) Report {
	var r Report
	if t == nil {
		r.add(Issue{Code: MissingTemplateConfig, Field: "template", Message: "no template selected"})
		return r
	}
	switch {
	case t.Front == nil:
		r.add(Issue{Code: MissingTemplateConfig, Field: "template.front", Message: "template front configuration is missing"})
	case includeFront && t.Front.Photo == nil:
		r.add(Issue{Code: MissingTemplateConfig, Field: "template.front.photo", Message: "template front has no photo frame"})
	}
	if includeBack && t.Back == nil {
		r.add(Issue{Code: MissingTemplateConfig, Field: "template.back", Message: "template back configuration is missing"})
	}
	if t.Palette == nil {
		r.add(Issue{Code: MissingTemplateConfig, Field: "template.palette", Message: "template colour palette is missing"})
	}
	for _, p := range t.Problems() {
		r.add(Issue{Code: MissingTemplateConfig, Field: "template", Message: "invalid template: " + p})
	}
	if dpi := card.CardDPI(scale); dpi < card.MinPrintDPI {
		r.add(Issue{
			Code:    GenericExportFailure,
			Field:   "quality_scale",
			Message: fmt.Sprintf("capture scale %.2f renders the card at %.0f DPI, minimum is %d", scale, dpi, card.MinPrintDPI),
		})
	}
	return r
}

type requiredField struct {
	field, label string
	value        func(*employee.Record) string
}

var requiredFields = []requiredField{
	{"name", "name", func(r *employee.Record) string { return r.Name }},
	{"employee_id", "employee ID", func(r *employee.Record) string { return r.EmployeeID }},
	{"mobile", "mobile", func(r *employee.Record) string { return r.Mobile }},
	{"blood_group", "blood group", func(r *employee.Record) string { return r.BloodGroup }},
}

// CheckRecords requires every identity field and a photo on every record,
// and rejects repeated employee IDs within the job.
func CheckRecords(recs []employee.Record) Report {
	var r Report
	if len(recs) == 0 {
		r.add(Issue{Code: MissingRecordField, Field: "records", Message: "no employee records selected"})
		return r
	}
	seen := make(map[string]int, len(recs))
	for i := range recs {
		rec := &recs[i]
		row := i + 1
		for _, f := range requiredFields {
			if strings.TrimSpace(f.value(rec)) == "" {
				r.add(Issue{
					Code:       MissingRecordField,
					Field:      f.field,
					Message:    fmt.Sprintf("%s is required", f.label),
					Row:        row,
					EmployeeID: rec.EmployeeID,
				})
			}
		}
		if rec.Photo == nil || len(rec.Photo.Data) == 0 {
			r.add(Issue{Code: MissingPhoto, Field: "photo", Message: "photo is missing", Row: row, EmployeeID: rec.EmployeeID})
		}
		if id := strings.TrimSpace(rec.EmployeeID); id != "" {
			if first, dup := seen[id]; dup {
				r.add(Issue{
					Code:       DuplicateRecord,
					Field:      "employee_id",
					Message:    fmt.Sprintf("employee ID %s already appears in row %d", id, first),
					Row:        row,
					EmployeeID: id,
				})
			} else {
				seen[id] = row
			}
		}
	}
	return r
}

// CheckSurfaces requires a laid-out front surface per record and one shared
// back surface.
func CheckSurfaces(p surface.Provider, recs []employee.Record, includeFront, includeBack bool) Report {
	var r Report
	if includeFront {
		for i := range recs {
			rec := &recs[i]
			s := p.Surface(rec, card.Front)
			switch {
			case s == nil:
				r.add(Issue{Code: RenderSurfaceNotReady, Field: "surface.front", Message: "front card surface is not rendered", Row: i + 1, EmployeeID: rec.EmployeeID})
			case s.Dimensions().Empty():
				r.add(Issue{Code: RenderSurfaceNotReady, Field: "surface.front", Message: "front card surface has no layout size yet", Row: i + 1, EmployeeID: rec.EmployeeID})
			}
		}
	}
	if includeBack {
		s := p.Surface(nil, card.Back)
		switch {
		case s == nil:
			r.add(Issue{Code: BackTemplateMissing, Field: "surface.back", Message: "back template not rendered"})
		case s.Dimensions().Empty():
			r.add(Issue{Code: RenderSurfaceNotReady, Field: "surface.back", Message: "back card surface has no layout size yet"})
		}
	}
	return r
}

// CheckFonts turns a font that is not ready in time into a warning; the
// fallback face keeps rendering possible.
func CheckFonts(ctx context.Context, f FontChecker, wait time.Duration) Report {
	var r Report
	if wait <= 0 {
		wait = DefaultFontWait
	}
	if err := f.WaitReady(ctx, wait); err != nil {
		r.add(Issue{
			Code:     FontNotReady,
			Field:    "font",
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("%v; cards will use the fallback font", err),
		})
	}
	return r
}

// CheckPhotos runs the DPI gate on every record that has a photo.
func CheckPhotos(recs []employee.Record) Report {
	var r Report
	for i := range recs {
		rec := &recs[i]
		if rec.Photo == nil || len(rec.Photo.Data) == 0 {
			continue
		}
		// DPI is measured on the bytes, not the stored size.
		cfg, _, err := image.DecodeConfig(bytes.NewReader(rec.Photo.Data))
		if err != nil {
			r.add(Issue{Code: MissingPhoto, Field: "photo", Message: "photo cannot be read", Row: i + 1, EmployeeID: rec.EmployeeID})
			continue
		}
		if rec.Photo.Width > 0 && (rec.Photo.Width != cfg.Width || rec.Photo.Height != cfg.Height) {
			r.add(Issue{
				Code:       LowPhotoResolution,
				Field:      "photo",
				Message:    fmt.Sprintf("stored photo size %dx%d does not match the image (%dx%d)", rec.Photo.Width, rec.Photo.Height, cfg.Width, cfg.Height),
				Severity:   SeverityWarning,
				Row:        i + 1,
				EmployeeID: rec.EmployeeID,
			})
		}
		q := AssessCardPhoto(cfg.Width, cfg.Height)
		for _, msg := range q.Errors {
			r.add(Issue{Code: LowPhotoResolution, Field: "photo", Message: msg, Row: i + 1, EmployeeID: rec.EmployeeID})
		}
		for _, msg := range q.Warnings {
			r.add(Issue{Code: LowPhotoResolution, Field: "photo", Message: msg, Severity: SeverityWarning, Row: i + 1, EmployeeID: rec.EmployeeID})
		}
	}
	return r
}
