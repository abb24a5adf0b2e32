// Package compose turns a prepared card surface into a print page from two
// sources: the layout captured at high scale with the photo hidden, and the
// photo asset itself, placed in millimetres over the layout.
package compose

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"idcards/internal/card"
	"idcards/internal/employee"
	"idcards/internal/surface"
)

// ErrQualityDegradation reports a capture whose size is not exactly the
// expected frame size at the configured scale.
var ErrQualityDegradation = errors.New("compose: quality degradation detected")

var (
	// ErrNoPhotoRegion is returned for a front surface without a photo frame.
	ErrNoPhotoRegion = errors.New("compose: front surface has no photo region")
	// ErrMissingPhoto is returned for a front page whose record has no photo.
	ErrMissingPhoto = errors.New("compose: record has no photo")
)

// PhotoOverlay is an original photo asset placed on a page.
type PhotoOverlay struct {
	Data   []byte
	Format string
	Rect   card.RectMM
}

// Page is one composed print page.
type Page struct {
	Side       card.Side
	EmployeeID string // empty for the shared back
	Layout     image.Image
	Photo      *PhotoOverlay
}

type Compositor struct {
	scale float64
	log   *slog.Logger
}

func New(scale float64, log *slog.Logger) *Compositor {
	if scale <= 0 {
		scale = card.DefaultCaptureScale
	}
	if log == nil {
		log = slog.Default()
	}
	return &Compositor{scale: scale, log: log}
}

func (c *Compositor) Scale() float64 { return c.scale }

// Compose captures s with its photo hidden and attaches rec's photo over the
// photo region. rec may be nil for the back side.
func (c *Compositor) Compose(ctx context.Context, s surface.Surface, rec *employee.Record, side card.Side) (Page, error) {
	page := Page{Side: side}
	if rec != nil && side == card.Front {
		page.EmployeeID = rec.EmployeeID
	}

	dims := s.Dimensions()
	wantW, wantH := card.CaptureSize(dims.Width, dims.Height, c.scale)

	err := surface.WithPhotoHidden(s, func() error {
		img, err := s.CaptureRaster(ctx, c.scale)
		if err != nil {
			return fmt.Errorf("compose: capture %s: %w", side, err)
		}
		if b := img.Bounds(); b.Dx() != wantW || b.Dy() != wantH {
			return fmt.Errorf("%w: %s capture is %dx%d, expected %dx%d at scale %.2f",
				ErrQualityDegradation, side, b.Dx(), b.Dy(), wantW, wantH, c.scale)
		}
		page.Layout = img
		return nil
	})
	if err != nil {
		return Page{}, err
	}

	if side != card.Front {
		return page, nil
	}
	if rec == nil || rec.Photo == nil || len(rec.Photo.Data) == 0 {
		return Page{}, fmt.Errorf("%w: %s", ErrMissingPhoto, page.EmployeeID)
	}
	region, ok := s.PhotoRegion()
	if !ok {
		return Page{}, fmt.Errorf("%w: %s", ErrNoPhotoRegion, rec.EmployeeID)
	}
	page.Photo = &PhotoOverlay{
		Data:   rec.Photo.Data,
		Format: rec.Photo.Format,
		Rect:   region.ToMM(),
	}
	c.log.Debug("compose: front page ready", "employee_id", rec.EmployeeID, "photo_format", rec.Photo.Format)
	return page, nil
}
