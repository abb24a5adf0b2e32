// Package surface abstracts the visual card surfaces the export pipeline
// captures. A Surface is one rendered side of one card; a Provider hands
// them out per record and side and returns nil while a surface is not
// ready. The raster implementation in this package draws templates with gg;
// tests supply their own doubles.
package surface

import (
	"context"
	"image"

	"idcards/internal/cache"
	"idcards/internal/card"
	"idcards/internal/cardtemplate"
	"idcards/internal/employee"
)

// Dimensions is a surface's layout size in frame pixels.
type Dimensions struct {
	Width, Height int
}

// Empty reports a surface that has not laid out yet.
func (d Dimensions) Empty() bool {
	return d.Width <= 0 || d.Height <= 0
}

// Surface is one prepared card side.
type Surface interface {
	Dimensions() Dimensions
	// CaptureRaster renders the surface at scale. The result must be
	// exactly round(Width*scale) x round(Height*scale).
	CaptureRaster(ctx context.Context, scale float64) (image.Image, error)
	// PhotoRegion is the photo placement in frame pixels, if the side has one.
	PhotoRegion() (card.RectPx, bool)
	// HidePhoto excludes the photo from captures until restore is called.
	HidePhoto() (restore func())
}

// Provider returns the surface for a record and side, or nil when it is not
// ready. The shared back surface is requested with a nil record.
type Provider interface {
	Surface(rec *employee.Record, side card.Side) Surface
}

// ImageCache holds decoded images for the lifetime of one job.
type ImageCache = cache.Cache[string, image.Image]

// Source builds a Provider for one job's template.
type Source interface {
	ForJob(tpl cardtemplate.Template, images *ImageCache) Provider
}

// WithPhotoHidden runs fn with the photo hidden and restores visibility on
// every exit path, panics included.
func WithPhotoHidden(s Surface, fn func() error) error {
	restore := s.HidePhoto()
	defer restore()
	return fn()
}
