// Package card holds the fixed physical and pixel geometry of a CR80 identity
// card. Preview rendering and export both read these values, so the px↔mm
// relationship cannot drift between the two.
package card

import "math"

// Side identifies one printable face of a card.
type Side string

const (
	Front Side = "front"
	Back  Side = "back"
)

// Physical card size in portrait orientation (CR80, 85.6 x 53.98 mm).
const (
	WidthMM  = 53.98
	HeightMM = 85.6
)

// Render frame in CSS-like pixels.
const (
	FrameWidthPx  = 153
	FrameHeightPx = 244
)

// MMPerPx converts frame pixels to page millimetres. Both axes use it.
const MMPerPx = WidthMM / FrameWidthPx

const MMPerInch = 25.4

// Photo frame on the front side.
const (
	PhotoWidthMM  = 16.93
	PhotoHeightMM = 21.17

	// PhotoAspect is width:height of every processed photo asset (4:5).
	PhotoAspect = 0.8

	PhotoTargetWidth  = 1280
	PhotoTargetHeight = 1600
)

// MinPrintDPI is the lowest resolution accepted for anything printed.
const MinPrintDPI = 300

// DefaultCaptureScale renders the 153 px frame at 1224 px, about 576 DPI
// across the physical card width.
const DefaultCaptureScale = 8.0

// RectPx is a rectangle in frame pixel space.
type RectPx struct {
	X, Y, W, H float64
}

// RectMM is a rectangle in page millimetre space.
type RectMM struct {
	X, Y, W, H float64
}

// ToMM converts a frame-space rectangle with the shared constant.
func (r RectPx) ToMM() RectMM {
	return RectMM{
		X: r.X * MMPerPx,
		Y: r.Y * MMPerPx,
		W: r.W * MMPerPx,
		H: r.H * MMPerPx,
	}
}

// PhotoFramePx is the photo frame size expressed in frame pixels.
func PhotoFramePx() (w, h float64) {
	return PhotoWidthMM / MMPerPx, PhotoHeightMM / MMPerPx
}

// CaptureSize is the exact raster size a capture at scale must produce.
func CaptureSize(frameW, frameH int, scale float64) (int, int) {
	return int(math.Round(float64(frameW) * scale)), int(math.Round(float64(frameH) * scale))
}

// CardDPI is the print resolution of a full-card capture at scale, measured
// on the binding (lower) axis.
func CardDPI(scale float64) float64 {
	w, h := CaptureSize(FrameWidthPx, FrameHeightPx, scale)
	dpiW := float64(w) / (WidthMM / MMPerInch)
	dpiH := float64(h) / (HeightMM / MMPerInch)
	return math.Min(dpiW, dpiH)
}
