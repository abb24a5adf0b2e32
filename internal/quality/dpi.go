package quality

import (
	"fmt"
	"math"

	"idcards/internal/card"
)

// AspectTolerance is the relative aspect deviation tolerated before a
// warning.
const AspectTolerance = 0.05

// PhotoQuality is the derived resolution assessment of one photo asset.
type PhotoQuality struct {
	ActualWidth   int      `json:"actual_width"`
	ActualHeight  int      `json:"actual_height"`
	DPIHorizontal float64  `json:"dpi_horizontal"`
	DPIVertical   float64  `json:"dpi_vertical"`
	Errors        []string `json:"errors,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

// DPI is the binding (lower) of the two axes.
func (q PhotoQuality) DPI() float64 {
	return math.Min(q.DPIHorizontal, q.DPIVertical)
}

// OK reports whether the photo passes the print gate.
func (q PhotoQuality) OK() bool { return len(q.Errors) == 0 }

// DPIFor is pixels / (millimetres / 25.4).
func DPIFor(pixels int, mm float64) float64 {
	if mm <= 0 {
		return 0
	}
	return float64(pixels) / (mm / card.MMPerInch)
}

// MinPhotoWidth and MinPhotoHeight are half the processed target: anything
// smaller did not come out of the geometry processor.
const (
	MinPhotoWidth  = card.PhotoTargetWidth / 2
	MinPhotoHeight = card.PhotoTargetHeight / 2
)

// AssessPhoto checks a photo of width x height pixels placed in a frame of
// frameWMM x frameHMM.
func AssessPhoto(width, height int, frameWMM, frameHMM float64) PhotoQuality {
	q := PhotoQuality{
		ActualWidth:   width,
		ActualHeight:  height,
		DPIHorizontal: DPIFor(width, frameWMM),
		DPIVertical:   DPIFor(height, frameHMM),
	}
	if dpi := q.DPI(); dpi < card.MinPrintDPI {
		q.Errors = append(q.Errors, fmt.Sprintf(
			"photo prints at %.0f DPI (%dx%dpx in a %.2fx%.2fmm frame), minimum is %d DPI",
			dpi, width, height, frameWMM, frameHMM, card.MinPrintDPI))
	}
	if width < MinPhotoWidth || height < MinPhotoHeight {
		q.Errors = append(q.Errors, fmt.Sprintf(
			"photo is %dx%dpx (%.0f DPI), below the minimum %dx%dpx; re-upload it through photo processing",
			width, height, q.DPI(), MinPhotoWidth, MinPhotoHeight))
	}
	if height > 0 {
		aspect := float64(width) / float64(height)
		if dev := math.Abs(aspect-card.PhotoAspect) / card.PhotoAspect; dev > AspectTolerance {
			q.Warnings = append(q.Warnings, fmt.Sprintf(
				"photo aspect %.3f deviates %.0f%% from %.1f; it will be stretched to the frame",
				aspect, dev*100, card.PhotoAspect))
		}
	}
	return q
}

// AssessCardPhoto uses the card's fixed photo frame.
func AssessCardPhoto(width, height int) PhotoQuality {
	return AssessPhoto(width, height, card.PhotoWidthMM, card.PhotoHeightMM)
}
