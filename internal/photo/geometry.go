// Package photo normalizes source portraits into fixed-size card photo
// assets.
//
// Every asset leaves this package at exactly card.PhotoTargetWidth x
// card.PhotoTargetHeight (4:5). At the 16.93 x 21.17 mm photo frame that is
// about 1920 DPI, far above the 300 DPI print floor.
package photo

import (
	"image"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"

	"idcards/internal/card"
)

// FaceBox is a detected face in source pixel coordinates.
type FaceBox struct {
	X1, Y1, X2, Y2 int
}

func (f FaceBox) center() (float64, float64) {
	return float64(f.X1+f.X2) / 2, float64(f.Y1+f.Y2) / 2
}

// valid reports whether the box has area and overlaps the source.
func (f FaceBox) valid(w, h int) bool {
	return f.X2 > f.X1 && f.Y2 > f.Y1 && f.X1 < w && f.Y1 < h && f.X2 > 0 && f.Y2 > 0
}

// FaceAnchor is where the face midpoint (or, without a face, the crop slack)
// lands vertically: 25% from the top.
const FaceAnchor = 0.25

// CropRect returns the largest card.PhotoAspect region of a w x h source.
// With a face the crop is centred horizontally on it and the face midpoint
// sits at FaceAnchor of the crop height; otherwise the crop is centred
// horizontally and offset 25% into the vertical slack. The result always
// lies inside the source.
func CropRect(w, h int, face *FaceBox) image.Rectangle {
	if w <= 0 || h <= 0 {
		return image.Rectangle{}
	}
	cropW, cropH := w, h
	if float64(w)/float64(h) > card.PhotoAspect {
		cropW = int(math.Round(float64(h) * card.PhotoAspect))
	} else {
		cropH = int(math.Round(float64(w) / card.PhotoAspect))
	}
	cropW = min(max(cropW, 1), w)
	cropH = min(max(cropH, 1), h)

	var x0, y0 float64
	if face != nil && face.valid(w, h) {
		cx, cy := face.center()
		x0 = cx - float64(cropW)/2
		y0 = cy - float64(cropH)*FaceAnchor
	} else {
		x0 = float64(w-cropW) / 2
		y0 = float64(h-cropH) * FaceAnchor
	}
	x := clamp(int(math.Round(x0)), 0, w-cropW)
	y := clamp(int(math.Round(y0)), 0, h-cropH)
	return image.Rect(x, y, x+cropW, y+cropH)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Normalize crops src with CropRect and always resizes to the fixed target
// with Catmull-Rom. Alpha is preserved. src is not modified.
func Normalize(src image.Image, face *FaceBox) *image.NRGBA {
	b := src.Bounds()
	crop := CropRect(b.Dx(), b.Dy(), face).Add(b.Min)
	dst := image.NewNRGBA(image.Rect(0, 0, card.PhotoTargetWidth, card.PhotoTargetHeight))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	return dst
}
