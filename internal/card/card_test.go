package card

import (
	"math"
	"testing"
)

func TestPhotoFrameIsFourByFive(t *testing.T) {
	w, h := PhotoFramePx()
	if math.Abs(w-48) > 0.1 || math.Abs(h-60) > 0.1 {
		t.Fatalf("photo frame = %.2fx%.2f px, want about 48x60", w, h)
	}
	if got := w / h; math.Abs(got-PhotoAspect) > 0.001 {
		t.Errorf("photo frame aspect = %.4f, want %.1f", got, PhotoAspect)
	}
}

func TestRectToMMUsesSharedConstant(t *testing.T) {
	full := RectPx{W: FrameWidthPx, H: FrameHeightPx}.ToMM()
	if math.Abs(full.W-WidthMM) > 1e-9 {
		t.Errorf("frame width = %.4f mm, want %.2f", full.W, WidthMM)
	}
	// Height follows the same constant, so it lands within 0.5 mm of the card.
	if math.Abs(full.H-HeightMM) > 0.5 {
		t.Errorf("frame height = %.4f mm, too far from %.2f", full.H, HeightMM)
	}
}

func TestCaptureSizeAndDPI(t *testing.T) {
	w, h := CaptureSize(FrameWidthPx, FrameHeightPx, DefaultCaptureScale)
	if w != 1224 || h != 1952 {
		t.Fatalf("capture size = %dx%d, want 1224x1952", w, h)
	}
	if dpi := CardDPI(DefaultCaptureScale); dpi < MinPrintDPI {
		t.Errorf("default capture dpi = %.1f, below %d", dpi, MinPrintDPI)
	}
	if dpi := CardDPI(2); dpi >= MinPrintDPI {
		t.Errorf("scale 2 dpi = %.1f, expected below %d", dpi, MinPrintDPI)
	}
}
