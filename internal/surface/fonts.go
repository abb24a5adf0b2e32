package surface

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// ErrFontNotReady is returned by WaitReady when the approved typeface is not
// loaded in time or failed to load.
var ErrFontNotReady = errors.New("approved typeface not ready")

// Fonts owns the approved typeface and the built-in fallback faces.
// Rendering never blocks on the approved face: until it is ready the
// fallback is used.
type Fonts struct {
	name  string
	ready chan struct{}

	// written once before ready is closed
	regular, bold *opentype.Font
	loadErr       error

	fallbackRegular, fallbackBold *opentype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

type faceKey struct {
	bold     bool
	approved bool
	size     float64
}

func newFonts(name string) *Fonts {
	reg, err := opentype.Parse(goregular.TTF)
	if err != nil {
		panic(fmt.Sprintf("surface: embedded regular font: %v", err))
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		panic(fmt.Sprintf("surface: embedded bold font: %v", err))
	}
	return &Fonts{
		name:            name,
		ready:           make(chan struct{}),
		fallbackRegular: reg,
		fallbackBold:    bold,
		faces:           make(map[faceKey]font.Face),
	}
}

// BuiltinFonts uses the embedded Go fonts as the approved typeface. It is
// ready immediately.
func BuiltinFonts() *Fonts {
	f := newFonts("Go")
	f.regular, f.bold = f.fallbackRegular, f.fallbackBold
	close(f.ready)
	return f
}

// LoadFonts starts loading the approved typeface from TTF/OTF files in the
// background. boldPath may be empty, in which case the regular face is used
// for bold text.
func LoadFonts(regularPath, boldPath string) *Fonts {
	f := newFonts(regularPath)
	go func() {
		defer close(f.ready)
		reg, err := parseFontFile(regularPath)
		if err != nil {
			f.loadErr = err
			return
		}
		bold := reg
		if boldPath != "" {
			if bold, err = parseFontFile(boldPath); err != nil {
				f.loadErr = err
				return
			}
		}
		f.regular, f.bold = reg, bold
	}()
	return f
}

func parseFontFile(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ft, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return ft, nil
}

// Name is the approved typeface's name or source path.
func (f *Fonts) Name() string { return f.name }

// WaitReady blocks until the approved typeface is loaded, timeout elapses or
// ctx is done.
func (f *Fonts) WaitReady(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-f.ready:
		if f.loadErr != nil {
			return fmt.Errorf("%w: %v", ErrFontNotReady, f.loadErr)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: not loaded within %s", ErrFontNotReady, timeout)
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrFontNotReady, ctx.Err())
	}
}

func (f *Fonts) approvedReady() bool {
	select {
	case <-f.ready:
		return f.loadErr == nil
	default:
		return false
	}
}

// Face returns a face of size px, approved when ready, fallback otherwise.
func (f *Fonts) Face(bold bool, px float64) (font.Face, error) {
	approved := f.approvedReady()
	key := faceKey{bold: bold, approved: approved, size: math.Round(px*100) / 100}

	f.mu.Lock()
	defer f.mu.Unlock()
	if face, ok := f.faces[key]; ok {
		return face, nil
	}
	src := f.fallbackRegular
	switch {
	case approved && bold:
		src = f.bold
	case approved:
		src = f.regular
	case bold:
		src = f.fallbackBold
	}
	face, err := opentype.NewFace(src, &opentype.FaceOptions{Size: key.size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, err
	}
	f.faces[key] = face
	return face, nil
}
