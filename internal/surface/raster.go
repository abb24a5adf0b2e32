package surface

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"sync"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"idcards/internal/card"
	"idcards/internal/cardtemplate"
	"idcards/internal/employee"
)

// RasterSource renders template surfaces in memory.
type RasterSource struct {
	fonts *Fonts
	log   *slog.Logger
}

// NewRasterSource creates a source drawing text with fonts.
func NewRasterSource(fonts *Fonts, log *slog.Logger) *RasterSource {
	if fonts == nil {
		fonts = BuiltinFonts()
	}
	if log == nil {
		log = slog.Default()
	}
	return &RasterSource{fonts: fonts, log: log}
}

// Fonts exposes the source's typeface set for readiness checks.
func (s *RasterSource) Fonts() *Fonts { return s.fonts }

// ForJob binds the source to one template and one job cache.
func (s *RasterSource) ForJob(tpl cardtemplate.Template, images *ImageCache) Provider {
	return &rasterProvider{tpl: tpl, fonts: s.fonts, images: images, log: s.log}
}

type rasterProvider struct {
	tpl    cardtemplate.Template
	fonts  *Fonts
	images *ImageCache
	log    *slog.Logger
}

func (p *rasterProvider) Surface(rec *employee.Record, side card.Side) Surface {
	cfg := p.tpl.SideFor(string(side))
	if cfg == nil {
		return nil
	}
	r := &Raster{
		side:   side,
		cfg:    cfg,
		fonts:  p.fonts,
		images: p.images,
		log:    p.log,
	}
	switch side {
	case card.Front:
		if rec == nil {
			return nil
		}
		r.rec = rec
	case card.Back:
		// template-only, record data never reaches the back
	}
	return r
}

// Raster is a Surface drawn from a template side and, for the front, one
// record.
type Raster struct {
	side   card.Side
	cfg    *cardtemplate.Side
	rec    *employee.Record
	fonts  *Fonts
	images *ImageCache
	log    *slog.Logger

	mu          sync.Mutex
	photoHidden int
}

func (r *Raster) Dimensions() Dimensions {
	return Dimensions{Width: card.FrameWidthPx, Height: card.FrameHeightPx}
}

func (r *Raster) PhotoRegion() (card.RectPx, bool) {
	if r.side != card.Front || r.cfg.Photo == nil {
		return card.RectPx{}, false
	}
	w, h := card.PhotoFramePx()
	return card.RectPx{X: r.cfg.Photo.X, Y: r.cfg.Photo.Y, W: w, H: h}, true
}

// HidePhoto nests; the photo reappears when every restore has run.
func (r *Raster) HidePhoto() func() {
	r.mu.Lock()
	r.photoHidden++
	r.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			r.photoHidden--
			r.mu.Unlock()
		})
	}
}

// PhotoHidden reports the current visibility state.
func (r *Raster) PhotoHidden() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.photoHidden > 0
}

func (r *Raster) CaptureRaster(ctx context.Context, scale float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if scale <= 0 {
		return nil, fmt.Errorf("invalid capture scale %v", scale)
	}
	w, h := card.CaptureSize(card.FrameWidthPx, card.FrameHeightPx, scale)
	dc := gg.NewContext(w, h)

	bg := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	if r.cfg.Background != "" {
		c, err := cardtemplate.ParseColor(r.cfg.Background)
		if err != nil {
			return nil, err
		}
		bg = c
	}
	dc.SetColor(bg)
	dc.Clear()

	for i, sh := range r.cfg.Shapes {
		if err := drawShape(dc, sh, scale); err != nil {
			return nil, fmt.Errorf("shape %d: %w", i, err)
		}
	}

	if r.side == card.Front && r.rec != nil {
		if err := r.drawRecord(dc, scale); err != nil {
			return nil, err
		}
	}
	for _, st := range r.cfg.Texts {
		if err := r.drawText(dc, st.Text, st.Style, scale); err != nil {
			return nil, err
		}
	}

	if !r.PhotoHidden() {
		if err := r.drawPhoto(dc, scale); err != nil {
			return nil, err
		}
	}
	return dc.Image(), nil
}

func drawShape(dc *gg.Context, sh cardtemplate.Shape, s float64) error {
	c, err := cardtemplate.ParseColor(sh.Color)
	if err != nil {
		return err
	}
	dc.SetColor(c)
	lw := sh.StrokeWidth
	if lw <= 0 {
		lw = 1
	}
	dc.SetLineWidth(lw * s)
	switch sh.Kind {
	case cardtemplate.ShapeLine:
		dc.DrawLine(sh.X*s, sh.Y*s, sh.X2*s, sh.Y2*s)
		dc.Stroke()
		return nil
	case cardtemplate.ShapeRect:
		dc.DrawRectangle(sh.X*s, sh.Y*s, sh.W*s, sh.H*s)
	case cardtemplate.ShapeCircle:
		dc.DrawCircle(sh.X*s, sh.Y*s, sh.R*s)
	default:
		return fmt.Errorf("unknown shape kind %q", sh.Kind)
	}
	if sh.Fill {
		dc.Fill()
	} else {
		dc.Stroke()
	}
	return nil
}

func (r *Raster) drawRecord(dc *gg.Context, s float64) error {
	if st := r.cfg.NameStyle; st != nil {
		if err := r.drawText(dc, r.rec.Name, *st, s); err != nil {
			return err
		}
	}
	if st := r.cfg.EmployeeIDStyle; st != nil {
		if err := r.drawText(dc, r.rec.EmployeeID, *st, s); err != nil {
			return err
		}
	}
	d := r.cfg.Details
	if d == nil {
		return nil
	}
	style := d.TextStyle
	for _, line := range detailLines(r.rec) {
		if err := r.drawText(dc, line, style, s); err != nil {
			return err
		}
		style.Y += d.LineHeight
	}
	return nil
}

func detailLines(rec *employee.Record) []string {
	var out []string
	add := func(label, v string) {
		if v != "" {
			out = append(out, label+v)
		}
	}
	add("", rec.Attribute)
	add("Mobile: ", rec.Mobile)
	add("Blood Group: ", rec.BloodGroup)
	add("Issued: ", rec.IssueDate)
	add("Valid Until: ", rec.ValidUntil)
	return out
}

func (r *Raster) drawText(dc *gg.Context, text string, st cardtemplate.TextStyle, s float64) error {
	if text == "" || st.Size <= 0 {
		return nil
	}
	face, err := r.fonts.Face(st.Bold(), st.Size*s)
	if err != nil {
		return err
	}
	c := color.NRGBA{A: 255}
	if st.Color != "" {
		if c, err = cardtemplate.ParseColor(st.Color); err != nil {
			return err
		}
	}
	dc.SetFontFace(face)
	dc.SetColor(c)
	ax := 0.0
	switch st.Align {
	case "center":
		ax = 0.5
	case "right":
		ax = 1
	}
	dc.DrawStringAnchored(text, st.X*s, st.Y*s, ax, 0)
	return nil
}

// drawPhoto paints the record photo into its frame for preview captures.
// Export captures hide it and overlay the original asset instead.
func (r *Raster) drawPhoto(dc *gg.Context, s float64) error {
	region, ok := r.PhotoRegion()
	if !ok || r.rec == nil || r.rec.Photo == nil || len(r.rec.Photo.Data) == 0 {
		return nil
	}
	load := func() (image.Image, error) {
		img, _, err := image.Decode(bytes.NewReader(r.rec.Photo.Data))
		return img, err
	}
	var (
		img image.Image
		err error
	)
	if r.images != nil {
		img, err = r.images.GetOrLoad("photo:"+r.rec.EmployeeID, load)
	} else {
		img, err = load()
	}
	if err != nil {
		return fmt.Errorf("decode photo for %s: %w", r.rec.EmployeeID, err)
	}
	dst, ok := dc.Image().(draw.Image)
	if !ok {
		return fmt.Errorf("capture target is not drawable")
	}
	rect := image.Rect(
		int(region.X*s), int(region.Y*s),
		int((region.X+region.W)*s), int((region.Y+region.H)*s),
	)
	xdraw.CatmullRom.Scale(dst, rect, img, img.Bounds(), draw.Over, nil)
	return nil
}
