// Package pdfdoc assembles composed card pages into a PDF with fpdf. Page
// content streams are written uncompressed and rasters are embedded without
// lossy re-encoding.
package pdfdoc

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	_ "golang.org/x/image/webp"

	"idcards/internal/card"
)

type PaperSize struct {
	Name   string
	Width  float64 // in mm
	Height float64 // in mm
}

// CardSize is a portrait CR80 card.
var CardSize = PaperSize{Name: "CR80", Width: card.WidthMM, Height: card.HeightMM}

// Overlay is an encoded image placed over the page layout.
type Overlay struct {
	Data   []byte
	Format string // png, jpeg, gif or webp
	Rect   card.RectMM
}

// Document is an append-only PDF of full-bleed raster pages.
type Document struct {
	pdf    *fpdf.Fpdf
	size   PaperSize
	images int
}

// New starts an empty document. created is stamped as both creation and
// modification date so identical input produces identical output.
func New(size PaperSize, title string, created time.Time) *Document {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: size.Width, Ht: size.Height},
	})
	pdf.SetCompression(false)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(created)
	pdf.SetModificationDate(created)
	pdf.SetCreator("idcards", false)
	if title != "" {
		pdf.SetTitle(title, true)
	}
	return &Document{pdf: pdf, size: size}
}

func (d *Document) PaperSize() PaperSize { return d.size }

func (d *Document) PageCount() int { return d.pdf.PageCount() }

// AddPage appends a page with layout stretched over the full page and each
// overlay drawn on top in order.
func (d *Document) AddPage(layout image.Image, overlays ...Overlay) error {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	if err := enc.Encode(&buf, layout); err != nil {
		return fmt.Errorf("pdfdoc: encode layout: %w", err)
	}

	d.pdf.AddPage()
	if err := d.place(buf.Bytes(), "png", card.RectMM{W: d.size.Width, H: d.size.Height}); err != nil {
		return err
	}
	for _, o := range overlays {
		if err := d.place(o.Data, o.Format, o.Rect); err != nil {
			return err
		}
	}
	return d.pdf.Error()
}

func (d *Document) place(data []byte, format string, r card.RectMM) error {
	typ, data, err := imageType(data, format)
	if err != nil {
		return err
	}
	d.images++
	name := fmt.Sprintf("img-%d", d.images)
	opts := fpdf.ImageOptions{ImageType: typ}
	d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("pdfdoc: register %s image: %w", typ, err)
	}
	d.pdf.ImageOptions(name, r.X, r.Y, r.W, r.H, false, opts, 0, "")
	return d.pdf.Error()
}

// imageType maps an asset format to an fpdf image type. WebP has no PDF
// filter, so its decoded pixels are re-wrapped as lossless PNG.
func imageType(data []byte, format string) (string, []byte, error) {
	switch strings.ToLower(format) {
	case "png":
		return "PNG", data, nil
	case "jpeg", "jpg":
		return "JPG", data, nil
	case "gif":
		return "GIF", data, nil
	case "webp":
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return "", nil, fmt.Errorf("pdfdoc: decode webp: %w", err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return "", nil, fmt.Errorf("pdfdoc: wrap webp: %w", err)
		}
		return "PNG", buf.Bytes(), nil
	default:
		return "", nil, fmt.Errorf("pdfdoc: unsupported image format %q", format)
	}
}

// WriteTo implements io.WriterTo.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	err := d.pdf.Output(cw)
	return cw.n, err
}

func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type countWriter struct {
	w io.Writer
	n int64
}

func (cw *countWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
