package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"

	_ "golang.org/x/image/webp"

	"idcards/internal/employee"
	"idcards/internal/metrics"
)

// ErrUnreadableImage wraps decode failures of a source photo.
var ErrUnreadableImage = errors.New("unreadable source image")

// FaceLocator finds the main face in an encoded image. A nil box means no
// face was found.
type FaceLocator interface {
	LocateFace(ctx context.Context, data []byte) (*FaceBox, error)
}

// Processor turns uploaded photos into card photo assets.
type Processor struct {
	faces FaceLocator
	log   *slog.Logger
}

// NewProcessor creates a processor. faces may be nil.
func NewProcessor(faces FaceLocator, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{faces: faces, log: log}
}

// Decode reads PNG, JPEG or WebP bytes.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}
	return img, format, nil
}

// EncodePNG writes img as lossless PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Process decodes data, asks for a face hint and returns the normalized PNG
// asset. A failing face locator only costs the hint.
func (p *Processor) Process(ctx context.Context, data []byte) (employee.PhotoAsset, error) {
	src, format, err := Decode(data)
	if err != nil {
		metrics.PhotosProcessed.WithLabelValues("unreadable").Inc()
		return employee.PhotoAsset{}, err
	}

	var face *FaceBox
	if p.faces != nil {
		face, err = p.faces.LocateFace(ctx, data)
		if err != nil {
			p.log.Warn("photo: face location failed, using upward-biased centre crop", "error", err)
			face = nil
		}
	}

	b := src.Bounds()
	out := Normalize(src, face)
	encoded, err := EncodePNG(out)
	if err != nil {
		return employee.PhotoAsset{}, fmt.Errorf("encode photo: %w", err)
	}
	p.log.Debug("photo: normalized",
		"source_format", format,
		"source_width", b.Dx(),
		"source_height", b.Dy(),
		"face_hint", face != nil,
	)
	metrics.PhotosProcessed.WithLabelValues("ok").Inc()
	return employee.PhotoAsset{
		Data:   encoded,
		Width:  out.Bounds().Dx(),
		Height: out.Bounds().Dy(),
		Format: "png",
	}, nil
}
