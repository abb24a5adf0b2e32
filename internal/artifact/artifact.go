// Package artifact stores finished export documents.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"idcards/internal/cloudinary"
)

// Sink persists a finished document and returns where it went.
type Sink interface {
	Save(ctx context.Context, name string, data []byte) (location string, err error)
}

// LocalDir writes documents into a directory. A file appears under its final
// name only once completely written.
type LocalDir struct {
	Dir string
}

func NewLocalDir(dir string) (*LocalDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: create output dir: %w", err)
	}
	return &LocalDir{Dir: dir}, nil
}

func (l *LocalDir) Save(_ context.Context, name string, data []byte) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("artifact: invalid file name %q", name)
	}
	tmp, err := os.CreateTemp(l.Dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("artifact: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("artifact: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("artifact: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("artifact: close: %w", err)
	}
	final := filepath.Join(l.Dir, name)
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("artifact: publish: %w", err)
	}
	return final, nil
}

// Uploader is the subset of the Cloudinary client used for mirroring.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename, publicID, resourceType string) (*cloudinary.UploadResult, error)
}

// Cloudinary uploads documents as raw assets.
type Cloudinary struct {
	up Uploader
}

func NewCloudinary(up Uploader) *Cloudinary { return &Cloudinary{up: up} }

func (c *Cloudinary) Save(ctx context.Context, name string, data []byte) (string, error) {
	res, err := c.up.Upload(ctx, data, name, strings.TrimSuffix(name, filepath.Ext(name)), cloudinary.ResourceRaw)
	if err != nil {
		return "", err
	}
	return res.SecureURL, nil
}

// Mirror saves to primary and then best-effort to each mirror. Only a
// primary failure fails the save.
type Mirror struct {
	primary Sink
	mirrors []Sink
	log     *slog.Logger
}

func NewMirror(primary Sink, log *slog.Logger, mirrors ...Sink) *Mirror {
	if log == nil {
		log = slog.Default()
	}
	return &Mirror{primary: primary, mirrors: mirrors, log: log}
}

var errNoPrimary = errors.New("artifact: no primary sink")

func (m *Mirror) Save(ctx context.Context, name string, data []byte) (string, error) {
	if m.primary == nil {
		return "", errNoPrimary
	}
	loc, err := m.primary.Save(ctx, name, data)
	if err != nil {
		return "", err
	}
	for _, s := range m.mirrors {
		if mloc, err := s.Save(ctx, name, data); err != nil {
			m.log.Warn("artifact: mirror failed", "name", name, "err", err)
		} else {
			m.log.Info("artifact: mirrored", "name", name, "location", mloc)
		}
	}
	return loc, nil
}
