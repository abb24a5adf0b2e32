package employee

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"
)

// PhotoAsset is an encoded, geometry-processed portrait.
type PhotoAsset struct {
	Data   []byte `json:"-"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"` // png, jpeg
}

// Record is one employee as printed on a card.
type Record struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	EmployeeID string      `json:"employee_id"`
	Mobile     string      `json:"mobile"`
	BloodGroup string      `json:"blood_group"`
	Attribute  string      `json:"attribute"`
	IssueDate  string      `json:"issue_date"`
	ValidUntil string      `json:"valid_until"`
	Photo      *PhotoAsset `json:"photo,omitempty"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Clone returns a deep copy so callers can hold a record without sharing
// photo bytes with the source.
func (r Record) Clone() Record {
	out := r
	if r.Photo != nil {
		p := *r.Photo
		p.Data = bytes.Clone(r.Photo.Data)
		out.Photo = &p
	}
	return out
}

// NewPhotoAsset reads dimensions and format from encoded image bytes.
func NewPhotoAsset(data []byte) (*PhotoAsset, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &PhotoAsset{Data: data, Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Source supplies records for export. Records returns the given IDs in the
// order asked for and fails with ErrNotFound naming every unknown ID. An
// empty or nil ID list selects every record in insertion order.
// Implementations never see writes from the export pipeline.
type Source interface {
	Records(ctx context.Context, employeeIDs []string) ([]Record, error)
}
