package employee

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// fileRecord is the on-disk shape used by cardctl: photos are referenced by
// path relative to the records file.
type fileRecord struct {
	Record
	PhotoPath string `json:"photo_path"`
}

// FileSource serves records loaded from a JSON file.
type FileSource struct {
	records []Record
}

// LoadFile reads a JSON array of records. A missing photo file leaves the
// record without a photo so the quality gates can report it.
func LoadFile(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []fileRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	base := filepath.Dir(path)
	out := make([]Record, 0, len(raw))
	for _, fr := range raw {
		rec := fr.Record
		if fr.PhotoPath != "" {
			p := fr.PhotoPath
			if !filepath.IsAbs(p) {
				p = filepath.Join(base, p)
			}
			if b, err := os.ReadFile(p); err == nil {
				if asset, err := NewPhotoAsset(b); err == nil {
					rec.Photo = asset
				}
			}
		}
		out = append(out, rec)
	}
	return &FileSource{records: out}, nil
}

// NewMemorySource serves a fixed slice of records.
func NewMemorySource(recs []Record) *FileSource {
	return &FileSource{records: recs}
}

// All returns copies of every record in file order.
func (f *FileSource) All() []Record {
	out := make([]Record, len(f.records))
	for i, r := range f.records {
		out[i] = r.Clone()
	}
	return out
}

// Records implements Source. An empty ID list selects everything.
func (f *FileSource) Records(_ context.Context, employeeIDs []string) ([]Record, error) {
	if len(employeeIDs) == 0 {
		return f.All(), nil
	}
	byID := make(map[string]Record, len(f.records))
	for _, r := range f.records {
		byID[r.EmployeeID] = r.Clone()
	}
	return orderByIDs(byID, employeeIDs)
}
