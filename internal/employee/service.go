package employee

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store is the persistence surface the service needs.
type Store interface {
	Upsert(ctx context.Context, rec Record) (Record, error)
	SetPhoto(ctx context.Context, employeeID string, asset PhotoAsset) error
	Get(ctx context.Context, employeeID string) (Record, error)
	List(ctx context.Context, limit, offset int) ([]Record, error)
	Records(ctx context.Context, employeeIDs []string) ([]Record, error)
}

var _ Store = (*Repository)(nil)

// ErrInvalid rejects records without identity fields.
var ErrInvalid = errors.New("name and employee id required")

// Service coordinates saves and employee_id deduplication.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Save validates identity fields and upserts one employee.
func (s *Service) Save(ctx context.Context, rec Record) (Record, error) {
	rec.Name = strings.TrimSpace(rec.Name)
	rec.EmployeeID = strings.TrimSpace(rec.EmployeeID)
	if rec.Name == "" || rec.EmployeeID == "" {
		return Record{}, ErrInvalid
	}
	return s.store.Upsert(ctx, rec)
}

// SaveResult summarises a batch save.
type SaveResult struct {
	Saved      int
	Duplicates []string // employee IDs that appeared more than once in the batch
}

// SaveMany upserts a batch. When an employee_id repeats inside the batch the
// last occurrence wins and the ID is reported as a duplicate.
func (s *Service) SaveMany(ctx context.Context, recs []Record) (SaveResult, error) {
	var res SaveResult
	last := make(map[string]int, len(recs))
	for i, rec := range recs {
		id := strings.TrimSpace(rec.EmployeeID)
		if _, seen := last[id]; seen {
			res.Duplicates = append(res.Duplicates, id)
		}
		last[id] = i
	}
	for i, rec := range recs {
		if last[strings.TrimSpace(rec.EmployeeID)] != i {
			continue
		}
		if _, err := s.Save(ctx, rec); err != nil {
			return res, fmt.Errorf("row %d: %w", i+1, err)
		}
		res.Saved++
	}
	return res, nil
}

// AttachPhoto stores a processed photo asset for an employee.
func (s *Service) AttachPhoto(ctx context.Context, employeeID string, asset PhotoAsset) error {
	if len(asset.Data) == 0 {
		return errors.New("photo data required")
	}
	return s.store.SetPhoto(ctx, employeeID, asset)
}

// Get returns one employee.
func (s *Service) Get(ctx context.Context, employeeID string) (Record, error) {
	return s.store.Get(ctx, employeeID)
}

// List pages through employees.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Record, error) {
	return s.store.List(ctx, limit, offset)
}

// Records implements Source. Returned records are deep copies.
func (s *Service) Records(ctx context.Context, employeeIDs []string) ([]Record, error) {
	recs, err := s.store.Records(ctx, employeeIDs)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}
	return out, nil
}
