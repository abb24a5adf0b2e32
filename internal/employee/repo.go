package employee

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Schema creates the employees table.
const Schema = `
CREATE TABLE IF NOT EXISTS employees (
	id           UUID PRIMARY KEY,
	employee_id  TEXT NOT NULL UNIQUE,
	name         TEXT NOT NULL,
	mobile       TEXT NOT NULL DEFAULT '',
	blood_group  TEXT NOT NULL DEFAULT '',
	attribute    TEXT NOT NULL DEFAULT '',
	issue_date   TEXT NOT NULL DEFAULT '',
	valid_until  TEXT NOT NULL DEFAULT '',
	photo        BYTEA,
	photo_width  INT NOT NULL DEFAULT 0,
	photo_height INT NOT NULL DEFAULT 0,
	photo_format TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// ErrNotFound is returned when no employee matches.
var ErrNotFound = errors.New("employee not found")

const selectColumns = `id, employee_id, name, mobile, blood_group, attribute, issue_date, valid_until,
	photo, photo_width, photo_height, photo_format, updated_at`

// Repository persists employees in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the table when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, Schema)
	return err
}

// Upsert inserts or updates by employee_id, which is the natural key. The
// stored photo is kept when rec.Photo is nil.
func (r *Repository) Upsert(ctx context.Context, rec Record) (Record, error) {
	if rec.EmployeeID == "" {
		return Record{}, errors.New("employee id required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	var (
		photo         []byte
		width, height int
		format        string
	)
	if rec.Photo != nil {
		photo, width, height, format = rec.Photo.Data, rec.Photo.Width, rec.Photo.Height, rec.Photo.Format
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO employees (id, employee_id, name, mobile, blood_group, attribute, issue_date, valid_until,
			photo, photo_width, photo_height, photo_format)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (employee_id) DO UPDATE SET
			name = EXCLUDED.name,
			mobile = EXCLUDED.mobile,
			blood_group = EXCLUDED.blood_group,
			attribute = EXCLUDED.attribute,
			issue_date = EXCLUDED.issue_date,
			valid_until = EXCLUDED.valid_until,
			photo = COALESCE(EXCLUDED.photo, employees.photo),
			photo_width = CASE WHEN EXCLUDED.photo IS NULL THEN employees.photo_width ELSE EXCLUDED.photo_width END,
			photo_height = CASE WHEN EXCLUDED.photo IS NULL THEN employees.photo_height ELSE EXCLUDED.photo_height END,
			photo_format = CASE WHEN EXCLUDED.photo IS NULL THEN employees.photo_format ELSE EXCLUDED.photo_format END,
			updated_at = NOW()
		RETURNING id, updated_at
	`, rec.ID, rec.EmployeeID, rec.Name, rec.Mobile, rec.BloodGroup, rec.Attribute, rec.IssueDate, rec.ValidUntil,
		photo, width, height, format)
	if err := row.Scan(&rec.ID, &rec.UpdatedAt); err != nil {
		return Record{}, fmt.Errorf("upsert employee %s: %w", rec.EmployeeID, err)
	}
	return rec, nil
}

// SetPhoto replaces an employee's photo asset.
func (r *Repository) SetPhoto(ctx context.Context, employeeID string, asset PhotoAsset) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE employees
		SET photo = $2, photo_width = $3, photo_height = $4, photo_format = $5, updated_at = NOW()
		WHERE employee_id = $1
	`, employeeID, asset.Data, asset.Width, asset.Height, asset.Format)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns one employee by employee_id.
func (r *Repository) Get(ctx context.Context, employeeID string) (Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM employees WHERE employee_id = $1`, employeeID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// List returns employees ordered by employee_id.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return r.query(ctx, `SELECT `+selectColumns+` FROM employees ORDER BY employee_id LIMIT $1 OFFSET $2`, limit, offset)
}

// Records returns the requested employees in the order the IDs were given.
// Unknown IDs are reported together in one error. An empty ID list selects
// every employee in insertion order.
func (r *Repository) Records(ctx context.Context, employeeIDs []string) ([]Record, error) {
	if len(employeeIDs) == 0 {
		return r.query(ctx, `SELECT `+selectColumns+` FROM employees ORDER BY created_at, employee_id`)
	}
	placeholders := make([]string, len(employeeIDs))
	args := make([]any, len(employeeIDs))
	for i, id := range employeeIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	recs, err := r.query(ctx,
		`SELECT `+selectColumns+` FROM employees WHERE employee_id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Record, len(recs))
	for _, rec := range recs {
		byID[rec.EmployeeID] = rec
	}
	return orderByIDs(byID, employeeIDs)
}

func (r *Repository) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func orderByIDs(byID map[string]Record, employeeIDs []string) ([]Record, error) {
	out := make([]Record, 0, len(employeeIDs))
	var missing []string
	for _, id := range employeeIDs {
		rec, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, rec)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.Join(missing, ", "))
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var (
		rec           Record
		photo         []byte
		width, height int
		format        string
		updated       time.Time
	)
	if err := s.Scan(&rec.ID, &rec.EmployeeID, &rec.Name, &rec.Mobile, &rec.BloodGroup, &rec.Attribute,
		&rec.IssueDate, &rec.ValidUntil, &photo, &width, &height, &format, &updated); err != nil {
		return Record{}, err
	}
	rec.UpdatedAt = updated
	if len(photo) > 0 {
		rec.Photo = &PhotoAsset{Data: photo, Width: width, Height: height, Format: format}
	}
	return rec, nil
}
