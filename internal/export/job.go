// Package export runs print export jobs: quality gates, capture and
// composition of every card side, page sequencing and PDF assembly. A job
// either yields a complete document or nothing.
package export

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"idcards/internal/card"
	"idcards/internal/cardtemplate"
	"idcards/internal/employee"
)

type Mode string

const (
	ModeBulk   Mode = "bulk"
	ModeSingle Mode = "single"
)

// ErrNoSides rejects a job that selects neither side.
var ErrNoSides = errors.New("export: at least one of front or back must be included")

type Options struct {
	IncludeFront bool    `json:"include_front"`
	IncludeBack  bool    `json:"include_back"`
	QualityScale float64 `json:"quality_scale,omitempty"`
}

func DefaultOptions() Options {
	return Options{IncludeFront: true, IncludeBack: true, QualityScale: card.DefaultCaptureScale}
}

// Job is one export request. Its records and template are private copies.
type Job struct {
	ID        string
	Mode      Mode
	Records   []employee.Record
	Template  cardtemplate.Template
	Options   Options
	CreatedAt time.Time
}

func NewJob(mode Mode, recs []employee.Record, tpl cardtemplate.Template, opts Options, now time.Time) (*Job, error) {
	if !opts.IncludeFront && !opts.IncludeBack {
		return nil, ErrNoSides
	}
	if mode == ModeSingle && len(recs) != 1 {
		return nil, fmt.Errorf("export: single mode needs exactly one record, got %d", len(recs))
	}
	if opts.QualityScale <= 0 {
		opts.QualityScale = card.DefaultCaptureScale
	}
	copied := make([]employee.Record, len(recs))
	for i := range recs {
		copied[i] = recs[i].Clone()
	}
	return &Job{
		ID:        uuid.NewString(),
		Mode:      mode,
		Records:   copied,
		Template:  tpl.Clone(),
		Options:   opts,
		CreatedAt: now,
	}, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Filename is id-card-<employeeId>.pdf for single exports and
// id-cards-bulk-<N>-<yyyymmdd-hhmmss>.pdf otherwise.
func (j *Job) Filename() string {
	if j.Mode == ModeSingle && len(j.Records) == 1 {
		return "id-card-" + unsafeName.ReplaceAllString(j.Records[0].EmployeeID, "_") + ".pdf"
	}
	return fmt.Sprintf("id-cards-bulk-%d-%s.pdf", len(j.Records), j.CreatedAt.Format("20060102-150405"))
}
