// Package quality runs the export quality gates: template completeness,
// record completeness, render-surface readiness, font readiness and photo
// print resolution. All gates run before any capture and their findings are
// aggregated into one Report.
package quality

import (
	"fmt"
	"strings"
)

// Severity of an Issue. Warnings never block an export.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Code classifies an Issue.
type Code string

const (
	MissingTemplateConfig      Code = "MissingTemplateConfig"
	MissingRecordField         Code = "MissingRecordField"
	MissingPhoto               Code = "MissingPhoto"
	DuplicateRecord            Code = "DuplicateRecord"
	LowPhotoResolution         Code = "LowPhotoResolution"
	RenderSurfaceNotReady      Code = "RenderSurfaceNotReady"
	FontNotReady               Code = "FontNotReady"
	QualityDegradationDetected Code = "QualityDegradationDetected"
	BackTemplateMissing        Code = "BackTemplateMissing"
	GenericExportFailure       Code = "GenericExportFailure"
)

// Issue is one validation finding.
type Issue struct {
	Code       Code     `json:"code"`
	Field      string   `json:"field"`
	Message    string   `json:"message"`
	Severity   Severity `json:"severity"`
	Row        int      `json:"row,omitempty"` // 1-based record position, 0 for job-level
	EmployeeID string   `json:"employee_id,omitempty"`
}

func (i Issue) String() string {
	if i.Row > 0 {
		who := fmt.Sprintf("Row %d", i.Row)
		if i.EmployeeID != "" {
			who += " (" + i.EmployeeID + ")"
		}
		return who + ": " + i.Message
	}
	return i.Message
}

// DefaultReportLimit bounds how many issues Format lists.
const DefaultReportLimit = 10

// Report aggregates every finding of one validation run.
type Report struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// OK reports whether no error-severity issue was found.
func (r Report) OK() bool { return len(r.Errors) == 0 }

func (r *Report) add(i Issue) {
	if i.Severity == SeverityWarning {
		r.Warnings = append(r.Warnings, i)
		return
	}
	i.Severity = SeverityError
	r.Errors = append(r.Errors, i)
}

// Merge appends other's findings.
func (r *Report) Merge(other Report) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Format renders the errors for people: the message alone for one error, a
// numbered list otherwise, cut at limit with an "...and N more" line.
func (r Report) Format(limit int) string {
	return FormatIssues(r.Errors, limit)
}

// FormatIssues renders issues the way Report.Format does.
func FormatIssues(issues []Issue, limit int) string {
	switch len(issues) {
	case 0:
		return ""
	case 1:
		return issues[0].String()
	}
	if limit <= 0 {
		limit = DefaultReportLimit
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Export blocked by %d problems:", len(issues))
	for i, is := range issues {
		if i == limit {
			fmt.Fprintf(&b, "\n...and %d more", len(issues)-limit)
			break
		}
		fmt.Fprintf(&b, "\n%d. %s", i+1, is.String())
	}
	return b.String()
}
