package export

import (
	"errors"

	"idcards/internal/quality"
)

var (
	ErrQualityGate         = errors.New("export: quality gate failed")
	ErrQualityDegradation  = errors.New("export: quality degradation detected")
	ErrBackTemplateMissing = errors.New("export: back template not rendered")
)

// Error is the failure of a whole job. Message is ready to show to people.
type Error struct {
	Code    quality.Code
	Message string
	Issues  []quality.Issue
	kinds   []error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() []error { return e.kinds }

func gateError(r quality.Report) *Error {
	e := &Error{
		Code:    r.Errors[0].Code,
		Message: r.Format(quality.DefaultReportLimit),
		Issues:  r.Errors,
		kinds:   []error{ErrQualityGate},
	}
	for _, is := range r.Errors {
		if is.Code == quality.BackTemplateMissing {
			e.kinds = append(e.kinds, ErrBackTemplateMissing)
			break
		}
	}
	return e
}

func newError(code quality.Code, msg string, cause ...error) *Error {
	return &Error{
		Code:    code,
		Message: msg,
		Issues:  []quality.Issue{{Code: code, Message: msg, Severity: quality.SeverityError}},
		kinds:   cause,
	}
}
