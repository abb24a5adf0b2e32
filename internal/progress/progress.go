// Package progress reports export progress to an optional caller sink.
package progress

import (
	"fmt"
	"log/slog"
)

type Status string

const (
	StatusValidating Status = "validating"
	StatusProcessing Status = "processing"
	StatusGenerating Status = "generating"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Event is one progress notification.
type Event struct {
	Current         int    `json:"current"`
	Total           int    `json:"total"`
	CurrentEmployee string `json:"current_employee,omitempty"`
	Status          Status `json:"status"`
	Message         string `json:"message"`
}

// Sink receives events synchronously. It must not block for long.
type Sink func(Event)

// Multi fans an event out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	var live []Sink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return func(e Event) {
		for _, s := range live {
			s(e)
		}
	}
}

// LogSink writes events as structured log records.
func LogSink(log *slog.Logger, jobID string) Sink {
	return func(e Event) {
		attrs := []any{"job", jobID, "status", e.Status, "current", e.Current, "total", e.Total}
		if e.CurrentEmployee != "" {
			attrs = append(attrs, "employee_id", e.CurrentEmployee)
		}
		if e.Status == StatusError {
			log.Error("progress: "+e.Message, attrs...)
			return
		}
		log.Info("progress: "+e.Message, attrs...)
	}
}

// Reporter emits events for one job. The zero sink is allowed.
type Reporter struct {
	sink  Sink
	total int
	done  bool
}

func NewReporter(sink Sink, total int) *Reporter {
	return &Reporter{sink: sink, total: total}
}

func (r *Reporter) Emit(status Status, current int, employeeID, format string, args ...any) {
	if r.sink == nil || r.done {
		return
	}
	r.sink(Event{
		Current:         current,
		Total:           r.total,
		CurrentEmployee: employeeID,
		Status:          status,
		Message:         fmt.Sprintf(format, args...),
	})
	if status == StatusComplete || status == StatusError {
		r.done = true
	}
}

// Fail emits the single terminal error event carrying the full failure text.
func (r *Reporter) Fail(current int, err error) {
	r.Emit(StatusError, current, "", "%s", err.Error())
}

// Complete emits the terminal success event.
func (r *Reporter) Complete(format string, args ...any) {
	r.Emit(StatusComplete, r.total, "", format, args...)
}
