package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"idcards/internal/artifact"
	"idcards/internal/cardtemplate"
	"idcards/internal/employee"
	"idcards/internal/jobstore"
	"idcards/internal/progress"
	"idcards/internal/queue"
)

// Request is an export asked for by an operator, as carried on the queue.
type Request struct {
	JobID       string   `json:"job_id"`
	Mode        Mode     `json:"mode"`
	EmployeeIDs []string `json:"employee_ids"`
	TemplateID  string   `json:"template_id"`
	Options     Options  `json:"options"`
	Operator    string   `json:"operator,omitempty"`
}

// TemplateSource resolves template IDs.
type TemplateSource interface {
	Get(id string) (cardtemplate.Template, error)
}

// Service resolves requests into jobs, runs them and stores the artifact.
type Service struct {
	pipeline  *Pipeline
	records   employee.Source
	templates TemplateSource
	sink      artifact.Sink  // nil keeps documents in memory only
	jobs      jobstore.Store // nil disables async status
	queue     queue.Queue    // nil disables async submission
	log       *slog.Logger
}

type ServiceConfig struct {
	Pipeline  *Pipeline
	Records   employee.Source
	Templates TemplateSource
	Sink      artifact.Sink
	Jobs      jobstore.Store
	Queue     queue.Queue
	Log       *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Service{
		pipeline:  cfg.Pipeline,
		records:   cfg.Records,
		templates: cfg.Templates,
		sink:      cfg.Sink,
		jobs:      cfg.Jobs,
		queue:     cfg.Queue,
		log:       cfg.Log,
	}
}

var (
	// ErrAsyncDisabled is returned by Submit without a queue or job store.
	ErrAsyncDisabled = errors.New("export: async exports are not configured")
	// ErrStore wraps artifact sink failures.
	ErrStore = errors.New("export: artifact store failed")
)

// Job resolves req into a runnable job.
func (s *Service) Job(ctx context.Context, req Request) (*Job, error) {
	tpl, err := s.templates.Get(req.TemplateID)
	if err != nil {
		return nil, err
	}
	recs, err := s.records.Records(ctx, req.EmployeeIDs)
	if err != nil {
		return nil, fmt.Errorf("export: load records: %w", err)
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeBulk
	}
	job, err := NewJob(mode, recs, tpl, req.Options, time.Now())
	if err != nil {
		return nil, err
	}
	if req.JobID != "" {
		job.ID = req.JobID
	}
	return job, nil
}

// Outcome is a finished export plus where it was stored.
type Outcome struct {
	*Result
	Location string `json:"location,omitempty"`
}

// Run executes req synchronously and stores the document.
func (s *Service) Run(ctx context.Context, req Request, sink progress.Sink) (*Outcome, error) {
	job, err := s.Job(ctx, req)
	if err != nil {
		return nil, err
	}
	logSink := progress.LogSink(s.log, job.ID)
	res, err := s.pipeline.Run(ctx, job, progress.Multi(sink, logSink))
	if err != nil {
		return nil, err
	}
	out := &Outcome{Result: res}
	if s.sink != nil {
		loc, err := s.sink.Save(ctx, res.Filename, res.PDF)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrStore, res.Filename, err)
		}
		out.Location = loc
	}
	return out, nil
}

// Submit records a queued job and publishes it for the worker.
func (s *Service) Submit(ctx context.Context, req Request) (jobstore.Status, error) {
	if s.queue == nil || s.jobs == nil {
		return jobstore.Status{}, ErrAsyncDisabled
	}
	if !req.Options.IncludeFront && !req.Options.IncludeBack {
		return jobstore.Status{}, ErrNoSides
	}
	if req.Mode == "" {
		req.Mode = ModeBulk
	}
	req.JobID = uuid.NewString()
	now := time.Now().UTC()
	st := jobstore.Status{
		ID:        req.JobID,
		State:     jobstore.StateQueued,
		Mode:      string(req.Mode),
		Operator:  req.Operator,
		Total:     len(req.EmployeeIDs),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.jobs.Put(ctx, st); err != nil {
		return jobstore.Status{}, err
	}
	msg, err := queue.NewMessage(queue.TypeExport, req)
	if err != nil {
		return jobstore.Status{}, err
	}
	if err := s.queue.Publish(ctx, msg); err != nil {
		_ = jobstore.Update(ctx, s.jobs, st.ID, func(j *jobstore.Status) {
			j.State = jobstore.StateFailed
			j.Message = "could not enqueue export"
		})
		return jobstore.Status{}, fmt.Errorf("export: enqueue: %w", err)
	}
	return st, nil
}

// Status returns the stored state of an async job.
func (s *Service) Status(ctx context.Context, id string) (jobstore.Status, error) {
	if s.jobs == nil {
		return jobstore.Status{}, ErrAsyncDisabled
	}
	return s.jobs.Get(ctx, id)
}

// Process runs one queued request and records its outcome.
func (s *Service) Process(ctx context.Context, req Request) error {
	if s.jobs == nil {
		return ErrAsyncDisabled
	}
	set := func(fn func(*jobstore.Status)) {
		if err := jobstore.Update(ctx, s.jobs, req.JobID, fn); err != nil {
			s.log.Warn("export: status update failed", "job", req.JobID, "err", err)
		}
	}
	set(func(j *jobstore.Status) { j.State = jobstore.StateRunning })

	out, err := s.Run(ctx, req, jobstore.ProgressSink(ctx, s.jobs, req.JobID, s.log))
	if err != nil {
		set(func(j *jobstore.Status) {
			j.State = jobstore.StateFailed
			j.Message = err.Error()
			var ee *Error
			if errors.As(err, &ee) {
				j.Issues = ee.Issues
			}
		})
		return err
	}
	set(func(j *jobstore.Status) {
		j.State = jobstore.StateSucceeded
		j.Message = out.Message
		j.Filename = out.Filename
		j.Location = out.Location
		j.Pages = out.Pages
		j.Warnings = out.Warnings
	})
	return nil
}

// Work consumes queued export requests and processes them one at a time
// until ctx is done or the queue closes.
func (s *Service) Work(ctx context.Context) error {
	if s.queue == nil || s.jobs == nil {
		return ErrAsyncDisabled
	}
	messages, err := s.queue.Consume(ctx)
	if err != nil {
		return fmt.Errorf("export: consume: %w", err)
	}
	s.log.Info("export: worker waiting for jobs")
	for msg := range messages {
		if msg.Type != queue.TypeExport {
			continue
		}
		var req Request
		if err := msg.Decode(&req); err != nil {
			s.log.Warn("export: bad queue message", "err", err)
			continue
		}
		s.log.Info("export: processing job", "job", req.JobID, "employees", len(req.EmployeeIDs))
		if err := s.Process(ctx, req); err != nil {
			s.log.Warn("export: job failed", "job", req.JobID, "err", err)
		} else {
			s.log.Info("export: job done", "job", req.JobID)
		}

		// Small delay between jobs
		select {
		case <-ctx.Done():
		case <-time.After(10 * time.Millisecond):
		}
	}
	return ctx.Err()
}
