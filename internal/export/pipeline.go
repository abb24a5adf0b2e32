package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"idcards/internal/cache"
	"idcards/internal/card"
	"idcards/internal/cardtemplate"
	"idcards/internal/compose"
	"idcards/internal/employee"
	"idcards/internal/locks"
	"idcards/internal/metrics"
	"idcards/internal/pdfdoc"
	"idcards/internal/progress"
	"idcards/internal/quality"
	"idcards/internal/surface"
)

// DefaultYield is the pause between records that keeps the host responsive.
const DefaultYield = 10 * time.Millisecond

type Config struct {
	Surfaces surface.Source
	Fonts    quality.FontChecker // nil skips the font gate
	Locker   locks.Locker        // nil uses a process-local lock
	FontWait time.Duration
	Yield    time.Duration // zero uses DefaultYield, negative disables
	Log      *slog.Logger
}

// Pipeline executes jobs one record at a time.
type Pipeline struct {
	surfaces  surface.Source
	fonts     quality.FontChecker
	locker    locks.Locker
	validator *quality.Validator
	fontWait  time.Duration
	yield     time.Duration
	log       *slog.Logger
}

func NewPipeline(cfg Config) *Pipeline {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Locker == nil {
		cfg.Locker = locks.NewMemory()
	}
	if cfg.Yield == 0 {
		cfg.Yield = DefaultYield
	}
	if cfg.FontWait <= 0 {
		cfg.FontWait = quality.DefaultFontWait
	}
	return &Pipeline{
		surfaces:  cfg.Surfaces,
		fonts:     cfg.Fonts,
		locker:    cfg.Locker,
		validator: quality.NewValidator(cfg.Log),
		fontWait:  cfg.FontWait,
		yield:     cfg.Yield,
		log:       cfg.Log,
	}
}

// Result is a finished document. Nothing is written anywhere by Run.
type Result struct {
	JobID    string          `json:"job_id"`
	Filename string          `json:"filename"`
	PDF      []byte          `json:"-"`
	Cards    int             `json:"cards"`
	Pages    int             `json:"pages"`
	Warnings []quality.Issue `json:"warnings,omitempty"`
	Message  string          `json:"message"`
}

// Check runs the quality gates for job without capturing anything.
func (p *Pipeline) Check(ctx context.Context, job *Job) quality.Report {
	images := cache.New[string, image.Image]()
	defer images.Clear()
	return p.validate(ctx, job, p.surfaces.ForJob(job.Template, images))
}

func (p *Pipeline) validate(ctx context.Context, job *Job, provider surface.Provider) quality.Report {
	tpl := job.Template
	return p.validator.Validate(ctx, quality.Input{
		Template:     &tpl,
		Records:      job.Records,
		IncludeFront: job.Options.IncludeFront,
		IncludeBack:  job.Options.IncludeBack,
		CaptureScale: job.Options.QualityScale,
		Surfaces:     provider,
		Fonts:        p.fonts,
		FontWait:     p.fontWait,
	})
}

// ExportSingle exports one record through the bulk path.
func (p *Pipeline) ExportSingle(ctx context.Context, rec employee.Record, tpl cardtemplate.Template, opts Options, sink progress.Sink) (*Result, error) {
	job, err := NewJob(ModeSingle, []employee.Record{rec}, tpl, opts, time.Now())
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, job, sink)
}

// Run validates and renders job. On any error no document is returned and
// sink receives exactly one error event.
func (p *Pipeline) Run(ctx context.Context, job *Job, sink progress.Sink) (*Result, error) {
	start := time.Now()
	rep := progress.NewReporter(sink, len(job.Records))
	res, err := p.run(ctx, job, rep)

	outcome := "ok"
	switch {
	case err == nil:
		metrics.ExportPages.Add(float64(res.Pages))
	case errors.Is(err, locks.ErrJobInProgress):
		outcome = "busy"
	case errors.Is(err, ErrQualityGate):
		outcome = "blocked"
	default:
		outcome = "failed"
	}
	metrics.ExportJobs.WithLabelValues(string(job.Mode), outcome).Inc()
	metrics.ExportDuration.WithLabelValues(string(job.Mode)).Observe(time.Since(start).Seconds())

	if err != nil {
		p.log.Warn("export: job failed", "job", job.ID, "mode", job.Mode, "outcome", outcome, "err", err)
		rep.Fail(0, err)
		return nil, err
	}
	p.log.Info("export: job complete", "job", job.ID, "mode", job.Mode, "pages", res.Pages, "bytes", len(res.PDF))
	rep.Complete("%s", res.Message)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, job *Job, rep *progress.Reporter) (*Result, error) {
	release, err := p.locker.Acquire(ctx, job.Template.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	images := cache.New[string, image.Image]()
	defer images.Clear()
	provider := p.surfaces.ForJob(job.Template, images)

	rep.Emit(progress.StatusValidating, 0, "", "Validating %d record(s)", len(job.Records))
	report := p.validate(ctx, job, provider)
	for _, issues := range [][]quality.Issue{report.Errors, report.Warnings} {
		for _, is := range issues {
			metrics.QualityIssues.WithLabelValues(string(is.Code), string(is.Severity)).Inc()
		}
	}
	if !report.OK() {
		return nil, gateError(report)
	}

	comp := compose.New(job.Options.QualityScale, p.log)
	doc := pdfdoc.New(pdfdoc.CardSize, job.Filename(), job.CreatedAt)
	steps := PlanPages(job.Records, job.Options)

	for i, st := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 {
			if err := p.pause(ctx); err != nil {
				return nil, err
			}
		}

		var employeeID string
		if st.Record != nil {
			employeeID = st.Record.EmployeeID
			rep.Emit(progress.StatusProcessing, st.Index, employeeID, "Capturing card %d of %d", st.Index, len(job.Records))
		} else {
			rep.Emit(progress.StatusProcessing, len(job.Records), "", "Capturing shared back")
		}

		s := provider.Surface(st.Record, st.Side)
		if s == nil || s.Dimensions().Empty() {
			if st.Side == card.Back {
				return nil, newError(quality.BackTemplateMissing, "back template not rendered", ErrBackTemplateMissing)
			}
			return nil, newError(quality.RenderSurfaceNotReady,
				fmt.Sprintf("Row %d (%s): front card surface is not rendered", st.Index, employeeID))
		}

		page, err := comp.Compose(ctx, s, st.Record, st.Side)
		if err != nil {
			if errors.Is(err, compose.ErrQualityDegradation) {
				return nil, newError(quality.QualityDegradationDetected, err.Error(), ErrQualityDegradation)
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, newError(quality.GenericExportFailure, err.Error(), err)
		}

		var overlays []pdfdoc.Overlay
		if page.Photo != nil {
			overlays = append(overlays, pdfdoc.Overlay{Data: page.Photo.Data, Format: page.Photo.Format, Rect: page.Photo.Rect})
		}
		if err := doc.AddPage(page.Layout, overlays...); err != nil {
			return nil, newError(quality.GenericExportFailure, err.Error(), err)
		}
	}

	rep.Emit(progress.StatusGenerating, len(job.Records), "", "Generating PDF")
	out, err := doc.Bytes()
	if err != nil {
		return nil, newError(quality.GenericExportFailure, fmt.Sprintf("write pdf: %v", err), err)
	}
	pages := doc.PageCount()
	return &Result{
		JobID:    job.ID,
		Filename: job.Filename(),
		PDF:      out,
		Cards:    len(job.Records),
		Pages:    pages,
		Warnings: report.Warnings,
		Message:  fmt.Sprintf("Exported %d card(s) in %d page(s)", len(job.Records), pages),
	}, nil
}

func (p *Pipeline) pause(ctx context.Context) error {
	if p.yield < 0 {
		return nil
	}
	t := time.NewTimer(p.yield)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
