package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"idcards/internal/artifact"
	"idcards/internal/auth"
	"idcards/internal/cardtemplate"
	"idcards/internal/employee"
	"idcards/internal/export"
	"idcards/internal/faceclient"
	"idcards/internal/photo"
	"idcards/internal/progress"
	"idcards/internal/quality"
	"idcards/internal/surface"
)

// jobFlags are shared by export and check.
type jobFlags struct {
	records   string
	template  string
	employees []string
	single    string
	noFront   bool
	noBack    bool
	scale     float64
	font      string
	fontBold  string
	fontWait  time.Duration
}

func (f *jobFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.records, "records", "r", "", "JSON file of employee records (required)")
	fl.StringVarP(&f.template, "template", "t", "", "template file (.json/.yaml); built-in template when empty")
	fl.StringSliceVarP(&f.employees, "employee", "e", nil, "employee IDs to include, in order (default: all)")
	fl.StringVar(&f.single, "single", "", "export one employee's card")
	fl.BoolVar(&f.noFront, "no-front", false, "omit front pages")
	fl.BoolVar(&f.noBack, "no-back", false, "omit the back page")
	fl.Float64Var(&f.scale, "scale", 0, "capture scale (default from the card geometry)")
	fl.StringVar(&f.font, "font", "", "approved regular typeface file")
	fl.StringVar(&f.fontBold, "font-bold", "", "approved bold typeface file")
	fl.DurationVar(&f.fontWait, "font-wait", quality.DefaultFontWait, "how long to wait for the typeface")
	_ = cmd.MarkFlagRequired("records")
}

func (f *jobFlags) build(ctx context.Context) (*export.Pipeline, *export.Job, error) {
	src, err := employee.LoadFile(f.records)
	if err != nil {
		return nil, nil, err
	}
	mode := export.ModeBulk
	ids := f.employees
	if f.single != "" {
		mode, ids = export.ModeSingle, []string{f.single}
	}
	recs, err := src.Records(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	tpl := cardtemplate.Default()
	if f.template != "" {
		if tpl, err = cardtemplate.Load(f.template); err != nil {
			return nil, nil, fmt.Errorf("load template: %w", err)
		}
	}

	opts := export.DefaultOptions()
	opts.IncludeFront, opts.IncludeBack = !f.noFront, !f.noBack
	if f.scale > 0 {
		opts.QualityScale = f.scale
	}
	job, err := export.NewJob(mode, recs, tpl, opts, time.Now())
	if err != nil {
		return nil, nil, err
	}

	fonts := surface.BuiltinFonts()
	if f.font != "" {
		fonts = surface.LoadFonts(f.font, f.fontBold)
	}
	p := export.NewPipeline(export.Config{
		Surfaces: surface.NewRasterSource(fonts, slog.Default()),
		Fonts:    fonts,
		FontWait: f.fontWait,
		Yield:    -1,
		Log:      slog.Default(),
	})
	return p, job, nil
}

func newExportCmd() *cobra.Command {
	var (
		flags jobFlags
		out   string
		quiet bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render cards and write the print PDF",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			p, job, err := flags.build(ctx)
			if err != nil {
				return err
			}
			var sink progress.Sink
			if !quiet {
				sink = progressPrinter(cmd.ErrOrStderr())
			}
			res, err := p.Run(ctx, job, sink)
			if err != nil {
				return err
			}
			dir, err := artifact.NewLocalDir(out)
			if err != nil {
				return err
			}
			loc, err := dir.Save(ctx, res.Filename, res.PDF)
			if err != nil {
				return err
			}
			for _, w := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			fmt.Fprintln(cmd.OutOrStdout(), loc)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "exports", "output directory")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "no progress output")
	return cmd
}

func progressPrinter(w io.Writer) progress.Sink {
	return func(e progress.Event) {
		if e.Total > 0 && e.Status == progress.StatusProcessing {
			fmt.Fprintf(w, "[%d/%d] %s\n", e.Current, e.Total, e.Message)
			return
		}
		fmt.Fprintf(w, "%s: %s\n", e.Status, e.Message)
	}
}

func newCheckCmd() *cobra.Command {
	var flags jobFlags
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the pre-export quality gates without rendering",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			p, job, err := flags.build(ctx)
			if err != nil {
				return err
			}
			report := p.Check(ctx, job)
			for _, w := range report.Warnings {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", w)
			}
			if !report.OK() {
				return fmt.Errorf("%s", report.Format(quality.DefaultReportLimit))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d record(s) ready to print\n", len(job.Records))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newCropCmd() *cobra.Command {
	var (
		out     string
		faceURL string
	)
	cmd := &cobra.Command{
		Use:   "crop <photo>",
		Short: "Normalize a portrait to the card photo frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var faces photo.FaceLocator
			if faceURL != "" {
				faces = faceclient.New(faceURL, false)
			}
			asset, err := photo.NewProcessor(faces, slog.Default()).Process(cmd.Context(), data)
			if err != nil {
				return err
			}
			if out == "" {
				base := filepath.Base(args[0])
				out = base[:len(base)-len(filepath.Ext(base))] + "-card.png"
			}
			if err := os.WriteFile(out, asset.Data, 0o644); err != nil {
				return err
			}
			q := quality.AssessCardPhoto(asset.Width, asset.Height)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %dx%d %.0f DPI\n", out, asset.Width, asset.Height, q.DPI())
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output PNG (default <name>-card.png)")
	cmd.Flags().StringVar(&faceURL, "face-url", "", "face detection service for the crop anchor")
	return cmd
}

func hashSecret(secret string) (string, error) {
	return auth.HashSecret(secret)
}
