// Package pipeline runs one EDA pass over a tabular file: load, impute,
// summarize, ask the model, plot, and write the report files into a fresh
// run directory.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/edaloom/internal/analysis"
	"github.com/KaramelBytes/edaloom/internal/dataset"
	"github.com/KaramelBytes/edaloom/internal/insight"
	"github.com/KaramelBytes/edaloom/internal/logging"
	"github.com/KaramelBytes/edaloom/internal/plot"
	"github.com/KaramelBytes/edaloom/internal/report"
	"github.com/KaramelBytes/edaloom/internal/runs"
)

// Stage names, as they appear in StageError and the logs.
const (
	StageSource   = "source"
	StageLoad     = "load"
	StageInsights = "insights"
	StagePlots    = "plots"
	StageReport   = "report"
	StagePDF      = "pdf"
	StageRecord   = "record"
)

// StageError tells which step of a run failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// IsInputError reports whether err was caused by the input file itself
// (unreadable, empty or of an unsupported format) rather than by the system.
func IsInputError(err error) bool {
	var se *StageError
	if errors.As(err, &se) && se.Stage == StageLoad {
		return true
	}
	return errors.Is(err, dataset.ErrEmptyInput) || errors.Is(err, dataset.ErrUnsupportedFormat)
}

// Options toggles the optional parts of a run.
type Options struct {
	ShowPlots bool
	BoxPlots  bool
	PairPlot  bool
	PDF       bool
	Insights  bool
	Load      dataset.LoadOptions
}

// DefaultOptions matches the web form defaults.
func DefaultOptions() Options {
	return Options{ShowPlots: true, Insights: true}
}

// Input names the file to analyze. Body, when set, is read instead of SourcePath.
type Input struct {
	SourcePath  string
	Body        io.Reader
	DisplayName string
	Options     Options
}

// Result is the outcome of a completed run.
type Result struct {
	RunID            string
	Dir              string
	Report           string
	Summary          *analysis.Summary
	Impute           dataset.ImputeResult
	Insights         string
	InsightsFallback bool
	Artifacts        []plot.Artifact
	InsightsPath     string
	ReportPath       string
	PDFPath          string
	Rows             int
	Cols             int
	Run              *runs.Run
}

// Pipeline wires the stages to storage. Insights may be nil, which disables
// the model call for every run.
type Pipeline struct {
	Store     *runs.Store
	Workspace *runs.Workspace
	Insights  *insight.Generator
	Logger    *zap.Logger
}

// Run executes one analysis. A failed run is recorded as failed and its error
// returned; model failures do not fail a run unless the generator is strict.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	log := logging.OrNop(p.Logger)
	name := in.DisplayName
	if name == "" {
		name = filepath.Base(in.SourcePath)
	}
	if !dataset.Supported(name) {
		return nil, &StageError{Stage: StageLoad, Err: fmt.Errorf("%w: %q (use .csv, .tsv, .txt or .xlsx)", dataset.ErrUnsupportedFormat, filepath.Ext(name))}
	}

	r, err := p.Workspace.NewRun(name)
	if err != nil {
		return nil, &StageError{Stage: StageRecord, Err: err}
	}
	if err := p.Store.Create(ctx, r); err != nil {
		_ = p.Workspace.Remove(r.ID)
		return nil, &StageError{Stage: StageRecord, Err: err}
	}
	log = log.With(zap.String("run_id", r.ID), zap.String("source", r.SourceName))
	log.Info("run started")
	start := time.Now()

	// the caller may hang up mid-run; the record still has to land
	recordCtx := context.WithoutCancel(ctx)
	res, err := p.execute(ctx, r, in, log)
	if err == nil {
		if ferr := p.Store.Finish(recordCtx, r); ferr != nil {
			err = &StageError{Stage: StageRecord, Err: ferr}
		}
	}
	if err != nil {
		log.Error("run failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		if ferr := p.Store.Fail(recordCtx, r, err); ferr != nil {
			log.Error("record failure", zap.Error(ferr))
		}
		_ = p.Workspace.SaveManifest(r)
		return nil, err
	}
	if err := p.Workspace.SaveManifest(r); err != nil {
		log.Warn("write manifest", zap.Error(err))
	}
	res.Run = r
	log.Info("run completed", zap.Int("rows", r.Rows), zap.Int("cols", r.Cols),
		zap.Int("artifacts", len(r.Artifacts)), zap.Bool("insights_fallback", r.InsightsFallback),
		zap.Duration("took", r.Duration()))
	return res, nil
}

func (p *Pipeline) execute(ctx context.Context, r *runs.Run, in Input, log *zap.Logger) (*Result, error) {
	dir := p.Workspace.Dir(r.ID)
	res := &Result{RunID: r.ID, Dir: dir}
	opt := in.Options

	src, err := p.saveSource(r, in)
	if err != nil {
		return nil, &StageError{Stage: StageSource, Err: err}
	}

	t := time.Now()
	ds, err := dataset.LoadAs(src, r.SourceName, opt.Load)
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: err}
	}
	before := ds.Missing()
	res.Impute = ds.Impute()
	for _, col := range res.Impute.Skipped {
		log.Warn("column has no values to impute from", zap.String("column", col))
	}
	sum := analysis.Summarize(ds, before)
	res.Summary = sum
	res.Rows, res.Cols = sum.Rows, sum.Cols
	r.Rows, r.Cols = sum.Rows, sum.Cols
	log.Debug("stage done", zap.String("stage", StageLoad), zap.Int("missing", before.Total()), zap.Duration("took", time.Since(t)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t = time.Now()
	res.Insights = insight.DisabledText
	if opt.Insights && p.Insights != nil {
		ir, err := p.Insights.Generate(ctx, sum.Describe)
		if err != nil {
			return nil, &StageError{Stage: StageInsights, Err: err}
		}
		res.Insights = ir.Text
		res.InsightsFallback = ir.Fallback
		r.Model = ir.Model
		r.InsightsFallback = ir.Fallback
	}
	log.Debug("stage done", zap.String("stage", StageInsights), zap.Duration("took", time.Since(t)))

	if opt.ShowPlots {
		t = time.Now()
		arts, err := plot.Render(ds, sum.Corr, dir, plot.Options{BoxPlots: opt.BoxPlots, PairPlot: opt.PairPlot, Logger: log})
		if err != nil {
			return nil, &StageError{Stage: StagePlots, Err: err}
		}
		res.Artifacts = arts
		r.Artifacts = arts
		log.Debug("stage done", zap.String("stage", StagePlots), zap.Int("artifacts", len(arts)), zap.Duration("took", time.Since(t)))
	}

	res.Report = report.Assemble(sum, res.Insights)
	if res.InsightsPath, err = report.WriteInsights(dir, res.Insights); err != nil {
		return nil, &StageError{Stage: StageReport, Err: err}
	}
	r.InsightsFile = filepath.Base(res.InsightsPath)
	if res.ReportPath, err = report.WriteReport(dir, res.Report); err != nil {
		return nil, &StageError{Stage: StageReport, Err: err}
	}
	r.ReportFile = filepath.Base(res.ReportPath)

	if opt.PDF {
		if res.PDFPath, err = report.ExportPDF(dir, "EDA report: "+r.SourceName, res.Artifacts); err != nil {
			return nil, &StageError{Stage: StagePDF, Err: err}
		}
		r.PDFFile = filepath.Base(res.PDFPath)
	}
	return res, nil
}

func (p *Pipeline) saveSource(r *runs.Run, in Input) (string, error) {
	if in.Body != nil {
		return p.Workspace.SaveSource(r, in.Body)
	}
	f, err := os.Open(in.SourcePath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return p.Workspace.SaveSource(r, f)
}
