// Package pipeline runs one training job end to end: ping the store, load
// the labeled documents, fit the tree, print the importances and the
// generated classification function.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/dtreegen/codegen"
	"github.com/YuminosukeSato/dtreegen/dataset"
	"github.com/YuminosukeSato/dtreegen/metrics"
	"github.com/YuminosukeSato/dtreegen/pkg/errors"
	"github.com/YuminosukeSato/dtreegen/pkg/log"
	"github.com/YuminosukeSato/dtreegen/pkg/telemetry"
	"github.com/YuminosukeSato/dtreegen/report"
	"github.com/YuminosukeSato/dtreegen/sklearn/tree"
)

// RunIDKey identifies one run in every log record.
const RunIDKey = "run.id"

// Source yields the training documents.
type Source interface {
	Ping(ctx context.Context) error
	Records(ctx context.Context) ([]dataset.Record, error)
}

// counter is implemented by sources that can report their size up front.
type counter interface {
	Count(ctx context.Context) (int64, error)
}

// Options configures a Runner.
type Options struct {
	// StrictPing aborts the run when Ping fails. Otherwise the failure is
	// logged and loading is attempted anyway.
	StrictPing bool

	TreeOptions []tree.Option

	Dialect  string
	Function string

	// PlotFile, when set, receives a feature importance bar chart.
	PlotFile string
	// Report, when non-nil, receives the training-set confusion table.
	Report io.Writer
}

// Result is what a successful run produced.
type Result struct {
	RunID       string
	Dataset     *dataset.Dataset
	Classifier  *tree.DecisionTreeClassifier
	Importances []float64
	Code        []string
	Accuracy    float64
}

// Runner executes the pipeline. It is not safe for concurrent Run calls.
type Runner struct {
	source   Source
	opts     Options
	logger   log.Logger
	recorder *telemetry.Recorder
	now      func() time.Time
}

// NewRunner creates a Runner. recorder may be nil.
func NewRunner(source Source, opts Options, logger log.Logger, recorder *telemetry.Recorder) *Runner {
	if opts.Dialect == "" {
		opts.Dialect = "cpp"
	}
	if opts.Function == "" {
		opts.Function = "classify"
	}
	return &Runner{
		source:   source,
		opts:     opts,
		logger:   logger.With(log.ComponentKey, "pipeline"),
		recorder: recorder,
		now:      time.Now,
	}
}

// Run executes the pipeline and writes exactly two things to w: the feature
// importance line and the generated function. Logs go to the logger only.
func (r *Runner) Run(ctx context.Context, w io.Writer) (res *Result, err error) {
	start := r.now()
	runID := uuid.NewString()
	logger := r.logger.With(RunIDKey, runID)
	defer func() {
		if r.recorder != nil {
			r.recorder.ObserveRun(r.now().Sub(start), err == nil, r.now())
		}
	}()

	gen, err := codegen.NewGenerator(r.opts.Dialect, r.opts.Function)
	if err != nil {
		return nil, err
	}

	if err := r.ping(ctx, logger); err != nil {
		return nil, err
	}

	ds, err := r.load(ctx, logger)
	if err != nil {
		return nil, err
	}
	nSamples, nFeatures := ds.Dims()

	clf := tree.NewDecisionTreeClassifier(r.opts.TreeOptions...)
	fitStart := r.now()
	if err := clf.Fit(ds.X, ds.Y); err != nil {
		return nil, errors.NewModelError("DecisionTreeClassifier.Fit", "fit failed", err)
	}
	fitted, err := clf.Tree()
	if err != nil {
		return nil, err
	}

	pred, err := clf.Predict(ds.X)
	if err != nil {
		return nil, errors.Wrap(err, "predict training data")
	}
	accuracy, err := metrics.AccuracyScore(ds.Y, pred)
	if err != nil {
		return nil, err
	}
	logger.Info("tree fitted",
		log.ModelNameKey, "DecisionTreeClassifier",
		log.HyperParamsKey, clf.GetParams(),
		log.DepthKey, clf.GetDepth(),
		log.LeavesKey, clf.GetNLeaves(),
		log.AccuracyKey, accuracy,
		log.DurationMsKey, r.now().Sub(fitStart).Milliseconds(),
	)
	if r.recorder != nil {
		r.recorder.ObserveTree(clf.GetDepth(), clf.GetNLeaves(), accuracy)
	}

	importances := clf.GetFeatureImportances()
	featureNames := gen.FeatureNames(nFeatures)
	lines, err := gen.Lines(fitted, featureNames, ds.Labels)
	if err != nil {
		return nil, errors.Wrap(err, "generate code")
	}

	if _, err := fmt.Fprintln(w, report.ImportanceLine(importances)); err != nil {
		return nil, errors.Wrap(err, "write importances")
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return nil, errors.Wrap(err, "write generated code")
		}
	}

	if err := r.extras(ds, pred, featureNames, importances, logger); err != nil {
		return nil, err
	}

	logger.Info("run complete",
		log.SamplesKey, nSamples,
		log.DurationMsKey, r.now().Sub(start).Milliseconds(),
	)
	return &Result{
		RunID:       runID,
		Dataset:     ds,
		Classifier:  clf,
		Importances: importances,
		Code:        lines,
		Accuracy:    accuracy,
	}, nil
}

func (r *Runner) ping(ctx context.Context, logger log.Logger) error {
	if err := r.source.Ping(ctx); err != nil {
		if r.opts.StrictPing {
			return errors.Wrap(err, "ping")
		}
		logger.Warn("ping failed, continuing", err, log.OperationKey, "ping")
		return nil
	}
	logger.Info("pinged deployment, connected to MongoDB", log.OperationKey, "ping")
	return nil
}

func (r *Runner) load(ctx context.Context, logger log.Logger) (*dataset.Dataset, error) {
	if c, ok := r.source.(counter); ok {
		if n, err := c.Count(ctx); err == nil {
			logger.Debug("collection size", log.OperationKey, "count", log.SamplesKey, n)
		}
	}

	records, err := r.source.Records(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load training documents")
	}
	ds, err := dataset.Build(records)
	if err != nil {
		return nil, errors.Wrap(err, "build training set")
	}

	nSamples, nFeatures := ds.Dims()
	logger.Info("training data loaded",
		log.OperationKey, "load",
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.ClassesKey, ds.Labels.Len(),
	)
	if r.recorder != nil {
		r.recorder.ObserveDataset(nSamples, nFeatures, ds.Labels.Len())
	}
	return ds, nil
}

// extras は任意の出力（混同行列の表、重要度グラフ）を作る
func (r *Runner) extras(ds *dataset.Dataset, pred mat.Matrix, featureNames []string, importances []float64, logger log.Logger) error {
	if r.opts.Report != nil {
		cm, err := metrics.ConfusionMatrix(ds.Y, pred, ds.Labels.Len())
		if err != nil {
			return err
		}
		table, err := report.ConfusionTable(cm, ds.Labels.Names())
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(r.opts.Report, table); err != nil {
			return errors.Wrap(err, "write report")
		}
	}

	if r.opts.PlotFile != "" {
		if err := report.PlotImportances(r.opts.PlotFile, featureNames, importances); err != nil {
			return err
		}
		logger.Info("importance chart saved", log.OperationKey, "report", "path", r.opts.PlotFile)
	}
	return nil
}
