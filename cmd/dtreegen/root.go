package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/YuminosukeSato/dtreegen/config"
	"github.com/YuminosukeSato/dtreegen/dataset"
	"github.com/YuminosukeSato/dtreegen/pipeline"
	"github.com/YuminosukeSato/dtreegen/pkg/errors"
	"github.com/YuminosukeSato/dtreegen/pkg/log"
	"github.com/YuminosukeSato/dtreegen/pkg/telemetry"
	"github.com/YuminosukeSato/dtreegen/sklearn/tree"
)

const closeTimeout = 5 * time.Second

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "dtreegen",
		Short: "Train a decision tree from MongoDB and emit it as code",
		Long: `Reads {features, type} documents from a MongoDB collection, fits a
CART decision tree (max depth 3 by default), prints the feature importances
and then the tree as a nested if/else classification function.

Generated code goes to stdout (or --output); logs go to stderr.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			return runTrain(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML config file")
	config.RegisterFlags(cmd.Flags())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func runTrain(cmd *cobra.Command, cfg *config.Config) (err error) {
	ctx := cmd.Context()
	stderr := cmd.ErrOrStderr()

	log.SetupLogger(stderr, cfg.Log.Level)
	logger := log.NewZerologLogger(stderr, log.ParseLevel(cfg.Log.Level), logFormat(cfg.Log.Format, stderr))
	logger.InstallWarnings()

	recorder := telemetry.NewRecorder()
	if cfg.Output.MetricsFile != "" {
		defer func() {
			if werr := recorder.WriteTextfile(cfg.Output.MetricsFile); werr != nil {
				logger.Error("write metrics file", werr, "path", cfg.Output.MetricsFile)
			}
		}()
	}

	logger.Info("opening store",
		log.DatabaseKey, cfg.Mongo.Database,
		log.CollectionKey, cfg.Mongo.Collection,
		"mongo.uri", cfg.Mongo.RedactedURI(),
	)
	store, err := dataset.Open(ctx, dataset.StoreConfig{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Database,
		Collection:     cfg.Mongo.Collection,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
	}, dataset.WithLogger(logger), dataset.WithCommandObserver(recorder))
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if cerr := store.Close(closeCtx); cerr != nil {
			logger.Warn("close store", cerr)
		}
	}()

	opts := pipeline.Options{
		StrictPing:  cfg.Mongo.StrictPing,
		TreeOptions: treeOptions(cfg.Tree),
		Dialect:     cfg.Output.Dialect,
		Function:    cfg.Output.Function,
		PlotFile:    cfg.Output.PlotFile,
	}
	if cfg.Output.Report {
		opts.Report = stderr
	}
	runner := pipeline.NewRunner(store, opts, logger, recorder)

	if cfg.Output.File == "" {
		_, err = runner.Run(ctx, cmd.OutOrStdout())
		return err
	}

	var buf bytes.Buffer
	if _, err = runner.Run(ctx, &buf); err != nil {
		return err
	}
	if err = os.WriteFile(cfg.Output.File, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", cfg.Output.File)
	}
	logger.Info("generated code saved", "path", cfg.Output.File)
	return nil
}

func treeOptions(c config.TreeConfig) []tree.Option {
	return []tree.Option{
		tree.WithMaxDepth(c.MaxDepth),
		tree.WithCriterion(c.Criterion),
		tree.WithMinSamplesSplit(c.MinSamplesSplit),
		tree.WithMinSamplesLeaf(c.MinSamplesLeaf),
		tree.WithMinImpurityDecrease(c.MinImpurityDecrease),
	}
}

// logFormat resolves "auto" to console output on a terminal and JSON otherwise.
func logFormat(format string, w io.Writer) string {
	if format != "auto" {
		return format
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "console"
	}
	return "json"
}
