// Package telemetry collects Prometheus metrics for a single dtreegen run and
// writes them in the text exposition format, suitable for the node exporter
// textfile collector.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/YuminosukeSato/dtreegen/pkg/errors"
)

const namespace = "dtreegen"

// Recorder owns a private registry so that runs and tests never share state.
type Recorder struct {
	registry *prometheus.Registry

	storeOps      *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec

	samples  prometheus.Gauge
	features prometheus.Gauge
	classes  prometheus.Gauge

	depth    prometheus.Gauge
	leaves   prometheus.Gauge
	accuracy prometheus.Gauge

	runDuration prometheus.Gauge
	lastSuccess prometheus.Gauge
}

// NewRecorder registers every dtreegen metric on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_commands_total",
			Help:      "MongoDB commands issued, by command name and status.",
		}, []string{"command", "status"}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_command_duration_seconds",
			Help:      "Duration of MongoDB commands.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		samples:     gauge("dataset_samples", "Documents loaded for training."),
		features:    gauge("dataset_features", "Length of every feature vector."),
		classes:     gauge("dataset_classes", "Distinct labels in the training set."),
		depth:       gauge("tree_depth", "Depth of the fitted tree."),
		leaves:      gauge("tree_leaves", "Leaves of the fitted tree."),
		accuracy:    gauge("tree_training_accuracy", "Resubstitution accuracy on the training set."),
		runDuration: gauge("run_duration_seconds", "Wall time of the last run."),
		lastSuccess: gauge("last_success_timestamp_seconds", "Unix time of the last successful run."),
	}

	r.registry.MustRegister(
		r.storeOps, r.storeDuration,
		r.samples, r.features, r.classes,
		r.depth, r.leaves, r.accuracy,
		r.runDuration, r.lastSuccess,
	)
	return r
}

func gauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	})
}

// ObserveCommand records one finished store command.
func (r *Recorder) ObserveCommand(command string, succeeded bool, d time.Duration) {
	status := "success"
	if !succeeded {
		status = "failed"
	}
	r.storeOps.WithLabelValues(command, status).Inc()
	r.storeDuration.WithLabelValues(command).Observe(d.Seconds())
}

// ObserveDataset records the shape of the training data.
func (r *Recorder) ObserveDataset(samples, features, classes int) {
	r.samples.Set(float64(samples))
	r.features.Set(float64(features))
	r.classes.Set(float64(classes))
}

// ObserveTree records the fitted tree.
func (r *Recorder) ObserveTree(depth, leaves int, accuracy float64) {
	r.depth.Set(float64(depth))
	r.leaves.Set(float64(leaves))
	r.accuracy.Set(accuracy)
}

// ObserveRun records the run's wall time, and its end time when it succeeded.
func (r *Recorder) ObserveRun(d time.Duration, succeeded bool, now time.Time) {
	r.runDuration.Set(d.Seconds())
	if succeeded {
		r.lastSuccess.Set(float64(now.Unix()))
	}
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile atomically writes every metric to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return errors.Wrapf(err, "write metrics to %s", path)
	}
	return nil
}
