// Package log defines standard attribute keys for dtreegen log records.
//
// Keys follow a hierarchical naming convention (e.g. "ml.operation",
// "data.samples") so that records from the loader, the trainer and the code
// generator can be filtered uniformly.
package log

// Operation context.
const (
	// ComponentKey identifies the package emitting the record.
	// Examples: "pipeline", "dataset", "tree"
	ComponentKey = "ml.component"

	// OperationKey names the step being performed.
	// Standard values: "ping", "load", "fit", "generate", "report"
	OperationKey = "ml.operation"

	// ModelNameKey identifies the estimator type.
	ModelNameKey = "model.name"
)

// Data shape.
const (
	// SamplesKey is the number of rows (documents) in the training set.
	SamplesKey = "data.samples"

	// FeaturesKey is the length of every feature vector.
	FeaturesKey = "data.features"

	// ClassesKey is the number of distinct labels.
	ClassesKey = "data.classes"
)

// Document store.
const (
	DatabaseKey   = "store.database"
	CollectionKey = "store.collection"
	CommandKey    = "store.command"
)

// Fitted tree and evaluation.
const (
	// DepthKey is the depth of the fitted tree.
	DepthKey = "tree.depth"

	// LeavesKey is the number of leaves of the fitted tree.
	LeavesKey = "tree.leaves"

	// HyperParamsKey carries the estimator hyperparameters.
	HyperParamsKey = "model.hyperparams"

	// AccuracyKey is the resubstitution accuracy on the training data.
	AccuracyKey = "metrics.accuracy"

	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)
