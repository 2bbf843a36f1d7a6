// Package dtreegen trains a small CART decision tree on labeled feature
// vectors stored in MongoDB and turns the fitted tree into source code: a
// single function of nested if/else conditions that can be dropped into a
// C++ (or Go) program without any runtime dependency.
//
// # Workflow
//
// A run performs these steps:
//
//   - ping the MongoDB deployment (a failure is logged; --strict-ping aborts)
//   - read every {features: [...], type: "..."} document of the collection
//   - encode the type labels as integers in first-seen order
//   - fit a DecisionTreeClassifier (gini, max depth 3 by default)
//   - print the feature importances, then the generated function
//
// # Quick Start
//
//	dtreegen --mongo-uri mongodb://localhost:27017 \
//	    --database feature_db --collection features
//
// prints, for example:
//
//	feature importance:  [0 1]
//	std::string classify(float features[]) {
//	    if (features[1] <= 3.000000) {
//	        return "B";
//	    } else {
//	        return "A";
//	    }
//	}
//
// Only the importance line and the function go to stdout; logs go to stderr.
//
// # Packages
//
//   - dataset: MongoDB store, document decoding, label encoding
//   - sklearn/tree: scikit-learn compatible DecisionTreeClassifier
//   - codegen: nested-conditional code generation (cpp, go)
//   - metrics: accuracy and confusion matrix
//   - report: importance line, importance chart, confusion table
//   - pipeline: one end-to-end training run
//   - config: defaults, TOML file, DTREEGEN_* environment, flags
//   - core/model: estimator interfaces and fitted-state tracking
//   - core/parallel: parallel loops used by the split search
//   - pkg/errors, pkg/log, pkg/telemetry: error types, logging, metrics
//
// # Library Use
//
//	clf := tree.NewDecisionTreeClassifier(tree.WithMaxDepth(3))
//	if err := clf.Fit(ds.X, ds.Y); err != nil {
//	    return err
//	}
//	fitted, _ := clf.Tree()
//	gen, _ := codegen.NewGenerator("cpp", "classify")
//	lines, err := gen.Lines(fitted, gen.FeatureNames(nFeatures), ds.Labels)
package dtreegen
