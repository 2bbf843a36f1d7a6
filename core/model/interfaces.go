package model

import (
	"gonum.org/v1/gonum/mat"
)

// Scorer is the interface for models that compute a goodness-of-fit score.
// Classifiers return the mean accuracy; a model that cannot score returns 0.
type Scorer interface {
	Score(X, y mat.Matrix) float64
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the model's hyperparameters.
	SetParams(params map[string]interface{}) error
}

// Classifier combines interfaces for classification models.
type Classifier interface {
	Fitter
	Predictor
	ProbabilisticPredictor
	Scorer
	ParameterGetter
	ParameterSetter

	// Classes returns the class codes seen during fitting, ascending.
	Classes() []int
}

// FeatureImportancer is implemented by models that rank their input features.
type FeatureImportancer interface {
	// GetFeatureImportances returns one non-negative weight per feature.
	GetFeatureImportances() []float64
}
