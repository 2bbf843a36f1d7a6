package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う（n×1 のクラス列）
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// ProbabilisticPredictor はクラス確率を返せるモデルのインターフェース
type ProbabilisticPredictor interface {
	// PredictProba は各クラスの確率（n×k）を返す
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}
