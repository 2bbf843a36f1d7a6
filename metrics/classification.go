package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/dtreegen/pkg/errors"
)

// Accuracy は正解率（予測が一致したサンプルの割合）を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError("Accuracy", "empty vector")
	}

	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("Accuracy", n, yPred.Len(), 0)
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// AccuracyScore は n×1 行列形式の入力に対して正解率を計算する
func AccuracyScore(yTrue, yPred mat.Matrix) (float64, error) {
	yTrueVec, yPredVec, err := columnPair("AccuracyScore", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return Accuracy(yTrueVec, yPredVec)
}

// ConfusionMatrix は混同行列を返す。行が正解クラス、列が予測クラス。
// クラスコードは 0..nClasses-1 でなければならない。
func ConfusionMatrix(yTrue, yPred mat.Matrix, nClasses int) (*mat.Dense, error) {
	if nClasses <= 0 {
		return nil, errors.NewValidationError("nClasses", "must be positive", nClasses)
	}
	yTrueVec, yPredVec, err := columnPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, err
	}

	cm := mat.NewDense(nClasses, nClasses, nil)
	for i := 0; i < yTrueVec.Len(); i++ {
		t, ok := classCode(yTrueVec.AtVec(i), nClasses)
		if !ok {
			return nil, errors.NewValueError("ConfusionMatrix", "true class out of range")
		}
		p, ok := classCode(yPredVec.AtVec(i), nClasses)
		if !ok {
			return nil, errors.NewValueError("ConfusionMatrix", "predicted class out of range")
		}
		cm.Set(t, p, cm.At(t, p)+1)
	}
	return cm, nil
}

func classCode(v float64, nClasses int) (int, bool) {
	if v != math.Trunc(v) || v < 0 || v >= float64(nClasses) {
		return 0, false
	}
	return int(v), true
}

// columnPair は2つの n×1 行列を VecDense に変換する
func columnPair(op string, yTrue, yPred mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return nil, nil, errors.NewValueError(op, "empty matrix")
	}
	if rTrue != rPred {
		return nil, nil, errors.NewDimensionError(op, rTrue, rPred, 0)
	}
	if cTrue != 1 || cPred != 1 {
		return nil, nil, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}

	yTrueVec := mat.NewVecDense(rTrue, nil)
	yPredVec := mat.NewVecDense(rPred, nil)
	for i := 0; i < rTrue; i++ {
		yTrueVec.SetVec(i, yTrue.At(i, 0))
		yPredVec.SetVec(i, yPred.At(i, 0))
	}
	return yTrueVec, yPredVec, nil
}
