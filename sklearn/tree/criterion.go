package tree

import (
	"math"

	"github.com/YuminosukeSato/dtreegen/pkg/errors"
)

// impurityFunc は classCounts（重み付きでないクラス度数）と総数 n から不純度を計算する
type impurityFunc func(counts []float64, n float64) float64

// gini はジニ不純度 1 - Σ p_k^2
func gini(counts []float64, n float64) float64 {
	if n <= 0 {
		return 0
	}
	sq := 0.0
	for _, c := range counts {
		p := c / n
		sq += p * p
	}
	return 1 - sq
}

// entropy はシャノンエントロピー -Σ p_k log2 p_k
func entropy(counts []float64, n float64) float64 {
	if n <= 0 {
		return 0
	}
	h := 0.0
	for _, c := range counts {
		if c <= 0 {
			continue
		}
		p := c / n
		h -= p * math.Log2(p)
	}
	return h
}

func criterionFunc(name string) (impurityFunc, error) {
	switch name {
	case "gini":
		return gini, nil
	case "entropy", "log_loss":
		return entropy, nil
	default:
		return nil, errors.NewValidationError("criterion", "must be one of gini, entropy, log_loss", name)
	}
}
