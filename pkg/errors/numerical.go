package errors

import (
	"fmt"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
)

// NumericalInstabilityError reports NaN or Inf values found in numeric input.
type NumericalInstabilityError struct {
	Operation string    // where the values were found, e.g. "DecisionTreeClassifier.Fit"
	Values    []float64 // offending values (truncated)
	Row       int       // first offending row
	Col       int       // first offending column
}

func (e *NumericalInstabilityError) Error() string {
	parts := make([]string, 0, len(e.Values))
	for i, v := range e.Values {
		if i >= 5 {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, fmt.Sprintf("%.6g", v))
	}
	return fmt.Sprintf("dtreegen: non-finite values detected in %s at (%d, %d). Values: [%s]",
		e.Operation, e.Row, e.Col, strings.Join(parts, ", "))
}

// NewNumericalInstabilityError creates a NumericalInstabilityError with a stack trace.
func NewNumericalInstabilityError(operation string, values []float64, row, col int) error {
	return errors.WithStack(&NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Row:       row,
		Col:       col,
	})
}

// CheckMatrix checks all values in a matrix for NaN or Inf.
func CheckMatrix(operation string, matrix interface{ At(int, int) float64 }, rows, cols int) error {
	var unstable []float64
	firstRow, firstCol := -1, -1

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := matrix.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				if firstRow < 0 {
					firstRow, firstCol = i, j
				}
				unstable = append(unstable, v)
				if len(unstable) >= 10 {
					break
				}
			}
		}
		if len(unstable) > 0 {
			break
		}
	}

	if len(unstable) > 0 {
		return NewNumericalInstabilityError(operation, unstable, firstRow, firstCol)
	}
	return nil
}

// SafeDivide performs division with protection against division by zero.
// Returns 0 if denominator is zero or close to zero.
func SafeDivide(numerator, denominator float64) float64 {
	if math.Abs(denominator) < 1e-10 {
		return 0
	}
	return numerator / denominator
}
