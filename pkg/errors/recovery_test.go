package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecover(t *testing.T) {
	t.Run("panic becomes PanicError", func(t *testing.T) {
		fn := func() (err error) {
			defer Recover(&err, "codegen.Lines")
			var nodes []int
			_ = nodes[3]
			return nil
		}

		err := fn()
		require.Error(t, err)

		var panicErr *PanicError
		require.True(t, errors.As(err, &panicErr))
		assert.Equal(t, "codegen.Lines", panicErr.Operation)
		assert.NotEmpty(t, panicErr.StackTrace)
		assert.Contains(t, panicErr.String(), "Stack trace:")
	})

	t.Run("no panic keeps nil", func(t *testing.T) {
		fn := func() (err error) {
			defer Recover(&err, "noop")
			return nil
		}
		assert.NoError(t, fn())
	})

	t.Run("existing error is wrapped", func(t *testing.T) {
		original := fmt.Errorf("original error")
		fn := func() (err error) {
			defer Recover(&err, "op")
			err = original
			panic("boom")
		}

		err := fn()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panic in op: boom")
		assert.True(t, errors.Is(err, original))
	})
}

func TestCheckMatrix(t *testing.T) {
	data := [][]float64{{1, 2}, {3, nan()}}
	m := matrixFunc(func(i, j int) float64 { return data[i][j] })

	err := CheckMatrix("Fit", m, 2, 2)
	require.Error(t, err)

	var numErr *NumericalInstabilityError
	require.True(t, As(err, &numErr))
	assert.Equal(t, 1, numErr.Row)
	assert.Equal(t, 1, numErr.Col)

	assert.NoError(t, CheckMatrix("Fit", m, 1, 2))
}

func TestSafeDivide(t *testing.T) {
	assert.Equal(t, 0.0, SafeDivide(1, 0))
	assert.Equal(t, 0.5, SafeDivide(1, 2))
}

type matrixFunc func(i, j int) float64

func (f matrixFunc) At(i, j int) float64 { return f(i, j) }

func nan() float64 {
	zero := 0.0
	return zero / zero
}
