package report

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/dtreegen/pkg/errors"
)

// ConfusionTable renders a confusion matrix (rows = true label, columns =
// predicted label) as a bordered text table headed by the label names.
func ConfusionTable(cm mat.Matrix, labels []string) (string, error) {
	r, c := cm.Dims()
	if r != c || r != len(labels) {
		return "", errors.NewDimensionError("ConfusionTable", len(labels), r, 0)
	}

	headers := append([]string{"true \\ pred"}, labels...)
	rows := make([][]string, r)
	for i := 0; i < r; i++ {
		row := make([]string, 0, c+1)
		row = append(row, labels[i])
		for j := 0; j < c; j++ {
			row = append(row, strconv.FormatFloat(cm.At(i, j), 'f', -1, 64))
		}
		rows[i] = row
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	return t.String(), nil
}
