// Package report formats the human-facing outputs of a run: the feature
// importance line, an importance bar chart and the training-set confusion
// table.
package report

import (
	"strconv"
	"strings"
)

// ImportanceLine formats importances as
//
//	feature importance:  [v0 v1 ...]
//
// using the shortest representation with at most 8 significant digits.
func ImportanceLine(importances []float64) string {
	values := make([]string, len(importances))
	for i, v := range importances {
		values[i] = strconv.FormatFloat(v, 'g', 8, 64)
	}
	return "feature importance:  [" + strings.Join(values, " ") + "]"
}
