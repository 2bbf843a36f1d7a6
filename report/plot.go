package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/dtreegen/pkg/errors"
)

var plotFormats = map[string]bool{
	".png": true, ".svg": true, ".pdf": true, ".eps": true,
	".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true,
}

// PlotImportances draws one bar per feature and saves the chart to path.
// The image format follows the file extension.
func PlotImportances(path string, featureNames []string, importances []float64) error {
	if len(featureNames) != len(importances) {
		return errors.NewDimensionError("PlotImportances", len(importances), len(featureNames), 0)
	}
	if len(importances) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "PlotImportances")
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !plotFormats[ext] {
		return errors.NewValidationError("plot", "unsupported image format", ext)
	}

	p := plot.New()
	p.Title.Text = "Feature importance"
	p.Y.Label.Text = "importance"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(plotter.Values(importances), vg.Points(20))
	if err != nil {
		return errors.Wrap(err, "build bar chart")
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(featureNames...)

	width := vg.Length(len(importances))*vg.Points(30) + vg.Inch
	if width < 4*vg.Inch {
		width = 4 * vg.Inch
	}
	if err := p.Save(width, 3*vg.Inch, path); err != nil {
		return errors.Wrap(err, fmt.Sprintf("save plot to %s", path))
	}
	return nil
}
