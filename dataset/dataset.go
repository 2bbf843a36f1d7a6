// Package dataset turns labeled feature documents into the matrices consumed
// by the tree trainer and loads those documents from MongoDB.
package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/dtreegen/pkg/errors"
)

// Record is one fetched document: a feature vector and its label.
type Record struct {
	Features []float64
	Label    string
}

// Dataset holds aligned training data. Row i of X and Y come from the same
// record; Y holds label codes from Labels.
type Dataset struct {
	X      *mat.Dense
	Y      *mat.Dense
	Labels *LabelMap
}

// Dims returns the number of samples and features.
func (d *Dataset) Dims() (samples, features int) {
	return d.X.Dims()
}

// Build validates records and materialises them into a Dataset.
//
// Every feature vector must have the length of the first one. The error
// names the first offending document.
func Build(records []Record) (*Dataset, error) {
	if len(records) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "no documents")
	}

	p := len(records[0].Features)
	if p == 0 {
		return nil, errors.NewSchemaError(0, "features", "empty array")
	}

	n := len(records)
	data := make([]float64, 0, n*p)
	labels := make([]string, n)
	for i, rec := range records {
		if len(rec.Features) != p {
			return nil, errors.NewInputShapeErrorFor("loading", fmt.Sprintf("document %d", i), []int{p}, []int{len(rec.Features)})
		}
		data = append(data, rec.Features...)
		labels[i] = rec.Label
	}

	X := mat.NewDense(n, p, data)
	if err := errors.CheckMatrix("Build", X, n, p); err != nil {
		return nil, err
	}

	codes, labelMap := EncodeLabels(labels)
	Y := mat.NewDense(n, 1, nil)
	for i, c := range codes {
		Y.Set(i, 0, float64(c))
	}

	return &Dataset{X: X, Y: Y, Labels: labelMap}, nil
}
