package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect accuracy",
			yTrue: []float64{0, 1, 2, 1, 0},
			yPred: []float64{0, 1, 2, 1, 0},
			want:  1.0,
		},
		{
			name:  "80% accuracy",
			yTrue: []float64{0, 1, 2, 1, 0},
			yPred: []float64{0, 1, 1, 1, 0},
			want:  0.8,
		},
		{
			name:  "Zero accuracy",
			yTrue: []float64{0, 0, 0},
			yPred: []float64{1, 1, 1},
			want:  0.0,
		},
		{
			name:    "Empty vectors",
			wantErr: true,
		},
		{
			name:    "Length mismatch",
			yTrue:   []float64{0, 1},
			yPred:   []float64{0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var yTrue, yPred *mat.VecDense
			if len(tt.yTrue) > 0 {
				yTrue = mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			}
			if len(tt.yPred) > 0 {
				yPred = mat.NewVecDense(len(tt.yPred), tt.yPred)
			}

			got, err := Accuracy(yTrue, yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("Accuracy() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Accuracy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccuracyScore(t *testing.T) {
	yTrue := mat.NewDense(4, 1, []float64{0, 1, 1, 0})
	yPred := mat.NewDense(4, 1, []float64{0, 1, 0, 0})

	got, err := AccuracyScore(yTrue, yPred)
	if err != nil {
		t.Fatalf("AccuracyScore() error = %v", err)
	}
	if got != 0.75 {
		t.Errorf("AccuracyScore() = %v, want 0.75", got)
	}

	if _, err := AccuracyScore(yTrue, mat.NewDense(4, 2, nil)); err == nil {
		t.Error("AccuracyScore() should reject a non-column prediction")
	}
}

func TestConfusionMatrix(t *testing.T) {
	yTrue := mat.NewDense(6, 1, []float64{0, 0, 1, 1, 2, 2})
	yPred := mat.NewDense(6, 1, []float64{0, 1, 1, 1, 2, 0})

	cm, err := ConfusionMatrix(yTrue, yPred, 3)
	if err != nil {
		t.Fatalf("ConfusionMatrix() error = %v", err)
	}

	want := mat.NewDense(3, 3, []float64{
		1, 1, 0,
		0, 2, 0,
		1, 0, 1,
	})
	if !mat.Equal(cm, want) {
		t.Errorf("ConfusionMatrix() =\n%v\nwant\n%v", mat.Formatted(cm), mat.Formatted(want))
	}

	if _, err := ConfusionMatrix(yTrue, yPred, 2); err == nil {
		t.Error("ConfusionMatrix() should reject class codes >= nClasses")
	}
	if _, err := ConfusionMatrix(yTrue, yPred, 0); err == nil {
		t.Error("ConfusionMatrix() should reject nClasses <= 0")
	}
}
