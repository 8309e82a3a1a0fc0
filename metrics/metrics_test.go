package metrics

import (
	"math"
	"testing"
)

func TestMSE(t *testing.T) {
	tests := []struct {
		name      string
		pred      []float64
		actual    []float64
		weights   []float64
		want      float64
		tolerance float64
		wantErr   bool
	}{
		{
			name:      "perfect prediction",
			pred:      []float64{1, 2, 3, 4, 5},
			actual:    []float64{1, 2, 3, 4, 5},
			want:      0.0,
			tolerance: 1e-10,
		},
		{
			name:      "simple case",
			pred:      []float64{1.5, 2.5, 2.5, 3.5},
			actual:    []float64{1.0, 2.0, 3.0, 4.0},
			want:      0.25, // ((0.5)^2 + (0.5)^2 + (-0.5)^2 + (-0.5)^2) / 4
			tolerance: 1e-10,
		},
		{
			name:      "weighted",
			pred:      []float64{1, 1},
			actual:    []float64{0, 2},
			weights:   []float64{3, 1},
			want:      1.0, // (3*1 + 1*1) / 4
			tolerance: 1e-10,
		},
		{
			name:    "dimension mismatch",
			pred:    []float64{1, 2},
			actual:  []float64{1, 2, 3},
			wantErr: true,
		},
		{
			name:    "empty vectors",
			pred:    nil,
			actual:  nil,
			wantErr: true,
		},
	}

	metric := MSE()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := metric.Eval(tt.pred, tt.actual, tt.weights)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MSE error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("MSE = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRMSE(t *testing.T) {
	metric := RMSE()
	got, err := metric.Eval([]float64{0, 0}, []float64{3, 4}, nil)
	if err != nil {
		t.Fatalf("RMSE error: %v", err)
	}
	want := math.Sqrt(12.5)
	if math.Abs(got-want) > 1e-10 {
		t.Errorf("RMSE = %v, want %v", got, want)
	}
}

func TestMAE(t *testing.T) {
	metric := MAE()
	got, err := metric.Eval([]float64{2, 0}, []float64{1, 3}, nil)
	if err != nil {
		t.Fatalf("MAE error: %v", err)
	}
	if math.Abs(got-2.0) > 1e-10 {
		t.Errorf("MAE = %v, want 2", got)
	}
}

func TestR2(t *testing.T) {
	metric := R2()

	t.Run("perfect", func(t *testing.T) {
		got, err := metric.Eval([]float64{1, 2, 3}, []float64{1, 2, 3}, nil)
		if err != nil {
			t.Fatalf("R2 error: %v", err)
		}
		if math.Abs(got-1.0) > 1e-10 {
			t.Errorf("R2 = %v, want 1", got)
		}
	})

	t.Run("mean prediction gives zero", func(t *testing.T) {
		got, err := metric.Eval([]float64{2, 2, 2}, []float64{1, 2, 3}, nil)
		if err != nil {
			t.Fatalf("R2 error: %v", err)
		}
		if math.Abs(got) > 1e-10 {
			t.Errorf("R2 = %v, want 0", got)
		}
	})

	t.Run("constant target propagates as value", func(t *testing.T) {
		got, err := metric.Eval([]float64{1, 2}, []float64{2, 2}, nil)
		if err != nil {
			t.Fatalf("R2 returned error for ill-defined case: %v", err)
		}
		if !math.IsInf(got, -1) {
			t.Errorf("R2 = %v, want -Inf", got)
		}
	})
}

func TestR2Orientation(t *testing.T) {
	if !R2().Greater {
		t.Error("R2 should be marked higher-is-better")
	}
	if RMSE().Greater {
		t.Error("RMSE should be marked lower-is-better")
	}
}

func TestLogLoss(t *testing.T) {
	metric := LogLoss()
	got, err := metric.Eval([]float64{0.9, 0.1}, []float64{1, 0}, nil)
	if err != nil {
		t.Fatalf("LogLoss error: %v", err)
	}
	want := -math.Log(0.9)
	if math.Abs(got-want) > 1e-10 {
		t.Errorf("LogLoss = %v, want %v", got, want)
	}

	// Extreme probabilities are clamped, never Inf.
	got, err = metric.Eval([]float64{1, 0}, []float64{0, 1}, nil)
	if err != nil {
		t.Fatalf("LogLoss error: %v", err)
	}
	if math.IsInf(got, 1) {
		t.Error("LogLoss should clamp probabilities away from 0 and 1")
	}
}

func TestAccuracy(t *testing.T) {
	metric := Accuracy()
	got, err := metric.Eval([]float64{0.8, 0.3, 0.6, 0.2}, []float64{1, 0, 0, 0}, nil)
	if err != nil {
		t.Fatalf("Accuracy error: %v", err)
	}
	if math.Abs(got-0.75) > 1e-10 {
		t.Errorf("Accuracy = %v, want 0.75", got)
	}
}

func TestMAPEUndefined(t *testing.T) {
	metric := MAPE()
	got, err := metric.Eval([]float64{1, 1}, []float64{0, 2}, nil)
	if err != nil {
		t.Fatalf("MAPE returned error for zero actual: %v", err)
	}
	if !math.IsInf(got, 1) {
		t.Errorf("MAPE = %v, want +Inf", got)
	}
}
