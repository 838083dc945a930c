package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Loss names used in persisted models.
const (
	LossMSE                = "mse"
	LossCrossEntropy       = "cross_entropy"
	LossBinaryCrossEntropy = "binary_cross_entropy"
)

// Epsilon clips probabilities away from 0 and 1 before taking logarithms.
const Epsilon = 1e-15

// Loss scores a prediction against a target.
type Loss interface {
	Name() string
	// Compute returns the scalar loss.
	Compute(predicted, target []float64) (float64, error)
	// Derivative returns ∂loss/∂predicted.
	Derivative(predicted, target []float64) ([]float64, error)
}

// ParseLoss returns the loss registered under name. The empty name is MSE.
func ParseLoss(name string) (Loss, error) {
	switch name {
	case LossMSE, "":
		return MSE{}, nil
	case LossCrossEntropy:
		return CrossEntropy{}, nil
	case LossBinaryCrossEntropy:
		return BinaryCrossEntropy{}, nil
	default:
		return nil, fmt.Errorf("nn: unknown loss %q", name)
	}
}

func checkPair(op string, predicted, target []float64) error {
	if err := checkLen(op, len(target), len(predicted)); err != nil {
		return err
	}
	if len(predicted) == 0 {
		return &DimensionError{Op: op, Want: 1, Got: 0}
	}
	return nil
}

func clip(p float64) float64 {
	return math.Min(math.Max(p, Epsilon), 1-Epsilon)
}

// MSE is the mean squared error Σ(p−t)²/n.
type MSE struct{}

// Name returns LossMSE.
func (MSE) Name() string { return LossMSE }

// Compute returns Σ(p−t)²/n.
func (MSE) Compute(predicted, target []float64) (float64, error) {
	if err := checkPair("mse", predicted, target); err != nil {
		return 0, err
	}
	var sum float64
	for i, p := range predicted {
		d := p - target[i]
		sum += d * d
	}
	return sum / float64(len(predicted)), nil
}

// Derivative returns 2(p−t)/n.
func (MSE) Derivative(predicted, target []float64) ([]float64, error) {
	if err := checkPair("mse derivative", predicted, target); err != nil {
		return nil, err
	}
	out := make([]float64, len(predicted))
	floats.SubTo(out, predicted, target)
	floats.Scale(2/float64(len(predicted)), out)
	return out, nil
}

// CrossEntropy is the categorical cross-entropy −Σ t·log p for one-hot or
// probability targets.
type CrossEntropy struct{}

// Name returns LossCrossEntropy.
func (CrossEntropy) Name() string { return LossCrossEntropy }

// Compute returns −Σ t·log(clip(p)).
func (CrossEntropy) Compute(predicted, target []float64) (float64, error) {
	if err := checkPair("cross entropy", predicted, target); err != nil {
		return 0, err
	}
	var sum float64
	for i, p := range predicted {
		sum -= target[i] * math.Log(clip(p))
	}
	return sum, nil
}

// Derivative returns −t/clip(p).
func (CrossEntropy) Derivative(predicted, target []float64) ([]float64, error) {
	if err := checkPair("cross entropy derivative", predicted, target); err != nil {
		return nil, err
	}
	out := make([]float64, len(predicted))
	for i, p := range predicted {
		out[i] = -target[i] / clip(p)
	}
	return out, nil
}

// BinaryCrossEntropy is −(t·log p + (1−t)·log(1−p)) averaged over outputs.
type BinaryCrossEntropy struct{}

// Name returns LossBinaryCrossEntropy.
func (BinaryCrossEntropy) Name() string { return LossBinaryCrossEntropy }

// Compute returns the mean binary cross-entropy.
func (BinaryCrossEntropy) Compute(predicted, target []float64) (float64, error) {
	if err := checkPair("binary cross entropy", predicted, target); err != nil {
		return 0, err
	}
	var sum float64
	for i, p := range predicted {
		p = clip(p)
		t := target[i]
		sum -= t*math.Log(p) + (1-t)*math.Log(1-p)
	}
	return sum / float64(len(predicted)), nil
}

// Derivative returns −(t/p − (1−t)/(1−p)) per output.
func (BinaryCrossEntropy) Derivative(predicted, target []float64) ([]float64, error) {
	if err := checkPair("binary cross entropy derivative", predicted, target); err != nil {
		return nil, err
	}
	out := make([]float64, len(predicted))
	for i, p := range predicted {
		p = clip(p)
		t := target[i]
		out[i] = -(t/p - (1-t)/(1-p))
	}
	return out, nil
}
