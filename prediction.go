package ssf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// PredictionError is the one-step-ahead forecast error of an observation.
type PredictionError struct {
	E       float64       // y(t) - Z(t) a(t|t-1)
	F       float64       // Z(t) P(t|t-1) Z(t)ᵗ + H(t)
	M       *mat.VecDense // P(t|t-1) Z(t)ᵗ
	Missing bool
}

// NewPredictionError returns an empty prediction error for a state of the given dimension.
func NewPredictionError(dim int) *PredictionError {
	return &PredictionError{M: mat.NewVecDense(dim, nil)}
}

// IsDegenerate tells whether the variance of the error vanished.
func (pe PredictionError) IsDegenerate() bool {
	return pe.F == 0
}

// Standardized returns e/sqrt(f), or NaN for missing or degenerate errors.
func (pe PredictionError) Standardized() float64 {
	if pe.Missing || pe.F <= 0 {
		return nan
	}
	return pe.E / math.Sqrt(pe.F)
}

func (pe *PredictionError) setMissing() {
	pe.Missing = true
	pe.E = nan
}

func (pe *PredictionError) String() string {
	if pe.Missing {
		return "{missing}"
	}
	return fmt.Sprintf("{e=%g f=%g}", pe.E, pe.F)
}

// DiffusePredictionError adds the diffuse part of the forecast error variance.
type DiffusePredictionError struct {
	PredictionError
	Fi float64       // Z(t) Pi(t|t-1) Z(t)ᵗ
	Mi *mat.VecDense // Pi(t|t-1) Z(t)ᵗ
}

// NewDiffusePredictionError returns an empty diffuse prediction error.
func NewDiffusePredictionError(dim int) *DiffusePredictionError {
	return &DiffusePredictionError{PredictionError: *NewPredictionError(dim), Mi: mat.NewVecDense(dim, nil)}
}

// IsDiffuse tells whether the observation carries information on the diffuse part.
func (pe DiffusePredictionError) IsDiffuse() bool {
	return pe.Fi != 0
}
