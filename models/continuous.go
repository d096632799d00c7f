package models

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	ssf "github.com/palatej/jdemetra-core2-sub000"
)

// ContinuousConfig describes a continuous-time system observed at a fixed period.
type ContinuousConfig struct {
	// A, Γ and W define the continuous-time system dx = A x dt + Γ dw, E[dw dwᵗ] = W dt.
	A, Γ, W *mat.Dense
	// Δt is the sampling period of the observations.
	Δt float64
	Z  *mat.VecDense
	H  float64
	// B holds the diffuse directions of the initial state; nil for a known start.
	B   *mat.Dense
	Pf0 *mat.SymDense
}

// NewContinuous discretizes a continuous-time system with the method of Van Loan and
// returns the corresponding time-invariant model.
func NewContinuous(cfg ContinuousConfig) (*Dense, error) {
	T, V, err := ssf.VanLoan(cfg.A, cfg.Γ, cfg.W, cfg.Δt)
	if err != nil && !errors.Is(err, ssf.ErrNyquist) {
		return nil, err
	}
	m, derr := NewDense(DenseConfig{T: T, V: V, Z: cfg.Z, H: cfg.H, B: cfg.B, Pf0: cfg.Pf0})
	if derr != nil {
		return nil, derr
	}
	// the model is usable even when undersampled
	return m, err
}
