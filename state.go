package ssf

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Phase tells which conditional distribution a State describes.
type Phase uint8

const (
	// Undefined is the phase of a state that has not been initialized.
	Undefined Phase = iota
	// Forecast is a(t|t-1), P(t|t-1).
	Forecast
	// Concurrent is a(t|t), P(t|t).
	Concurrent
	// Smoothed is a(t|n), P(t|n).
	Smoothed
)

func (p Phase) String() string {
	switch p {
	case Forecast:
		return "forecast"
	case Concurrent:
		return "concurrent"
	case Smoothed:
		return "smoothed"
	default:
		return "undefined"
	}
}

// State is the mean and the covariance of the state vector at a given position.
// It is owned by a single run and mutated in place.
type State struct {
	A     *mat.VecDense
	P     *mat.SymDense
	Phase Phase
}

// NewState returns an undefined state of the given dimension.
func NewState(dim int) *State {
	return &State{A: mat.NewVecDense(dim, nil), P: mat.NewSymDense(dim, nil)}
}

// Dim returns the dimension of the state.
func (s *State) Dim() int {
	return s.A.Len()
}

// Copy sets the receiver to a copy of o.
func (s *State) Copy(o *State) {
	s.A.CopyVec(o.A)
	s.P.CopySym(o.P)
	s.Phase = o.Phase
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := NewState(s.Dim())
	c.Copy(s)
	return c
}

func (s *State) expect(phase Phase, op string) error {
	if s.Phase != phase {
		return errors.Wrapf(ErrPhase, "%s requires a %s state, got %s", op, phase, s.Phase)
	}
	return nil
}

func (s *State) String() string {
	return fmt.Sprintf("{%s\na=%v\nP=%v\n}", s.Phase, mat.Formatted(s.A.T(), mat.Prefix("  ")), mat.Formatted(s.P, mat.Prefix("  ")))
}

// DiffuseState is a State which also carries the variance of the diffuse part.
type DiffuseState struct {
	State
	Pi *mat.SymDense
}

// NewDiffuseState returns an undefined diffuse state of the given dimension.
func NewDiffuseState(dim int) *DiffuseState {
	return &DiffuseState{State: *NewState(dim), Pi: mat.NewSymDense(dim, nil)}
}

// InitialState builds the forecast state at position 0 from the initial conditions of
// the model.
func InitialState(m Model) *DiffuseState {
	s := NewDiffuseState(m.StateDim())
	m.A0(s.A)
	m.Pf0(s.P)
	if m.IsDiffuse() {
		m.Pi0(s.Pi)
	}
	s.Phase = Forecast
	return s
}
