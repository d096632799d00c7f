package ssf

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrStructural is returned when the declared dimensions of a model are inconsistent.
	ErrStructural = errors.New("ssf: structural error")
	// ErrDiffuseResolution is returned when the diffuse part of the initial state does not
	// vanish before the end of the data (the model is not identified by this sample).
	ErrDiffuseResolution = errors.New("ssf: diffuse initialization not resolved")
	// ErrPhase is returned when a recursion step is applied to a state in the wrong phase.
	ErrPhase = errors.New("ssf: invalid state phase")
	// ErrUnsupported is returned when a combination of options cannot serve a request.
	ErrUnsupported = errors.New("ssf: unsupported operation")
)

// DimensionAgreement defines how two matrices' dimensions should agree.
type DimensionAgreement uint8

const (
	dimErrMsg                    = "dimensions must agree: "
	Rows2Cols DimensionAgreement = iota + 1
	Cols2Rows
	Cols2Cols
	Rows2Rows
	RowsAndCols
)

// CheckMatDims checks the matrix dimensions match provided a DimensionAgreement.
// The returned error wraps ErrStructural.
func CheckMatDims(m1, m2 mat.Matrix, name1, name2 string, method DimensionAgreement) error {
	r1, c1 := m1.Dims()
	r2, c2 := m2.Dims()
	var msg string
	switch method {
	case Rows2Cols:
		if r1 != c2 {
			msg = fmt.Sprintf("%s%s(%dx...) %s(...x%d)", dimErrMsg, name1, r1, name2, c2)
		}
	case Cols2Rows:
		if c1 != r2 {
			msg = fmt.Sprintf("%s%s(...x%d) %s(%dx...)", dimErrMsg, name1, c1, name2, r2)
		}
	case Cols2Cols:
		if c1 != c2 {
			msg = fmt.Sprintf("%s%s(...x%d) %s(...x%d)", dimErrMsg, name1, c1, name2, c2)
		}
	case Rows2Rows:
		if r1 != r2 {
			msg = fmt.Sprintf("%s%s(%dx...) %s(%dx...)", dimErrMsg, name1, r1, name2, r2)
		}
	case RowsAndCols:
		if c1 != c2 || r1 != r2 {
			msg = fmt.Sprintf("%s%s(%dx%d) %s(%dx%d)", dimErrMsg, name1, r1, c1, name2, r2, c2)
		}
	}
	if msg == "" {
		return nil
	}
	return errors.Wrap(ErrStructural, msg)
}

// Validator is implemented by models able to check their own internal shapes, such as
// the length of the measurement row against the state dimension.
type Validator interface {
	Validate() error
}

// CheckModel verifies that the declared dimensions of the model are consistent.
// It is called before any recursion starts.
func CheckModel(m Model) error {
	if m == nil {
		return errors.Wrap(ErrStructural, "nil model")
	}
	dim := m.StateDim()
	if dim <= 0 {
		return errors.Wrapf(ErrStructural, "invalid state dimension %d", dim)
	}
	nd := m.NonStationaryDim()
	if nd < 0 || nd > dim {
		return errors.Wrapf(ErrStructural, "non-stationary dimension %d out of range [0, %d]", nd, dim)
	}
	if nd > 0 && !m.IsDiffuse() {
		return errors.Wrapf(ErrStructural, "model declares %d non-stationary directions but is not diffuse", nd)
	}
	if nd > 0 {
		b := mat.NewDense(dim, nd, nil)
		m.DiffuseConstraints(b)
		pi0 := mat.NewSymDense(dim, nil)
		m.Pi0(pi0)
		if err := CheckMatDims(b, pi0, "B", "Pi0", Rows2Rows); err != nil {
			return err
		}
		if IsNil(pi0) {
			return errors.Wrap(ErrStructural, "diffuse model with a null Pi0")
		}
	}
	if v, ok := m.(Validator); ok {
		if err := v.Validate(); err != nil {
			if errors.Is(err, ErrStructural) {
				return err
			}
			return errors.Wrap(ErrStructural, err.Error())
		}
	}
	return nil
}
