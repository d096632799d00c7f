package ssf

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// forwardFilter is implemented by the strategies of the ordinary phase.
type forwardFilter interface {
	Process(m Model, data Data, start int, s *State, res *FilteringResults, acc *LikelihoodAccumulator) error
}

// initializer is implemented by the strategies of the diffuse phase. Initialize returns
// the first position of the ordinary phase.
type initializer interface {
	Initialize(m Model, data Data, s *DiffuseState, res *FilteringResults, acc *LikelihoodAccumulator) (int, error)
}

// Engine wires the diffuse initializer, the ordinary filter, the smoother and the
// likelihood for one model and one series at a time. An Engine holds no state of its
// own and can be shared by concurrent runs.
type Engine struct {
	opts Options
}

// NewEngine returns an engine using opts.
func NewEngine(opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Engine{opts: opts}, nil
}

// Options returns the options of the engine.
func (eng *Engine) Options() Options {
	return eng.opts
}

func (eng *Engine) logger() logrus.FieldLogger {
	return eng.opts.Logger
}

func (eng *Engine) filter() forwardFilter {
	if eng.opts.Strategy == Array {
		return NewArrayFilter(eng.opts)
	}
	return NewOrdinaryFilter(eng.opts)
}

func (eng *Engine) initializer() initializer {
	if eng.opts.Initializer == Augmented {
		return NewAugmentedInitializer(eng.opts)
	}
	return NewDurbinKoopmanInitializer(eng.opts)
}

// run is the forward pass. res may be nil when only the likelihood is needed.
func (eng *Engine) run(m Model, data Data, res *FilteringResults) (Likelihood, error) {
	if err := CheckModel(m); err != nil {
		return Invalid(), err
	}
	if data == nil {
		return Invalid(), errors.New("nil data")
	}
	acc := NewLikelihoodAccumulator(m.NonStationaryDim(), eng.opts.KeepResiduals)
	s := InitialState(m)
	start := 0
	if m.NonStationaryDim() > 0 {
		var err error
		if start, err = eng.initializer().Initialize(m, data, s, res, acc); err != nil {
			return Invalid(), err
		}
	} else if res != nil {
		res.closeDiffuse(-1)
	}
	if err := eng.filter().Process(m, data, start, &s.State, res, acc); err != nil {
		return Invalid(), err
	}
	lik := acc.Likelihood(eng.opts.DegreesOfFreedom, eng.opts.Concentrated)
	if res != nil {
		res.lik = lik
		if res.last == nil {
			res.last = s.State.Clone()
		}
	}
	return lik, nil
}

// Filter runs the forward pass and returns its buffered results.
func (eng *Engine) Filter(m Model, data Data) (*FilteringResults, error) {
	if err := CheckModel(m); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.New("nil data")
	}
	res := NewFilteringResults(m.StateDim(), data.Len())
	if _, err := eng.run(m, data, res); err != nil {
		return nil, err
	}
	eng.logger().WithFields(logrus.Fields{
		"n":        data.Len(),
		"collapse": res.CollapsePosition(),
	}).Debug("filtering done")
	return res, nil
}

// Smooth runs the forward pass followed by the smoother.
func (eng *Engine) Smooth(m Model, data Data) (*SmoothingResults, *FilteringResults, error) {
	if eng.opts.Initializer == Augmented && m != nil && m.NonStationaryDim() > 0 {
		return nil, nil, errors.Wrapf(ErrUnsupported, "smoothing with the %s initializer", Augmented)
	}
	res, err := eng.Filter(m, data)
	if err != nil {
		return nil, nil, err
	}
	sr, err := NewSmoother(eng.opts).Process(m, res)
	if err != nil {
		return nil, nil, err
	}
	return sr, res, nil
}

// Likelihood returns the likelihood of the series. Failures are reported as an invalid
// likelihood, so that an optimizer can penalize the parameters and go on.
func (eng *Engine) Likelihood(m Model, data Data) Likelihood {
	lik, err := eng.run(m, data, nil)
	if err != nil {
		eng.logger().WithError(err).Debug("invalid likelihood")
		return Invalid()
	}
	return lik
}

// Prediction is the out-of-sample forecast of an observation.
type Prediction struct {
	Mean     float64
	Variance float64
}

// StdDev returns the standard deviation of the forecast.
func (f Prediction) StdDev() float64 {
	return math.Sqrt(f.Variance)
}

// Forecast returns the forecasts of the h observations following the series.
func (eng *Engine) Forecast(m Model, data Data, h int) ([]Prediction, error) {
	if h <= 0 {
		return nil, errors.Errorf("invalid forecast horizon %d", h)
	}
	if data == nil {
		return nil, errors.New("nil data")
	}
	ext := extended{Data: data, h: h}
	res, err := eng.Filter(m, ext)
	if err != nil {
		return nil, err
	}
	n := data.Len()
	fcasts := make([]Prediction, h)
	for i := range fcasts {
		t := n + i
		fcasts[i] = Prediction{Mean: m.ZX(t, res.ForecastMean(t)), Variance: res.f[t]}
	}
	return fcasts, nil
}

// extended appends h missing observations to a series.
type extended struct {
	Data
	h int
}

func (x extended) Len() int {
	return x.Data.Len() + x.h
}

func (x extended) At(t int) float64 {
	if t >= x.Data.Len() {
		return nan
	}
	return x.Data.At(t)
}

func (x extended) IsMissing(t int) bool {
	return t >= x.Data.Len() || x.Data.IsMissing(t)
}
