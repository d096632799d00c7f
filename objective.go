package ssf

import (
	"math"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// ModelBuilder builds an independent model instance from a vector of hyper-parameters.
// It returns an error for inadmissible parameters.
type ModelBuilder func(params []float64) (Model, error)

// Objective exposes the likelihood of a series as a function of the hyper-parameters of
// a model, for external optimizers.
type Objective struct {
	Engine  *Engine
	Builder ModelBuilder
	Data    Data
	// Scale is the factor the series was pre-multiplied by, if any.
	Scale float64
}

// NewObjective returns the objective of data for the models built by builder.
func NewObjective(eng *Engine, builder ModelBuilder, data Data) *Objective {
	return &Objective{Engine: eng, Builder: builder, Data: data, Scale: 1}
}

// Evaluate returns the likelihood at params, or an invalid likelihood when the
// parameters are inadmissible.
func (o *Objective) Evaluate(params []float64) Likelihood {
	m, err := o.Builder(params)
	if err != nil {
		o.Engine.logger().WithFields(logrus.Fields{"params": params}).WithError(err).Debug("inadmissible parameters")
		return Invalid()
	}
	lik := o.Engine.Likelihood(m, o.Data)
	if o.Scale != 0 && o.Scale != 1 {
		lik = lik.Rescale(o.Scale)
	}
	return lik
}

// NegLogLikelihood returns -ll at params, +Inf for inadmissible parameters. It has the
// signature expected by gonum's optimize.Problem.
func (o *Objective) NegLogLikelihood(params []float64) float64 {
	lik := o.Evaluate(params)
	if !lik.Valid() {
		return math.Inf(1)
	}
	return -lik.LogLikelihood()
}

// ParallelEvaluate evaluates the likelihood at every point, using up to workers
// goroutines (GOMAXPROCS when workers <= 0). Each evaluation builds its own model.
func (o *Objective) ParallelEvaluate(points [][]float64, workers int) []Likelihood {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(points) {
		workers = len(points)
	}
	liks := make([]Likelihood, len(points))
	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				liks[i] = o.Evaluate(points[i])
			}
		}()
	}
	for i := range points {
		idx <- i
	}
	close(idx)
	wg.Wait()
	return liks
}
