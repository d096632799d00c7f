package ssf

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// MonteCarloRun stores the results of one replication.
type MonteCarloRun struct {
	Truth      *Simulation
	Smoothed   *SmoothingResults
	Likelihood Likelihood
}

// MonteCarloRuns stores the replications of a Monte Carlo experiment.
type MonteCarloRuns struct {
	runs, steps int
	Runs        []MonteCarloRun
}

// NewMonteCarloRuns simulates samples series of length steps from the model and
// processes each of them with the engine. Replications run concurrently; replication i
// uses the seed seed+i, so that the result does not depend on the scheduling.
func NewMonteCarloRuns(eng *Engine, m Model, samples, steps int, seed uint64) (*MonteCarloRuns, error) {
	if samples <= 0 {
		return nil, errors.Errorf("invalid number of samples %d", samples)
	}
	runs := make([]MonteCarloRun, samples)
	errs := make([]error, samples)
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup
	for i := 0; i < samples; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer func() {
				<-sem
				wg.Done()
			}()
			sim, err := Simulate(m, steps, seed+uint64(i))
			if err != nil {
				errs[i] = err
				return
			}
			sr, res, err := eng.Smooth(m, sim.Y)
			if err != nil {
				errs[i] = errors.Wrapf(err, "sample #%d", i)
				return
			}
			runs[i] = MonteCarloRun{Truth: sim, Smoothed: sr, Likelihood: res.Likelihood()}
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return &MonteCarloRuns{samples, steps, runs}, nil
}

// Len returns the number of replications.
func (mc *MonteCarloRuns) Len() int {
	return mc.runs
}

func (mc *MonteCarloRuns) smoothingErrors(step int) map[int][]float64 {
	rows := mc.Runs[0].Truth.States[0].Len()
	errs := make(map[int][]float64)
	for i := 0; i < rows; i++ {
		errs[i] = make([]float64, mc.runs)
	}
	for r, run := range mc.Runs {
		e := NewGroundTruth(run.Truth.States).Error(step, run.Smoothed.Mean(step))
		for i := 0; i < rows; i++ {
			errs[i][r] = e.AtVec(i)
		}
	}
	return errs
}

// Mean returns the mean over the replications of the smoothing errors at step.
func (mc *MonteCarloRuns) Mean(step int) []float64 {
	errs := mc.smoothingErrors(step)
	means := make([]float64, len(errs))
	for i := range means {
		means[i] = stat.Mean(errs[i], nil)
	}
	return means
}

// StdDev returns the standard deviation over the replications of the smoothing errors
// at step.
func (mc *MonteCarloRuns) StdDev(step int) []float64 {
	errs := mc.smoothingErrors(step)
	devs := make([]float64, len(errs))
	for i := range devs {
		devs[i] = stat.StdDev(errs[i], nil)
	}
	return devs
}

// NEES returns, for every step, the mean over the replications of the normalized
// estimation error squared of the smoothed states. Its expected value is the
// dimension of the state.
func (mc *MonteCarloRuns) NEES() []float64 {
	means := make([]float64, mc.steps)
	samples := make([]float64, mc.runs)
	for k := 0; k < mc.steps; k++ {
		for r, run := range mc.Runs {
			samples[r] = NewGroundTruth(run.Truth.States).NEES(k, run.Smoothed.State(k))
		}
		means[k] = stat.Mean(samples, nil)
	}
	return means
}

// LogLikelihoods returns the log-likelihood of every replication.
func (mc *MonteCarloRuns) LogLikelihoods() []float64 {
	ll := make([]float64, mc.runs)
	for r, run := range mc.Runs {
		ll[r] = run.Likelihood.LogLikelihood()
	}
	return ll
}

// AsCSV is used as a CSV serializer of the smoothed states, one document per state
// component. Each line holds the estimates of every replication, then the mean and
// the standard deviation of the errors.
func (mc *MonteCarloRuns) AsCSV(headers []string) []string {
	rows := mc.Runs[0].Truth.States[0].Len()
	rtn := make([]string, rows)
	for i := 0; i < rows; i++ {
		header := headers[i]
		lines := make([]string, mc.steps+1)
		for rNo := 0; rNo < mc.runs; rNo++ {
			lines[0] += fmt.Sprintf("%s-%d,", header, rNo)
		}
		lines[0] += header + "-mean," + header + "-stddev"
		for k := 0; k < mc.steps; k++ {
			for _, run := range mc.Runs {
				lines[k+1] += fmt.Sprintf("%f,", run.Smoothed.Mean(k).AtVec(i))
			}
			lines[k+1] += fmt.Sprintf("%f,%f", mc.Mean(k)[i], mc.StdDev(k)[i])
		}
		rtn[i] = strings.Join(lines, "\n")
	}
	return rtn
}
