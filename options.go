package ssf

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Strategy selects the implementation of the ordinary filter.
type Strategy uint8

const (
	// Covariance propagates P directly.
	Covariance Strategy = iota + 1
	// Array propagates a square root of P through orthogonal transformations.
	Array
)

// Initializer selects the treatment of the diffuse part of the initial state.
type Initializer uint8

const (
	// DurbinKoopman propagates P* and Pinf separately until Pinf vanishes.
	DurbinKoopman Initializer = iota + 1
	// Augmented propagates the diffuse directions as extra columns and collapses them
	// once they are identified (de Jong).
	Augmented
)

var (
	strategyNames    = map[Strategy]string{Covariance: "covariance", Array: "array"}
	initializerNames = map[Initializer]string{DurbinKoopman: "durbin-koopman", Augmented: "augmented"}
	dfNames          = map[DegreesOfFreedom]string{DFCorrected: "corrected", DFLegacy: "legacy"}
)

func (s Strategy) String() string {
	if n, ok := strategyNames[s]; ok {
		return n
	}
	return "unset"
}

func (i Initializer) String() string {
	if n, ok := initializerNames[i]; ok {
		return n
	}
	return "unset"
}

// MarshalYAML implements yaml.Marshaler.
func (s Strategy) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Strategy) UnmarshalYAML(node *yaml.Node) error {
	return unmarshalName(node, strategyNames, s, "strategy")
}

// MarshalYAML implements yaml.Marshaler.
func (i Initializer) MarshalYAML() (interface{}, error) {
	return i.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (i *Initializer) UnmarshalYAML(node *yaml.Node) error {
	return unmarshalName(node, initializerNames, i, "initializer")
}

// MarshalYAML implements yaml.Marshaler.
func (df DegreesOfFreedom) MarshalYAML() (interface{}, error) {
	return df.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (df *DegreesOfFreedom) UnmarshalYAML(node *yaml.Node) error {
	return unmarshalName(node, dfNames, df, "degrees of freedom")
}

func unmarshalName[T comparable](node *yaml.Node, names map[T]string, dst *T, what string) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	s = strings.ToLower(strings.TrimSpace(s))
	for v, n := range names {
		if n == s {
			*dst = v
			return nil
		}
	}
	return errors.Errorf("unknown %s %q (line %d)", what, s, node.Line)
}

// Options drives an Engine.
type Options struct {
	Strategy         Strategy         `yaml:"strategy"`
	Initializer      Initializer      `yaml:"initializer"`
	DegreesOfFreedom DegreesOfFreedom `yaml:"degreesOfFreedom"`
	// Concentrated selects the likelihood concentrated with respect to the scaling
	// factor of the variances.
	Concentrated bool `yaml:"concentrated"`
	// Tolerance below which a prediction error variance is considered null.
	Tolerance float64 `yaml:"tolerance"`
	// DiffuseTolerance is the relative Frobenius norm of Pinf below which the diffuse
	// part is considered resolved.
	DiffuseTolerance float64 `yaml:"diffuseTolerance"`
	KeepResiduals    bool    `yaml:"keepResiduals"`
	SmoothVariances  bool    `yaml:"smoothVariances"`

	Logger logrus.FieldLogger `yaml:"-"`
}

// DefaultOptions returns the options used when nothing else is specified.
func DefaultOptions() Options {
	return Options{
		Strategy:         Covariance,
		Initializer:      DurbinKoopman,
		DegreesOfFreedom: DFCorrected,
		Concentrated:     true,
		Tolerance:        1e-9,
		DiffuseTolerance: 1e-9,
		KeepResiduals:    false,
		SmoothVariances:  true,
		Logger:           logrus.StandardLogger(),
	}
}

// ParseOptions reads options from a YAML document. Missing keys keep their default value.
func ParseOptions(data []byte) (Options, error) {
	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, errors.Wrap(err, "parsing options")
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// LoadOptions reads options from a YAML file.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, errors.Wrapf(err, "reading options %s", path)
	}
	return ParseOptions(data)
}

// Validate checks that every option has an explicit, valid value.
func (o *Options) Validate() error {
	if _, ok := strategyNames[o.Strategy]; !ok {
		return errors.Errorf("invalid strategy %d", o.Strategy)
	}
	if _, ok := initializerNames[o.Initializer]; !ok {
		return errors.Errorf("invalid initializer %d", o.Initializer)
	}
	if _, ok := dfNames[o.DegreesOfFreedom]; !ok {
		return errors.Errorf("degrees of freedom convention must be %s or %s", DFCorrected, DFLegacy)
	}
	if o.Tolerance < 0 || o.DiffuseTolerance < 0 {
		return errors.Errorf("tolerances must be non-negative (%g, %g)", o.Tolerance, o.DiffuseTolerance)
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return nil
}
