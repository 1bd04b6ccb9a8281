package app

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hashicorp/go-multierror"
)

var (
	LogFormats    = []string{"text", "json"}
	LogLevels     = []string{"debug", "info", "warn", "error"}
	OutputFormats = []string{"text", "json", "yaml"}
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ModelPaths []string // hcl files or directories

	LogFormat string
	LogLevel  string

	// Output is the format results are written in.
	Output string
	// Fields lists the field references to evaluate, as `name` or
	// `name[component]`. Empty means every field.
	Fields   []string
	Location Location
}

// Location selects where fields are evaluated.
type Location struct {
	Node    int
	Element int
	Xi      []float64
	Time    float64

	// DerivativeOrder requests the mesh derivative of that order at an
	// element location. Zero means no mesh derivative.
	DerivativeOrder int
	// Parameters names a node_value field whose parameter derivative is
	// requested.
	Parameters string
}

// HasDerivative reports whether a derivative is requested.
func (l Location) HasDerivative() bool {
	return l.DerivativeOrder > 0 || l.Parameters != ""
}

func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.ModelPaths) == 0 {
		return nil, errors.New("ModelPaths is a required configuration field and cannot be empty")
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Output == "" {
		cfg.Output = "text"
	}

	var errs *multierror.Error
	if !slices.Contains(LogFormats, cfg.LogFormat) {
		errs = multierror.Append(errs, fmt.Errorf("invalid log format %q: must be one of %v", cfg.LogFormat, LogFormats))
	}
	if !slices.Contains(LogLevels, cfg.LogLevel) {
		errs = multierror.Append(errs, fmt.Errorf("invalid log level %q: must be one of %v", cfg.LogLevel, LogLevels))
	}
	if !slices.Contains(OutputFormats, cfg.Output) {
		errs = multierror.Append(errs, fmt.Errorf("invalid output %q: must be one of %v", cfg.Output, OutputFormats))
	}

	loc := cfg.Location
	if loc.Node < 0 || loc.Element < 0 {
		errs = multierror.Append(errs, errors.New("node and element identifiers must be positive"))
	}
	if len(loc.Xi) > 0 && loc.Element == 0 {
		errs = multierror.Append(errs, errors.New("xi needs an element"))
	}
	if len(loc.Xi) > 0 && loc.Node > 0 {
		errs = multierror.Append(errs, errors.New("xi cannot be combined with a node"))
	}
	if loc.DerivativeOrder < 0 || loc.DerivativeOrder > 3 {
		errs = multierror.Append(errs, fmt.Errorf("derivative order %d outside 0..3", loc.DerivativeOrder))
	}
	if loc.DerivativeOrder > 0 && (loc.Element == 0 || loc.Node > 0) {
		errs = multierror.Append(errs, errors.New("mesh derivatives need an element location"))
	}
	if loc.DerivativeOrder > 0 && loc.Parameters != "" {
		errs = multierror.Append(errs, errors.New("only one derivative can be requested"))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
