// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/katalvlaran/otshift/distance"
	"github.com/katalvlaran/otshift/jcpot"
	"github.com/katalvlaran/otshift/matrix"
	"github.com/katalvlaran/otshift/sinkhorn"
	"gopkg.in/yaml.v3"
)

// Settings are the solver knobs shared by every problem file. Flags given
// on the command line override them.
type Settings struct {
	Reg       float64       `yaml:"reg"`
	MaxIter   int           `yaml:"max_iter"`
	Tol       float64       `yaml:"tol"`
	Metric    string        `yaml:"metric"`
	Normalize string        `yaml:"normalize"`
	Method    string        `yaml:"method"`
	Combine   string        `yaml:"combine"`
	Workers   int           `yaml:"workers"`
	TimeLimit time.Duration `yaml:"time_limit"`
	Relaxed   bool          `yaml:"relaxed"`
	Strict    bool          `yaml:"strict"`
	Log       bool          `yaml:"log"`
}

// DomainFile is one labeled source domain of a problem file.
type DomainFile struct {
	Points [][]float64 `yaml:"points"`
	Labels []int       `yaml:"labels"`
}

// TargetFile is the unlabeled target of a problem file.
type TargetFile struct {
	Points [][]float64 `yaml:"points"`
}

// Problem is a target-shift problem file:
//
//	reg: 0.01
//	max_iter: 1000
//	combine: geometric
//	sources:
//	  - points: [[0, 1], [0, 3]]
//	    labels: [1, 0]
//	target:
//	  points: [[4, -1], [4, 1]]
type Problem struct {
	Settings `yaml:",inline"`
	Sources  []DomainFile `yaml:"sources"`
	Target   TargetFile   `yaml:"target"`
}

// Transport is a plain entropic OT problem file. Either cost is given, or
// it is computed from source and target points with metric. An empty b
// means a uniform target.
type Transport struct {
	Settings `yaml:",inline"`
	A        []float64   `yaml:"a"`
	B        []float64   `yaml:"b"`
	Cost     [][]float64 `yaml:"cost"`
	Source   [][]float64 `yaml:"source"`
	Target   [][]float64 `yaml:"target"`
}

var errNoDocument = errors.New("empty problem file")

// LoadProblem reads a target-shift problem; missing settings keep the jcpot
// defaults.
func LoadProblem(path string) (*Problem, error) {
	p := &Problem{Settings: Settings{
		Reg:     jcpot.DefaultReg,
		MaxIter: jcpot.DefaultMaxIter,
		Tol:     jcpot.DefaultTol,
		Method:  sinkhorn.Log.String(),
		Combine: jcpot.Geometric.String(),
	}}
	if err := decodeFile(path, p); err != nil {
		return nil, err
	}

	return p, nil
}

// LoadTransport reads a plain OT problem; missing settings keep the sinkhorn
// defaults.
func LoadTransport(path string) (*Transport, error) {
	t := &Transport{Settings: Settings{
		Reg:     sinkhorn.DefaultReg,
		MaxIter: sinkhorn.DefaultMaxIter,
		Tol:     sinkhorn.DefaultTol,
		Method:  sinkhorn.Standard.String(),
	}}
	if err := decodeFile(path, t); err != nil {
		return nil, err
	}

	return t, nil
}

// decodeFile decodes exactly one YAML document and rejects unknown keys.
func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err = dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: %w", path, errNoDocument)
		}
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return nil
}

// JCPOT converts the settings into solver options.
func (s Settings) JCPOT() (jcpot.Options, error) {
	opts := jcpot.DefaultOptions()
	opts.Reg, opts.MaxIter, opts.Tol = s.Reg, s.MaxIter, s.Tol
	opts.TimeLimit = s.TimeLimit
	opts.Relaxed, opts.Strict, opts.Log = s.Relaxed, s.Strict, s.Log
	if s.Workers > 0 {
		opts.Workers = s.Workers
	}

	var err error
	if opts.Metric, err = distance.ParseMetric(s.Metric); err != nil {
		return opts, err
	}
	if opts.Normalize, err = distance.ParseNormalization(s.Normalize); err != nil {
		return opts, err
	}
	if opts.Method, err = sinkhorn.ParseMethod(s.Method); err != nil {
		return opts, err
	}
	if opts.Combine, err = jcpot.ParseCombine(s.Combine); err != nil {
		return opts, err
	}

	return opts, nil
}

// Sinkhorn converts the settings into plain OT options.
func (s Settings) Sinkhorn() (sinkhorn.Options, error) {
	opts := sinkhorn.DefaultOptions()
	opts.Reg, opts.MaxIter, opts.Tol = s.Reg, s.MaxIter, s.Tol
	opts.Relaxed, opts.Strict = s.Relaxed, s.Strict

	var err error
	opts.Method, err = sinkhorn.ParseMethod(s.Method)

	return opts, err
}

// Domains builds the solver inputs.
func (p *Problem) Domains() ([]jcpot.Domain, distance.PointSet, error) {
	sources := make([]jcpot.Domain, len(p.Sources))
	for k, d := range p.Sources {
		pts, err := distance.NewPointSet(d.Points)
		if err != nil {
			return nil, distance.PointSet{}, fmt.Errorf("source %d: %w", k, err)
		}
		sources[k] = jcpot.Domain{Points: pts, Labels: d.Labels}
	}
	target, err := distance.NewPointSet(p.Target.Points)
	if err != nil {
		return nil, distance.PointSet{}, fmt.Errorf("target: %w", err)
	}

	return sources, target, nil
}

// CostMatrix returns the explicit cost, or the pairwise cost of the points,
// normalized as configured.
func (t *Transport) CostMatrix() (*matrix.Dense, error) {
	norm, err := distance.ParseNormalization(t.Normalize)
	if err != nil {
		return nil, err
	}
	var c *matrix.Dense
	if len(t.Cost) > 0 {
		if c, err = matrix.NewDenseRows(t.Cost); err != nil {
			return nil, fmt.Errorf("cost: %w", err)
		}
	} else {
		metric, err := distance.ParseMetric(t.Metric)
		if err != nil {
			return nil, err
		}
		xs, err := distance.NewPointSet(t.Source)
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		xt, err := distance.NewPointSet(t.Target)
		if err != nil {
			return nil, fmt.Errorf("target: %w", err)
		}
		if c, err = distance.Pairwise(xs, xt, metric); err != nil {
			return nil, err
		}
	}

	return distance.NormalizeCost(c, norm)
}
