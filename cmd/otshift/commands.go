// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/katalvlaran/otshift/jcpot"
	"github.com/katalvlaran/otshift/matrix"
	"github.com/katalvlaran/otshift/sinkhorn"
	"github.com/katalvlaran/otshift/synth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// overrides holds solver flags; only the ones set on the command line
// replace values from the problem file.
type overrides struct {
	Settings
}

func (o *overrides) bind(cmd *cobra.Command, withDomains bool) {
	f := cmd.Flags()
	f.Float64Var(&o.Reg, "reg", 0, "Entropic regularization (> 0)")
	f.IntVar(&o.MaxIter, "max-iter", 0, "Iteration cap")
	f.Float64Var(&o.Tol, "tol", 0, "Convergence tolerance")
	f.StringVar(&o.Method, "method", "", "Scaling method: standard | log")
	f.StringVar(&o.Metric, "metric", "", "Cost metric: sqeuclidean | euclidean | cityblock | chebyshev | cosine")
	f.StringVar(&o.Normalize, "normalize", "", "Cost normalization: none | max | median | log")
	f.BoolVar(&o.Relaxed, "relaxed", false, "Accept degenerate kernels")
	f.BoolVar(&o.Strict, "strict", false, "Exit with an error when the solver does not converge")
	if !withDomains {
		return
	}
	f.StringVar(&o.Combine, "combine", "", "Proportion update: geometric | arithmetic | weighted")
	f.IntVar(&o.Workers, "workers", 0, "Parallel domain updates (0 = GOMAXPROCS)")
	f.DurationVar(&o.TimeLimit, "time-limit", 0, "Stop between iterations after this long")
	f.BoolVar(&o.Log, "log", false, "Include the iteration error trace in the report")
}

func (o *overrides) apply(cmd *cobra.Command, s *Settings) {
	f := cmd.Flags()
	set := func(name string, fn func()) {
		if f.Changed(name) {
			fn()
		}
	}
	set("reg", func() { s.Reg = o.Reg })
	set("max-iter", func() { s.MaxIter = o.MaxIter })
	set("tol", func() { s.Tol = o.Tol })
	set("method", func() { s.Method = o.Method })
	set("metric", func() { s.Metric = o.Metric })
	set("normalize", func() { s.Normalize = o.Normalize })
	set("relaxed", func() { s.Relaxed = o.Relaxed })
	set("strict", func() { s.Strict = o.Strict })
	set("combine", func() { s.Combine = o.Combine })
	set("workers", func() { s.Workers = o.Workers })
	set("time-limit", func() { s.TimeLimit = o.TimeLimit })
	set("log", func() { s.Log = o.Log })
}

type fitReport struct {
	Classes      []int     `yaml:"classes"`
	Proportions  []float64 `yaml:"proportions"`
	Status       string    `yaml:"status"`
	Iterations   int       `yaml:"iterations"`
	Err          float64   `yaml:"err"`
	TargetLabels []int     `yaml:"target_labels"`
	MarginalErr  []float64 `yaml:"marginal_err"`
	Errors       []float64 `yaml:"errors,omitempty"`
}

func newFitCmd(a *app) *cobra.Command {
	var (
		path string
		over overrides
	)
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Estimate target class proportions from labeled source domains",
		Long: `Reads a problem file with labeled source domains and an unlabeled
target, runs the joint proportion and transport estimation and prints the
estimated proportions, the solver status and a label for every target point.

Problem file:

  reg: 0.01
  max_iter: 1000
  tol: 1e-9
  metric: sqeuclidean
  combine: geometric
  sources:
    - points: [[0, 1], [0, 3], [0, 3.2]]
      labels: [1, 0, 0]
  target:
    points: [[4, -1], [4, 1]]`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := LoadProblem(path)
			if err != nil {
				return err
			}
			over.apply(cmd, &p.Settings)
			opts, err := p.JCPOT()
			if err != nil {
				return err
			}
			opts.Verbose = a.verbose
			opts.Logger = a.logger
			sources, target, err := p.Domains()
			if err != nil {
				return err
			}

			start := time.Now()
			res, err := jcpot.Solve(cmd.Context(), sources, target, opts)
			if err != nil && !errors.Is(err, jcpot.ErrNonConvergence) {
				return err
			}
			a.logger.Info("fit",
				zap.String("config", path),
				zap.Stringer("status", res.Status),
				zap.Int("iterations", res.Iterations),
				zap.Duration("elapsed", time.Since(start)))

			rep := fitReport{
				Classes:     res.Classes,
				Proportions: res.Proportions,
				Status:      res.Status.String(),
				Iterations:  res.Iterations,
				Err:         res.Err,
			}
			for _, st := range res.Polish {
				rep.MarginalErr = append(rep.MarginalErr, st.MarginalErr)
			}
			if rep.TargetLabels, err = res.PredictTargetLabels(); err != nil {
				return err
			}
			if res.Trace != nil {
				rep.Errors = res.Trace.Errors
			}
			if werr := writeYAML(cmd.OutOrStdout(), rep); werr != nil {
				return werr
			}
			if p.Strict && !res.Converged {
				return fmt.Errorf("%s after %d iterations: %w", res.Status, res.Iterations, jcpot.ErrNonConvergence)
			}

			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "Problem file (YAML)")
	_ = cmd.MarkFlagRequired("config")
	over.bind(cmd, true)

	return cmd
}

type transportReport struct {
	Converged   bool        `yaml:"converged"`
	Iterations  int         `yaml:"iterations"`
	MarginalErr float64     `yaml:"marginal_err"`
	Cost        float64     `yaml:"cost"`
	Entropy     float64     `yaml:"entropy"`
	Coupling    [][]float64 `yaml:"coupling"`
}

func newSinkhornCmd(a *app) *cobra.Command {
	var (
		path string
		over overrides
	)
	cmd := &cobra.Command{
		Use:   "sinkhorn",
		Short: "Solve one entropic optimal transport problem",
		Long: `Reads a transport file and prints the entropic coupling and its cost.

Transport file (cost given directly, or computed from points):

  reg: 0.05
  a: [0.5, 0.5]
  b: []            # empty: uniform
  cost: [[0, 1], [1, 0]]
  # source: [[0, 0], [1, 0]]
  # target: [[0, 1], [1, 1]]
  # metric: euclidean`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := LoadTransport(path)
			if err != nil {
				return err
			}
			over.apply(cmd, &t.Settings)
			opts, err := t.Sinkhorn()
			if err != nil {
				return err
			}
			c, err := t.CostMatrix()
			if err != nil {
				return err
			}
			a.logger.Debug("sinkhorn",
				zap.Int("rows", c.Rows()),
				zap.Int("cols", c.Cols()),
				zap.Float64("reg", opts.Reg),
				zap.Stringer("method", opts.Method))

			res, err := sinkhorn.Solve(t.A, t.B, c, opts)
			if err != nil && !errors.Is(err, sinkhorn.ErrNonConvergence) {
				return err
			}
			rep := transportReport{
				Converged:   res.Converged,
				Iterations:  res.Iterations,
				MarginalErr: res.MarginalErr,
				Cost:        res.Cost,
				Entropy:     sinkhorn.Entropy(res.Coupling),
				Coupling:    rows(res.Coupling),
			}
			if werr := writeYAML(cmd.OutOrStdout(), rep); werr != nil {
				return werr
			}

			return err
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "Transport file (YAML)")
	_ = cmd.MarkFlagRequired("config")
	over.bind(cmd, false)

	return cmd
}

type demoReport struct {
	Seed          int64     `yaml:"seed"`
	True          []float64 `yaml:"true"`
	Estimated     []float64 `yaml:"estimated"`
	MaxAbsErr     float64   `yaml:"max_abs_err"`
	Status        string    `yaml:"status"`
	Iterations    int       `yaml:"iterations"`
	Accuracy      float64   `yaml:"label_accuracy"`
	OracleCost    []float64 `yaml:"oracle_cost"`
	EstimatedCost []float64 `yaml:"estimated_cost"`
}

func newDemoCmd(a *app) *cobra.Command {
	var (
		seed    int64
		n       int
		sigma   float64
		reg     float64
		maxIter int
		tol     float64
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the two-source target-shift experiment on seeded synthetic data",
		Long: `Draws two labeled source domains (20% and 90% of label 1) and a target
(40% of label 1) as Gaussian blobs, estimates the target proportions and
compares them with the truth. For every source it also reports the transport
cost when the true proportions are known (oracle) and with the estimate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, tgt := synth.Classic(n)
			sc, err := synth.TargetShift(src, tgt, synth.WithSeed(seed), synth.WithSigma(sigma))
			if err != nil {
				return err
			}
			sources := make([]jcpot.Domain, len(sc.Sources))
			for k, s := range sc.Sources {
				sources[k] = jcpot.Domain{Points: s.Points, Labels: s.Labels}
			}

			opts := jcpot.DefaultOptions()
			opts.Reg, opts.MaxIter, opts.Tol = reg, maxIter, tol
			opts.Verbose = a.verbose
			opts.Logger = a.logger
			res, err := jcpot.Solve(cmd.Context(), sources, sc.Target.Points, opts)
			if err != nil {
				return err
			}

			rep := demoReport{
				Seed:       seed,
				True:       sc.TargetProportions,
				Estimated:  res.Proportions,
				Status:     res.Status.String(),
				Iterations: res.Iterations,
			}
			for c, p := range sc.TargetProportions {
				rep.MaxAbsErr = math.Max(rep.MaxAbsErr, math.Abs(p-res.Proportions[c]))
			}
			pred, err := res.PredictTargetLabels()
			if err != nil {
				return err
			}
			hits := 0
			for j, l := range pred {
				if l == sc.Target.Labels[j] {
					hits++
				}
			}
			rep.Accuracy = float64(hits) / float64(len(pred))

			for k := range sources {
				oracle, err := res.Resolve(k, sc.TargetProportions)
				if err != nil {
					return err
				}
				est, err := res.Resolve(k, res.Proportions)
				if err != nil {
					return err
				}
				rep.OracleCost = append(rep.OracleCost, oracle.Cost)
				rep.EstimatedCost = append(rep.EstimatedCost, est.Cost)
			}

			return writeYAML(cmd.OutOrStdout(), rep)
		},
	}
	f := cmd.Flags()
	f.Int64Var(&seed, "seed", 1985, "Random seed")
	f.IntVar(&n, "n", 50, "Samples per domain")
	f.Float64Var(&sigma, "sigma", synth.DefaultSigma, "Blob standard deviation")
	f.Float64Var(&reg, "reg", 0.01, "Entropic regularization")
	f.IntVar(&maxIter, "max-iter", 1000, "Outer iteration cap")
	f.Float64Var(&tol, "tol", 1e-9, "Convergence tolerance")

	return cmd
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}

	return enc.Close()
}

func rows(m *matrix.Dense) [][]float64 {
	if m == nil {
		return nil
	}
	out := make([][]float64, m.Rows())
	for i := range out {
		out[i], _ = m.Row(i)
	}

	return out
}
