// SPDX-License-Identifier: MIT

// Command otshift solves entropic optimal transport problems and estimates
// target class proportions from several labeled source domains.
//
//	otshift fit --config problem.yaml [--reg 0.01 --max-iter 1000 ...]
//	otshift sinkhorn --config transport.yaml
//	otshift demo --seed 1985
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type app struct {
	verbose bool
	dev     bool
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}
	root := &cobra.Command{
		Use:   "otshift",
		Short: "Entropic optimal transport and multi-source target shift",
		Long: `otshift computes entropic optimal transport plans and, for several
labeled source domains and one unlabeled target, estimates the target's
class proportions jointly with one transport plan per source.

Problems are read from YAML files; see "otshift fit --help".`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			if a.dev {
				config = zap.NewDevelopmentConfig()
			}
			if a.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log every outer iteration and debug details")
	root.PersistentFlags().BoolVar(&a.dev, "dev", false, "Use the human-readable development logger")

	root.AddCommand(newFitCmd(a), newSinkhornCmd(a), newDemoCmd(a))

	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
