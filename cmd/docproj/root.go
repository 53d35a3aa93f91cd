package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app holds the state shared by the commands of a single execution.
type app struct {
	configPath string
	verbose    bool
	environ    map[string]string
	cfg        config
	logger     *zap.Logger
	newLogger  func(verbose bool) (*zap.Logger, error)
}

func newRootCmd() *cobra.Command {
	return newApp().rootCmd()
}

func newApp() *app {
	return &app{newLogger: productionLogger}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docproj",
		Short: "Filter and project documents",
		Long: `docproj filters documents with MongoDB query syntax and reshapes them
with projections, including $elemMatch, positional and $slice operators.

Documents are read from newline delimited extended JSON or from a SQLite
table storing one extended JSON document per row.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.configPath, a.environ)
			if err != nil {
				return err
			}
			a.cfg = cfg

			verbose := a.cfg.Verbose
			if cmd.Flags().Changed("verbose") {
				verbose = a.verbose
			}
			a.logger, err = a.newLogger(verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(a.findCmd())
	return root
}

func productionLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}
