package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/copyleftdev/hypertune/internal/config"
	"github.com/copyleftdev/hypertune/internal/hyperparam"
	"github.com/copyleftdev/hypertune/internal/logging"
	"github.com/copyleftdev/hypertune/internal/solver"
	"github.com/copyleftdev/hypertune/internal/solver/backends"
)

// app holds state shared by all subcommands.
type app struct {
	logLevel string
	cfg      *config.Config
	logger   *zap.Logger
	registry *solver.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{registry: backends.NewRegistry()}

	root := &cobra.Command{
		Use:   "hypertune",
		Short: "Hyperparameter search space normalization and optimization",
		Long: `hypertune turns hyperparameter specifications into nested search spaces
and minimizes loss functions over them with pluggable optimizer backends.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logging.NewZapLogger(logging.New(logging.ParseLevel(a.logLevel), cmd.ErrOrStderr()))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(a.normalizeCmd(), a.runCmd(), a.solversCmd())
	return root
}

// loadProject reads a YAML or JSON project file, picked by extension.
func loadProject(path string) (*hyperparam.Project, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return hyperparam.ParseJSON(data)
	}
	return hyperparam.LoadYAML(path)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
