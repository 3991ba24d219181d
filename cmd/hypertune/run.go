package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/copyleftdev/hypertune/internal/losses"
	"github.com/copyleftdev/hypertune/internal/solver"
)

func (a *app) runCmd() *cobra.Command {
	var (
		projectPath string
		solverName  string
		lossName    string
		budget      int
		seed        int64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Minimize a builtin loss over a project's search space",
		Long: `Runs one optimization of a builtin loss function and prints the best
parameters as JSON. Solver and budget default to the project file, then to
the SOLVER_* environment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := loadProject(projectPath)
			if err != nil {
				return err
			}
			loss, err := losses.Lookup(lossName)
			if err != nil {
				return err
			}

			name := firstNonEmpty(solverName, project.Solver, a.cfg.Solver.Default)
			if budget > 0 {
				project.MaxIterations = budget
			}
			if seed == 0 {
				seed = a.cfg.Solver.Seed
			}

			s, err := a.registry.New(name, solver.Options{
				MaxIterations:  a.cfg.Solver.MaxIterations,
				Seed:           seed,
				PopulationSize: a.cfg.Mayfly.Population,
				Kernel:         a.cfg.Bayesian.Kernel,
				InitialPoints:  a.cfg.Bayesian.InitialPoints,
				Logger:         a.logger,
			})
			if err != nil {
				return err
			}

			start := time.Now()
			sol, err := solver.Solve(cmd.Context(), s, project, nil, loss)
			if err != nil {
				return err
			}
			a.logger.Info("Optimization complete",
				zap.String("solver", name),
				zap.String("loss", lossName),
				zap.Float64("best_loss", sol.Loss),
				zap.Int("trials", sol.Trials),
				zap.Duration("elapsed", time.Since(start)),
			)
			return writeJSON(cmd.OutOrStdout(), sol)
		},
	}
	cmd.Flags().StringVar(&projectPath, "project", "", "Project file, YAML or JSON (required)")
	cmd.Flags().StringVar(&solverName, "solver", "", "Solver backend")
	cmd.Flags().StringVar(&lossName, "loss", losses.Sphere, "Builtin loss function")
	cmd.Flags().IntVar(&budget, "budget", 0, "Maximum loss evaluations")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed, 0 for SOLVER_SEED")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
