package main

import (
	"github.com/spf13/cobra"

	"github.com/copyleftdev/hypertune/internal/searchspace"
)

func (a *app) normalizeCmd() *cobra.Command {
	var projectPath string

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Print the normalized search space of a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := loadProject(projectPath)
			if err != nil {
				return err
			}
			space, err := searchspace.Normalize(project.Hyperparameter, a.logger)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), space)
		},
	}
	cmd.Flags().StringVar(&projectPath, "project", "", "Project file, YAML or JSON (required)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}
