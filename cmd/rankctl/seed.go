package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kwtrack/internal/config"
	"kwtrack/internal/validation"
)

var flagSeedProject string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert projects and keywords declared in the config file",
	Long: `Create the projects declared in the YAML config file and start tracking their keywords.

Existing projects are renamed to match the file; keywords are only ever added.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		yamlCfg, err := config.LoadYAMLConfig(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if yamlCfg == nil {
			return fmt.Errorf("config file %s not found", flagConfig)
		}

		projects := yamlCfg.Projects
		if flagSeedProject != "" {
			p := yamlCfg.GetProjectBySlug(flagSeedProject)
			if p == nil {
				return fmt.Errorf("project %q is not declared in %s", flagSeedProject, flagConfig)
			}
			projects = []config.ProjectConfig{*p}
		}

		for _, p := range projects {
			for _, kw := range p.Keywords {
				if !validation.ValidateKeyword(validation.NormalizeKeyword(kw)) {
					return fmt.Errorf("project %s: invalid keyword %q", p.Slug, kw)
				}
			}
		}

		database, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer database.Close()

		for _, p := range projects {
			project, err := database.SeedProject(cmd.Context(), p.Slug, p.Name, p.Keywords)
			if err != nil {
				return err
			}
			fmt.Printf("%s  %s  %d keyword(s)\n", project.ID, project.Slug, len(p.Keywords))
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&flagSeedProject, "project", "", "only seed the project with this slug")
}
