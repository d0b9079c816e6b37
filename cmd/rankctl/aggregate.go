package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kwtrack/internal/config"
	"kwtrack/internal/models"
	"kwtrack/internal/tracking"
	"kwtrack/internal/validation"
)

var (
	flagProject     string
	flagKeywords    string
	flagFrom        string
	flagTo          string
	flagMetric      string
	flagGranularity string
	flagEngine      string
	flagLocale      string
	flagRefresh     bool
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Compute an aggregation window and print it as JSON",
	Long: `Aggregate ranking observations for a keyword set over a date range.

Fresh persisted windows are reused unless --refresh is given. The result is
written back to the database either way.`,
	Example: `  rankctl aggregate --project acme --keywords "running shoes,trail shoes" --from 2024-01-01 --to 2024-01-31 --metric avg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dates, err := tracking.ParseDateRange(flagFrom, flagTo)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		database, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		project, err := database.GetProjectBySlug(ctx, flagProject)
		if err != nil {
			return fmt.Errorf("project %q: %w", flagProject, err)
		}

		cfg := config.Load()
		planner := tracking.NewPlanner(tracking.NewAccessor(database, cfg.QueryPageSize), database, nil, tracking.Options{
			MaxAge:         cfg.AggregationMaxAge,
			Precision:      cfg.AggregationPrecision,
			ComputeTimeout: cfg.ComputeTimeout,
		})
		// Wait for the window to be persisted before the pool closes.
		defer planner.Close()

		req := tracking.AggregateRequest{
			ProjectID:   project.ID,
			Keywords:    validation.SplitKeywords(flagKeywords),
			Range:       dates,
			Metric:      flagMetric,
			Granularity: flagGranularity,
			Engine:      flagEngine,
			Locale:      flagLocale,
		}

		run := planner.Aggregate
		if flagRefresh {
			run = planner.Refresh
		}
		w, err := run(ctx, req)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(w)
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge <project>",
	Short: "Discard every persisted aggregation window of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		database, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		project, err := database.GetProjectBySlug(ctx, args[0])
		if err != nil {
			return fmt.Errorf("project %q: %w", args[0], err)
		}

		deleted, err := database.DeleteAggregationWindows(ctx, project.ID)
		if err != nil {
			return fmt.Errorf("purging windows: %w", err)
		}
		fmt.Printf("Purged %d window(s) for %s.\n", deleted, project.Slug)
		return nil
	},
}

func init() {
	f := aggregateCmd.Flags()
	f.StringVar(&flagProject, "project", "", "project slug")
	f.StringVar(&flagKeywords, "keywords", "", "comma-separated keyword set")
	f.StringVar(&flagFrom, "from", "", "first day of the range (YYYY-MM-DD)")
	f.StringVar(&flagTo, "to", "", "last day of the range (YYYY-MM-DD)")
	f.StringVar(&flagMetric, "metric", models.MetricAvg, "avg, min or max")
	f.StringVar(&flagGranularity, "granularity", models.GranularityDaily, "daily or weekly")
	f.StringVar(&flagEngine, "engine", "", "only observations from this search engine")
	f.StringVar(&flagLocale, "locale", "", "only observations for this locale")
	f.BoolVar(&flagRefresh, "refresh", false, "recompute even if a fresh window is stored")
	aggregateCmd.MarkFlagRequired("project")
	aggregateCmd.MarkFlagRequired("keywords")
}
