// Command rankctl is the operator CLI for the keyword ranking service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kwtrack/internal/config"
	"kwtrack/internal/db"
)

var (
	flagDatabaseURL string
	flagConfig      string
)

var rootCmd = &cobra.Command{
	Use:           "rankctl",
	Short:         "Operate the keyword ranking service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cfg := config.Load()
	rootCmd.PersistentFlags().StringVar(&flagDatabaseURL, "database-url", cfg.DatabaseURL, "PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", cfg.ConfigFile, "path to YAML config file")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(aggregateCmd)
	rootCmd.AddCommand(purgeCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openDB connects to the database named by --database-url.
func openDB(ctx context.Context) (*db.DB, error) {
	database, err := db.New(ctx, flagDatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return database, nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.RunMigrations(flagDatabaseURL); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		fmt.Println("Migrations applied.")
		return nil
	},
}
