package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/biopass/internal/config"
	"github.com/andresmejia3/biopass/internal/store"
	"github.com/spf13/cobra"
)

var (
	// DB is the global database connection shared by subcommands
	DB *store.Store
	// Cfg is the loaded configuration, with flag overrides applied
	Cfg *config.Config
	// Log is the process logger
	Log *slog.Logger

	dbURL     string
	threshold float64
)

// Version is the application version.
const Version = "0.1.0"

// skipDB marks commands that never touch the database.
const skipDB = "skip-db"

var rootCmd = &cobra.Command{
	Use:     "biopass",
	Short:   "Face recognition access control",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		Cfg, err = config.Load()
		if err != nil {
			return err
		}
		Log = config.NewLogger(Cfg.Environment)
		slog.SetDefault(Log)

		if cmd.Flags().Changed("threshold") {
			Cfg.MatchThreshold = threshold
		}
		if dbURL != "" {
			Cfg.DatabaseURL = dbURL
		}
		if cmd.Annotations[skipDB] == "true" {
			return nil
		}

		if Cfg.DatabaseURL == "" {
			// Fallback to local default if no env vars are present
			Cfg.DatabaseURL = "postgres://localhost:5432/biopass"
		}
		DB, err = store.New(cmd.Context(), Cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			DB.Close()
		}
	},
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string (default: $BIOPASS_DATABASE_URL or postgres://localhost:5432/biopass)")
	rootCmd.PersistentFlags().Float64VarP(&threshold, "threshold", "t", 0.363, "Cosine similarity needed to accept a login")
}
