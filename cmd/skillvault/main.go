package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillvault/pkg/logger"
	"github.com/jingkaihe/skillvault/pkg/presenter"
)

var rootCmd = &cobra.Command{
	Use:   "skillvault",
	Short: "Versioned store for SKILL.md bundles",
	Long: `skillvault stores skills, SKILL.md documents with their supporting files,
per space. Every accepted change creates an immutable version; uploading an
unchanged bundle is a no-op.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.SetLogLevel(viper.GetString("log_level")); err != nil {
			return err
		}
		logger.SetLogFormat(viper.GetString("log_format"))

		shutdown, err := initTracing(cmd.Context())
		if err != nil {
			logger.G(cmd.Context()).WithError(err).Warn("failed to initialize tracing")
			return nil
		}
		tracingShutdown = shutdown
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		if tracingShutdown == nil {
			return
		}
		if err := tracingShutdown(context.WithoutCancel(cmd.Context())); err != nil {
			logger.G(cmd.Context()).WithError(err).Warn("failed to shut down tracing")
		}
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var tracingShutdown func(context.Context) error

func init() {
	// Environment variables
	viper.SetEnvPrefix("SKILLVAULT")
	viper.AutomaticEnv()

	// Config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.skillvault")
	viper.AddConfigPath(".")

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "fmt")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()

	flags := rootCmd.PersistentFlags()
	flags.String("user", "", "User id to act as (overrides user_id)")
	flags.String("org", "", "Organization id to act in (overrides organization_id)")
	flags.String("space", "", "Space id to act in (overrides space_id)")
	flags.String("db", "", "Path to the SQLite database (overrides db_path)")
	flags.String("log-level", "info", "Log level (panic, fatal, error, warn, info, debug, trace)")
	flags.String("log-format", "fmt", "Log format (fmt, json)")

	viper.BindPFlag("user_id", flags.Lookup("user"))
	viper.BindPFlag("organization_id", flags.Lookup("org"))
	viper.BindPFlag("space_id", flags.Lookup("space"))
	viper.BindPFlag("db_path", flags.Lookup("db"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("log_format", flags.Lookup("log-format"))

	rootCmd.AddCommand(skillCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		presenter.Error(err, "")
		os.Exit(1)
	}
}
