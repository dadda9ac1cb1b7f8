package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/badge-rename/internal/config"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "badge-rename",
	Short: "Rename event photos by the name badges people hold",
	Long: `Badge Rename reads name badges in a folder of event photos, matches the
text against a roster and files every photo of the badge holder under their
name (Name-badge.jpeg, Name-1.jpeg, ...). Photos that cannot be attributed
are copied unchanged into an unmatched folder.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "TOML configuration file (environment variables override it)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug details")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig reads the configuration file when one was given, otherwise the
// environment only.
func loadConfig() (*config.Config, error) {
	if configFile == "" {
		return config.Load(), nil
	}
	return config.LoadFile(configFile)
}

// newLogger writes structured logs to stderr.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
