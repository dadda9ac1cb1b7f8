package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/badge-rename/internal/config"
)

// mustGetBool gets a bool flag value or panics if the flag doesn't exist.
// This is appropriate for flags defined in init() - errors indicate programming bugs.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetInt gets an int flag value or panics if the flag doesn't exist.
func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetString gets a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetFloat64 gets a float64 flag value or panics if the flag doesn't exist.
func mustGetFloat64(cmd *cobra.Command, name string) float64 {
	val, err := cmd.Flags().GetFloat64(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// applyFlagOverrides copies explicitly set command-line flags over the
// loaded configuration. Unset flags keep the config value.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("ocr") {
		cfg.OCR.Engine = mustGetString(cmd, "ocr")
	}
	if flags.Changed("lang") {
		cfg.OCR.Language = mustGetString(cmd, "lang")
	}
	if flags.Changed("detector") {
		cfg.Face.Detector = mustGetString(cmd, "detector")
	}
	if flags.Changed("cascade") {
		cfg.Face.CascadePath = mustGetString(cmd, "cascade")
	}
	if flags.Changed("threshold") {
		cfg.Match.FaceThreshold = mustGetFloat64(cmd, "threshold")
	}
	if flags.Changed("window") {
		cfg.Match.Window = mustGetInt(cmd, "window")
	}
	if flags.Changed("window-workers") {
		cfg.Match.WindowWorkers = mustGetInt(cmd, "window-workers")
	}
	if flags.Changed("fail-fast") {
		cfg.Match.FailFast = mustGetBool(cmd, "fail-fast")
	}
	if flags.Changed("unmatched-dir") {
		cfg.Output.UnmatchedDir = mustGetString(cmd, "unmatched-dir")
	}
	if flags.Changed("quality") {
		cfg.Output.JPEGQuality = mustGetInt(cmd, "quality")
	}
}
