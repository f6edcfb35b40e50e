// Package main provides the ramancal command line tool.
package main

import (
	"os"

	"github.com/chiashi-lab/RamanCalibrator/calibration/config"
	"github.com/chiashi-lab/RamanCalibrator/logging"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	noColor    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ramancal",
		Short: "Calibrate Raman wavenumber axes and export map spectra",
		Long: `ramancal fits a polynomial correction of the wavenumber axis from a
reference spectrum of a known standard, applies it to single spectra and 2D
Raman maps, and exports per-pixel spectra, intensity maps and plots.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				logging.DisableColors()
				pterm.DisableColor()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "JSON config file (default: built-in settings)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newMaterialsCmd(),
		newCalibrateCmd(),
		newMapCmd(),
		newExportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

// loadConfig reads --config and applies the log level
func loadConfig() (*config.SessionConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logging.SetLevel(logging.ParseLevel(level))
	return cfg, nil
}
