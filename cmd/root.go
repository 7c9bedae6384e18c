package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/gpacalc/internal/config"
	"github.com/KaramelBytes/gpacalc/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global
	// Process logger, built before every command runs
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "gpacalc",
	Short: "gpacalc: cumulative GPA and top-tier credit ratio from course records",
	Long: `gpacalc reads a course-record table (CSV, TSV or XLSX) and computes the
credit-weighted cumulative GPA and the share of letter-graded credits earned at
A or above. Run it once over a file with "calc" or serve it over HTTP with "serve".`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		l, err := logging.New(c.LogLevel, c.LogFormat, debug)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)

	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.gpacalc/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func loadConfig() {
	cfg = nil
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
}

// currentConfig returns the loaded configuration or the built-in defaults.
func currentConfig() *cfgpkg.Global {
	if cfg != nil {
		return cfg
	}
	return cfgpkg.Default()
}
