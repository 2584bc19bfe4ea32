package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/cuemby/drbridge/pkg/config"
	"github.com/cuemby/drbridge/pkg/log"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "drbridge",
	Short: "drbridge - relays WRB data requests into a local store",
	Long: `drbridge watches the Witnet Requests Board (WRB) contract on an
Ethereum node and copies every data request it has not seen yet into a
local store, recording whether the request is still new or already
finished.

The bridge only reads from the ledger; it never submits transactions.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"drbridge version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultFile, "Path to the config file (.yaml or .toml)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolP("trace", "t", false, "Enable trace logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(requestsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "drbridge version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime)
	},
}

// loadConfig reads the file named by --config
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
			return nil, fmt.Errorf("no %s in the working directory, pass --config", config.DefaultFile)
		}
		return nil, err
	}
	return cfg, nil
}

// initLogging sets up pkg/log. --trace wins over --debug, which wins over
// the configured level.
func initLogging(cmd *cobra.Command, cfg *config.Config) {
	debug, _ := cmd.Flags().GetBool("debug")
	trace, _ := cmd.Flags().GetBool("trace")

	log.Init(log.Config{
		Level:      logLevel(cfg.Log.Level, debug, trace),
		JSONOutput: cfg.Log.JSON,
	})
}

func logLevel(configured string, debug, trace bool) log.Level {
	switch {
	case trace:
		return log.TraceLevel
	case debug:
		return log.DebugLevel
	default:
		return log.ParseLevel(configured)
	}
}
