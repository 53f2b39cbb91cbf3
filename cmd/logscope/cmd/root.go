// Package cmd provides the CLI commands for logscope.
package cmd

import (
	"fmt"
	"os"

	"logscope/internal/logging"

	"github.com/spf13/cobra"
)

var (
	verbose   bool
	logDir    string
	noFileLog bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "logscope",
	Short: "Web access-log analyzer",
	Long: `logscope analyzes web access logs and reports:
  - Top client IPs by request count
  - Slowest requests by logged response time
  - Most requested paths
  - User-agent diversity per IP (a bot signal)
  - Peak requests-per-minute per IP, with bot flagging

Input is the country-annotated combined log format; plain combined
lines are understood as well. Use "-" to read from stdin.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	_ = logging.Close()
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "logs", "directory for logscope's own JSONL logs")
	rootCmd.PersistentFlags().BoolVar(&noFileLog, "no-file-log", false, "disable the rotating JSONL log file")

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newBotsCmd())
	rootCmd.AddCommand(newWatchCmd())
}

// setupLogging configures the global logger from the persistent flags.
func setupLogging() error {
	cfg := logging.DefaultConfig()
	cfg.LogDir = logDir
	cfg.EnableFile = !noFileLog
	if verbose {
		cfg.Level = "debug"
	}
	return logging.Setup(cfg)
}
