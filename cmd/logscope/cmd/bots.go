package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"logscope/internal/report"
	"logscope/internal/stats"

	"github.com/spf13/cobra"
)

// newBotsCmd configures the bots command: a scripting-friendly cut of the
// analyze output that prints only the flagged IPs.
func newBotsCmd() *cobra.Command {
	opts := DefaultAnalyzeOptions()

	cmd := &cobra.Command{
		Use:   "bots <logfile>",
		Short: "Print IPs whose peak request rate exceeds the threshold",
		Long: `Parse an access log and print only the IPs whose peak
requests-per-minute exceeds the threshold, one per line. With
--format json the flagged IPs are printed with their peak rates.

Examples:
  logscope bots access.log
  logscope bots access.log --rpm-threshold 50 | xargs -I{} iptables-block {}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = args[0]
			runner, err := NewAnalyzeRunner(opts)
			if err != nil {
				return err
			}
			return runBots(cmd, runner, opts)
		},
	}

	cmd.Flags().IntVar(&opts.RPMThreshold, "rpm-threshold", stats.DefaultRPMThreshold,
		"requests per minute threshold for bot flagging")
	cmd.Flags().StringVar(&opts.Format, "format", string(report.FormatText), "output format (text, json)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", true, "exit non-zero when no lines parse")

	return cmd
}

// runBots reuses the analyze pipeline but renders only the bot section.
func runBots(cmd *cobra.Command, runner *AnalyzeRunner, opts *AnalyzeOptions) error {
	ctx := cmd.Context()

	source, err := createSource(opts.Path, false, runner.logger)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	totalLines, skipped, err := runner.consume(ctx, source)
	if err != nil && ctx.Err() == nil {
		return err
	}

	rep, err := runner.acc.BuildReport(source.Name(), totalLines, skipped, stats.DefaultTopN, opts.RPMThreshold)
	if err != nil {
		if !opts.Strict {
			return nil
		}
		return err
	}

	renderer := report.NewRenderer(os.Stdout, false)
	if report.Format(opts.Format) == report.FormatJSON {
		data, err := json.MarshalIndent(rep.Bots, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	return renderer.BotList(rep)
}
