// Package cmd provides the CLI commands for logscope.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"logscope/internal/errors"
	"logscope/internal/ingestion"
	"logscope/internal/logging"
	"logscope/internal/models"
	"logscope/internal/parser"
	"logscope/internal/report"
	"logscope/internal/stats"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// AnalyzeOptions holds options for the analyze command.
type AnalyzeOptions struct {
	Path         string
	TopN         int
	RPMThreshold int
	Format       string
	NoColor      bool
	Strict       bool
	Out          io.Writer
}

// DefaultAnalyzeOptions returns the default analyze options.
func DefaultAnalyzeOptions() *AnalyzeOptions {
	return &AnalyzeOptions{
		TopN:         stats.DefaultTopN,
		RPMThreshold: stats.DefaultRPMThreshold,
		Format:       string(report.FormatText),
		Strict:       true,
		Out:          os.Stdout,
	}
}

// AnalyzeRunner runs one-shot analysis over a file or stdin.
type AnalyzeRunner struct {
	options *AnalyzeOptions
	logger  *zap.Logger
	parser  *parser.Registry
	acc     *stats.Accumulator
}

// NewAnalyzeRunner creates an analyze runner with the given options.
func NewAnalyzeRunner(opts *AnalyzeOptions) (*AnalyzeRunner, error) {
	if opts == nil {
		opts = DefaultAnalyzeOptions()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	if err := setupLogging(); err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	logger := logging.L().With(
		zap.String("command", "analyze"),
		zap.String("path", opts.Path),
	)

	return &AnalyzeRunner{
		options: opts,
		logger:  logger,
		parser:  parser.NewRegistry(),
		acc:     stats.NewAccumulator(),
	}, nil
}

// Run executes the analysis workflow.
func (r *AnalyzeRunner) Run(ctx context.Context) error {
	r.logger.Info("analysis_starting",
		logging.Threshold(r.options.RPMThreshold),
		zap.Int("top_n", r.options.TopN),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			r.logger.Info("received_signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	source, err := createSource(r.options.Path, false, r.logger)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	startTime := time.Now()
	totalLines, skipped, err := r.consume(ctx, source)
	if err != nil && ctx.Err() == nil {
		return errors.NewIngestReadError(source.Name(), err)
	}

	rep, err := r.acc.BuildReport(source.Name(), totalLines, skipped, r.options.TopN, r.options.RPMThreshold)
	if err != nil {
		if !r.options.Strict && errors.GetErrorCode(err) == errors.ErrCodeAnalyzeNoEntries {
			r.logger.Warn("no_entries_parsed", logging.Lines(totalLines))
			return nil
		}
		return err
	}

	r.logger.Info("analysis_complete",
		logging.Lines(totalLines),
		zap.Int("parsed", rep.ParsedLines),
		zap.Int("skipped", rep.SkippedLines),
		zap.Int("bots", len(rep.Bots)),
		logging.Duration(time.Since(startTime)),
	)

	renderer := report.NewRenderer(r.options.Out, !r.options.NoColor)
	return renderer.Render(rep, report.Format(r.options.Format))
}

// consume drains the source, parsing lines into the accumulator.
// Returns total and skipped line counts.
func (r *AnalyzeRunner) consume(ctx context.Context, source ingestion.Source) (total, skipped int, err error) {
	lineCh := make(chan models.RawLine, 1000)

	readErrCh := make(chan error, 1)
	go func() {
		readErrCh <- source.Read(ctx, lineCh)
		close(lineCh)
	}()

	for raw := range lineCh {
		total++
		entry := r.parser.Parse(raw)
		if entry == nil {
			skipped++
			r.logger.Debug("line_unparsable",
				zap.Int("line", raw.Number),
				zap.String("text", truncateLine(raw.Text)),
			)
			continue
		}
		r.acc.Add(entry)
	}

	return total, skipped, <-readErrCh
}

// newAnalyzeCmd configures the analyze command.
func newAnalyzeCmd() *cobra.Command {
	opts := DefaultAnalyzeOptions()

	cmd := &cobra.Command{
		Use:   "analyze <logfile>",
		Short: "Analyze an access log and print a traffic report",
		Long: `Analyze an access log file and print the full traffic report:
top IPs, slowest requests, top paths, user-agent diversity, peak
requests-per-minute per IP, and IPs flagged as bots.

Examples:
  logscope analyze /var/log/nginx/access.log
  logscope analyze access.log --rpm-threshold 200 --top 20
  cat access.log | logscope analyze - --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = args[0]
			runner, err := NewAnalyzeRunner(opts)
			if err != nil {
				return err
			}
			return runner.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&opts.TopN, "top", opts.TopN, "rows per ranking section")
	cmd.Flags().IntVar(&opts.RPMThreshold, "rpm-threshold", opts.RPMThreshold,
		"requests per minute threshold for bot flagging")
	cmd.Flags().StringVar(&opts.Format, "format", opts.Format, "output format (text, json)")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "disable styled output")
	cmd.Flags().BoolVar(&opts.Strict, "strict", true, "exit non-zero when no lines parse")

	return cmd
}
