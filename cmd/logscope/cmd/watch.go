package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"logscope/internal/batch"
	"logscope/internal/logging"
	"logscope/internal/models"
	"logscope/internal/parser"
	"logscope/internal/report"
	"logscope/internal/stats"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// WatchOptions holds options for the watch command.
type WatchOptions struct {
	Path         string
	Interval     time.Duration
	TopN         int
	RPMThreshold int
	WindowSize   int
	Format       string
	NoColor      bool
	Out          io.Writer
}

// DefaultWatchOptions returns the default watch options.
func DefaultWatchOptions() *WatchOptions {
	return &WatchOptions{
		Interval:     30 * time.Second,
		TopN:         stats.DefaultTopN,
		RPMThreshold: stats.DefaultRPMThreshold,
		WindowSize:   10000,
		Format:       string(report.FormatText),
		Out:          os.Stdout,
	}
}

// WatchRunner follows a live log and emits a report per window.
type WatchRunner struct {
	options *WatchOptions
	logger  *zap.Logger
	parser  *parser.Registry

	// skipped counts unparsable lines since the last window flush
	skipped atomic.Int64
}

// NewWatchRunner creates a watch runner with the given options.
func NewWatchRunner(opts *WatchOptions) (*WatchRunner, error) {
	if opts == nil {
		opts = DefaultWatchOptions()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	if err := setupLogging(); err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	logger := logging.L().With(
		zap.String("command", "watch"),
		zap.String("path", opts.Path),
	)

	return &WatchRunner{
		options: opts,
		logger:  logger,
		parser:  parser.NewRegistry(),
	}, nil
}

// Run follows the log until interrupted.
func (r *WatchRunner) Run(ctx context.Context) error {
	r.logger.Info("watch_starting",
		zap.Duration("interval", r.options.Interval),
		logging.Threshold(r.options.RPMThreshold),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

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

	source, err := createSource(r.options.Path, true, r.logger)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	collectorCfg := &batch.Config{
		MaxWindowSize: r.options.WindowSize,
		Interval:      r.options.Interval,
		BufferSize:    r.options.WindowSize,
		FlushTimeout:  30 * time.Second,
		DropOnFull:    true,
		Logger:        r.logger,
	}
	collector, err := batch.NewCollector(collectorCfg, r.windowHandler(source.Name()))
	if err != nil {
		return fmt.Errorf("failed to create window collector: %w", err)
	}
	defer func() {
		if err := collector.Close(); err != nil {
			r.logger.Error("collector_close_error", zap.Error(err))
		}
	}()

	lineCh := make(chan models.RawLine, 1000)
	readErrCh := make(chan error, 1)
	go func() {
		readErrCh <- source.Read(ctx, lineCh)
		close(lineCh)
	}()

	for raw := range lineCh {
		entry := r.parser.Parse(raw)
		if entry == nil {
			r.skipped.Add(1)
			continue
		}
		if err := collector.Add(entry); err != nil {
			r.logger.Warn("failed_to_add_entry", zap.Error(err))
		}
	}

	if err := <-readErrCh; err != nil && ctx.Err() == nil {
		return fmt.Errorf("source read error: %w", err)
	}

	metrics := collector.GetMetrics()
	r.logger.Info("watch_stopped",
		zap.Int64("entries", metrics.TotalEntries),
		zap.Int64("windows", metrics.TotalWindows),
		zap.Int64("dropped", metrics.TotalDropped),
	)

	return nil
}

// windowHandler builds a fresh per-window report and renders it.
func (r *WatchRunner) windowHandler(sourceName string) batch.WindowHandler {
	renderer := report.NewRenderer(r.options.Out, !r.options.NoColor)

	return batch.WindowHandlerFunc(func(_ context.Context, window []*models.AccessEntry) (int, error) {
		skipped := int(r.skipped.Swap(0))

		acc := stats.NewAccumulator()
		for _, entry := range window {
			acc.Add(entry)
		}

		rep, err := acc.BuildReport(sourceName, len(window)+skipped, skipped,
			r.options.TopN, r.options.RPMThreshold)
		if err != nil {
			// Window held only unparsable lines; nothing to report.
			return len(window), nil
		}

		if err := renderer.Render(rep, report.Format(r.options.Format)); err != nil {
			return len(window), err
		}

		for _, bot := range rep.Bots {
			r.logger.Warn("bot_flagged",
				logging.ClientIP(bot.IP),
				zap.Int("peak_rpm", bot.Peak),
				logging.Threshold(r.options.RPMThreshold),
			)
		}

		return len(window), nil
	})
}

// newWatchCmd configures the watch command.
func newWatchCmd() *cobra.Command {
	opts := DefaultWatchOptions()

	cmd := &cobra.Command{
		Use:   "watch <logfile>",
		Short: "Follow a live access log and emit rolling reports",
		Long: `Follow an access log like tail -f and print a traffic report for
each window. Flagged bots are also written to the JSONL log so they
can be alerted on.

Examples:
  logscope watch /var/log/nginx/access.log
  logscope watch access.log --interval 10s --rpm-threshold 50`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = args[0]
			runner, err := NewWatchRunner(opts)
			if err != nil {
				return err
			}
			return runner.Run(cmd.Context())
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", opts.Interval, "window duration between reports")
	cmd.Flags().IntVar(&opts.TopN, "top", opts.TopN, "rows per ranking section")
	cmd.Flags().IntVar(&opts.RPMThreshold, "rpm-threshold", opts.RPMThreshold,
		"requests per minute threshold for bot flagging")
	cmd.Flags().IntVar(&opts.WindowSize, "window-size", opts.WindowSize, "max entries per window")
	cmd.Flags().StringVar(&opts.Format, "format", opts.Format, "output format (text, json)")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "disable styled output")

	return cmd
}
