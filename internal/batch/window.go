// Package batch provides a windowed collector for live log analysis.
//
// In watch mode, parsed entries are accumulated into windows and flushed to
// a handler when either the window size cap or the window interval is
// reached. The handler typically folds the window into a stats accumulator
// and emits a rolling report.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	logscopeerrors "logscope/internal/errors"
	"logscope/internal/logging"
	"logscope/internal/models"

	"go.uber.org/zap"
)

// Common errors for the window collector.
var (
	// ErrCollectorClosed is returned when operations are attempted on a closed collector.
	ErrCollectorClosed = errors.New("window collector is closed")

	// ErrWindowFull is returned when the entry buffer is at capacity.
	ErrWindowFull = errors.New("window buffer is full")

	// ErrHandlerFailed is returned when the window handler fails.
	ErrHandlerFailed = errors.New("window handler failed")
)

// WindowHandler is the interface for processing windows of access entries.
type WindowHandler interface {
	// HandleWindow processes one window of entries.
	// Returns the number of successfully processed entries and any error.
	HandleWindow(ctx context.Context, window []*models.AccessEntry) (processed int, err error)
}

// WindowHandlerFunc is a function adapter for WindowHandler.
type WindowHandlerFunc func(ctx context.Context, window []*models.AccessEntry) (int, error)

// HandleWindow implements WindowHandler.
func (f WindowHandlerFunc) HandleWindow(ctx context.Context, window []*models.AccessEntry) (int, error) {
	return f(ctx, window)
}

// Metrics holds window collector statistics.
type Metrics struct {
	// TotalEntries is the total number of entries added.
	TotalEntries int64

	// TotalWindows is the total number of windows flushed.
	TotalWindows int64

	// TotalProcessed is the total number of successfully processed entries.
	TotalProcessed int64

	// TotalDropped is the total number of dropped entries due to errors.
	TotalDropped int64

	// LastFlushTime is the timestamp of the last flush.
	LastFlushTime time.Time

	// LastFlushDuration is the duration of the last flush.
	LastFlushDuration time.Duration

	// LastWindowSize is the size of the last window.
	LastWindowSize int
}

// Config holds window collector configuration.
type Config struct {
	// MaxWindowSize is the maximum number of entries before an early flush.
	// Default: 10000
	MaxWindowSize int

	// Interval is the window duration; each tick flushes the window.
	// Default: 30 seconds
	Interval time.Duration

	// BufferSize is the capacity of the internal entry buffer.
	// Default: 10000
	BufferSize int

	// FlushTimeout is the timeout for flushing a window to the handler.
	// Default: 30 seconds
	FlushTimeout time.Duration

	// DropOnFull determines behavior when the buffer is full.
	// If true, new entries are dropped. If false, Add() blocks.
	// Default: false
	DropOnFull bool

	// Logger is the logger instance.
	Logger *zap.Logger
}

// DefaultConfig returns the default window collector configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxWindowSize: 10000,
		Interval:      30 * time.Second,
		BufferSize:    10000,
		FlushTimeout:  30 * time.Second,
		DropOnFull:    false,
		Logger:        logging.L(),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.MaxWindowSize <= 0 {
		return logscopeerrors.NewConfigValidationError("MaxWindowSize", c.MaxWindowSize, "must be positive")
	}
	if c.Interval <= 0 {
		return logscopeerrors.NewConfigValidationError("Interval", c.Interval, "must be positive")
	}
	if c.BufferSize <= 0 {
		return logscopeerrors.NewConfigValidationError("BufferSize", c.BufferSize, "must be positive")
	}
	if c.FlushTimeout <= 0 {
		return logscopeerrors.NewConfigValidationError("FlushTimeout", c.FlushTimeout, "must be positive")
	}
	return nil
}

// Collector accumulates access entries into windows and flushes them to a
// handler when either the size cap or the interval is reached.
type Collector struct {
	config  *Config
	handler WindowHandler
	logger  *zap.Logger

	// Input channel for entries
	entryCh chan *models.AccessEntry

	// Current window being accumulated
	window   []*models.AccessEntry
	windowMu sync.Mutex

	// Lifecycle management
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once

	// Metrics
	metrics     Metrics
	metricsLock sync.RWMutex
}

// NewCollector creates a new window collector with the given configuration and handler.
func NewCollector(cfg *Config, handler WindowHandler) (*Collector, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if handler == nil {
		return nil, logscopeerrors.NewConfigValidationError("handler", nil, "window handler is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.L()
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Collector{
		config:  cfg,
		handler: handler,
		logger:  logger.With(zap.String("component", "window_collector")),
		entryCh: make(chan *models.AccessEntry, cfg.BufferSize),
		window:  make([]*models.AccessEntry, 0, cfg.MaxWindowSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	// Start the processing goroutine
	c.wg.Add(1)
	go c.processLoop()

	c.logger.Info("window_collector_started",
		zap.Int("max_window_size", cfg.MaxWindowSize),
		zap.Duration("interval", cfg.Interval),
		zap.Int("buffer_size", cfg.BufferSize),
	)

	return c, nil
}

// Add adds an access entry to the collector.
// If DropOnFull is false, this will block when the buffer is full.
// If DropOnFull is true, the entry will be dropped and ErrWindowFull returned.
func (c *Collector) Add(entry *models.AccessEntry) error {
	if c.closed.Load() {
		return ErrCollectorClosed
	}

	if entry == nil {
		return nil
	}

	if c.config.DropOnFull {
		select {
		case c.entryCh <- entry:
			atomic.AddInt64(&c.metrics.TotalEntries, 1)
			return nil
		default:
			atomic.AddInt64(&c.metrics.TotalDropped, 1)
			c.logger.Warn("entry_dropped_buffer_full",
				zap.String("ip", entry.IP),
			)
			return ErrWindowFull
		}
	}

	select {
	case c.entryCh <- entry:
		atomic.AddInt64(&c.metrics.TotalEntries, 1)
		return nil
	case <-c.ctx.Done():
		return ErrCollectorClosed
	}
}

// Flush forces an immediate flush of the current window.
func (c *Collector) Flush(ctx context.Context) error {
	if c.closed.Load() {
		return ErrCollectorClosed
	}

	c.windowMu.Lock()
	window := c.window
	c.window = make([]*models.AccessEntry, 0, c.config.MaxWindowSize)
	c.windowMu.Unlock()

	if len(window) == 0 {
		return nil
	}

	return c.flushWindow(ctx, window)
}

// Close stops the collector and flushes any remaining entries.
func (c *Collector) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.entryCh)
		c.cancel()

		// Wait for processing to complete
		c.wg.Wait()

		// Flush any remaining entries
		c.windowMu.Lock()
		remaining := c.window
		c.window = nil
		c.windowMu.Unlock()

		if len(remaining) > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), c.config.FlushTimeout)
			defer cancel()
			if err := c.flushWindow(ctx, remaining); err != nil {
				c.logger.Error("final_flush_failed", zap.Error(err))
				closeErr = err
			}
		}

		c.logger.Info("window_collector_stopped",
			zap.Int64("total_entries", c.metrics.TotalEntries),
			zap.Int64("total_windows", c.metrics.TotalWindows),
			zap.Int64("total_processed", c.metrics.TotalProcessed),
			zap.Int64("total_dropped", c.metrics.TotalDropped),
		)
	})
	return closeErr
}

// GetMetrics returns a copy of the current metrics.
func (c *Collector) GetMetrics() Metrics {
	c.metricsLock.RLock()
	defer c.metricsLock.RUnlock()

	return Metrics{
		TotalEntries:      atomic.LoadInt64(&c.metrics.TotalEntries),
		TotalWindows:      atomic.LoadInt64(&c.metrics.TotalWindows),
		TotalProcessed:    atomic.LoadInt64(&c.metrics.TotalProcessed),
		TotalDropped:      atomic.LoadInt64(&c.metrics.TotalDropped),
		LastFlushTime:     c.metrics.LastFlushTime,
		LastFlushDuration: c.metrics.LastFlushDuration,
		LastWindowSize:    c.metrics.LastWindowSize,
	}
}

// processLoop is the main processing goroutine.
func (c *Collector) processLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return

		case entry, ok := <-c.entryCh:
			if !ok {
				return
			}

			c.windowMu.Lock()
			c.window = append(c.window, entry)
			shouldFlush := len(c.window) >= c.config.MaxWindowSize
			var window []*models.AccessEntry
			if shouldFlush {
				window = c.window
				c.window = make([]*models.AccessEntry, 0, c.config.MaxWindowSize)
			}
			c.windowMu.Unlock()

			if shouldFlush {
				ctx, cancel := context.WithTimeout(c.ctx, c.config.FlushTimeout)
				if err := c.flushWindow(ctx, window); err != nil {
					c.logger.Error("window_flush_failed", zap.Error(err))
				}
				cancel()
			}

		case <-ticker.C:
			c.windowMu.Lock()
			window := c.window
			c.window = make([]*models.AccessEntry, 0, c.config.MaxWindowSize)
			c.windowMu.Unlock()

			if len(window) > 0 {
				ctx, cancel := context.WithTimeout(c.ctx, c.config.FlushTimeout)
				if err := c.flushWindow(ctx, window); err != nil {
					c.logger.Error("interval_flush_failed", zap.Error(err))
				}
				cancel()
			}
		}
	}
}

// flushWindow flushes one window to the handler.
func (c *Collector) flushWindow(ctx context.Context, window []*models.AccessEntry) error {
	if len(window) == 0 {
		return nil
	}

	startTime := time.Now()
	c.logger.Debug("flushing_window",
		zap.Int("window_size", len(window)),
	)

	processed, err := c.handler.HandleWindow(ctx, window)
	duration := time.Since(startTime)

	// Update metrics
	atomic.AddInt64(&c.metrics.TotalWindows, 1)
	atomic.AddInt64(&c.metrics.TotalProcessed, int64(processed))

	c.metricsLock.Lock()
	c.metrics.LastFlushTime = time.Now()
	c.metrics.LastFlushDuration = duration
	c.metrics.LastWindowSize = len(window)
	c.metricsLock.Unlock()

	if err != nil {
		dropped := len(window) - processed
		atomic.AddInt64(&c.metrics.TotalDropped, int64(dropped))

		c.logger.Error("window_handler_failed",
			zap.Int("window_size", len(window)),
			zap.Int("processed", processed),
			zap.Int("dropped", dropped),
			zap.Duration("duration", duration),
			zap.Error(err),
		)

		return fmt.Errorf("%w: %v", ErrHandlerFailed, err)
	}

	c.logger.Debug("window_flushed",
		zap.Int("window_size", len(window)),
		zap.Int("processed", processed),
		zap.Duration("duration", duration),
	)

	return nil
}
