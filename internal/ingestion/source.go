// Package ingestion provides log source adapters for reading raw lines.
package ingestion

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"logscope/internal/models"

	"github.com/nxadm/tail"
	"go.uber.org/zap"
)

// Source is the interface that log source adapters must implement.
type Source interface {
	// Read reads raw lines and sends them to the provided channel.
	// It should return when the context is cancelled or the source is exhausted.
	Read(ctx context.Context, lines chan<- models.RawLine) error

	// Name returns a human-readable name for this source.
	Name() string

	// Close releases any resources held by the source.
	Close() error
}

// maxLineBytes bounds scanner buffers; access-log lines with long referers
// and user agents can exceed the bufio default.
const maxLineBytes = 1024 * 1024

// FileSource reads lines from a file, either whole-file or in follow mode.
type FileSource struct {
	path   string
	follow bool
	logger *zap.Logger
}

// NewFileSource creates a new file source.
func NewFileSource(path string, follow bool, logger *zap.Logger) *FileSource {
	return &FileSource{
		path:   path,
		follow: follow,
		logger: logger,
	}
}

// Name returns the source name.
func (f *FileSource) Name() string {
	return fmt.Sprintf("file:%s", f.path)
}

// Read reads raw lines from the file.
func (f *FileSource) Read(ctx context.Context, lines chan<- models.RawLine) error {
	if f.follow {
		return f.readFollow(ctx, lines)
	}
	return f.readAll(ctx, lines)
}

// readAll scans the entire file once.
func (f *FileSource) readAll(ctx context.Context, lines chan<- models.RawLine) error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return scanLines(ctx, file, f.path, lines)
}

// readFollow tails the file for new lines, reopening on rotation.
func (f *FileSource) readFollow(ctx context.Context, lines chan<- models.RawLine) error {
	t, err := tail.TailFile(f.path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to tail file: %w", err)
	}
	defer t.Stop()

	lineNum := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-t.Lines:
			if !ok {
				return nil
			}
			if line.Err != nil {
				f.logger.Warn("tail_line_error", zap.Error(line.Err))
				continue
			}
			lineNum++
			select {
			case lines <- models.RawLine{Text: line.Text, Number: lineNum, Source: f.path}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Close releases resources.
func (f *FileSource) Close() error {
	return nil
}

// StdinSource reads lines from standard input.
type StdinSource struct {
	logger *zap.Logger
}

// NewStdinSource creates a new stdin source.
func NewStdinSource(logger *zap.Logger) *StdinSource {
	return &StdinSource{logger: logger}
}

// Name returns the source name.
func (s *StdinSource) Name() string {
	return "stdin"
}

// Read reads raw lines from stdin.
func (s *StdinSource) Read(ctx context.Context, lines chan<- models.RawLine) error {
	return scanLines(ctx, os.Stdin, "stdin", lines)
}

// Close releases resources.
func (s *StdinSource) Close() error {
	return nil
}

// scanLines pumps numbered lines from r into the channel.
func scanLines(ctx context.Context, r io.Reader, source string, lines chan<- models.RawLine) error {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, maxLineBytes)
	scanner.Buffer(buf, maxLineBytes)

	lineNum := 0
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lineNum++
		select {
		case lines <- models.RawLine{Text: scanner.Text(), Number: lineNum, Source: source}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return scanner.Err()
}
