package cmd

import (
	"os"

	"logscope/internal/errors"
	"logscope/internal/ingestion"

	"go.uber.org/zap"
)

// createSource creates the appropriate log source for a path.
// "-" means stdin; anything else must be an existing readable file.
func createSource(path string, follow bool, logger *zap.Logger) (ingestion.Source, error) {
	if path == "-" {
		logger.Info("reading_from_stdin")
		return ingestion.NewStdinSource(logger), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIngestFileNotFoundError(path)
		}
		if os.IsPermission(err) {
			return nil, errors.NewIngestPermissionDeniedError(path)
		}
		return nil, errors.NewIngestReadError(path, err)
	}
	if info.IsDir() {
		return nil, errors.NewIngestReadError(path, errors.ErrIngestReadFailed).
			WithContext("reason", "path is a directory")
	}

	logger.Info("reading_from_file",
		zap.String("path", path),
		zap.Bool("follow", follow),
	)
	return ingestion.NewFileSource(path, follow, logger), nil
}

// truncateLine shortens long lines for debug logging.
func truncateLine(line string) string {
	const max = 200
	if len(line) > max {
		return line[:max] + "..."
	}
	return line
}
