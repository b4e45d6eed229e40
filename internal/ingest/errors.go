package ingest

import "errors"

var (
	// ErrRunCancelled is the cancellation cause of a run stopped by request
	ErrRunCancelled = errors.New("run cancelled")

	// ErrRunTimeout is the cancellation cause of a run that exceeded its time budget
	ErrRunTimeout = errors.New("run timed out")

	// ErrReporterClosed is returned for progress reports after a terminal entry
	ErrReporterClosed = errors.New("progress reporter closed")

	// ErrUnknownSource is reported for requested source names without an adapter
	ErrUnknownSource = errors.New("unknown source")
)
